package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/cafe_pos/internal/service"
	"github.com/Skotchmaster/cafe_pos/internal/transport"
	"github.com/Skotchmaster/cafe_pos/internal/util"
)

// fail maps a service error onto a status code and logs it under event.
// internal is the message shown for unexpected errors.
func fail(l *slog.Logger, event string, err error, internal string) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		l.Warn(event, "status", http.StatusBadRequest, "reason", "invalid request", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		l.Warn(event, "status", http.StatusUnauthorized, "reason", "unauthorized", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, service.ErrNotFound):
		l.Warn(event, "status", http.StatusNotFound, "reason", "not found", "error", err)
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrConflict):
		l.Warn(event, "status", http.StatusConflict, "reason", "conflict", "error", err)
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		l.Error(event, "status", http.StatusInternalServerError, "reason", internal, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, internal)
	}
}

// orderFail renders order-processing failures as transport.ErrorResponse so
// the client gets the offending line and the missing ingredients.
func orderFail(l *slog.Logger, event string, err error) error {
	var (
		ce *service.ConsumptionError
		su *service.StockUnavailableError
		le *service.LineError
	)
	var line *int
	if errors.As(err, &le) {
		line = &le.Line
	}

	switch {
	case errors.As(err, &ce):
		l.Warn(event, "status", http.StatusConflict, "reason", "stock consumption failed", "line", ce.Line, "error", err)
		return echo.NewHTTPError(http.StatusConflict, transport.ErrorResponse{
			Error:              "stock_consumption_failed",
			Message:            err.Error(),
			Line:               &ce.Line,
			MissingIngredients: []transport.MissingIngredient{ce.Ingredient},
		})
	case errors.As(err, &su):
		l.Warn(event, "status", http.StatusConflict, "reason", "stock unavailable", "error", err)
		return echo.NewHTTPError(http.StatusConflict, transport.ErrorResponse{
			Error:              "stock_unavailable",
			Message:            err.Error(),
			Line:               su.FirstLine(),
			MissingIngredients: su.Missing(),
			Lines:              su.Report.Lines,
		})
	case errors.Is(err, service.ErrNotFound):
		l.Warn(event, "status", http.StatusNotFound, "reason", "menu item not found", "error", err)
		return echo.NewHTTPError(http.StatusNotFound, transport.ErrorResponse{Error: "not_found", Message: err.Error(), Line: line})
	case errors.Is(err, service.ErrValidation):
		l.Warn(event, "status", http.StatusBadRequest, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, transport.ErrorResponse{Error: "validation_error", Message: err.Error(), Line: line})
	case errors.Is(err, service.ErrConflict):
		l.Warn(event, "status", http.StatusConflict, "reason", "conflict", "error", err)
		return echo.NewHTTPError(http.StatusConflict, transport.ErrorResponse{Error: "conflict", Message: err.Error()})
	default:
		l.Error(event, "status", http.StatusInternalServerError, "reason", "cannot process order", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, transport.ErrorResponse{Error: "internal_error", Message: "cannot process order"})
	}
}

func parseID(c echo.Context) (uuid.UUID, error) {
	return uuid.Parse(c.Param("id"))
}

// queryList accepts both ?k=a,b and ?k=a&k=b.
func queryList(c echo.Context, key string) []string {
	var out []string
	for _, v := range c.QueryParams()[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func pageParams(c echo.Context) (page, offset, limit int) {
	page = util.ParseIntDefault(c.QueryParam("page"), 1)
	if page < 1 {
		page = 1
	}
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit = util.Calculate(page, size)
	return page, offset, limit
}

func listResponse[T any](items []T, page, offset, limit int, total int64) transport.ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return transport.ListResponse[T]{
		Data: items,
		Meta: transport.PageMeta{
			Page:       page,
			Size:       limit,
			Total:      total,
			TotalPages: util.TotalPages(total, limit),
			HasPrev:    page > 1,
			HasNext:    int64(offset+limit) < total,
		},
	}
}
