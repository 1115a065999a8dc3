package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/cafe_pos/internal/logging"
	middleware "github.com/Skotchmaster/cafe_pos/internal/middleware/auth"
	"github.com/Skotchmaster/cafe_pos/internal/service"
	"github.com/Skotchmaster/cafe_pos/internal/transport"
)

type ProcessHTTP struct {
	Processor *service.OrderProcessor
	Checker   *service.AvailabilityChecker
}

func (h *ProcessHTTP) ProcessOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.process")

	userID, err := middleware.UserID(c)
	if err != nil {
		l.Warn("process_order_error", "status", 401, "reason", "no principal", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, transport.ErrorResponse{Error: "unauthorized", Message: "login required"})
	}

	var req transport.ProcessOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("process_order_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, transport.ErrorResponse{Error: "validation_error", Message: "invalid body"})
	}

	in, err := service.NewPlaceOrderInput(req, userID)
	if err != nil {
		return orderFail(l, "process_order_error", err)
	}

	res, err := h.Processor.Process(ctx, in)
	if err != nil {
		return orderFail(l, "process_order_error", err)
	}

	l.Info("process_order_success", "order_id", res.Order.ID, "number", res.Order.Number)
	return c.JSON(http.StatusCreated, res)
}

// Probe answers "could these lines be sold right now" without writing.
func (h *ProcessHTTP) Probe(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.probe")

	lines, err := service.ParseProbe(queryList(c, "menuIds"), queryList(c, "quantities"))
	if err != nil {
		return orderFail(l, "probe_error", err)
	}

	report, err := h.Checker.Probe(ctx, lines)
	if err != nil {
		return orderFail(l, "probe_error", err)
	}

	l.Debug("probe_success", "available", report.Available)
	return c.JSON(http.StatusOK, report)
}
