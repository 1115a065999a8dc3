package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/cafe_pos/internal/logging"
	middleware "github.com/Skotchmaster/cafe_pos/internal/middleware/auth"
	"github.com/Skotchmaster/cafe_pos/internal/service"
	"github.com/Skotchmaster/cafe_pos/internal/transport"
)

type ExpenseHTTP struct {
	Svc *service.ExpenseService
}

func (h *ExpenseHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "expense.create")

	var req transport.CreateExpenseRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_expense_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	userID, _ := middleware.UserID(c)
	exp, err := h.Svc.Create(ctx, req, userID)
	if err != nil {
		return fail(l, "create_expense_error", err, "cannot create expense")
	}

	l.Info("create_expense_success", "expense_id", exp.ID, "amount", exp.Amount.String())
	return c.JSON(http.StatusCreated, exp)
}

func (h *ExpenseHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "expense.list")

	from, err := parseTimeParam(c.QueryParam("from"))
	if err != nil {
		l.Warn("list_expenses_error", "status", 400, "reason", "bad from", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "from must be RFC3339 or YYYY-MM-DD")
	}
	to, err := parseTimeParam(c.QueryParam("to"))
	if err != nil {
		l.Warn("list_expenses_error", "status", 400, "reason", "bad to", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "to must be RFC3339 or YYYY-MM-DD")
	}

	page, offset, limit := pageParams(c)
	total, items, err := h.Svc.List(ctx, from, to, offset, limit)
	if err != nil {
		return fail(l, "list_expenses_error", err, "cannot list expenses")
	}
	return c.JSON(http.StatusOK, listResponse(items, page, offset, limit, total))
}

func parseTimeParam(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
