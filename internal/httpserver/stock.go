package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/cafe_pos/internal/logging"
	middleware "github.com/Skotchmaster/cafe_pos/internal/middleware/auth"
	"github.com/Skotchmaster/cafe_pos/internal/repo"
	"github.com/Skotchmaster/cafe_pos/internal/service"
	"github.com/Skotchmaster/cafe_pos/internal/transport"
)

type StockHTTP struct {
	Svc *service.StockService
}

func (h *StockHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "stock.list")

	page, offset, limit := pageParams(c)
	f := repo.StockFilter{Category: c.QueryParam("category")}
	if v := c.QueryParam("lowOnly"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			l.Warn("list_stock_error", "status", 400, "reason", "lowOnly not a bool", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "lowOnly must be true or false")
		}
		f.LowOnly = b
	}

	total, items, err := h.Svc.List(ctx, f, offset, limit)
	if err != nil {
		return fail(l, "list_stock_error", err, "cannot list stock")
	}
	return c.JSON(http.StatusOK, listResponse(items, page, offset, limit, total))
}

func (h *StockHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "stock.get")

	id, err := parseID(c)
	if err != nil {
		l.Warn("get_stock_error", "status", 400, "reason", "id not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id not a uuid")
	}

	item, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(l, "get_stock_error", err, "cannot get stock item")
	}
	return c.JSON(http.StatusOK, item)
}

func (h *StockHTTP) Movements(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "stock.movements")

	id, err := parseID(c)
	if err != nil {
		l.Warn("list_movements_error", "status", 400, "reason", "id not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id not a uuid")
	}

	page, offset, limit := pageParams(c)
	total, moves, err := h.Svc.ListMovements(ctx, id, offset, limit)
	if err != nil {
		return fail(l, "list_movements_error", err, "cannot list movements")
	}
	return c.JSON(http.StatusOK, listResponse(moves, page, offset, limit, total))
}

func (h *StockHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "stock.create")

	var req transport.CreateStockItemRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_stock_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	userID, _ := middleware.UserID(c)
	item, err := h.Svc.Create(ctx, req, userID)
	if err != nil {
		return fail(l, "create_stock_error", err, "cannot create stock item")
	}

	l.Info("create_stock_success", "stock_item_id", item.ID)
	return c.JSON(http.StatusCreated, item)
}

func (h *StockHTTP) Patch(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "stock.patch")

	id, err := parseID(c)
	if err != nil {
		l.Warn("patch_stock_error", "status", 400, "reason", "id not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id not a uuid")
	}

	var req transport.PatchStockItemRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("patch_stock_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	item, err := h.Svc.Patch(ctx, id, req)
	if err != nil {
		return fail(l, "patch_stock_error", err, "cannot update stock item")
	}
	return c.JSON(http.StatusOK, item)
}

func (h *StockHTTP) Restock(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "stock.restock")

	id, err := parseID(c)
	if err != nil {
		l.Warn("restock_error", "status", 400, "reason", "id not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id not a uuid")
	}

	var req transport.RestockRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("restock_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	userID, _ := middleware.UserID(c)
	item, err := h.Svc.Restock(ctx, id, req, userID)
	if err != nil {
		return fail(l, "restock_error", err, "cannot restock")
	}

	l.Info("restock_success", "stock_item_id", item.ID, "quantity", item.Quantity.String())
	return c.JSON(http.StatusOK, item)
}

func (h *StockHTTP) Adjust(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "stock.adjust")

	id, err := parseID(c)
	if err != nil {
		l.Warn("adjust_error", "status", 400, "reason", "id not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id not a uuid")
	}

	var req transport.AdjustStockRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("adjust_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	userID, _ := middleware.UserID(c)
	item, err := h.Svc.Adjust(ctx, id, req, userID)
	if err != nil {
		return fail(l, "adjust_error", err, "cannot adjust stock")
	}

	l.Info("adjust_success", "stock_item_id", item.ID, "quantity", item.Quantity.String())
	return c.JSON(http.StatusOK, item)
}
