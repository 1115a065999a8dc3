package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/cafe_pos/internal/logging"
	"github.com/Skotchmaster/cafe_pos/internal/repo"
	"github.com/Skotchmaster/cafe_pos/internal/service"
	"github.com/Skotchmaster/cafe_pos/internal/transport"
)

type MenuHTTP struct {
	Svc *service.MenuService
}

func (h *MenuHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "menu.list")

	page, offset, limit := pageParams(c)
	f := repo.MenuFilter{Category: c.QueryParam("category")}
	if v := c.QueryParam("available"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			l.Warn("list_menu_error", "status", 400, "reason", "available not a bool", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "available must be true or false")
		}
		f.Available = &b
	}

	total, items, err := h.Svc.List(ctx, f, offset, limit)
	if err != nil {
		return fail(l, "list_menu_error", err, "cannot list menu")
	}
	return c.JSON(http.StatusOK, listResponse(items, page, offset, limit, total))
}

func (h *MenuHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "menu.search")

	q := c.QueryParam("q")
	if q == "" {
		l.Warn("search_menu_error", "status", 400, "reason", "empty query")
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}

	page, offset, limit := pageParams(c)
	total, items, err := h.Svc.Search(ctx, q, offset, limit)
	if err != nil {
		return fail(l, "search_menu_error", err, "cannot search menu")
	}
	return c.JSON(http.StatusOK, listResponse(items, page, offset, limit, total))
}

func (h *MenuHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "menu.get")

	id, err := parseID(c)
	if err != nil {
		l.Warn("get_menu_error", "status", 400, "reason", "id not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id not a uuid")
	}

	item, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(l, "get_menu_error", err, "cannot get menu item")
	}
	return c.JSON(http.StatusOK, item)
}

func (h *MenuHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "menu.create")

	var req transport.CreateMenuItemRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_menu_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	item, err := h.Svc.Create(ctx, req)
	if err != nil {
		return fail(l, "create_menu_error", err, "cannot create menu item")
	}

	l.Info("create_menu_success", "menu_item_id", item.ID)
	return c.JSON(http.StatusCreated, item)
}

func (h *MenuHTTP) Patch(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "menu.patch")

	id, err := parseID(c)
	if err != nil {
		l.Warn("patch_menu_error", "status", 400, "reason", "id not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id not a uuid")
	}

	var req transport.PatchMenuItemRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("patch_menu_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	item, err := h.Svc.Patch(ctx, id, req)
	if err != nil {
		return fail(l, "patch_menu_error", err, "cannot update menu item")
	}

	l.Info("patch_menu_success", "menu_item_id", item.ID)
	return c.JSON(http.StatusOK, item)
}

func (h *MenuHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "menu.delete")

	id, err := parseID(c)
	if err != nil {
		l.Warn("delete_menu_error", "status", 400, "reason", "id not a uuid", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id not a uuid")
	}

	if err := h.Svc.Delete(ctx, id); err != nil {
		return fail(l, "delete_menu_error", err, "cannot delete menu item")
	}

	l.Info("delete_menu_success", "menu_item_id", id)
	return c.NoContent(http.StatusNoContent)
}
