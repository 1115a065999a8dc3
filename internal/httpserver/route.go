package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/cafe_pos/internal/logging"
	middleware "github.com/Skotchmaster/cafe_pos/internal/middleware/auth"
)

type Deps struct {
	AuthHandler    *AuthHTTP
	ProcessHandler *ProcessHTTP
	OrderHandler   *OrderHTTP
	MenuHandler    *MenuHTTP
	StockHandler   *StockHTTP
	ExpenseHandler *ExpenseHTTP
	NotifyHandler  *NotifyHTTP
	JWTSecret      []byte
	Ready          func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready == nil {
			return c.NoContent(http.StatusOK)
		}
		if err := d.Ready(c.Request().Context()); err != nil {
			logging.FromContext(c.Request().Context()).Warn("not_ready", "error", err)
			return echo.NewHTTPError(http.StatusServiceUnavailable, "not ready")
		}
		return c.NoContent(http.StatusOK)
	})

	authMW := middleware.NewAuthMiddleware(d.JWTSecret)

	e.POST("/auth/login", d.AuthHandler.Login)
	e.GET("/auth/me", d.AuthHandler.Me, authMW.RequireAuth)
	e.POST("/users", d.AuthHandler.CreateUser, authMW.RequireAdmin)

	orders := e.Group("/orders", authMW.RequireAuth)
	orders.POST("/process", d.ProcessHandler.ProcessOrder)
	orders.GET("/process", d.ProcessHandler.Probe)
	orders.GET("", d.OrderHandler.List)
	orders.GET("/:id", d.OrderHandler.Get)
	orders.PATCH("/:id/status", d.OrderHandler.UpdateStatus)
	e.DELETE("/orders/:id", d.OrderHandler.Delete, authMW.RequireAdmin)

	menu := e.Group("/menu", authMW.RequireAuth)
	menu.GET("", d.MenuHandler.List)
	menu.GET("/search", d.MenuHandler.Search)
	menu.GET("/:id", d.MenuHandler.Get)

	menuAdmin := e.Group("/menu", authMW.RequireAdmin)
	menuAdmin.POST("", d.MenuHandler.Create)
	menuAdmin.PATCH("/:id", d.MenuHandler.Patch)
	menuAdmin.DELETE("/:id", d.MenuHandler.Delete)

	stock := e.Group("/stock", authMW.RequireAuth)
	stock.GET("", d.StockHandler.List)
	stock.GET("/:id", d.StockHandler.Get)
	stock.GET("/:id/movements", d.StockHandler.Movements)

	stockAdmin := e.Group("/stock", authMW.RequireAdmin)
	stockAdmin.POST("", d.StockHandler.Create)
	stockAdmin.PATCH("/:id", d.StockHandler.Patch)
	stockAdmin.POST("/:id/restock", d.StockHandler.Restock)
	stockAdmin.POST("/:id/adjust", d.StockHandler.Adjust)

	expenses := e.Group("/expenses", authMW.RequireAdmin)
	expenses.POST("", d.ExpenseHandler.Create)
	expenses.GET("", d.ExpenseHandler.List)

	notifications := e.Group("/notifications", authMW.RequireAuth)
	notifications.GET("", d.NotifyHandler.History)
	notifications.GET("/ws", d.NotifyHandler.Stream)
}
