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

type AuthHTTP struct {
	Svc *service.AuthService
}

func CreateCookie(name, value, path string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  exp,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	resp, err := h.Svc.Login(ctx, req)
	if err != nil {
		return fail(l, "login_error", err, "cannot login")
	}

	c.SetCookie(CreateCookie(middleware.AccessCookie, resp.AccessToken, "/", resp.ExpiresAt))

	l.Info("login_success", "user_id", resp.User.ID, "role", resp.User.Role)
	return c.JSON(http.StatusOK, resp)
}

func (h *AuthHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.me")

	userID, err := middleware.UserID(c)
	if err != nil {
		l.Warn("me_error", "status", 401, "reason", "no principal", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}

	user, err := h.Svc.Me(ctx, userID)
	if err != nil {
		return fail(l, "me_error", err, "cannot load user")
	}
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHTTP) CreateUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.create_user")

	var req transport.CreateUserRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_user_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Svc.CreateUser(ctx, req)
	if err != nil {
		return fail(l, "create_user_error", err, "cannot create user")
	}

	l.Info("create_user_success", "user_id", user.ID, "role", user.Role)
	return c.JSON(http.StatusCreated, user)
}
