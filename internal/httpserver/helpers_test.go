package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/cafe_pos/internal/db"
	"github.com/Skotchmaster/cafe_pos/internal/models"
	"github.com/Skotchmaster/cafe_pos/internal/notify"
	"github.com/Skotchmaster/cafe_pos/internal/repo"
	"github.com/Skotchmaster/cafe_pos/internal/service"
	"github.com/Skotchmaster/cafe_pos/internal/transport"
)

var testSecret = []byte("http-test-secret")

type testServer struct {
	E       *echo.Echo
	Hub     *notify.Hub
	Repo    *repo.GormRepo
	Admin   string
	Cashier string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	gdb, err := db.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })

	r := &repo.GormRepo{DB: gdb}
	hub := notify.NewHub(100, time.Hour)
	t.Cleanup(hub.Close)

	checker := &service.AvailabilityChecker{Repo: r}
	authSvc := &service.AuthService{Repo: r, JWTSecret: testSecret, TTL: time.Hour}

	e := echo.New()
	Register(e, &Deps{
		AuthHandler: &AuthHTTP{Svc: authSvc},
		ProcessHandler: &ProcessHTTP{
			Processor: &service.OrderProcessor{Repo: r, Checker: checker, Notifier: hub, Location: time.UTC},
			Checker:   checker,
		},
		OrderHandler:   &OrderHTTP{Svc: &service.OrderService{Repo: r, Notifier: hub}},
		MenuHandler:    &MenuHTTP{Svc: &service.MenuService{Repo: r}},
		StockHandler:   &StockHTTP{Svc: &service.StockService{Repo: r, Notifier: hub}},
		ExpenseHandler: &ExpenseHTTP{Svc: &service.ExpenseService{Repo: r}},
		NotifyHandler:  &NotifyHTTP{Hub: hub},
		JWTSecret:      testSecret,
		Ready:          r.Ping,
	})

	require.NoError(t, authSvc.EnsureAdmin(ctx, "admin", "admin-pass"))
	_, err = authSvc.CreateUser(ctx, transport.CreateUserRequest{Username: "anna", Password: "cashier-pass", Role: models.RoleCashier})
	require.NoError(t, err)

	s := &testServer{E: e, Hub: hub, Repo: r}
	s.Admin = s.login(t, "admin", "admin-pass")
	s.Cashier = s.login(t, "anna", "cashier-pass")
	return s
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/login", "", transport.LoginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp transport.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.AccessToken
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.E.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) stock(t *testing.T, name, qty, minStock string) models.StockItem {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/stock", s.Admin, map[string]any{
		"name":     name,
		"quantity": qty,
		"unit":     "kg",
		"minStock": minStock,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.StockItem](t, rec)
}

func (s *testServer) menu(t *testing.T, name, price string, stockID, perUnit string) models.MenuItem {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/menu", s.Admin, map[string]any{
		"name":     name,
		"category": "mains",
		"price":    price,
		"recipe":   []map[string]any{{"stockItemId": stockID, "quantity": perUnit}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.MenuItem](t, rec)
}
