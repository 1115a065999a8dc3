package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/cafe_pos/internal/tokens"
)

var secret = []byte("mw-secret")

func issue(t *testing.T, role string, exp time.Time) (string, string) {
	t.Helper()
	id := uuid.NewString()
	tok, err := tokens.IssueAccessToken(secret, id, "staff", role, exp)
	require.NoError(t, err)
	return id, tok
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	userID, valid := issue(t, "cashier", time.Now().Add(time.Hour))
	_, expired := issue(t, "cashier", time.Now().Add(-time.Hour))

	tests := []struct {
		name     string
		prepare  func(r *http.Request)
		wantCode int
	}{
		{name: "no credentials", prepare: func(r *http.Request) {}, wantCode: http.StatusUnauthorized},
		{name: "bearer header", prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+valid) }, wantCode: http.StatusOK},
		{name: "lowercase scheme", prepare: func(r *http.Request) { r.Header.Set("Authorization", "bearer "+valid) }, wantCode: http.StatusOK},
		{name: "basic scheme", prepare: func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") }, wantCode: http.StatusUnauthorized},
		{name: "cookie", prepare: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: AccessCookie, Value: valid}) }, wantCode: http.StatusOK},
		{name: "expired", prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+expired) }, wantCode: http.StatusUnauthorized},
		{name: "garbage", prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, wantCode: http.StatusUnauthorized},
	}

	m := NewAuthMiddleware(secret)

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			var seen uuid.UUID
			err := m.RequireAuth(func(c echo.Context) error {
				id, err := UserID(c)
				require.NoError(t, err)
				seen = id
				return c.NoContent(http.StatusOK)
			})(c)

			if tt.wantCode == http.StatusOK {
				require.NoError(t, err)
				assert.Equal(t, userID, seen.String())
				return
			}
			he, ok := err.(*echo.HTTPError)
			require.True(t, ok, "expected HTTPError")
			assert.Equal(t, tt.wantCode, he.Code)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	m := NewAuthMiddleware(secret)
	_, cashier := issue(t, "cashier", time.Now().Add(time.Hour))
	_, admin := issue(t, "admin", time.Now().Add(time.Hour))

	e := echo.New()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+cashier)
	err := m.RequireAdmin(ok)(e.NewContext(req, httptest.NewRecorder()))
	he, isHTTP := err.(*echo.HTTPError)
	require.True(t, isHTTP)
	assert.Equal(t, http.StatusForbidden, he.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	rec := httptest.NewRecorder()
	require.NoError(t, m.RequireAdmin(ok)(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUserID_Missing(t *testing.T) {
	t.Parallel()

	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	_, err := UserID(c)
	assert.ErrorIs(t, err, ErrNoPrincipal)

	c.Set("user_id", "not-a-uuid")
	_, err = UserID(c)
	assert.ErrorIs(t, err, ErrNoPrincipal)
}
