package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/cafe_pos/internal/notify"
)

func dialStream(t *testing.T, srv *httptest.Server, token, query string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/notifications/ws" + query
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	return websocket.DefaultDialer.Dial(url, header)
}

func TestStream_PushesEvents(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	srv := httptest.NewServer(s.E)
	t.Cleanup(srv.Close)

	require.NoError(t, s.Hub.Publish(context.Background(), notify.NewEvent(notify.EventOrderCreated, "old order")))

	conn, _, err := dialStream(t, srv, s.Cashier, "?replay=1")
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var ev notify.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "old order", ev.Message)

	require.Eventually(t, func() bool { return s.Hub.SubscriberCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Hub.Publish(context.Background(), notify.NewEvent(notify.EventStockLow, "Beef is low")))

	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, notify.EventStockLow, ev.Type)
	assert.Equal(t, "Beef is low", ev.Message)

	s.Hub.Close()
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestStream_Rejects(t *testing.T) {
	t.Parallel()
	s := newTestServer(t)
	srv := httptest.NewServer(s.E)
	t.Cleanup(srv.Close)

	_, resp, err := dialStream(t, srv, "", "")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = dialStream(t, srv, s.Cashier, "?replay=-1")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCheckOrigin(t *testing.T) {
	t.Parallel()
	h := &NotifyHTTP{Origins: []string{"https://pos.example.com"}}

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"no origin", "", true},
		{"same host", "http://cafe.local", true},
		{"allowed", "https://pos.example.com", true},
		{"foreign", "https://evil.example.com", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "http://cafe.local/notifications/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, h.checkOrigin(r))
		})
	}
}
