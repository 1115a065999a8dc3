package httpserver

import (
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/cafe_pos/internal/logging"
	"github.com/Skotchmaster/cafe_pos/internal/notify"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512

	defaultHistory = 50
)

type NotifyHTTP struct {
	Hub *notify.Hub
	// Broker, when set, serves history shared by all instances.
	Broker  *notify.RedisBroker
	Origins []string
}

func (h *NotifyHTTP) History(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "notify.history")

	limit := defaultHistory
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			l.Warn("history_error", "status", 400, "reason", "bad limit", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}

	if h.Broker != nil {
		events, err := h.Broker.Recent(ctx, limit)
		if err == nil {
			return c.JSON(http.StatusOK, nonNil(events))
		}
		l.Warn("history_fallback", "reason", "redis history failed", "error", err)
	}
	return c.JSON(http.StatusOK, nonNil(h.Hub.Recent(limit)))
}

func (h *NotifyHTTP) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
}

func (h *NotifyHTTP) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Host == r.Host {
		return true
	}
	return slices.Contains(h.Origins, "*") || slices.Contains(h.Origins, origin)
}

// Stream pushes hub events to a websocket client until either side goes away.
// With ?replay=N the last N retained events are sent first.
func (h *NotifyHTTP) Stream(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "notify.stream")

	replay := 0
	if v := c.QueryParam("replay"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			l.Warn("stream_error", "status", 400, "reason", "bad replay", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "replay must be a non-negative integer")
		}
		replay = n
	}

	sub, err := h.Hub.Subscribe(notify.DefaultSubscriberBuffer)
	if err != nil {
		l.Warn("stream_error", "status", 503, "reason", "hub closed", "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "notifications unavailable")
	}
	defer sub.Close()

	conn, err := h.upgrader().Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the error response.
		l.Warn("stream_error", "reason", "upgrade failed", "error", err)
		return nil
	}
	defer conn.Close()

	l.Info("stream_open", "subscribers", h.Hub.SubscriberCount())

	done := make(chan struct{})
	go readPump(conn, done)

	if replay > 0 {
		for _, ev := range h.Hub.Recent(replay) {
			if err := writeEvent(conn, ev); err != nil {
				l.Debug("stream_closed", "reason", "replay write failed", "error", err)
				return nil
			}
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return nil
			}
			if err := writeEvent(conn, ev); err != nil {
				l.Debug("stream_closed", "reason", "write failed", "error", err)
				return nil
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				l.Debug("stream_closed", "reason", "ping failed", "error", err)
				return nil
			}
		case <-done:
			l.Info("stream_closed", "dropped", sub.Dropped())
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// readPump drains client frames so control messages are processed and
// closes done when the peer disconnects.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeEvent(conn *websocket.Conn, ev notify.Event) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(ev)
}

func nonNil(events []notify.Event) []notify.Event {
	if events == nil {
		return []notify.Event{}
	}
	return events
}
