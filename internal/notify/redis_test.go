package notify

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	return url
}

func TestRedisBroker_HistoryAndRelay(t *testing.T) {
	url := redisURL(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	channel := "cafe:test:" + NewEvent("", "").ID
	a, err := NewRedisBroker(ctx, url, channel, 2)
	require.NoError(t, err)
	defer a.Close()
	b, err := NewRedisBroker(ctx, url, channel, 2)
	require.NoError(t, err)
	defer b.Close()
	t.Cleanup(func() { _ = a.client.Del(context.Background(), a.historyKey).Err() })

	local := NewHub(10, 0)
	defer local.Close()
	sub, err := local.Subscribe(4)
	require.NoError(t, err)

	relayCtx, stopRelay := context.WithCancel(ctx)
	relayDone := make(chan error, 1)
	go func() { relayDone <- b.Relay(relayCtx, local, slog.New(slog.NewTextHandler(io.Discard, nil))) }()

	// give the subscription a moment to register before publishing
	time.Sleep(200 * time.Millisecond)

	for _, msg := range []string{"one", "two", "three"} {
		require.NoError(t, a.Publish(ctx, NewEvent(EventOrderCreated, msg)))
	}
	require.NoError(t, b.Publish(ctx, NewEvent(EventOrderCreated, "own")))

	for _, want := range []string{"one", "two", "three"} {
		select {
		case ev := <-sub.Events():
			assert.Equal(t, want, ev.Message)
			assert.Equal(t, a.Origin(), ev.Origin)
		case <-ctx.Done():
			t.Fatal("relay did not deliver")
		}
	}

	hist, err := a.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "three", hist[0].Message)
	assert.Equal(t, "own", hist[1].Message)

	stopRelay()
	require.NoError(t, <-relayDone)

	select {
	case ev := <-sub.Events():
		t.Fatalf("own event relayed back: %+v", ev)
	default:
	}
}
