package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisBroker shares notifications between service instances: every event is
// pushed onto a capped history list and published on a channel that other
// instances relay into their local hub.
type RedisBroker struct {
	client     *redis.Client
	channel    string
	historyKey string
	retention  int64
	origin     string
}

func NewRedisBroker(ctx context.Context, redisURL, channel string, retention int) (*RedisBroker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewRedisBrokerFromClient(client, channel, retention), nil
}

func NewRedisBrokerFromClient(client *redis.Client, channel string, retention int) *RedisBroker {
	if retention <= 0 {
		retention = 1
	}
	return &RedisBroker{
		client:     client,
		channel:    channel,
		historyKey: channel + ":history",
		retention:  int64(retention),
		origin:     uuid.NewString(),
	}
}

func (b *RedisBroker) Origin() string { return b.origin }

func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	ev.Origin = b.origin
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}

	pipe := b.client.TxPipeline()
	pipe.LPush(ctx, b.historyKey, data)
	pipe.LTrim(ctx, b.historyKey, 0, b.retention-1)
	pipe.Publish(ctx, b.channel, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: publish event: %w", err)
	}
	return nil
}

// Recent returns up to limit events from the shared history, oldest first.
func (b *RedisBroker) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 || int64(limit) > b.retention {
		limit = int(b.retention)
	}
	raw, err := b.client.LRange(ctx, b.historyKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	out := make([]Event, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var ev Event
		if err := json.Unmarshal([]byte(raw[i]), &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// Relay forwards events published by other instances into local until ctx
// is done. Events this broker published itself are skipped.
func (b *RedisBroker) Relay(ctx context.Context, local Sink, l *slog.Logger) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis: subscribe %s: %w", b.channel, err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				l.Warn("notify_relay_error", "reason", "bad payload", "error", err)
				continue
			}
			if ev.Origin == b.origin {
				continue
			}
			if err := local.Publish(ctx, ev); err != nil {
				l.Warn("notify_relay_error", "reason", "local publish failed", "error", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
