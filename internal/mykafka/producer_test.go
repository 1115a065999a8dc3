package mykafka

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/cafe_pos/internal/config"
)

func TestNewProducer_NoBrokers(t *testing.T) {
	t.Parallel()

	p, err := NewProducer(nil)
	require.Error(t, err)
	require.Nil(t, p)
}

func TestAsyncProducer_DoesNotWaitForBrokers(t *testing.T) {
	t.Parallel()

	p, err := NewAsyncProducer([]string{"127.0.0.1:1"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, p.PublishEvent(context.Background(), "order_events", "order-1", map[string]any{"type": "stock_low"}))
	}
	require.Less(t, time.Since(start), time.Second)
}

func TestProducer_PublishEvent_RoundTrip(t *testing.T) {
	brokers := config.CSV(os.Getenv("KAFKA_BROKERS"))
	if len(brokers) == 0 {
		t.Skip("KAFKA_BROKERS not set")
	}
	topic := "order_events_test"
	ensureTopics(t, brokers[0], topic)

	p, err := NewProducer(brokers)
	require.NoError(t, err)
	defer p.Close()

	event := consumeNextEvent(t, brokers[0], topic, func() {
		require.NoError(t, p.PublishEvent(context.Background(), topic, "order-1", map[string]any{
			"type":        "order_created",
			"orderNumber": "20260301-0001",
		}))
	})
	require.Equal(t, "order_created", event["type"])
	require.Equal(t, "20260301-0001", event["orderNumber"])
}

func consumeNextEvent(t *testing.T, broker, topic string, produce func()) map[string]any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	conn, err := kafka.DialLeader(ctx, "tcp", broker, topic, 0)
	require.NoError(t, err)
	end, err := conn.ReadLastOffset()
	require.NoError(t, err)
	_ = conn.Close()

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
		MaxWait:   time.Second,
	})
	defer r.Close()
	require.NoError(t, r.SetOffset(end))

	produce()

	m, err := r.ReadMessage(ctx)
	require.NoError(t, err)

	var event map[string]any
	require.NoError(t, json.Unmarshal(m.Value, &event))
	return event
}

func ensureTopics(t *testing.T, broker string, topics ...string) {
	t.Helper()

	conn, err := kafka.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	admin, err := kafka.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer admin.Close()

	var cfgs []kafka.TopicConfig
	for _, tp := range topics {
		cfgs = append(cfgs, kafka.TopicConfig{
			Topic:             tp,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
	}

	err = admin.CreateTopics(cfgs...)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		require.NoError(t, err)
	}
}
