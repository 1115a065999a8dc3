package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestHub_RetentionByCount(t *testing.T) {
	t.Parallel()

	h := NewHub(3, 0)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, h.Publish(ctx, NewEvent(EventOrderCreated, fmt.Sprintf("order %d", i))))
	}

	recent := h.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "order 2", recent[0].Message)
	assert.Equal(t, "order 4", recent[2].Message)

	last := h.Recent(2)
	require.Len(t, last, 2)
	assert.Equal(t, "order 3", last[0].Message)
}

func TestHub_RetentionByAge(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := NewHub(100, time.Hour)
	h.now = func() time.Time { return now }

	old := NewEvent(EventStockLow, "old")
	old.CreatedAt = now.Add(-2 * time.Hour)
	fresh := NewEvent(EventStockLow, "fresh")
	fresh.CreatedAt = now.Add(-10 * time.Minute)

	ctx := context.Background()
	require.NoError(t, h.Publish(ctx, old))
	require.NoError(t, h.Publish(ctx, fresh))

	recent := h.Recent(0)
	require.Len(t, recent, 1)
	assert.Equal(t, "fresh", recent[0].Message)

	now = now.Add(time.Hour)
	assert.Empty(t, h.Recent(0))
}

func TestHub_SubscribersAndSlowConsumer(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := NewHub(10, 0)
	ctx := context.Background()

	fast, err := h.Subscribe(8)
	require.NoError(t, err)
	slow, err := h.Subscribe(1)
	require.NoError(t, err)
	require.Equal(t, 2, h.SubscriberCount())

	for i := 0; i < 3; i++ {
		require.NoError(t, h.Publish(ctx, NewEvent(EventOrderCreated, fmt.Sprint(i))))
	}

	for i := 0; i < 3; i++ {
		ev := <-fast.Events()
		assert.Equal(t, fmt.Sprint(i), ev.Message)
	}
	assert.Equal(t, "0", (<-slow.Events()).Message)
	assert.EqualValues(t, 2, slow.Dropped())
	assert.EqualValues(t, 0, fast.Dropped())
	assert.EqualValues(t, 2, h.Dropped())

	slow.Close()
	slow.Close()
	assert.Equal(t, 1, h.SubscriberCount())
	_, open := <-slow.Events()
	assert.False(t, open)

	h.Close()
	_, open = <-fast.Events()
	assert.False(t, open)
	assert.ErrorIs(t, h.Publish(ctx, NewEvent(EventOrderCreated, "late")), ErrHubClosed)
	_, err = h.Subscribe(1)
	assert.ErrorIs(t, err, ErrHubClosed)
}

func TestHub_ConcurrentPublishers(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := NewHub(50, 0)
	sub, err := h.Subscribe(1000)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = h.Publish(context.Background(), NewEvent(EventOrderCreated, fmt.Sprintf("%d-%d", w, i)))
			}
		}(w)
	}

	received := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for range sub.Events() {
			received++
		}
	}()

	wg.Wait()
	h.Close()
	<-done

	assert.Len(t, h.Recent(0), 50)
	assert.EqualValues(t, 800, uint64(received)+sub.Dropped())
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *recordingSink) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func TestFanout_PublishesToAllAndJoinsErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	a := &recordingSink{}
	b := &recordingSink{err: boom}
	c := &recordingSink{}

	err := Fanout{a, nil, b, c}.Publish(context.Background(), NewEvent(EventOrderFailed, "x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
	assert.Len(t, c.events, 1)

	assert.NoError(t, Discard{}.Publish(context.Background(), Event{}))
}

type fakePublisher struct {
	topic, key string
	event      any
}

func (f *fakePublisher) PublishEvent(_ context.Context, topic, key string, event any) error {
	f.topic, f.key, f.event = topic, key, event
	return nil
}

func TestKafkaSink_KeysByOrder(t *testing.T) {
	t.Parallel()

	p := &fakePublisher{}
	sink := &KafkaSink{Producer: p, Topic: "order_events"}

	ev := NewEvent(EventOrderCreated, "new order")
	ev.OrderID = "order-1"
	require.NoError(t, sink.Publish(context.Background(), ev))
	assert.Equal(t, "order_events", p.topic)
	assert.Equal(t, "order-1", p.key)
	assert.Equal(t, ev, p.event)

	require.NoError(t, sink.Publish(context.Background(), NewEvent(EventStockLow, "low")))
	assert.Equal(t, EventStockLow, p.key)
}
