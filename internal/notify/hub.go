package notify

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrHubClosed = errors.New("notification hub closed")

const DefaultSubscriberBuffer = 32

// Hub keeps a bounded history of events and fans new ones out to
// registered subscribers. History is capped both by count and by age.
// A subscriber whose buffer is full misses the event; publishers never wait.
type Hub struct {
	mu        sync.Mutex
	retention int
	maxAge    time.Duration
	now       func() time.Time

	history []Event
	subs    map[uint64]*Subscription
	nextID  uint64
	dropped uint64
	closed  bool
}

func NewHub(retention int, maxAge time.Duration) *Hub {
	if retention <= 0 {
		retention = 1
	}
	return &Hub{
		retention: retention,
		maxAge:    maxAge,
		now:       time.Now,
		subs:      make(map[uint64]*Subscription),
	}
}

type Subscription struct {
	id      uint64
	hub     *Hub
	ch      chan Event
	dropped uint64
	closed  bool
}

func (s *Subscription) Events() <-chan Event { return s.ch }

func (s *Subscription) Dropped() uint64 {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return s.dropped
}

func (s *Subscription) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.hub.removeLocked(s)
}

func (h *Hub) Subscribe(buffer int) (*Subscription, error) {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}

	h.nextID++
	s := &Subscription{id: h.nextID, hub: h, ch: make(chan Event, buffer)}
	h.subs[s.id] = s
	return s, nil
}

func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}

	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = h.now().UTC()
	}
	h.history = append(h.history, ev)
	h.trimLocked()

	for _, s := range h.subs {
		select {
		case s.ch <- ev:
		default:
			s.dropped++
			h.dropped++
		}
	}
	return nil
}

// Recent returns up to limit retained events, oldest first.
func (h *Hub) Recent(limit int) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.trimLocked()

	start := 0
	if limit > 0 && len(h.history) > limit {
		start = len(h.history) - limit
	}
	out := make([]Event, len(h.history)-start)
	copy(out, h.history[start:])
	return out
}

func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Close ends every subscription. Publishing afterwards fails with ErrHubClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, s := range h.subs {
		h.removeLocked(s)
	}
}

func (h *Hub) removeLocked(s *Subscription) {
	if s.closed {
		return
	}
	s.closed = true
	delete(h.subs, s.id)
	close(s.ch)
}

func (h *Hub) trimLocked() {
	drop := 0
	if over := len(h.history) - h.retention; over > 0 {
		drop = over
	}
	if h.maxAge > 0 {
		cutoff := h.now().Add(-h.maxAge)
		for drop < len(h.history) && h.history[drop].CreatedAt.Before(cutoff) {
			drop++
		}
	}
	if drop == 0 {
		return
	}
	h.history = append(h.history[:0:0], h.history[drop:]...)
}
