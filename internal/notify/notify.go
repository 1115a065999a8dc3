package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderCreated       = "order_created"
	EventOrderFailed        = "order_failed"
	EventOrderStatusChanged = "order_status_changed"
	EventOrderDeleted       = "order_deleted"
	EventStockLow           = "stock_low"
)

type Event struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Message     string         `json:"message"`
	OrderID     string         `json:"orderId,omitempty"`
	OrderNumber string         `json:"orderNumber,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	Origin      string         `json:"origin,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func NewEvent(typ, message string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

// Sink receives events. Implementations must not block for long: callers
// publish on the request path.
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

// Fanout publishes to every sink and reports all failures together.
type Fanout []Sink

func (f Fanout) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
