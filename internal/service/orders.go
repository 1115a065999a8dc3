package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/cafe_pos/internal/logging"
	"github.com/Skotchmaster/cafe_pos/internal/models"
	"github.com/Skotchmaster/cafe_pos/internal/notify"
	"github.com/Skotchmaster/cafe_pos/internal/repo"
)

var transitions = map[string][]string{
	models.OrderStatusPending:   {models.OrderStatusPreparing, models.OrderStatusCancelled},
	models.OrderStatusPreparing: {models.OrderStatusReady, models.OrderStatusCancelled},
	models.OrderStatusReady:     {models.OrderStatusCompleted, models.OrderStatusCancelled},
}

var knownStatuses = []string{
	models.OrderStatusPending,
	models.OrderStatusPreparing,
	models.OrderStatusReady,
	models.OrderStatusCompleted,
	models.OrderStatusCancelled,
}

func IsOrderStatus(s string) bool {
	return slices.Contains(knownStatuses, s)
}

// CanTransition reports whether an order may move from one status to another.
// Completed and cancelled orders are final.
func CanTransition(from, to string) bool {
	return slices.Contains(transitions[from], to)
}

type OrderService struct {
	Repo     *repo.GormRepo
	Notifier notify.Sink
}

func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, translate(err, "order "+id.String())
	}
	return order, nil
}

func (s *OrderService) List(ctx context.Context, f repo.OrderFilter, offset, limit int) (int64, []models.Order, error) {
	if f.Status != "" && !IsOrderStatus(f.Status) {
		return 0, nil, fmt.Errorf("%w: unknown status %q", ErrValidation, f.Status)
	}
	if f.Day != "" {
		if _, err := time.Parse(time.DateOnly, f.Day); err != nil {
			return 0, nil, fmt.Errorf("%w: day must be YYYY-MM-DD", ErrValidation)
		}
	}
	return s.Repo.ListOrders(ctx, f, offset, limit)
}

func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Order, error) {
	if !IsOrderStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	var (
		order *models.Order
		from  string
	)
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		cur, err := tx.LockOrder(ctx, id)
		if err != nil {
			return translate(err, "order "+id.String())
		}
		from = cur.Status
		if !CanTransition(from, status) {
			return fmt.Errorf("%w: cannot move order from %s to %s", ErrConflict, from, status)
		}

		if err := tx.UpdateOrderStatus(ctx, id, status); err != nil {
			return err
		}
		if err := tx.UpdateOrderLineStatuses(ctx, id, status); err != nil {
			return err
		}
		order, err = tx.GetOrder(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	ev := notify.NewEvent(notify.EventOrderStatusChanged, fmt.Sprintf("Order %s is %s", order.Number, status))
	ev.OrderID = order.ID.String()
	ev.OrderNumber = order.Number
	ev.Data = map[string]any{"from": from, "to": status}
	s.publish(ctx, ev)

	return order, nil
}

// Delete removes the order and its lines. Consumed stock stays consumed.
func (s *OrderService) Delete(ctx context.Context, id uuid.UUID) error {
	order, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		return translate(err, "order "+id.String())
	}
	if err := s.Repo.DeleteOrder(ctx, id); err != nil {
		return translate(err, "order "+id.String())
	}

	ev := notify.NewEvent(notify.EventOrderDeleted, fmt.Sprintf("Order %s deleted", order.Number))
	ev.OrderID = order.ID.String()
	ev.OrderNumber = order.Number
	s.publish(ctx, ev)
	return nil
}

func (s *OrderService) publish(ctx context.Context, ev notify.Event) {
	publishEvent(ctx, s.Notifier, logging.FromContext(ctx), ev)
}

func publishEvent(ctx context.Context, sink notify.Sink, l *slog.Logger, ev notify.Event) {
	if sink == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := sink.Publish(pubCtx, ev); err != nil {
		l.Warn("notify_failed", "event", ev.Type, "order_id", ev.OrderID, "error", err)
	}
}
