package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/cafe_pos/internal/logging"
	"github.com/Skotchmaster/cafe_pos/internal/models"
	"github.com/Skotchmaster/cafe_pos/internal/notify"
	"github.com/Skotchmaster/cafe_pos/internal/repo"
	"github.com/Skotchmaster/cafe_pos/internal/transport"
)

const publishTimeout = 5 * time.Second

// OrderProcessor places orders. The availability check runs first without
// locks; the order row, the counter bump, every stock decrement and the
// ledger entries then commit or roll back as one transaction.
type OrderProcessor struct {
	Repo     *repo.GormRepo
	Checker  *AvailabilityChecker
	Notifier notify.Sink
	Location *time.Location
	Now      func() time.Time
}

// PlaceOrderInput is a validated order request.
type PlaceOrderInput struct {
	Lines         []LineRequest
	TableNumber   string
	CustomerName  string
	PaymentMethod string
	Notes         string
	CreatedBy     uuid.UUID
}

// NewPlaceOrderInput validates the request lines and trims the free-text fields.
func NewPlaceOrderInput(req transport.ProcessOrderRequest, userID uuid.UUID) (PlaceOrderInput, error) {
	lines, err := ParseLines(req.Items)
	if err != nil {
		return PlaceOrderInput{}, err
	}
	return PlaceOrderInput{
		Lines:         lines,
		TableNumber:   strings.TrimSpace(req.TableNumber),
		CustomerName:  strings.TrimSpace(req.CustomerName),
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		Notes:         strings.TrimSpace(req.Notes),
		CreatedBy:     userID,
	}, nil
}

func (p *OrderProcessor) Process(ctx context.Context, in PlaceOrderInput) (*transport.ProcessOrderResponse, error) {
	l := logging.FromContext(ctx).With("component", "order_processor")

	if in.CreatedBy == uuid.Nil {
		return nil, fmt.Errorf("%w: creator required", ErrValidation)
	}

	ev, err := p.Checker.evaluate(ctx, p.Repo, in.Lines)
	if err != nil {
		return nil, err
	}
	if !ev.report.Available {
		unavailable := &StockUnavailableError{Report: ev.report}
		p.publish(ctx, l, failedEvent(unavailable, nil))
		return nil, unavailable
	}

	order, err := p.buildOrder(ev, in)
	if err != nil {
		return nil, err
	}

	var (
		consumption []transport.LineConsumption
		touched     map[uuid.UUID]models.StockItem
	)
	err = p.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if err := p.writeOrder(ctx, tx, order); err != nil {
			return err
		}
		var err error
		consumption, touched, err = p.consumeStock(ctx, tx, order, ev)
		return err
	})
	if err != nil {
		return nil, p.compensate(ctx, l, order, err)
	}

	l.Info("order_placed", "order_id", order.ID, "number", order.Number, "total", order.Total.String())

	created := notify.NewEvent(notify.EventOrderCreated, fmt.Sprintf("New order %s", order.Number))
	created.OrderID = order.ID.String()
	created.OrderNumber = order.Number
	created.Data = map[string]any{"total": order.Total.StringFixed(models.MoneyScale), "items": len(order.Items)}
	p.publish(ctx, l, created)

	for _, id := range sortedIDs(touched) {
		st := touched[id]
		if !st.IsLow() {
			continue
		}
		low := notify.NewEvent(notify.EventStockLow, fmt.Sprintf("%s is low: %s %s left", st.Name, st.Quantity.String(), st.Unit))
		low.Data = map[string]any{
			"stockItemId": st.ID.String(),
			"quantity":    st.Quantity.String(),
			"minStock":    st.MinStock.String(),
		}
		p.publish(ctx, l, low)
	}

	return &transport.ProcessOrderResponse{Order: order, Consumption: consumption}, nil
}

func (p *OrderProcessor) buildOrder(ev *evaluation, in PlaceOrderInput) (*models.Order, error) {
	order := &models.Order{
		ID:            uuid.New(),
		Status:        models.OrderStatusPending,
		TableNumber:   in.TableNumber,
		CustomerName:  in.CustomerName,
		PaymentMethod: in.PaymentMethod,
		Notes:         in.Notes,
		CreatedBy:     in.CreatedBy,
		Total:         decimal.Zero,
	}

	for i, line := range ev.lines {
		item := ev.items[line.MenuItemID]
		lineTotal := item.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		order.Items = append(order.Items, models.OrderLine{
			Position:   i,
			MenuItemID: item.ID,
			Name:       item.Name,
			Quantity:   line.Quantity,
			UnitPrice:  item.Price,
			LineTotal:  lineTotal,
			Modifiers:  line.Modifiers,
			Notes:      line.Notes,
			Status:     models.OrderStatusPending,
		})
		order.Total = order.Total.Add(lineTotal)
	}

	if !order.Total.IsPositive() {
		return nil, fmt.Errorf("%w: order total must be positive", ErrValidation)
	}
	return order, nil
}

// writeOrder allocates the day's next number and inserts the pending order.
func (p *OrderProcessor) writeOrder(ctx context.Context, tx *repo.GormRepo, order *models.Order) error {
	now := p.now().In(p.location())
	order.BusinessDay = now.Format(time.DateOnly)

	seq, err := tx.NextOrderSeq(ctx, order.BusinessDay)
	if err != nil {
		return fmt.Errorf("allocate order number: %w", err)
	}
	order.Number = fmt.Sprintf("%s-%04d", now.Format("20060102"), seq)

	if err := tx.CreateOrder(ctx, order); err != nil {
		return translate(err, "order number "+order.Number)
	}
	return nil
}

// consumeStock locks every stock row the order touches, then decrements
// line by line in recipe order. Any refused decrement aborts the whole
// transaction.
func (p *OrderProcessor) consumeStock(ctx context.Context, tx *repo.GormRepo, order *models.Order, ev *evaluation) ([]transport.LineConsumption, map[uuid.UUID]models.StockItem, error) {
	locked, err := tx.LockStockItems(ctx, recipeStockIDs(ev.lines, ev.items))
	if err != nil {
		return nil, nil, err
	}

	touched := make(map[uuid.UUID]models.StockItem, len(locked))
	var moves []models.StockMovement
	out := make([]transport.LineConsumption, 0, len(ev.lines))

	for i, line := range ev.lines {
		item := ev.items[line.MenuItemID]
		lc := transport.LineConsumption{
			Line:        i,
			MenuItemID:  item.ID.String(),
			Name:        item.Name,
			Quantity:    line.Quantity,
			Ingredients: make([]transport.IngredientConsumption, 0, len(item.Recipe)),
		}

		for _, rl := range item.Recipe {
			amount := required(rl.Quantity, line.Quantity)

			after, err := tx.ConsumeStock(ctx, rl.StockItemID, amount)
			if err != nil {
				if !errors.Is(err, repo.ErrInsufficientStock) && !repo.IsNotFound(err) {
					return nil, nil, fmt.Errorf("consume stock %s: %w", rl.StockItemID, err)
				}
				ce := &ConsumptionError{
					OrderID:    order.ID,
					Line:       i,
					MenuItemID: item.ID,
					Ingredient: unknownIngredient(rl, amount),
					Err:        err,
				}
				if after != nil {
					ce.Ingredient.Name = after.Name
					ce.Ingredient.Unit = after.Unit
					ce.Ingredient.Available = decimal.Max(after.Quantity, decimal.Zero)
				} else if st, ok := locked[rl.StockItemID]; ok {
					ce.Ingredient.Name = st.Name
				}
				if repo.IsNotFound(err) {
					ce.Err = fmt.Errorf("%w: stock item %s", ErrNotFound, rl.StockItemID)
				}
				return nil, nil, ce
			}

			touched[after.ID] = *after
			lc.Ingredients = append(lc.Ingredients, transport.IngredientConsumption{
				StockItemID: after.ID.String(),
				Name:        after.Name,
				Unit:        after.Unit,
				Amount:      amount,
				Remaining:   after.Quantity,
				Tracked:     after.TrackQuantity,
			})

			orderID := order.ID
			moves = append(moves, models.StockMovement{
				StockItemID:   after.ID,
				OrderID:       &orderID,
				Kind:          models.MovementConsume,
				Delta:         amount.Neg(),
				QuantityAfter: after.Quantity,
				Note:          fmt.Sprintf("order %s line %d", order.Number, i),
				CreatedBy:     &order.CreatedBy,
			})
		}
		out = append(out, lc)
	}

	if err := tx.AddMovements(ctx, moves); err != nil {
		return nil, nil, err
	}
	return out, touched, nil
}

// compensate runs after the transaction was rolled back: nothing of the
// order survives, so all that is left is to report the failure.
func (p *OrderProcessor) compensate(ctx context.Context, l *slog.Logger, order *models.Order, err error) error {
	var ce *ConsumptionError
	if errors.As(err, &ce) {
		l.Warn("order_rolled_back", "order_id", order.ID, "line", ce.Line, "stock_item", ce.Ingredient.Name, "error", ce.Err)
		p.publish(ctx, l, failedEvent(ce, order))
		return ce
	}
	l.Error("order_write_failed", "order_id", order.ID, "error", err)
	return err
}

func failedEvent(err error, order *models.Order) notify.Event {
	ev := notify.NewEvent(notify.EventOrderFailed, "Order failed: "+err.Error())
	if order != nil {
		ev.OrderID = order.ID.String()
		ev.OrderNumber = order.Number
	}

	var (
		su *StockUnavailableError
		ce *ConsumptionError
	)
	switch {
	case errors.As(err, &su):
		ev.Data = map[string]any{"reason": "stock_unavailable", "missingIngredients": su.Missing()}
	case errors.As(err, &ce):
		ev.Data = map[string]any{"reason": "stock_consumption_failed", "line": ce.Line, "ingredient": ce.Ingredient}
	}
	return ev
}

// publish never fails the caller; notification problems are only logged.
func (p *OrderProcessor) publish(ctx context.Context, l *slog.Logger, ev notify.Event) {
	publishEvent(ctx, p.Notifier, l, ev)
}

func (p *OrderProcessor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *OrderProcessor) location() *time.Location {
	if p.Location != nil {
		return p.Location
	}
	return time.UTC
}

func sortedIDs(m map[uuid.UUID]models.StockItem) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sortUUIDs(ids)
	return ids
}
