package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/cafe_pos/internal/logging"
	"github.com/Skotchmaster/cafe_pos/internal/models"
	"github.com/Skotchmaster/cafe_pos/internal/notify"
	"github.com/Skotchmaster/cafe_pos/internal/repo"
	"github.com/Skotchmaster/cafe_pos/internal/transport"
)

type StockService struct {
	Repo     *repo.GormRepo
	Notifier notify.Sink
}

func (s *StockService) Get(ctx context.Context, id uuid.UUID) (*models.StockItem, error) {
	item, err := s.Repo.GetStockItem(ctx, id)
	if err != nil {
		return nil, translate(err, "stock item "+id.String())
	}
	return item, nil
}

func (s *StockService) List(ctx context.Context, f repo.StockFilter, offset, limit int) (int64, []models.StockItem, error) {
	return s.Repo.ListStockItems(ctx, f, offset, limit)
}

func (s *StockService) Create(ctx context.Context, req transport.CreateStockItemRequest, userID uuid.UUID) (*models.StockItem, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}
	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		return nil, fmt.Errorf("%w: unit required", ErrValidation)
	}
	if err := validateQuantity("quantity", req.Quantity, true); err != nil {
		return nil, err
	}
	if err := validateQuantity("minStock", req.MinStock, true); err != nil {
		return nil, err
	}
	if err := validatePrice(req.UnitCost); err != nil {
		return nil, err
	}

	item := &models.StockItem{
		Name:          name,
		Category:      strings.TrimSpace(req.Category),
		Quantity:      req.Quantity,
		Unit:          unit,
		MinStock:      req.MinStock,
		UnitCost:      req.UnitCost,
		TrackQuantity: req.TrackQuantity == nil || *req.TrackQuantity,
		ConsumedTotal: decimal.Zero,
	}

	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if err := tx.CreateStockItem(ctx, item); err != nil {
			return translate(err, "stock item "+name)
		}
		if item.Quantity.IsZero() {
			return nil
		}
		return tx.AddMovements(ctx, []models.StockMovement{{
			StockItemID:   item.ID,
			Kind:          models.MovementAdjust,
			Delta:         item.Quantity,
			QuantityAfter: item.Quantity,
			Note:          "initial stock",
			CreatedBy:     optionalID(userID),
		}})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, item.ID)
}

// Patch edits descriptive fields. Quantity only moves through restock,
// adjust and order consumption.
func (s *StockService) Patch(ctx context.Context, id uuid.UUID, req transport.PatchStockItemRequest) (*models.StockItem, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", ErrValidation)
		}
		item.Name = name
	}
	if req.Category != nil {
		item.Category = strings.TrimSpace(*req.Category)
	}
	if req.Unit != nil {
		unit := strings.TrimSpace(*req.Unit)
		if unit == "" {
			return nil, fmt.Errorf("%w: unit must not be empty", ErrValidation)
		}
		item.Unit = unit
	}
	if req.MinStock != nil {
		if err := validateQuantity("minStock", *req.MinStock, true); err != nil {
			return nil, err
		}
		item.MinStock = *req.MinStock
	}
	if req.UnitCost != nil {
		if err := validatePrice(*req.UnitCost); err != nil {
			return nil, err
		}
		item.UnitCost = *req.UnitCost
	}
	if req.TrackQuantity != nil {
		item.TrackQuantity = *req.TrackQuantity
	}

	if err := s.Repo.UpdateStockMetadata(ctx, item); err != nil {
		return nil, translate(err, "stock item "+item.Name)
	}
	return s.Get(ctx, id)
}

func (s *StockService) Restock(ctx context.Context, id uuid.UUID, req transport.RestockRequest, userID uuid.UUID) (*models.StockItem, error) {
	if err := validateQuantity("quantity", req.Quantity, false); err != nil {
		return nil, err
	}

	var item *models.StockItem
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		var err error
		item, err = tx.AddStock(ctx, id, req.Quantity)
		if err != nil {
			return translate(err, "stock item "+id.String())
		}
		return tx.AddMovements(ctx, []models.StockMovement{{
			StockItemID:   id,
			Kind:          models.MovementRestock,
			Delta:         req.Quantity,
			QuantityAfter: item.Quantity,
			Note:          strings.TrimSpace(req.Note),
			CreatedBy:     optionalID(userID),
		}})
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Adjust overwrites the quantity after a count and records the difference.
func (s *StockService) Adjust(ctx context.Context, id uuid.UUID, req transport.AdjustStockRequest, userID uuid.UUID) (*models.StockItem, error) {
	if err := validateQuantity("quantity", req.Quantity, true); err != nil {
		return nil, err
	}

	var after *models.StockItem
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		before, updated, err := tx.SetStockQuantity(ctx, id, req.Quantity)
		if err != nil {
			return translate(err, "stock item "+id.String())
		}
		after = updated
		return tx.AddMovements(ctx, []models.StockMovement{{
			StockItemID:   id,
			Kind:          models.MovementAdjust,
			Delta:         updated.Quantity.Sub(before.Quantity),
			QuantityAfter: updated.Quantity,
			Note:          strings.TrimSpace(req.Note),
			CreatedBy:     optionalID(userID),
		}})
	})
	if err != nil {
		return nil, err
	}

	if after.IsLow() {
		ev := notify.NewEvent(notify.EventStockLow, fmt.Sprintf("%s is low: %s %s left", after.Name, after.Quantity.String(), after.Unit))
		ev.Data = map[string]any{"stockItemId": after.ID.String(), "quantity": after.Quantity.String(), "minStock": after.MinStock.String()}
		publishEvent(ctx, s.Notifier, logging.FromContext(ctx), ev)
	}
	return after, nil
}

func (s *StockService) ListMovements(ctx context.Context, id uuid.UUID, offset, limit int) (int64, []models.StockMovement, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return 0, nil, err
	}
	return s.Repo.ListMovements(ctx, id, offset, limit)
}

func validateQuantity(field string, q decimal.Decimal, allowZero bool) error {
	if q.IsNegative() || (!allowZero && q.IsZero()) {
		if allowZero {
			return fmt.Errorf("%w: %s must be >= 0", ErrValidation, field)
		}
		return fmt.Errorf("%w: %s must be > 0", ErrValidation, field)
	}
	if !q.Equal(q.Round(models.QuantityScale)) {
		return fmt.Errorf("%w: %s has more than %d decimal places", ErrValidation, field, models.QuantityScale)
	}
	return nil
}

func optionalID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
