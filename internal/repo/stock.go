package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/cafe_pos/internal/models"
)

// Half of the smallest stored quantity step. Postgres numeric(14,3) is exact,
// so comparing against amount-tolerance equals comparing against amount there;
// on sqlite it absorbs REAL rounding drift.
var quantityTolerance = decimal.New(5, -4)

type StockFilter struct {
	Category string
	LowOnly  bool
}

func (r *GormRepo) CreateStockItem(ctx context.Context, item *models.StockItem) error {
	return r.DB.WithContext(ctx).Create(item).Error
}

func (r *GormRepo) GetStockItem(ctx context.Context, id uuid.UUID) (*models.StockItem, error) {
	var item models.StockItem
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormRepo) GetStockItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.StockItem, error) {
	return r.findStockItems(r.DB.WithContext(ctx), ids)
}

// LockStockItems takes row locks in id order so concurrent orders touching the
// same ingredients queue up instead of deadlocking.
func (r *GormRepo) LockStockItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.StockItem, error) {
	return r.findStockItems(r.DB.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), ids)
}

func (r *GormRepo) findStockItems(db *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]models.StockItem, error) {
	out := make(map[uuid.UUID]models.StockItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var items []models.StockItem
	if err := db.Where("id IN ?", ids).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	for _, it := range items {
		out[it.ID] = it
	}
	return out, nil
}

func (r *GormRepo) ListStockItems(ctx context.Context, f StockFilter, offset, limit int) (int64, []models.StockItem, error) {
	q := r.DB.WithContext(ctx).Model(&models.StockItem{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.LowOnly {
		q = q.Where("track_quantity = ? AND quantity <= min_stock", true)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var items []models.StockItem
	if err := q.Order("name ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

// UpdateStockMetadata writes everything except quantity and consumed_total,
// which only move through ConsumeStock, AddStock and SetStockQuantity.
func (r *GormRepo) UpdateStockMetadata(ctx context.Context, item *models.StockItem) error {
	res := r.DB.WithContext(ctx).Model(item).
		Select("name", "category", "unit", "min_stock", "unit_cost", "track_quantity").
		Updates(item)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ConsumeStock atomically takes amount off a stock item, refusing to go below
// zero for tracked items. Untracked items only accumulate consumed_total.
func (r *GormRepo) ConsumeStock(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*models.StockItem, error) {
	res := r.DB.WithContext(ctx).Model(&models.StockItem{}).
		Where("id = ?", id).
		Where("(track_quantity = ? OR quantity >= ?)", false, amount.Sub(quantityTolerance)).
		Updates(map[string]any{
			"quantity":       gorm.Expr("CASE WHEN track_quantity THEN ROUND(quantity - ?, 3) ELSE quantity END", amount),
			"consumed_total": gorm.Expr("ROUND(consumed_total + ?, 3)", amount),
		})
	if res.Error != nil {
		return nil, res.Error
	}

	item, err := r.GetStockItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return item, ErrInsufficientStock
	}
	return item, nil
}

func (r *GormRepo) AddStock(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*models.StockItem, error) {
	res := r.DB.WithContext(ctx).Model(&models.StockItem{}).
		Where("id = ?", id).
		Update("quantity", gorm.Expr("ROUND(quantity + ?, 3)", amount))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.GetStockItem(ctx, id)
}

// SetStockQuantity overwrites the quantity and returns the item as it was
// before the write alongside the updated one.
func (r *GormRepo) SetStockQuantity(ctx context.Context, id uuid.UUID, qty decimal.Decimal) (before, after *models.StockItem, err error) {
	var item models.StockItem
	if err := r.DB.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, nil, err
	}
	prev := item

	if err := r.DB.WithContext(ctx).Model(&item).Update("quantity", qty).Error; err != nil {
		return nil, nil, err
	}
	after, err = r.GetStockItem(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return &prev, after, nil
}

func (r *GormRepo) AddMovements(ctx context.Context, moves []models.StockMovement) error {
	if len(moves) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Create(&moves).Error
}

func (r *GormRepo) ListMovements(ctx context.Context, stockID uuid.UUID, offset, limit int) (int64, []models.StockMovement, error) {
	q := r.DB.WithContext(ctx).Model(&models.StockMovement{}).Where("stock_item_id = ?", stockID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var moves []models.StockMovement
	if err := q.Order("created_at DESC, id DESC").Offset(offset).Limit(limit).Find(&moves).Error; err != nil {
		return 0, nil, err
	}
	return total, moves, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
