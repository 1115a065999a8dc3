package repo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/cafe_pos/internal/models"
)

type MenuFilter struct {
	Category  string
	Available *bool
}

func preloadRecipe(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *GormRepo) CreateMenuItem(ctx context.Context, item *models.MenuItem) error {
	return r.DB.WithContext(ctx).Create(item).Error
}

func (r *GormRepo) GetMenuItem(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := r.DB.WithContext(ctx).Preload("Recipe", preloadRecipe).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// GetMenuItems returns the items that exist; missing ids are simply absent.
func (r *GormRepo) GetMenuItems(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.MenuItem, error) {
	out := make(map[uuid.UUID]models.MenuItem, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var items []models.MenuItem
	if err := r.DB.WithContext(ctx).Preload("Recipe", preloadRecipe).Where("id IN ?", ids).Find(&items).Error; err != nil {
		return nil, err
	}
	for _, it := range items {
		out[it.ID] = it
	}
	return out, nil
}

func (r *GormRepo) ListMenuItems(ctx context.Context, f MenuFilter, offset, limit int) (int64, []models.MenuItem, error) {
	q := r.DB.WithContext(ctx).Model(&models.MenuItem{})
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Available != nil {
		q = q.Where("available = ?", *f.Available)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var items []models.MenuItem
	if err := q.Preload("Recipe", preloadRecipe).Order("category ASC, name ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

// SearchMenuItems is the database fallback used when no search index is configured.
func (r *GormRepo) SearchMenuItems(ctx context.Context, q string, offset, limit int) (int64, []models.MenuItem, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(q)) + "%"
	where := r.DB.WithContext(ctx).Model(&models.MenuItem{}).
		Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(category) LIKE ?", pattern, pattern, pattern)

	var total int64
	if err := where.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var items []models.MenuItem
	if err := where.Preload("Recipe", preloadRecipe).Order("name ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

// UpdateMenuItem saves the item's columns and, when replaceRecipe is set,
// swaps the whole recipe for item.Recipe.
func (r *GormRepo) UpdateMenuItem(ctx context.Context, item *models.MenuItem, replaceRecipe bool) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(item).Error; err != nil {
			return err
		}
		if !replaceRecipe {
			return nil
		}

		if err := tx.Where("menu_item_id = ?", item.ID).Delete(&models.RecipeLine{}).Error; err != nil {
			return err
		}
		if len(item.Recipe) == 0 {
			return nil
		}
		for i := range item.Recipe {
			item.Recipe[i].ID = 0
			item.Recipe[i].MenuItemID = item.ID
		}
		return tx.Create(&item.Recipe).Error
	})
}

func (r *GormRepo) DeleteMenuItem(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("menu_item_id = ?", id).Delete(&models.RecipeLine{}).Error; err != nil {
			return err
		}

		res := tx.Where("id = ?", id).Delete(&models.MenuItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
