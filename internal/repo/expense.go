package repo

import (
	"context"
	"time"

	"github.com/Skotchmaster/cafe_pos/internal/models"
)

func (r *GormRepo) CreateExpense(ctx context.Context, e *models.Expense) error {
	return r.DB.WithContext(ctx).Create(e).Error
}

func (r *GormRepo) ListExpenses(ctx context.Context, from, to *time.Time, offset, limit int) (int64, []models.Expense, error) {
	q := r.DB.WithContext(ctx).Model(&models.Expense{})
	if from != nil {
		q = q.Where("paid_at >= ?", *from)
	}
	if to != nil {
		q = q.Where("paid_at < ?", *to)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var out []models.Expense
	if err := q.Preload("Lines").Order("paid_at DESC").Offset(offset).Limit(limit).Find(&out).Error; err != nil {
		return 0, nil, err
	}
	return total, out, nil
}
