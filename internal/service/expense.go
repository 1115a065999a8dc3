package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/cafe_pos/internal/models"
	"github.com/Skotchmaster/cafe_pos/internal/repo"
	"github.com/Skotchmaster/cafe_pos/internal/transport"
)

type ExpenseService struct {
	Repo *repo.GormRepo
	Now  func() time.Time
}

// Create records an expense. Lines that name a stockItemId restock that
// item in the same transaction; lines without one are bookkeeping only.
func (s *ExpenseService) Create(ctx context.Context, req transport.CreateExpenseRequest, userID uuid.UUID) (*models.Expense, error) {
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		return nil, fmt.Errorf("%w: description required", ErrValidation)
	}

	expense := &models.Expense{
		Description: desc,
		Category:    strings.TrimSpace(req.Category),
		CreatedBy:   userID,
		PaidAt:      s.now(),
	}
	if req.PaidAt != nil {
		expense.PaidAt = req.PaidAt.UTC()
	}

	stockIDs := make([]*uuid.UUID, len(req.Lines))
	sum := decimal.Zero
	for i, l := range req.Lines {
		if sid := strings.TrimSpace(l.StockItemID); sid != "" {
			id, err := uuid.Parse(sid)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: stockItemId must be a uuid", ErrValidation, i)
			}
			stockIDs[i] = &id
		}
		if err := validateQuantity(fmt.Sprintf("line %d quantity", i), l.Quantity, false); err != nil {
			return nil, err
		}
		if err := validatePrice(l.UnitCost); err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		name := strings.TrimSpace(l.Name)
		if name == "" && stockIDs[i] == nil {
			return nil, fmt.Errorf("%w: line %d: name required", ErrValidation, i)
		}

		lineTotal := l.Quantity.Mul(l.UnitCost).Round(models.MoneyScale)
		sum = sum.Add(lineTotal)
		expense.Lines = append(expense.Lines, models.ExpenseLine{
			StockItemID: stockIDs[i],
			Name:        name,
			Quantity:    l.Quantity,
			UnitCost:    l.UnitCost,
			LineTotal:   lineTotal,
		})
	}

	switch {
	case req.Amount != nil:
		if err := validatePrice(*req.Amount); err != nil {
			return nil, err
		}
		expense.Amount = *req.Amount
	case len(expense.Lines) > 0:
		expense.Amount = sum
	default:
		return nil, fmt.Errorf("%w: amount or lines required", ErrValidation)
	}
	if !expense.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be > 0", ErrValidation)
	}

	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		for i := range expense.Lines {
			line := &expense.Lines[i]
			if line.StockItemID == nil {
				continue
			}
			st, err := tx.GetStockItem(ctx, *line.StockItemID)
			if err != nil {
				return fmt.Errorf("line %d: %w", i, translate(err, "stock item "+line.StockItemID.String()))
			}
			if line.Name == "" {
				line.Name = st.Name
			}
		}

		if err := tx.CreateExpense(ctx, expense); err != nil {
			return err
		}

		var moves []models.StockMovement
		for _, line := range expense.Lines {
			if line.StockItemID == nil {
				continue
			}
			after, err := tx.AddStock(ctx, *line.StockItemID, line.Quantity)
			if err != nil {
				return translate(err, "stock item "+line.StockItemID.String())
			}
			expenseID := expense.ID
			moves = append(moves, models.StockMovement{
				StockItemID:   after.ID,
				ExpenseID:     &expenseID,
				Kind:          models.MovementRestock,
				Delta:         line.Quantity,
				QuantityAfter: after.Quantity,
				Note:          expense.Description,
				CreatedBy:     optionalID(userID),
			})
		}
		return tx.AddMovements(ctx, moves)
	})
	if err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *ExpenseService) List(ctx context.Context, from, to *time.Time, offset, limit int) (int64, []models.Expense, error) {
	if from != nil && to != nil && !to.After(*from) {
		return 0, nil, fmt.Errorf("%w: to must be after from", ErrValidation)
	}
	return s.Repo.ListExpenses(ctx, from, to, offset, limit)
}

func (s *ExpenseService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
