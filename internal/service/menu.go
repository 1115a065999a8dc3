package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/cafe_pos/internal/logging"
	"github.com/Skotchmaster/cafe_pos/internal/models"
	"github.com/Skotchmaster/cafe_pos/internal/repo"
	"github.com/Skotchmaster/cafe_pos/internal/transport"
)

// MenuIndex is the optional full-text index over the menu.
type MenuIndex interface {
	IndexMenuItem(ctx context.Context, item *models.MenuItem) error
	DeleteMenuItem(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, from, size int) (int64, []uuid.UUID, error)
}

type MenuService struct {
	Repo  *repo.GormRepo
	Index MenuIndex
}

func (s *MenuService) Get(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	item, err := s.Repo.GetMenuItem(ctx, id)
	if err != nil {
		return nil, translate(err, "menu item "+id.String())
	}
	return item, nil
}

func (s *MenuService) List(ctx context.Context, f repo.MenuFilter, offset, limit int) (int64, []models.MenuItem, error) {
	return s.Repo.ListMenuItems(ctx, f, offset, limit)
}

func (s *MenuService) Create(ctx context.Context, req transport.CreateMenuItemRequest) (*models.MenuItem, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}
	if err := validatePrice(req.Price); err != nil {
		return nil, err
	}

	recipe, err := s.buildRecipe(ctx, req.Recipe)
	if err != nil {
		return nil, err
	}

	item := &models.MenuItem{
		Name:        name,
		Category:    strings.TrimSpace(req.Category),
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		Available:   req.Available == nil || *req.Available,
		Recipe:      recipe,
	}
	if err := s.Repo.CreateMenuItem(ctx, item); err != nil {
		return nil, translate(err, "menu item")
	}

	created, err := s.Get(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	s.index(ctx, created)
	return created, nil
}

func (s *MenuService) Patch(ctx context.Context, id uuid.UUID, req transport.PatchMenuItemRequest) (*models.MenuItem, error) {
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
	if req.Description != nil {
		item.Description = strings.TrimSpace(*req.Description)
	}
	if req.Price != nil {
		if err := validatePrice(*req.Price); err != nil {
			return nil, err
		}
		item.Price = *req.Price
	}
	if req.Available != nil {
		item.Available = *req.Available
	}

	replaceRecipe := req.Recipe != nil
	if replaceRecipe {
		recipe, err := s.buildRecipe(ctx, *req.Recipe)
		if err != nil {
			return nil, err
		}
		item.Recipe = recipe
	}

	if err := s.Repo.UpdateMenuItem(ctx, item, replaceRecipe); err != nil {
		return nil, translate(err, "menu item "+id.String())
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.index(ctx, updated)
	return updated, nil
}

// Delete drops the item and its recipe. Past orders keep their snapshot.
func (s *MenuService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.Repo.DeleteMenuItem(ctx, id); err != nil {
		return translate(err, "menu item "+id.String())
	}
	if s.Index != nil {
		if err := s.Index.DeleteMenuItem(ctx, id); err != nil {
			logging.FromContext(ctx).Warn("menu_unindex_failed", "menu_item_id", id, "error", err)
		}
	}
	return nil
}

// Search asks the index first and falls back to a database scan when no
// index is configured or it fails.
func (s *MenuService) Search(ctx context.Context, query string, offset, limit int) (int64, []models.MenuItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return 0, nil, fmt.Errorf("%w: query required", ErrValidation)
	}

	if s.Index != nil {
		total, ids, err := s.Index.Search(ctx, query, offset, limit)
		if err == nil {
			found, err := s.Repo.GetMenuItems(ctx, ids)
			if err != nil {
				return 0, nil, err
			}
			items := make([]models.MenuItem, 0, len(ids))
			for _, id := range ids {
				if it, ok := found[id]; ok {
					items = append(items, it)
				}
			}
			return total, items, nil
		}
		logging.FromContext(ctx).Warn("menu_search_fallback", "reason", "index unavailable", "error", err)
	}

	return s.Repo.SearchMenuItems(ctx, query, offset, limit)
}

func (s *MenuService) buildRecipe(ctx context.Context, lines []transport.RecipeLineRequest) ([]models.RecipeLine, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for i, rl := range lines {
		id, err := uuid.Parse(strings.TrimSpace(rl.StockItemID))
		if err != nil {
			return nil, fmt.Errorf("%w: recipe line %d: stockItemId must be a uuid", ErrValidation, i)
		}
		if !rl.Quantity.IsPositive() {
			return nil, fmt.Errorf("%w: recipe line %d: quantity must be > 0", ErrValidation, i)
		}
		if !rl.Quantity.Equal(rl.Quantity.Round(models.QuantityScale)) {
			return nil, fmt.Errorf("%w: recipe line %d: at most %d decimal places", ErrValidation, i, models.QuantityScale)
		}
		ids = append(ids, id)
	}

	stock, err := s.Repo.GetStockItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	recipe := make([]models.RecipeLine, 0, len(lines))
	for i, rl := range lines {
		st, ok := stock[ids[i]]
		if !ok {
			return nil, fmt.Errorf("%w: recipe line %d: stock item %s does not exist", ErrValidation, i, ids[i])
		}
		unit := strings.TrimSpace(rl.Unit)
		if unit == "" {
			unit = st.Unit
		}
		recipe = append(recipe, models.RecipeLine{
			Position:    i,
			StockItemID: st.ID,
			Quantity:    rl.Quantity,
			Unit:        unit,
		})
	}
	return recipe, nil
}

func (s *MenuService) index(ctx context.Context, item *models.MenuItem) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexMenuItem(ctx, item); err != nil {
		logging.FromContext(ctx).Warn("menu_index_failed", "menu_item_id", item.ID, "error", err)
	}
}

func validatePrice(p decimal.Decimal) error {
	if p.IsNegative() {
		return fmt.Errorf("%w: price must be >= 0", ErrValidation)
	}
	if !p.Equal(p.Round(models.MoneyScale)) {
		return fmt.Errorf("%w: price has more than %d decimal places", ErrValidation, models.MoneyScale)
	}
	return nil
}
