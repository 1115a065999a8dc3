package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/cafe_pos/internal/models"
	"github.com/Skotchmaster/cafe_pos/internal/repo"
	"github.com/Skotchmaster/cafe_pos/internal/transport"
)

type fakeIndex struct {
	indexed map[uuid.UUID]string
	deleted []uuid.UUID
	hits    []uuid.UUID
	err     error
}

func (f *fakeIndex) IndexMenuItem(_ context.Context, item *models.MenuItem) error {
	if f.indexed == nil {
		f.indexed = map[uuid.UUID]string{}
	}
	f.indexed[item.ID] = item.Name
	return f.err
}

func (f *fakeIndex) DeleteMenuItem(_ context.Context, id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	return f.err
}

func (f *fakeIndex) Search(context.Context, string, int, int) (int64, []uuid.UUID, error) {
	if f.err != nil {
		return 0, nil, f.err
	}
	return int64(len(f.hits)), f.hits, nil
}

func TestMenuService_CreatePatchDelete(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	idx := &fakeIndex{}
	svc := &MenuService{Repo: env.Repo, Index: idx}

	beef := env.stock(t, "Beef", "1", true)
	bun := env.stock(t, "Bun", "10", true)

	item, err := svc.Create(ctx, transport.CreateMenuItemRequest{
		Name:     " Burger ",
		Category: "mains",
		Price:    dec("8.50"),
		Recipe: []transport.RecipeLineRequest{
			{StockItemID: beef.ID.String(), Quantity: dec("0.2")},
			{StockItemID: bun.ID.String(), Quantity: dec("1"), Unit: "pcs"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Burger", item.Name)
	assert.True(t, item.Available)
	require.Len(t, item.Recipe, 2)
	assert.Equal(t, beef.ID, item.Recipe[0].StockItemID)
	assert.Equal(t, "kg", item.Recipe[0].Unit)
	assert.Equal(t, "pcs", item.Recipe[1].Unit)
	assert.Equal(t, "Burger", idx.indexed[item.ID])

	off := false
	newRecipe := []transport.RecipeLineRequest{{StockItemID: beef.ID.String(), Quantity: dec("0.25")}}
	price := dec("9.00")
	patched, err := svc.Patch(ctx, item.ID, transport.PatchMenuItemRequest{Price: &price, Available: &off, Recipe: &newRecipe})
	require.NoError(t, err)
	requireDecimal(t, "9.00", patched.Price)
	assert.False(t, patched.Available)
	require.Len(t, patched.Recipe, 1)
	requireDecimal(t, "0.25", patched.Recipe[0].Quantity)

	name := "Cheeseburger"
	patched, err = svc.Patch(ctx, item.ID, transport.PatchMenuItemRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Cheeseburger", patched.Name)
	require.Len(t, patched.Recipe, 1, "recipe untouched when not sent")

	require.NoError(t, svc.Delete(ctx, item.ID))
	assert.Equal(t, []uuid.UUID{item.ID}, idx.deleted)
	_, err = svc.Get(ctx, item.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, item.ID), ErrNotFound)
}

func TestMenuService_ValidatesRecipe(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	svc := &MenuService{Repo: env.Repo}
	beef := env.stock(t, "Beef", "1", true)

	tests := []struct {
		name string
		req  transport.CreateMenuItemRequest
	}{
		{"missing name", transport.CreateMenuItemRequest{Price: dec("1")}},
		{"negative price", transport.CreateMenuItemRequest{Name: "x", Price: dec("-1")}},
		{"sub-cent price", transport.CreateMenuItemRequest{Name: "x", Price: dec("1.005")}},
		{"bad stock id", transport.CreateMenuItemRequest{Name: "x", Price: dec("1"), Recipe: []transport.RecipeLineRequest{{StockItemID: "nope", Quantity: dec("1")}}}},
		{"unknown stock", transport.CreateMenuItemRequest{Name: "x", Price: dec("1"), Recipe: []transport.RecipeLineRequest{{StockItemID: uuid.NewString(), Quantity: dec("1")}}}},
		{"zero quantity", transport.CreateMenuItemRequest{Name: "x", Price: dec("1"), Recipe: []transport.RecipeLineRequest{{StockItemID: beef.ID.String(), Quantity: dec("0")}}}},
		{"too precise", transport.CreateMenuItemRequest{Name: "x", Price: dec("1"), Recipe: []transport.RecipeLineRequest{{StockItemID: beef.ID.String(), Quantity: dec("0.0001")}}}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.req)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestMenuService_Search(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	burger := env.menu(t, "Burger", "8.50")
	salad := env.menu(t, "Caesar salad", "7.00")

	idx := &fakeIndex{hits: []uuid.UUID{salad.ID, uuid.New(), burger.ID}}
	svc := &MenuService{Repo: env.Repo, Index: idx}

	total, items, err := svc.Search(ctx, "food", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, salad.ID, items[0].ID)
	assert.Equal(t, burger.ID, items[1].ID)

	idx.err = errors.New("es down")
	total, items, err = svc.Search(ctx, "BURG", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, burger.ID, items[0].ID)

	noIndex := &MenuService{Repo: env.Repo}
	_, items, err = noIndex.Search(ctx, "salad", 0, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)

	_, _, err = noIndex.Search(ctx, "  ", 0, 10)
	require.ErrorIs(t, err, ErrValidation)

	avail := true
	total, _, err = noIndex.List(ctx, repo.MenuFilter{Available: &avail}, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}
