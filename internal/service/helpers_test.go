package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/cafe_pos/internal/db"
	"github.com/Skotchmaster/cafe_pos/internal/models"
	"github.com/Skotchmaster/cafe_pos/internal/notify"
	"github.com/Skotchmaster/cafe_pos/internal/repo"
	"github.com/Skotchmaster/cafe_pos/internal/transport"
)

var testDay = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) *repo.GormRepo {
	t.Helper()
	gdb, err := db.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })
	return &repo.GormRepo{DB: gdb}
}

type recordingSink struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingSink) Publish(_ context.Context, ev notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingSink) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type testEnv struct {
	Repo      *repo.GormRepo
	Sink      *recordingSink
	Processor *OrderProcessor
	Orders    *OrderService
	UserID    uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	r := newTestRepo(t)
	sink := &recordingSink{}
	return &testEnv{
		Repo: r,
		Sink: sink,
		Processor: &OrderProcessor{
			Repo:     r,
			Checker:  &AvailabilityChecker{Repo: r},
			Notifier: sink,
			Location: time.UTC,
			Now:      func() time.Time { return testDay },
		},
		Orders: &OrderService{Repo: r, Notifier: sink},
		UserID: uuid.New(),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func (env *testEnv) stock(t *testing.T, name, qty string, tracked bool) models.StockItem {
	t.Helper()
	item := models.StockItem{
		Name:          name,
		Quantity:      dec(qty),
		Unit:          "kg",
		MinStock:      decimal.Zero,
		UnitCost:      dec("1.00"),
		TrackQuantity: tracked,
		ConsumedTotal: decimal.Zero,
	}
	require.NoError(t, env.Repo.CreateStockItem(context.Background(), &item))
	return item
}

type ingredient struct {
	stock uuid.UUID
	qty   string
}

func (env *testEnv) menu(t *testing.T, name, price string, recipe ...ingredient) models.MenuItem {
	t.Helper()
	item := models.MenuItem{
		Name:      name,
		Category:  "food",
		Price:     dec(price),
		Available: true,
	}
	for i, ing := range recipe {
		item.Recipe = append(item.Recipe, models.RecipeLine{
			Position:    i,
			StockItemID: ing.stock,
			Quantity:    dec(ing.qty),
			Unit:        "kg",
		})
	}
	require.NoError(t, env.Repo.CreateMenuItem(context.Background(), &item))
	return item
}

func (env *testEnv) place(lines ...LineRequest) (*transport.ProcessOrderResponse, error) {
	return env.Processor.Process(context.Background(), PlaceOrderInput{Lines: lines, CreatedBy: env.UserID, PaymentMethod: "cash"})
}

func (env *testEnv) reload(t *testing.T, id uuid.UUID) models.StockItem {
	t.Helper()
	item, err := env.Repo.GetStockItem(context.Background(), id)
	require.NoError(t, err)
	return *item
}

func line(id uuid.UUID, n int) LineRequest {
	return LineRequest{MenuItemID: id, Quantity: n}
}
