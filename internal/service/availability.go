package service

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/Skotchmaster/cafe_pos/internal/models"
	"github.com/Skotchmaster/cafe_pos/internal/repo"
	"github.com/Skotchmaster/cafe_pos/internal/transport"
)

// LineRequest is an order line with its menu item id resolved.
type LineRequest struct {
	MenuItemID uuid.UUID
	Quantity   int
	Modifiers  []string
	Notes      string
}

// ParseLines validates request lines and resolves their menu item ids.
func ParseLines(items []transport.OrderLineRequest) ([]LineRequest, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: items required", ErrValidation)
	}

	out := make([]LineRequest, 0, len(items))
	for i, it := range items {
		id, err := uuid.Parse(strings.TrimSpace(it.MenuItemID))
		if err != nil || id == uuid.Nil {
			return nil, lineError(i, ErrValidation, "menuItemId must be a uuid")
		}
		if it.Quantity <= 0 {
			return nil, lineError(i, ErrValidation, "quantity must be > 0")
		}
		out = append(out, LineRequest{
			MenuItemID: id,
			Quantity:   it.Quantity,
			Modifiers:  it.Modifiers,
			Notes:      strings.TrimSpace(it.Notes),
		})
	}
	return out, nil
}

// ParseProbe pairs the probe's menu ids with their quantities by position.
func ParseProbe(menuIDs, quantities []string) ([]LineRequest, error) {
	if len(menuIDs) == 0 {
		return nil, fmt.Errorf("%w: menuIds required", ErrValidation)
	}
	if len(menuIDs) != len(quantities) {
		return nil, fmt.Errorf("%w: got %d menuIds and %d quantities", ErrValidation, len(menuIDs), len(quantities))
	}

	items := make([]transport.OrderLineRequest, len(menuIDs))
	for i := range menuIDs {
		n, err := strconv.Atoi(strings.TrimSpace(quantities[i]))
		if err != nil {
			return nil, lineError(i, ErrValidation, "quantity %q is not an integer", quantities[i])
		}
		items[i] = transport.OrderLineRequest{MenuItemID: menuIDs[i], Quantity: n}
	}
	return ParseLines(items)
}

// CanSell reports whether onHand covers perUnit for n sales.
func CanSell(onHand decimal.Decimal, tracked bool, perUnit decimal.Decimal, n int) bool {
	if !tracked {
		return true
	}
	return onHand.GreaterThanOrEqual(required(perUnit, n))
}

// CanSellRecipe applies CanSell to every ingredient of a recipe. An
// ingredient listed twice is counted twice.
func CanSellRecipe(recipe []models.RecipeLine, stock map[uuid.UUID]models.StockItem, n int) bool {
	item := models.MenuItem{Recipe: recipe}
	return assessLine(0, item, n, stock, map[uuid.UUID]decimal.Decimal{}).Available
}

func required(perUnit decimal.Decimal, n int) decimal.Decimal {
	return perUnit.Mul(decimal.NewFromInt(int64(n)))
}

type AvailabilityChecker struct {
	Repo *repo.GormRepo

	probes singleflight.Group
}

type evaluation struct {
	lines  []LineRequest
	items  map[uuid.UUID]models.MenuItem
	stock  map[uuid.UUID]models.StockItem
	report transport.AvailabilityReport
}

// Check reports, per line, whether stock covers the request. Lines are
// checked against what earlier lines of the same request leave behind.
func (c *AvailabilityChecker) Check(ctx context.Context, lines []LineRequest) (*transport.AvailabilityReport, error) {
	ev, err := c.evaluate(ctx, c.Repo, lines)
	if err != nil {
		return nil, err
	}
	return &ev.report, nil
}

// Probe is Check with identical concurrent requests collapsed into one.
func (c *AvailabilityChecker) Probe(ctx context.Context, lines []LineRequest) (*transport.AvailabilityReport, error) {
	v, err, _ := c.probes.Do(probeKey(lines), func() (any, error) {
		return c.Check(context.WithoutCancel(ctx), lines)
	})
	if err != nil {
		return nil, err
	}
	return v.(*transport.AvailabilityReport), nil
}

func probeKey(lines []LineRequest) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l.MenuItemID.String())
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(l.Quantity))
		b.WriteByte(';')
	}
	return b.String()
}

func (c *AvailabilityChecker) evaluate(ctx context.Context, r *repo.GormRepo, lines []LineRequest) (*evaluation, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: items required", ErrValidation)
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.MenuItemID)
	}
	items, err := r.GetMenuItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	for i, l := range lines {
		item, ok := items[l.MenuItemID]
		if !ok {
			return nil, lineError(i, ErrNotFound, "menu item %s", l.MenuItemID)
		}
		if !item.Available {
			return nil, lineError(i, ErrValidation, "menu item %q is not available", item.Name)
		}
	}

	stock, err := r.GetStockItems(ctx, recipeStockIDs(lines, items))
	if err != nil {
		return nil, err
	}

	ev := &evaluation{
		lines:  lines,
		items:  items,
		stock:  stock,
		report: transport.AvailabilityReport{Available: true, Lines: make([]transport.LineAvailability, 0, len(lines))},
	}
	remaining := make(map[uuid.UUID]decimal.Decimal)
	for i, l := range lines {
		la := assessLine(i, items[l.MenuItemID], l.Quantity, stock, remaining)
		if !la.Available {
			ev.report.Available = false
		}
		ev.report.Lines = append(ev.report.Lines, la)
	}
	return ev, nil
}

// assessLine checks one line against remaining, which carries tracked
// quantities already claimed by earlier lines, and claims what it needs.
func assessLine(line int, item models.MenuItem, n int, stock map[uuid.UUID]models.StockItem, remaining map[uuid.UUID]decimal.Decimal) transport.LineAvailability {
	la := transport.LineAvailability{
		Line:               line,
		MenuItemID:         item.ID.String(),
		Name:               item.Name,
		Quantity:           n,
		Available:          true,
		MissingIngredients: []transport.MissingIngredient{},
	}

	for _, rl := range item.Recipe {
		need := required(rl.Quantity, n)

		st, ok := stock[rl.StockItemID]
		if !ok {
			la.Available = false
			la.MissingIngredients = append(la.MissingIngredients, unknownIngredient(rl, need))
			continue
		}
		if !st.TrackQuantity {
			continue
		}

		have, ok := remaining[st.ID]
		if !ok {
			have = st.Quantity
		}
		if !CanSell(have, true, rl.Quantity, n) {
			la.Available = false
			la.MissingIngredients = append(la.MissingIngredients, transport.MissingIngredient{
				StockItemID: st.ID.String(),
				Name:        st.Name,
				Unit:        st.Unit,
				Required:    need,
				Available:   decimal.Max(have, decimal.Zero),
			})
			continue
		}
		remaining[st.ID] = have.Sub(need)
	}
	return la
}

func recipeStockIDs(lines []LineRequest, items map[uuid.UUID]models.MenuItem) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, l := range lines {
		for _, rl := range items[l.MenuItemID].Recipe {
			if _, ok := seen[rl.StockItemID]; ok {
				continue
			}
			seen[rl.StockItemID] = struct{}{}
			ids = append(ids, rl.StockItemID)
		}
	}
	sortUUIDs(ids)
	return ids
}

func sortUUIDs(ids []uuid.UUID) {
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
}

// unknownIngredient describes a recipe line whose stock row is gone.
func unknownIngredient(rl models.RecipeLine, need decimal.Decimal) transport.MissingIngredient {
	return transport.MissingIngredient{
		StockItemID: rl.StockItemID.String(),
		Name:        "unknown stock item " + rl.StockItemID.String(),
		Unit:        rl.Unit,
		Required:    need,
		Available:   decimal.Zero,
	}
}
