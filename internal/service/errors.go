package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/cafe_pos/internal/repo"
	"github.com/Skotchmaster/cafe_pos/internal/transport"
)

var (
	ErrValidation       = errors.New("validation")        // 400
	ErrUnauthorized     = errors.New("unauthorized")      // 401
	ErrNotFound         = errors.New("not found")         // 404
	ErrConflict         = errors.New("conflict")          // 409
	ErrStockUnavailable = errors.New("stock unavailable") // 409
)

// LineError ties a validation or lookup failure to one order line.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

func (e *LineError) Unwrap() error { return e.Err }

func lineError(line int, kind error, format string, args ...any) error {
	return &LineError{Line: line, Err: fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))}
}

// StockUnavailableError is returned when the availability check rejects an
// order before anything was written.
type StockUnavailableError struct {
	Report transport.AvailabilityReport
}

func (e *StockUnavailableError) Error() string {
	var names []string
	for _, m := range e.Missing() {
		names = append(names, m.Name)
	}
	return fmt.Sprintf("%v: %s", ErrStockUnavailable, strings.Join(names, ", "))
}

func (e *StockUnavailableError) Unwrap() error { return ErrStockUnavailable }

func (e *StockUnavailableError) Missing() []transport.MissingIngredient {
	var out []transport.MissingIngredient
	for _, l := range e.Report.Lines {
		out = append(out, l.MissingIngredients...)
	}
	return out
}

// FirstLine is the index of the first line that cannot be served.
func (e *StockUnavailableError) FirstLine() *int {
	for _, l := range e.Report.Lines {
		if !l.Available {
			line := l.Line
			return &line
		}
	}
	return nil
}

// ConsumptionError is returned when a decrement fails after the order row
// was written. The whole order transaction has been rolled back by then.
type ConsumptionError struct {
	OrderID    uuid.UUID
	Line       int
	MenuItemID uuid.UUID
	Ingredient transport.MissingIngredient
	Err        error
}

func (e *ConsumptionError) Error() string {
	return fmt.Sprintf("stock consumption failed on line %d (%s): %v", e.Line, e.Ingredient.Name, e.Err)
}

func (e *ConsumptionError) Unwrap() error { return e.Err }

// translate maps storage errors onto the service sentinels.
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case repo.IsNotFound(err):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %s already exists", ErrConflict, what)
	default:
		return err
	}
}
