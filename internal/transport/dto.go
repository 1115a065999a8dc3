package transport

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/cafe_pos/internal/models"
)

// Order placement

type OrderLineRequest struct {
	MenuItemID string   `json:"menuItemId"`
	Quantity   int      `json:"quantity"`
	Modifiers  []string `json:"modifiers,omitempty"`
	Notes      string   `json:"notes,omitempty"`
}

type ProcessOrderRequest struct {
	Items         []OrderLineRequest `json:"items"`
	TableNumber   string             `json:"tableNumber,omitempty"`
	CustomerName  string             `json:"customerName,omitempty"`
	PaymentMethod string             `json:"paymentMethod,omitempty"`
	Notes         string             `json:"notes,omitempty"`
}

type MissingIngredient struct {
	StockItemID string          `json:"stockItemId"`
	Name        string          `json:"name"`
	Unit        string          `json:"unit,omitempty"`
	Required    decimal.Decimal `json:"required"`
	Available   decimal.Decimal `json:"available"`
}

type LineAvailability struct {
	Line               int                 `json:"line"`
	MenuItemID         string              `json:"menuItemId"`
	Name               string              `json:"name"`
	Quantity           int                 `json:"quantity"`
	Available          bool                `json:"available"`
	MissingIngredients []MissingIngredient `json:"missingIngredients"`
}

type AvailabilityReport struct {
	Available bool               `json:"available"`
	Lines     []LineAvailability `json:"lines"`
}

type IngredientConsumption struct {
	StockItemID string          `json:"stockItemId"`
	Name        string          `json:"name"`
	Unit        string          `json:"unit,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Remaining   decimal.Decimal `json:"remaining"`
	Tracked     bool            `json:"tracked"`
}

type LineConsumption struct {
	Line        int                     `json:"line"`
	MenuItemID  string                  `json:"menuItemId"`
	Name        string                  `json:"name"`
	Quantity    int                     `json:"quantity"`
	Ingredients []IngredientConsumption `json:"ingredients"`
}

type ProcessOrderResponse struct {
	Order       *models.Order     `json:"order"`
	Consumption []LineConsumption `json:"consumption"`
}

// ErrorResponse is the body of every failed order-processing request.
type ErrorResponse struct {
	Error              string              `json:"error"`
	Message            string              `json:"message"`
	Line               *int                `json:"line,omitempty"`
	MissingIngredients []MissingIngredient `json:"missingIngredients,omitempty"`
	Lines              []LineAvailability  `json:"lines,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// Menu

type RecipeLineRequest struct {
	StockItemID string          `json:"stockItemId"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit,omitempty"`
}

type CreateMenuItemRequest struct {
	Name        string              `json:"name"`
	Category    string              `json:"category"`
	Description string              `json:"description"`
	Price       decimal.Decimal     `json:"price"`
	Available   *bool               `json:"available,omitempty"`
	Recipe      []RecipeLineRequest `json:"recipe"`
}

type PatchMenuItemRequest struct {
	Name        *string              `json:"name,omitempty"`
	Category    *string              `json:"category,omitempty"`
	Description *string              `json:"description,omitempty"`
	Price       *decimal.Decimal     `json:"price,omitempty"`
	Available   *bool                `json:"available,omitempty"`
	Recipe      *[]RecipeLineRequest `json:"recipe,omitempty"`
}

// Stock

type CreateStockItemRequest struct {
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	Quantity      decimal.Decimal `json:"quantity"`
	Unit          string          `json:"unit"`
	MinStock      decimal.Decimal `json:"minStock"`
	UnitCost      decimal.Decimal `json:"unitCost"`
	TrackQuantity *bool           `json:"trackQuantity,omitempty"`
}

type PatchStockItemRequest struct {
	Name          *string          `json:"name,omitempty"`
	Category      *string          `json:"category,omitempty"`
	Unit          *string          `json:"unit,omitempty"`
	MinStock      *decimal.Decimal `json:"minStock,omitempty"`
	UnitCost      *decimal.Decimal `json:"unitCost,omitempty"`
	TrackQuantity *bool            `json:"trackQuantity,omitempty"`
}

type RestockRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
	Note     string          `json:"note,omitempty"`
}

type AdjustStockRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
	Note     string          `json:"note,omitempty"`
}

// Expenses

type ExpenseLineRequest struct {
	StockItemID string          `json:"stockItemId,omitempty"`
	Name        string          `json:"name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unitCost"`
}

type CreateExpenseRequest struct {
	Description string               `json:"description"`
	Category    string               `json:"category"`
	Amount      *decimal.Decimal     `json:"amount,omitempty"`
	PaidAt      *time.Time           `json:"paidAt,omitempty"`
	Lines       []ExpenseLineRequest `json:"lines,omitempty"`
}

// Auth

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string       `json:"accessToken"`
	TokenType   string       `json:"tokenType"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	User        *models.User `json:"user"`
}

type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Lists

type PageMeta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
	HasPrev    bool  `json:"hasPrev"`
	HasNext    bool  `json:"hasNext"`
}

type ListResponse[T any] struct {
	Data []T      `json:"data"`
	Meta PageMeta `json:"meta"`
}
