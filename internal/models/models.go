package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
	RoleKitchen = "kitchen"
)

const (
	MovementConsume = "consume"
	MovementRestock = "restock"
	MovementAdjust  = "adjust"
)

// Stock quantities are kept at gram/millilitre precision, money at cents.
const (
	QuantityScale int32 = 3
	MoneyScale    int32 = 2
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"  json:"id"`
	Username     string    `gorm:"uniqueIndex;not null"  json:"username"`
	PasswordHash string    `gorm:"not null"              json:"-"`
	Role         string    `gorm:"not null"              json:"role"`
	CreatedAt    time.Time `                             json:"createdAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

type StockItem struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"           json:"id"`
	Name          string          `gorm:"uniqueIndex;not null"           json:"name"`
	Category      string          `gorm:"index"                          json:"category"`
	Quantity      decimal.Decimal `gorm:"type:numeric(14,3);not null"    json:"quantity"`
	Unit          string          `gorm:"not null"                       json:"unit"`
	MinStock      decimal.Decimal `gorm:"type:numeric(14,3);not null"    json:"minStock"`
	UnitCost      decimal.Decimal `gorm:"type:numeric(12,2);not null"    json:"unitCost"`
	TrackQuantity bool            `gorm:"not null"                       json:"trackQuantity"`
	ConsumedTotal decimal.Decimal `gorm:"type:numeric(14,3);not null"    json:"consumedTotal"`
	CreatedAt     time.Time       `                                      json:"createdAt"`
	UpdatedAt     time.Time       `                                      json:"updatedAt"`
}

func (s *StockItem) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *StockItem) AfterFind(tx *gorm.DB) error {
	s.Quantity = s.Quantity.Round(QuantityScale)
	s.MinStock = s.MinStock.Round(QuantityScale)
	s.ConsumedTotal = s.ConsumedTotal.Round(QuantityScale)
	return nil
}

func (s *StockItem) IsLow() bool {
	return s.TrackQuantity && s.Quantity.LessThanOrEqual(s.MinStock)
}

type StockMovement struct {
	ID            uint            `gorm:"primaryKey;autoIncrement"       json:"id"`
	StockItemID   uuid.UUID       `gorm:"type:uuid;index;not null"       json:"stockItemId"`
	OrderID       *uuid.UUID      `gorm:"type:uuid;index"                json:"orderId,omitempty"`
	ExpenseID     *uuid.UUID      `gorm:"type:uuid;index"                json:"expenseId,omitempty"`
	Kind          string          `gorm:"not null"                       json:"kind"`
	Delta         decimal.Decimal `gorm:"type:numeric(14,3);not null"    json:"delta"`
	QuantityAfter decimal.Decimal `gorm:"type:numeric(14,3);not null"    json:"quantityAfter"`
	Note          string          `                                      json:"note,omitempty"`
	CreatedBy     *uuid.UUID      `gorm:"type:uuid"                      json:"createdBy,omitempty"`
	CreatedAt     time.Time       `gorm:"index"                          json:"createdAt"`
}

func (m *StockMovement) AfterFind(tx *gorm.DB) error {
	m.Delta = m.Delta.Round(QuantityScale)
	m.QuantityAfter = m.QuantityAfter.Round(QuantityScale)
	return nil
}

type MenuItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"                        json:"id"`
	Name        string          `gorm:"not null"                                    json:"name"`
	Category    string          `gorm:"index"                                       json:"category"`
	Description string          `                                                   json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null"                 json:"price"`
	Available   bool            `gorm:"not null"                                    json:"available"`
	Recipe      []RecipeLine    `gorm:"foreignKey:MenuItemID;constraint:OnDelete:CASCADE" json:"recipe"`
	CreatedAt   time.Time       `                                                   json:"createdAt"`
	UpdatedAt   time.Time       `                                                   json:"updatedAt"`
}

func (m *MenuItem) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type RecipeLine struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"       json:"-"`
	MenuItemID  uuid.UUID       `gorm:"type:uuid;index;not null"       json:"-"`
	Position    int             `gorm:"not null"                       json:"position"`
	StockItemID uuid.UUID       `gorm:"type:uuid;index;not null"       json:"stockItemId"`
	Quantity    decimal.Decimal `gorm:"type:numeric(14,3);not null"    json:"quantity"`
	Unit        string          `                                      json:"unit"`
}

func (r *RecipeLine) AfterFind(tx *gorm.DB) error {
	r.Quantity = r.Quantity.Round(QuantityScale)
	return nil
}

type Order struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"                         json:"id"`
	Number        string          `gorm:"uniqueIndex;not null"                         json:"number"`
	BusinessDay   string          `gorm:"index;not null"                               json:"businessDay"`
	Status        string          `gorm:"index;not null"                               json:"status"`
	TableNumber   string          `                                                    json:"tableNumber,omitempty"`
	CustomerName  string          `                                                    json:"customerName,omitempty"`
	PaymentMethod string          `                                                    json:"paymentMethod,omitempty"`
	Notes         string          `                                                    json:"notes,omitempty"`
	Total         decimal.Decimal `gorm:"type:numeric(12,2);not null"                  json:"total"`
	CreatedBy     uuid.UUID       `gorm:"type:uuid;index;not null"                     json:"createdBy"`
	Items         []OrderLine     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt     time.Time       `gorm:"index"                                        json:"createdAt"`
	UpdatedAt     time.Time       `                                                    json:"updatedAt"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

type OrderLine struct {
	ID         uint            `gorm:"primaryKey;autoIncrement"       json:"id"`
	OrderID    uuid.UUID       `gorm:"type:uuid;index;not null"       json:"-"`
	Position   int             `gorm:"not null"                       json:"position"`
	MenuItemID uuid.UUID       `gorm:"type:uuid;not null"             json:"menuItemId"`
	Name       string          `gorm:"not null"                       json:"name"`
	Quantity   int             `gorm:"not null;check:quantity > 0"    json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:numeric(12,2);not null"    json:"unitPrice"`
	LineTotal  decimal.Decimal `gorm:"type:numeric(12,2);not null"    json:"lineTotal"`
	Modifiers  []string        `gorm:"serializer:json"                json:"modifiers,omitempty"`
	Notes      string          `                                      json:"notes,omitempty"`
	Status     string          `gorm:"not null"                       json:"status"`
}

// OrderCounter holds the last order sequence handed out for a business day.
type OrderCounter struct {
	Day string `gorm:"primaryKey"`
	Seq int    `gorm:"not null"`
}

type Expense struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"                          json:"id"`
	Description string          `gorm:"not null"                                      json:"description"`
	Category    string          `gorm:"index"                                         json:"category"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null"                   json:"amount"`
	PaidAt      time.Time       `gorm:"index;not null"                                json:"paidAt"`
	CreatedBy   uuid.UUID       `gorm:"type:uuid;not null"                            json:"createdBy"`
	Lines       []ExpenseLine   `gorm:"foreignKey:ExpenseID;constraint:OnDelete:CASCADE" json:"lines,omitempty"`
	CreatedAt   time.Time       `                                                     json:"createdAt"`
}

func (e *Expense) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

type ExpenseLine struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"       json:"id"`
	ExpenseID   uuid.UUID       `gorm:"type:uuid;index;not null"       json:"-"`
	StockItemID *uuid.UUID      `gorm:"type:uuid;index"                json:"stockItemId,omitempty"`
	Name        string          `gorm:"not null"                       json:"name"`
	Quantity    decimal.Decimal `gorm:"type:numeric(14,3);not null"    json:"quantity"`
	UnitCost    decimal.Decimal `gorm:"type:numeric(12,2);not null"    json:"unitCost"`
	LineTotal   decimal.Decimal `gorm:"type:numeric(12,2);not null"    json:"lineTotal"`
}

func All() []any {
	return []any{
		&User{},
		&StockItem{},
		&StockMovement{},
		&MenuItem{},
		&RecipeLine{},
		&Order{},
		&OrderLine{},
		&OrderCounter{},
		&Expense{},
		&ExpenseLine{},
	}
}
