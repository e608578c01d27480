package order

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var Statuses = []Status{
	StatusPending, StatusPaid, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled,
}

func (s Status) Valid() bool {
	for _, x := range Statuses {
		if s == x {
			return true
		}
	}
	return false
}

// Terminal statuses accept no further changes.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Settled reports whether an order in this status has already consumed its stock.
func (s Status) Settled() bool {
	switch s {
	case StatusPaid, StatusPreparing, StatusReady, StatusCompleted:
		return true
	}
	return false
}

func settledStatuses() []string {
	return []string{string(StatusPaid), string(StatusPreparing), string(StatusReady), string(StatusCompleted)}
}

type PaymentMethod string

const (
	MethodUPI  PaymentMethod = "upi"
	MethodCash PaymentMethod = "cash"
)

type Order struct {
	ID            string          `json:"id"`
	InvoiceNo     string          `json:"invoice_no"`
	UserID        *string         `json:"user_id,omitempty"`
	CustomerName  string          `json:"customer_name,omitempty"`
	WalkIn        bool            `json:"walk_in"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Status        Status          `json:"status"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Item is a line of an order. Name and Price are copied from the menu when the
// order is placed and never follow later catalog edits.
type Item struct {
	ID         string          `json:"id"`
	OrderID    string          `json:"order_id"`
	MenuItemID string          `json:"menu_item_id,omitempty"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
}

func (it Item) LineTotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Caller is the identity the session layer vouches for. The zero value is an
// anonymous caller.
type Caller struct {
	UserID  string
	IsAdmin bool
}

func (c Caller) Authenticated() bool { return c.UserID != "" }

type CartLine struct {
	MenuItemID string
	Quantity   int
}

type ItemSales struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// Stats summarises orders created in [From, To).
type Stats struct {
	From      time.Time       `json:"from"`
	To        time.Time       `json:"to"`
	Orders    int             `json:"orders"`
	Pending   int             `json:"pending"`
	Cancelled int             `json:"cancelled"`
	WalkIn    int             `json:"walk_in"`
	Revenue   decimal.Decimal `json:"revenue"`
	TopItems  []ItemSales     `json:"top_items"`
}
