package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Order is the record of a confirmed payment. It is never updated.
type Order struct {
	ID              string
	UserID          string
	TransactionID   string
	TransactionDate string
	Products        []Item
	TotalAmount     decimal.Decimal
	PaymentStatus   string
	TransactionURL  string
	CreatedAt       time.Time
}

// Item is a snapshot of one purchased product at payment time.
type Item struct {
	Title    string          `json:"title"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create appends o. Orders with the same transaction id are not merged.
	Create(ctx context.Context, o *Order) error
	// ListByUser returns the orders of userID, newest first.
	ListByUser(ctx context.Context, userID string) ([]Order, error)
}
