package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID          string
	Title       string
	Description string
	// Price is the list price before discount.
	Price decimal.Decimal
	// NetPrice is the price actually charged.
	NetPrice decimal.Decimal
	// Discount is a percentage in the 0-100 range.
	Discount           decimal.Decimal
	Stock              int
	Thumbnail          string
	Reference          string
	AdditionalImages   []string
	CompatibleVehicles []Vehicle
}

// HasDiscount reports whether the product is on sale.
func (p Product) HasDiscount() bool {
	return p.Discount.IsPositive()
}

// Vehicle describes one vehicle a part fits.
type Vehicle struct {
	Brand      string
	Model      string
	Year       string
	EngineSize string
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
}

// Writer upserts raw product documents. Used by bulk ingestion.
type Writer interface {
	Upsert(ctx context.Context, id string, doc map[string]any) error
}
