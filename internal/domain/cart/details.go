package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/nks-storefront/internal/domain/product"
)

const maxParallelFetch = 8

// Item is a cart line joined with its product.
type Item struct {
	Product  product.Product
	Quantity int
}

// Subtotal is netPrice times quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.Product.NetPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Summary is the resolved cart.
type Summary struct {
	Items      []Item
	TotalItems int
	Total      decimal.Decimal
}

// IsEmpty reports whether no line could be resolved.
func (s Summary) IsEmpty() bool {
	return len(s.Items) == 0
}

// Details reads product documents for cart lines.
type Details struct {
	products product.Repository
	lg       *zap.Logger
}

// NewDetails creates a Details backed by products.
func NewDetails(products product.Repository, lg *zap.Logger) *Details {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Details{products: products, lg: lg}
}

// Fetch returns the product or nil when it is missing or cannot be read.
// Failures are logged, never returned.
func (d *Details) Fetch(ctx context.Context, productID string) *product.Product {
	p, err := d.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			d.lg.Warn("Product not found", zap.String("product_id", productID))
		} else {
			d.lg.Error("Fetch product failed", zap.String("product_id", productID), zap.Error(err))
		}
		return nil
	}
	return p
}

// Resolve fetches every line's product concurrently and totals the cart.
// Lines whose product cannot be fetched are skipped.
func (d *Details) Resolve(ctx context.Context, lines []Line) Summary {
	resolved := make([]*product.Product, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFetch)
	for i, l := range lines {
		if l.ProductID == "" {
			continue
		}
		g.Go(func() error {
			resolved[i] = d.Fetch(gctx, l.ProductID)
			return nil
		})
	}
	_ = g.Wait()

	s := Summary{Items: make([]Item, 0, len(lines)), Total: decimal.Zero}
	for i, p := range resolved {
		if p == nil {
			continue
		}
		item := Item{Product: *p, Quantity: lines[i].Quantity}
		s.Items = append(s.Items, item)
		s.TotalItems += item.Quantity
		s.Total = s.Total.Add(item.Subtotal())
	}
	return s
}
