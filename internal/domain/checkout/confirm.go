package checkout

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/nks-storefront/internal/domain/cart"
	"github.com/xenking/nks-storefront/internal/domain/order"
)

// StateAccepted is the gateway state of a successful payment.
const StateAccepted = "Aceptada"

// Payment is the final status reported by the gateway for a reference.
type Payment struct {
	Reference       string
	State           string
	InvoiceID       string
	Description     string
	Currency        string
	PaymentType     string
	Amount          decimal.Decimal
	TransactionDate string
}

// Accepted reports whether the payment went through.
func (p Payment) Accepted() bool {
	return p.State == StateAccepted
}

// Verifier looks up a transaction reference at the gateway.
type Verifier interface {
	Verify(ctx context.Context, reference string) (*Payment, error)
}

// Resolver joins cart lines with product details.
type Resolver interface {
	Resolve(ctx context.Context, lines []cart.Line) cart.Summary
}

// OrderRecorder persists confirmed orders.
type OrderRecorder interface {
	Record(ctx context.Context, o *order.Order) error
}

// Publisher announces confirmed orders.
type Publisher interface {
	OrderConfirmed(ctx context.Context, o *order.Order) error
}

// Confirmation is the gateway redirect back to the storefront.
type Confirmation struct {
	Reference      string
	TransactionURL string
	// UserID is empty for anonymous shoppers; nothing is cleared or
	// recorded for them.
	UserID string
	// Cart is the shopper's cart, nil when there is none.
	Cart *cart.Manager
}

// Confirmer completes checkout once the shopper returns from the gateway.
//
// Confirmation is not idempotent: reloading the response page records the
// same transaction again.
type Confirmer struct {
	verifier  Verifier
	resolver  Resolver
	orders    OrderRecorder
	publisher Publisher
	lg        *zap.Logger
	tracer    trace.Tracer
}

// ConfirmerConfig holds optional Confirmer dependencies.
type ConfirmerConfig struct {
	Publisher Publisher
	Logger    *zap.Logger
	Tracer    trace.Tracer
}

// NewConfirmer creates a Confirmer.
func NewConfirmer(verifier Verifier, resolver Resolver, orders OrderRecorder, cfg ConfirmerConfig) *Confirmer {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = noop.NewTracerProvider().Tracer("checkout")
	}
	return &Confirmer{
		verifier:  verifier,
		resolver:  resolver,
		orders:    orders,
		publisher: cfg.Publisher,
		lg:        cfg.Logger,
		tracer:    cfg.Tracer,
	}
}

// Confirm verifies the payment behind req.Reference.
//
// An accepted payment from a signed-in shopper clears the cart and records an
// order snapshot of it. Failures in those side effects are logged and do not
// change the result. A missing reference or a failed lookup returns
// ErrTransaction.
func (c *Confirmer) Confirm(ctx context.Context, req Confirmation) (*Payment, error) {
	ctx, span := c.tracer.Start(ctx, "checkout.Confirm",
		trace.WithAttributes(attribute.String("payment.reference", req.Reference)),
	)
	defer span.End()

	ref := strings.TrimSpace(req.Reference)
	if ref == "" {
		span.SetStatus(codes.Error, "missing reference")
		return nil, ErrTransaction
	}

	p, err := c.verifier.Verify(ctx, ref)
	if err != nil {
		c.lg.Error("Verify payment failed", zap.String("reference", ref), zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "verify")
		return nil, ErrTransaction
	}
	span.SetAttributes(attribute.String("payment.state", p.State))

	if !p.Accepted() || req.UserID == "" {
		return p, nil
	}

	var lines []cart.Line
	if req.Cart != nil {
		lines = req.Cart.Lines()
		req.Cart.Clear()
	}

	o := &order.Order{
		UserID:          req.UserID,
		TransactionID:   p.InvoiceID,
		TransactionDate: p.TransactionDate,
		Products:        c.snapshot(ctx, lines),
		TotalAmount:     p.Amount,
		PaymentStatus:   p.State,
		TransactionURL:  req.TransactionURL,
	}
	if err := c.orders.Record(ctx, o); err != nil {
		c.lg.Error("Save order failed",
			zap.String("user_id", req.UserID),
			zap.String("transaction_id", p.InvoiceID),
			zap.Error(err),
		)
		span.RecordError(err)
		return p, nil
	}
	span.SetAttributes(attribute.String("order.id", o.ID))

	if c.publisher != nil {
		if err := c.publisher.OrderConfirmed(ctx, o); err != nil {
			c.lg.Warn("Publish order failed", zap.String("order_id", o.ID), zap.Error(err))
		}
	}
	return p, nil
}

func (c *Confirmer) snapshot(ctx context.Context, lines []cart.Line) []order.Item {
	if len(lines) == 0 {
		return []order.Item{}
	}
	s := c.resolver.Resolve(ctx, lines)
	items := make([]order.Item, len(s.Items))
	for i, it := range s.Items {
		items[i] = order.Item{
			Title:    it.Product.Title,
			Quantity: it.Quantity,
			Price:    it.Product.NetPrice,
		}
	}
	return items
}
