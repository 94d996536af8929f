package firestore

import (
	"context"
	"fmt"
	"slices"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/xenking/nks-storefront/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository appends to the orders collection.
type OrderRepository struct {
	coll *firestore.CollectionRef
}

// NewOrderRepository returns an OrderRepository over client.
func NewOrderRepository(client *firestore.Client) *OrderRepository {
	return &OrderRepository{coll: client.Collection(Orders)}
}

// Create writes o under its id. Amounts are stored as numbers so the
// console shows them as such.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	if _, err := r.coll.Doc(o.ID).Create(ctx, orderToData(o)); err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// ListByUser returns the orders of userID, newest first. Sorting happens
// here so no composite index is needed.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	snaps, err := r.coll.Where("userId", "==", userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("listing orders of %q: %w", userID, err)
	}
	orders := make([]order.Order, 0, len(snaps))
	for _, snap := range snaps {
		orders = append(orders, orderFromData(snap.Ref.ID, snap.Data()))
	}
	slices.SortStableFunc(orders, func(a, b order.Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return orders, nil
}

func orderToData(o *order.Order) map[string]any {
	products := make([]any, 0, len(o.Products))
	for _, it := range o.Products {
		products = append(products, map[string]any{
			"title":    it.Title,
			"quantity": int64(it.Quantity),
			"price":    it.Price.InexactFloat64(),
		})
	}
	return map[string]any{
		"userId":          o.UserID,
		"transactionId":   o.TransactionID,
		"transactionDate": o.TransactionDate,
		"products":        products,
		"totalAmount":     o.TotalAmount.InexactFloat64(),
		"paymentStatus":   o.PaymentStatus,
		"transactionUrl":  o.TransactionURL,
		"createdAt":       o.CreatedAt,
	}
}

func orderFromData(id string, data map[string]any) order.Order {
	o := order.Order{
		ID:              id,
		UserID:          toString(data["userId"]),
		TransactionID:   toString(data["transactionId"]),
		TransactionDate: toString(data["transactionDate"]),
		Products:        []order.Item{},
		TotalAmount:     toDecimal(data["totalAmount"]),
		PaymentStatus:   toString(data["paymentStatus"]),
		TransactionURL:  toString(data["transactionUrl"]),
	}
	if at, ok := data["createdAt"].(time.Time); ok {
		o.CreatedAt = at.UTC()
	}
	raw, _ := data["products"].([]any)
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		o.Products = append(o.Products, order.Item{
			Title:    toString(m["title"]),
			Quantity: toInt(m["quantity"]),
			Price:    toDecimal(m["price"]),
		})
	}
	return o
}
