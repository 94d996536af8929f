package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xenking/nks-storefront/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository appends to the orders collection.
type OrderRepository struct {
	coll *mongo.Collection
}

// NewOrderRepository returns an OrderRepository over s.
func NewOrderRepository(s *Store) *OrderRepository {
	return &OrderRepository{coll: s.db.Collection(Orders)}
}

type orderItem struct {
	Title    string               `bson:"title"`
	Quantity int                  `bson:"quantity"`
	Price    primitive.Decimal128 `bson:"price"`
}

type orderDoc struct {
	ID              string               `bson:"_id"`
	UserID          string               `bson:"userId"`
	TransactionID   string               `bson:"transactionId"`
	TransactionDate string               `bson:"transactionDate"`
	Products        []orderItem          `bson:"products"`
	TotalAmount     primitive.Decimal128 `bson:"totalAmount"`
	PaymentStatus   string               `bson:"paymentStatus"`
	TransactionURL  string               `bson:"transactionUrl"`
	CreatedAt       time.Time            `bson:"createdAt"`
}

// Create inserts o.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	doc := orderDoc{
		ID:              o.ID,
		UserID:          o.UserID,
		TransactionID:   o.TransactionID,
		TransactionDate: o.TransactionDate,
		Products:        make([]orderItem, 0, len(o.Products)),
		TotalAmount:     decimal128(o.TotalAmount),
		PaymentStatus:   o.PaymentStatus,
		TransactionURL:  o.TransactionURL,
		CreatedAt:       o.CreatedAt,
	}
	for _, it := range o.Products {
		doc.Products = append(doc.Products, orderItem{Title: it.Title, Quantity: it.Quantity, Price: decimal128(it.Price)})
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// ListByUser returns the orders of userID, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	cur, err := r.coll.Find(ctx,
		bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("listing orders of %q: %w", userID, err)
	}
	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding orders: %w", err)
	}

	orders := make([]order.Order, 0, len(docs))
	for _, d := range docs {
		o := order.Order{
			ID:              d.ID,
			UserID:          d.UserID,
			TransactionID:   d.TransactionID,
			TransactionDate: d.TransactionDate,
			Products:        make([]order.Item, 0, len(d.Products)),
			TotalAmount:     fromDecimal128(d.TotalAmount),
			PaymentStatus:   d.PaymentStatus,
			TransactionURL:  d.TransactionURL,
			CreatedAt:       d.CreatedAt.UTC(),
		}
		for _, it := range d.Products {
			o.Products = append(o.Products, order.Item{Title: it.Title, Quantity: it.Quantity, Price: fromDecimal128(it.Price)})
		}
		orders = append(orders, o)
	}
	return orders, nil
}
