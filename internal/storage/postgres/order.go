package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/jx"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/nks-storefront/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	db DB
}

// NewOrderRepository returns an OrderRepository that uses db.
func NewOrderRepository(db DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const (
	createOrder = `INSERT INTO orders (id, user_id, transaction_id, transaction_date, products,
    total_amount, payment_status, transaction_url, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	listOrdersByUser = `SELECT id, user_id, transaction_id, transaction_date, products,
    total_amount, payment_status, transaction_url, created_at
FROM orders WHERE user_id = $1 ORDER BY created_at DESC`
)

// Create persists a new order. The products snapshot is stored as JSONB.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	_, err := r.db.Exec(ctx, createOrder,
		o.ID,
		o.UserID,
		o.TransactionID,
		o.TransactionDate,
		encodeItems(o.Products),
		o.TotalAmount,
		o.PaymentStatus,
		o.TransactionURL,
		o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// ListByUser returns the orders of userID, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.db.Query(ctx, listOrdersByUser, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders of %q: %w", userID, err)
	}

	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Order, error) {
		var (
			o     order.Order
			items []byte
		)
		if err := row.Scan(
			&o.ID,
			&o.UserID,
			&o.TransactionID,
			&o.TransactionDate,
			&items,
			&o.TotalAmount,
			&o.PaymentStatus,
			&o.TransactionURL,
			&o.CreatedAt,
		); err != nil {
			return o, err
		}
		products, err := decodeItems(items)
		if err != nil {
			return o, fmt.Errorf("order %q products: %w", o.ID, err)
		}
		o.Products = products
		return o, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning orders: %w", err)
	}
	return orders, nil
}

func encodeItems(items []order.Item) []byte {
	var e jx.Encoder
	e.ArrStart()
	for _, it := range items {
		e.ObjStart()
		e.FieldStart("title")
		e.Str(it.Title)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("price")
		e.Num(jx.Num(it.Price.String()))
		e.ObjEnd()
	}
	e.ArrEnd()
	return e.Bytes()
}

func decodeItems(raw []byte) ([]order.Item, error) {
	items := []order.Item{}
	err := jx.DecodeBytes(raw).Arr(func(d *jx.Decoder) error {
		var it order.Item
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "title":
				v, err := d.Str()
				it.Title = v
				return err
			case "quantity":
				v, err := d.Int()
				it.Quantity = v
				return err
			case "price":
				n, err := d.Num()
				if err != nil {
					return err
				}
				it.Price, err = decimal.NewFromString(n.String())
				return err
			default:
				return d.Skip()
			}
		}); err != nil {
			return err
		}
		items = append(items, it)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}
