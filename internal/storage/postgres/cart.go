package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/nks-storefront/internal/domain/cart"
)

var _ cart.Store = (*CartRepository)(nil)

// CartRepository stores cart documents {items: [{id, quantity}]}.
type CartRepository struct {
	db DB
}

// NewCartRepository returns a CartRepository that uses db.
func NewCartRepository(db DB) *CartRepository {
	return &CartRepository{db: db}
}

const (
	loadCart = `SELECT doc FROM carts WHERE user_id = $1`
	// The || merge replaces items and keeps every other top-level field.
	saveCart = `INSERT INTO carts (user_id, doc) VALUES ($1, $2)
ON CONFLICT (user_id) DO UPDATE SET doc = carts.doc || EXCLUDED.doc, updated_at = now()`
)

// Load returns cart.ErrNotFound when userID has no document.
func (r *CartRepository) Load(ctx context.Context, userID string) ([]cart.Line, error) {
	var raw []byte
	if err := r.db.QueryRow(ctx, loadCart, userID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("loading cart %q: %w", userID, err)
	}

	lines, err := decodeCart(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding cart %q: %w", userID, err)
	}
	return lines, nil
}

// Save overwrites the items field of the userID document.
func (r *CartRepository) Save(ctx context.Context, userID string, lines []cart.Line) error {
	if _, err := r.db.Exec(ctx, saveCart, userID, encodeCart(lines)); err != nil {
		return fmt.Errorf("saving cart %q: %w", userID, err)
	}
	return nil
}

func encodeCart(lines []cart.Line) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, l := range lines {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(l.ProductID)
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
	return e.Bytes()
}

// decodeCart reads the items field. Other fields are skipped and a
// non-integer quantity is truncated.
func decodeCart(raw []byte) ([]cart.Line, error) {
	lines := []cart.Line{}
	err := jx.DecodeBytes(raw).Obj(func(d *jx.Decoder, key string) error {
		if key != "items" || d.Next() != jx.Array {
			return d.Skip()
		}
		return d.Arr(func(d *jx.Decoder) error {
			var l cart.Line
			if err := d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "id":
					if d.Next() != jx.String {
						return d.Skip()
					}
					v, err := d.Str()
					l.ProductID = v
					return err
				case "quantity":
					if d.Next() != jx.Number {
						return d.Skip()
					}
					n, err := d.Float64()
					l.Quantity = int(n)
					return err
				default:
					return d.Skip()
				}
			}); err != nil {
				return err
			}
			lines = append(lines, l)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}
