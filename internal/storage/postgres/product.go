package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/nks-storefront/internal/domain/product"
	"github.com/xenking/nks-storefront/internal/storage/document"
)

var (
	_ product.Repository = (*ProductRepository)(nil)
	_ product.Writer     = (*ProductRepository)(nil)
)

// ProductRepository reads the products collection. Each row stores the raw
// document; coercion to product.Product happens on read.
type ProductRepository struct {
	db DB
}

// NewProductRepository returns a ProductRepository that uses db.
func NewProductRepository(db DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const (
	listProducts  = `SELECT id, doc FROM products ORDER BY id`
	getProduct    = `SELECT id, doc FROM products WHERE id = $1`
	upsertProduct = `INSERT INTO products (id, doc) VALUES ($1, $2)
ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`
)

// List returns every product ordered by id.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.db.Query(ctx, listProducts)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}

	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("scanning products: %w", err)
	}
	return products, nil
}

// GetByID returns product.ErrNotFound when id does not exist.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.db.Query(ctx, getProduct, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// Upsert replaces the document stored under id.
func (r *ProductRepository) Upsert(ctx context.Context, id string, doc map[string]any) error {
	if _, err := r.db.Exec(ctx, upsertProduct, id, document.Encode(doc)); err != nil {
		return fmt.Errorf("upserting product %q: %w", id, err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		id  string
		raw []byte
	)
	if err := row.Scan(&id, &raw); err != nil {
		return product.Product{}, err
	}
	doc, err := document.Decode(raw)
	if err != nil {
		return product.Product{}, errors.Wrapf(err, "product %q", id)
	}
	return product.FromDocument(id, doc), nil
}
