package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/xenking/nks-storefront/internal/domain/product"
)

var (
	_ product.Repository = (*ProductRepository)(nil)
	_ product.Writer     = (*ProductRepository)(nil)
)

// ProductRepository reads the products collection.
type ProductRepository struct {
	coll *firestore.CollectionRef
}

// NewProductRepository returns a ProductRepository over client.
func NewProductRepository(client *firestore.Client) *ProductRepository {
	return &ProductRepository{coll: client.Collection(Products)}
}

// List returns every product ordered by document id.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	snaps, err := r.coll.OrderBy(firestore.DocumentID, firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	products := make([]product.Product, 0, len(snaps))
	for _, snap := range snaps {
		products = append(products, product.FromDocument(snap.Ref.ID, snap.Data()))
	}
	return products, nil
}

// GetByID returns product.ErrNotFound when id does not exist.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	snap, err := r.coll.Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	p := product.FromDocument(id, snap.Data())
	return &p, nil
}

// Upsert replaces the document stored under id.
func (r *ProductRepository) Upsert(ctx context.Context, id string, doc map[string]any) error {
	if _, err := r.coll.Doc(id).Set(ctx, toFirestore(doc)); err != nil {
		return fmt.Errorf("upserting product %q: %w", id, err)
	}
	return nil
}
