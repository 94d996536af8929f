package mongo

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xenking/nks-storefront/internal/domain/product"
)

var (
	_ product.Repository = (*ProductRepository)(nil)
	_ product.Writer     = (*ProductRepository)(nil)
)

// ProductRepository reads the products collection.
type ProductRepository struct {
	coll *mongo.Collection
}

// NewProductRepository returns a ProductRepository over s.
func NewProductRepository(s *Store) *ProductRepository {
	return &ProductRepository{coll: s.db.Collection(Products)}
}

// List returns every product ordered by id.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	cur, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	var products []product.Product
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding product: %w", err)
		}
		products = append(products, toProduct(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterating products: %w", err)
	}
	return products, nil
}

// GetByID returns product.ErrNotFound when id does not exist.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	var doc bson.M
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	p := toProduct(doc)
	return &p, nil
}

// Upsert replaces the document stored under id.
func (r *ProductRepository) Upsert(ctx context.Context, id string, doc map[string]any) error {
	body := toBSON(doc).(bson.M)
	delete(body, "_id")
	if _, err := r.coll.ReplaceOne(ctx, bson.M{"_id": id}, body, options.Replace().SetUpsert(true)); err != nil {
		return fmt.Errorf("upserting product %q: %w", id, err)
	}
	return nil
}

func toProduct(doc bson.M) product.Product {
	m := fromBSONMap(doc)
	id := fmt.Sprint(m["_id"])
	delete(m, "_id")
	return product.FromDocument(id, m)
}
