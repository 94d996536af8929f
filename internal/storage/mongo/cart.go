package mongo

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xenking/nks-storefront/internal/domain/cart"
)

var _ cart.Store = (*CartRepository)(nil)

// CartRepository stores cart documents {items: [{id, quantity}]}.
type CartRepository struct {
	coll *mongo.Collection
}

// NewCartRepository returns a CartRepository over s.
func NewCartRepository(s *Store) *CartRepository {
	return &CartRepository{coll: s.db.Collection(Carts)}
}

type cartItem struct {
	ID       string  `bson:"id"`
	Quantity float64 `bson:"quantity"`
}

type cartDoc struct {
	Items []cartItem `bson:"items"`
}

// Load returns cart.ErrNotFound when userID has no document.
func (r *CartRepository) Load(ctx context.Context, userID string) ([]cart.Line, error) {
	var doc cartDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("loading cart %q: %w", userID, err)
	}
	lines := make([]cart.Line, 0, len(doc.Items))
	for _, it := range doc.Items {
		lines = append(lines, cart.Line{ProductID: it.ID, Quantity: int(it.Quantity)})
	}
	return lines, nil
}

// Save sets the items field and keeps other document fields.
func (r *CartRepository) Save(ctx context.Context, userID string, lines []cart.Line) error {
	items := make(bson.A, 0, len(lines))
	for _, l := range lines {
		items = append(items, bson.M{"id": l.ProductID, "quantity": l.Quantity})
	}
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"items": items}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("saving cart %q: %w", userID, err)
	}
	return nil
}
