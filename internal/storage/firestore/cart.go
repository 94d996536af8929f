package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/xenking/nks-storefront/internal/domain/cart"
)

var _ cart.Store = (*CartRepository)(nil)

// CartRepository stores cart documents {items: [{id, quantity}]}.
type CartRepository struct {
	coll *firestore.CollectionRef
}

// NewCartRepository returns a CartRepository over client.
func NewCartRepository(client *firestore.Client) *CartRepository {
	return &CartRepository{coll: client.Collection(Carts)}
}

// Load returns cart.ErrNotFound when userID has no document.
func (r *CartRepository) Load(ctx context.Context, userID string) ([]cart.Line, error) {
	snap, err := r.coll.Doc(userID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("loading cart %q: %w", userID, err)
	}
	return linesFromData(snap.Data()), nil
}

// Save merges {items} into the userID document.
func (r *CartRepository) Save(ctx context.Context, userID string, lines []cart.Line) error {
	if _, err := r.coll.Doc(userID).Set(ctx, linesToData(lines), firestore.MergeAll); err != nil {
		return fmt.Errorf("saving cart %q: %w", userID, err)
	}
	return nil
}

func linesToData(lines []cart.Line) map[string]any {
	items := make([]any, 0, len(lines))
	for _, l := range lines {
		items = append(items, map[string]any{"id": l.ProductID, "quantity": int64(l.Quantity)})
	}
	return map[string]any{"items": items}
}

func linesFromData(data map[string]any) []cart.Line {
	raw, _ := data["items"].([]any)
	lines := make([]cart.Line, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		lines = append(lines, cart.Line{ProductID: toString(m["id"]), Quantity: toInt(m["quantity"])})
	}
	return lines
}
