package mongo

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xenking/nks-storefront/internal/domain/profile"
)

var _ profile.Repository = (*ProfileRepository)(nil)

// ProfileRepository stores the users collection.
type ProfileRepository struct {
	coll *mongo.Collection
}

// NewProfileRepository returns a ProfileRepository over s.
func NewProfileRepository(s *Store) *ProfileRepository {
	return &ProfileRepository{coll: s.db.Collection(Users)}
}

type userDoc struct {
	Email   string `bson:"email"`
	Name    string `bson:"name"`
	Phone   string `bson:"phone,omitempty"`
	Address string `bson:"address,omitempty"`
}

// Get returns profile.ErrNotFound when userID has no document.
func (r *ProfileRepository) Get(ctx context.Context, userID string) (*profile.Profile, error) {
	var doc userDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, profile.ErrNotFound
		}
		return nil, fmt.Errorf("getting profile %q: %w", userID, err)
	}
	return &profile.Profile{Email: doc.Email, Name: doc.Name, Phone: doc.Phone, Address: doc.Address}, nil
}

// Create writes {email, name}, replacing the whole document.
func (r *ProfileRepository) Create(ctx context.Context, userID string, p profile.Profile) error {
	_, err := r.coll.ReplaceOne(ctx,
		bson.M{"_id": userID},
		userDoc{Email: p.Email, Name: p.Name},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("creating profile %q: %w", userID, err)
	}
	return nil
}

// Update returns profile.ErrNotFound when userID has no document.
func (r *ProfileRepository) Update(ctx context.Context, userID string, u profile.Update) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{
		"name":    u.Name,
		"phone":   u.Phone,
		"address": u.Address,
	}})
	if err != nil {
		return fmt.Errorf("updating profile %q: %w", userID, err)
	}
	if res.MatchedCount == 0 {
		return profile.ErrNotFound
	}
	return nil
}
