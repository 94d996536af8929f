package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/xenking/nks-storefront/internal/domain/profile"
)

var _ profile.Repository = (*ProfileRepository)(nil)

// ProfileRepository stores the users collection.
type ProfileRepository struct {
	coll *firestore.CollectionRef
}

// NewProfileRepository returns a ProfileRepository over client.
func NewProfileRepository(client *firestore.Client) *ProfileRepository {
	return &ProfileRepository{coll: client.Collection(Users)}
}

type userDoc struct {
	Email   string `firestore:"email"`
	Name    string `firestore:"name"`
	Phone   string `firestore:"phone,omitempty"`
	Address string `firestore:"address,omitempty"`
}

// Get returns profile.ErrNotFound when userID has no document.
func (r *ProfileRepository) Get(ctx context.Context, userID string) (*profile.Profile, error) {
	snap, err := r.coll.Doc(userID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, profile.ErrNotFound
		}
		return nil, fmt.Errorf("getting profile %q: %w", userID, err)
	}
	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decoding profile %q: %w", userID, err)
	}
	return &profile.Profile{Email: doc.Email, Name: doc.Name, Phone: doc.Phone, Address: doc.Address}, nil
}

// Create writes {email, name}, replacing the whole document.
func (r *ProfileRepository) Create(ctx context.Context, userID string, p profile.Profile) error {
	if _, err := r.coll.Doc(userID).Set(ctx, userDoc{Email: p.Email, Name: p.Name}); err != nil {
		return fmt.Errorf("creating profile %q: %w", userID, err)
	}
	return nil
}

// Update returns profile.ErrNotFound when userID has no document.
func (r *ProfileRepository) Update(ctx context.Context, userID string, u profile.Update) error {
	_, err := r.coll.Doc(userID).Update(ctx, []firestore.Update{
		{Path: "name", Value: u.Name},
		{Path: "phone", Value: u.Phone},
		{Path: "address", Value: u.Address},
	})
	if err != nil {
		if isNotFound(err) {
			return profile.ErrNotFound
		}
		return fmt.Errorf("updating profile %q: %w", userID, err)
	}
	return nil
}
