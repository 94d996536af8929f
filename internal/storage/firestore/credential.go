package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/xenking/nks-storefront/internal/auth/local"
)

var _ local.Store = (*CredentialRepository)(nil)

// CredentialRepository stores local accounts keyed by email, which makes
// Create reject duplicates without a transaction.
type CredentialRepository struct {
	coll *firestore.CollectionRef
}

// NewCredentialRepository returns a CredentialRepository over client.
func NewCredentialRepository(client *firestore.Client) *CredentialRepository {
	return &CredentialRepository{coll: client.Collection(Credentials)}
}

type credentialDoc struct {
	UID          string    `firestore:"uid"`
	Email        string    `firestore:"email"`
	PasswordHash string    `firestore:"passwordHash"`
	CreatedAt    time.Time `firestore:"createdAt"`
}

func (r *CredentialRepository) CreateCredential(ctx context.Context, c *local.Credential) error {
	_, err := r.coll.Doc(c.Email).Create(ctx, credentialDoc{
		UID:          c.UID,
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		CreatedAt:    c.CreatedAt,
	})
	if err != nil {
		if isAlreadyExists(err) {
			return local.ErrEmailTaken
		}
		return fmt.Errorf("creating credential: %w", err)
	}
	return nil
}

func (r *CredentialRepository) CredentialByEmail(ctx context.Context, email string) (*local.Credential, error) {
	snap, err := r.coll.Doc(email).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, local.ErrNotFound
		}
		return nil, fmt.Errorf("finding credential: %w", err)
	}
	return decodeCredential(snap)
}

func (r *CredentialRepository) CredentialByUID(ctx context.Context, uid string) (*local.Credential, error) {
	snap, err := r.byUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	return decodeCredential(snap)
}

func (r *CredentialRepository) SetPasswordHash(ctx context.Context, uid, hash string) error {
	snap, err := r.byUID(ctx, uid)
	if err != nil {
		return err
	}
	if _, err := snap.Ref.Update(ctx, []firestore.Update{{Path: "passwordHash", Value: hash}}); err != nil {
		return fmt.Errorf("updating credential %q: %w", uid, err)
	}
	return nil
}

func (r *CredentialRepository) byUID(ctx context.Context, uid string) (*firestore.DocumentSnapshot, error) {
	it := r.coll.Where("uid", "==", uid).Limit(1).Documents(ctx)
	defer it.Stop()

	snap, err := it.Next()
	if err == iterator.Done {
		return nil, local.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding credential: %w", err)
	}
	return snap, nil
}

func decodeCredential(snap *firestore.DocumentSnapshot) (*local.Credential, error) {
	var doc credentialDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decoding credential: %w", err)
	}
	return &local.Credential{
		UID:          doc.UID,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt.UTC(),
	}, nil
}
