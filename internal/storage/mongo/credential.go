package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/xenking/nks-storefront/internal/auth/local"
)

var _ local.Store = (*CredentialRepository)(nil)

// CredentialRepository stores local accounts. EnsureIndexes must have run
// for duplicate emails to be rejected.
type CredentialRepository struct {
	coll *mongo.Collection
}

// NewCredentialRepository returns a CredentialRepository over s.
func NewCredentialRepository(s *Store) *CredentialRepository {
	return &CredentialRepository{coll: s.db.Collection(Credentials)}
}

type credentialDoc struct {
	UID          string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash"`
	CreatedAt    time.Time `bson:"createdAt"`
}

func (r *CredentialRepository) CreateCredential(ctx context.Context, c *local.Credential) error {
	_, err := r.coll.InsertOne(ctx, credentialDoc{
		UID:          c.UID,
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		CreatedAt:    c.CreatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return local.ErrEmailTaken
		}
		return fmt.Errorf("creating credential: %w", err)
	}
	return nil
}

func (r *CredentialRepository) CredentialByEmail(ctx context.Context, email string) (*local.Credential, error) {
	return r.one(ctx, bson.M{"email": email})
}

func (r *CredentialRepository) CredentialByUID(ctx context.Context, uid string) (*local.Credential, error) {
	return r.one(ctx, bson.M{"_id": uid})
}

func (r *CredentialRepository) SetPasswordHash(ctx context.Context, uid, hash string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": uid}, bson.M{"$set": bson.M{"passwordHash": hash}})
	if err != nil {
		return fmt.Errorf("updating credential %q: %w", uid, err)
	}
	if res.MatchedCount == 0 {
		return local.ErrNotFound
	}
	return nil
}

func (r *CredentialRepository) one(ctx context.Context, filter bson.M) (*local.Credential, error) {
	var doc credentialDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, local.ErrNotFound
		}
		return nil, fmt.Errorf("finding credential: %w", err)
	}
	return &local.Credential{
		UID:          doc.UID,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt.UTC(),
	}, nil
}
