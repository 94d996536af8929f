package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/nks-storefront/internal/auth/local"
)

var _ local.Store = (*CredentialRepository)(nil)

// CredentialRepository stores local email/password accounts.
type CredentialRepository struct {
	db DB
}

// NewCredentialRepository returns a CredentialRepository that uses db.
func NewCredentialRepository(db DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

const (
	createCredential  = `INSERT INTO credentials (uid, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`
	credentialByEmail = `SELECT uid, email, password_hash, created_at FROM credentials WHERE email = $1`
	credentialByUID   = `SELECT uid, email, password_hash, created_at FROM credentials WHERE uid = $1`
	setPasswordHash   = `UPDATE credentials SET password_hash = $2 WHERE uid = $1`
)

// CreateCredential returns local.ErrEmailTaken on a duplicate email.
func (r *CredentialRepository) CreateCredential(ctx context.Context, c *local.Credential) error {
	if _, err := r.db.Exec(ctx, createCredential, c.UID, c.Email, c.PasswordHash, c.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return local.ErrEmailTaken
		}
		return fmt.Errorf("creating credential: %w", err)
	}
	return nil
}

// CredentialByEmail returns local.ErrNotFound when email is unknown.
func (r *CredentialRepository) CredentialByEmail(ctx context.Context, email string) (*local.Credential, error) {
	return r.one(ctx, credentialByEmail, email)
}

// CredentialByUID returns local.ErrNotFound when uid is unknown.
func (r *CredentialRepository) CredentialByUID(ctx context.Context, uid string) (*local.Credential, error) {
	return r.one(ctx, credentialByUID, uid)
}

// SetPasswordHash returns local.ErrNotFound when uid is unknown.
func (r *CredentialRepository) SetPasswordHash(ctx context.Context, uid, hash string) error {
	tag, err := r.db.Exec(ctx, setPasswordHash, uid, hash)
	if err != nil {
		return fmt.Errorf("updating credential %q: %w", uid, err)
	}
	if tag.RowsAffected() == 0 {
		return local.ErrNotFound
	}
	return nil
}

func (r *CredentialRepository) one(ctx context.Context, query, arg string) (*local.Credential, error) {
	var c local.Credential
	err := r.db.QueryRow(ctx, query, arg).Scan(&c.UID, &c.Email, &c.PasswordHash, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, local.ErrNotFound
		}
		return nil, fmt.Errorf("finding credential: %w", err)
	}
	return &c, nil
}
