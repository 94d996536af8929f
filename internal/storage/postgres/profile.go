package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/nks-storefront/internal/domain/profile"
)

var _ profile.Repository = (*ProfileRepository)(nil)

// ProfileRepository stores the users collection.
type ProfileRepository struct {
	db DB
}

// NewProfileRepository returns a ProfileRepository that uses db.
func NewProfileRepository(db DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const (
	getProfile    = `SELECT email, name, phone, address FROM users WHERE id = $1`
	createProfile = `INSERT INTO users (id, email, name) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name,
    phone = '', address = '', updated_at = now()`
	updateProfile = `UPDATE users SET name = $2, phone = $3, address = $4, updated_at = now() WHERE id = $1`
)

// Get returns profile.ErrNotFound when userID has no document.
func (r *ProfileRepository) Get(ctx context.Context, userID string) (*profile.Profile, error) {
	var p profile.Profile
	err := r.db.QueryRow(ctx, getProfile, userID).Scan(&p.Email, &p.Name, &p.Phone, &p.Address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, profile.ErrNotFound
		}
		return nil, fmt.Errorf("getting profile %q: %w", userID, err)
	}
	return &p, nil
}

// Create writes {email, name} and clears the remaining fields.
func (r *ProfileRepository) Create(ctx context.Context, userID string, p profile.Profile) error {
	if _, err := r.db.Exec(ctx, createProfile, userID, p.Email, p.Name); err != nil {
		return fmt.Errorf("creating profile %q: %w", userID, err)
	}
	return nil
}

// Update returns profile.ErrNotFound when userID has no document.
func (r *ProfileRepository) Update(ctx context.Context, userID string, u profile.Update) error {
	tag, err := r.db.Exec(ctx, updateProfile, userID, u.Name, u.Phone, u.Address)
	if err != nil {
		return fmt.Errorf("updating profile %q: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return profile.ErrNotFound
	}
	return nil
}
