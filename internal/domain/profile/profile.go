// Package profile manages the users document {email, name, phone, address}.
package profile

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// ErrNotFound is returned by Repository when the user has no document.
var ErrNotFound = errors.New("profile not found")

// Profile is the contact information shown on the account page.
type Profile struct {
	Email   string
	Name    string
	Phone   string
	Address string
}

// Incomplete reports whether phone or address is still missing. The account
// page prompts for them when true.
func (p Profile) Incomplete() bool {
	return strings.TrimSpace(p.Phone) == "" || strings.TrimSpace(p.Address) == ""
}

// Update is the editable subset of a Profile.
type Update struct {
	Name    string
	Phone   string
	Address string
}

// Repository persists profiles keyed by user id.
type Repository interface {
	Get(ctx context.Context, userID string) (*Profile, error)
	// Create writes {email, name}, replacing any existing document.
	Create(ctx context.Context, userID string, p Profile) error
	// Update sets name, phone and address. Returns ErrNotFound when the
	// document does not exist.
	Update(ctx context.Context, userID string, u Update) error
}

// Service wraps a Repository with the read-failure policy of the account
// page: a missing or unreadable document yields nil rather than an error.
type Service struct {
	repo Repository
	lg   *zap.Logger
}

// NewService creates a profile Service.
func NewService(repo Repository, lg *zap.Logger) *Service {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Service{repo: repo, lg: lg}
}

// Get returns the profile of userID, or nil when there is none.
func (s *Service) Get(ctx context.Context, userID string) *Profile {
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.lg.Error("Get profile failed", zap.String("user_id", userID), zap.Error(err))
		}
		return nil
	}
	return p
}

// Create stores the profile written at registration.
func (s *Service) Create(ctx context.Context, userID, email, name string) error {
	if err := s.repo.Create(ctx, userID, Profile{Email: email, Name: name}); err != nil {
		return errors.Wrap(err, "create profile")
	}
	return nil
}

// Update changes the editable fields and returns the updated profile.
func (s *Service) Update(ctx context.Context, userID string, u Update) (*Profile, error) {
	u = Update{
		Name:    strings.TrimSpace(u.Name),
		Phone:   strings.TrimSpace(u.Phone),
		Address: strings.TrimSpace(u.Address),
	}
	if err := s.repo.Update(ctx, userID, u); err != nil {
		return nil, errors.Wrap(err, "update profile")
	}
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "reload profile")
	}
	return p, nil
}
