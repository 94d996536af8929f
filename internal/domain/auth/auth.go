// Package auth defines the identity boundary of the storefront.
//
// Providers (local accounts, Firebase) differ in how they store credentials
// but all report failures to callers as ErrAuthFailed. The cause is logged.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// ErrAuthFailed is the single error surfaced for every auth failure.
var ErrAuthFailed = errors.New("authentication failed")

// Identity is the signed-in user. UID keys carts, profiles and orders.
type Identity struct {
	UID   string
	Email string
}

// Session is the result of signing in or registering.
type Session struct {
	Token     string
	Identity  Identity
	ExpiresAt time.Time
}

// Provider is an email/password identity provider.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	Register(ctx context.Context, email, password string) (*Session, error)
	ResetPassword(ctx context.Context, email string) error
	ChangePassword(ctx context.Context, id Identity, current, next string) error
	SignOut(ctx context.Context, id Identity) error
	Verify(ctx context.Context, token string) (*Identity, error)
}

// ProfileCreator writes the users document at registration.
type ProfileCreator interface {
	Create(ctx context.Context, userID, email, name string) error
}

// Service applies the generic-error policy on top of a Provider.
type Service struct {
	provider Provider
	profiles ProfileCreator
	lg       *zap.Logger
}

// NewService creates an auth Service.
func NewService(provider Provider, profiles ProfileCreator, lg *zap.Logger) *Service {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Service{provider: provider, profiles: profiles, lg: lg}
}

// SignIn authenticates email and password.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrAuthFailed
	}
	sess, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		s.lg.Info("Sign in failed", zap.String("email", email), zap.Error(err))
		return nil, ErrAuthFailed
	}
	return sess, nil
}

// Register creates an account and its profile document {email, name}.
//
// A profile write failure fails the call even though the account already
// exists: the user can sign in and edit the profile later.
func (s *Service) Register(ctx context.Context, email, password, name string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrAuthFailed
	}
	sess, err := s.provider.Register(ctx, email, password)
	if err != nil {
		s.lg.Info("Register failed", zap.String("email", email), zap.Error(err))
		return nil, ErrAuthFailed
	}
	if err := s.profiles.Create(ctx, sess.Identity.UID, email, strings.TrimSpace(name)); err != nil {
		s.lg.Error("Create profile failed",
			zap.String("user_id", sess.Identity.UID),
			zap.Error(err),
		)
		return nil, ErrAuthFailed
	}
	return sess, nil
}

// ResetPassword sends a password reset to email.
func (s *Service) ResetPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return ErrAuthFailed
	}
	if err := s.provider.ResetPassword(ctx, email); err != nil {
		s.lg.Info("Password reset failed", zap.String("email", email), zap.Error(err))
		return ErrAuthFailed
	}
	return nil
}

// ChangePassword replaces the password of id after checking current.
func (s *Service) ChangePassword(ctx context.Context, id Identity, current, next string) error {
	if current == "" || next == "" {
		return ErrAuthFailed
	}
	if err := s.provider.ChangePassword(ctx, id, current, next); err != nil {
		s.lg.Info("Change password failed", zap.String("user_id", id.UID), zap.Error(err))
		return ErrAuthFailed
	}
	return nil
}

// SignOut ends the session of id at the provider.
func (s *Service) SignOut(ctx context.Context, id Identity) error {
	if err := s.provider.SignOut(ctx, id); err != nil {
		s.lg.Warn("Sign out failed", zap.String("user_id", id.UID), zap.Error(err))
		return ErrAuthFailed
	}
	return nil
}

// Verify resolves a bearer token to an Identity.
func (s *Service) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrAuthFailed
	}
	id, err := s.provider.Verify(ctx, token)
	if err != nil {
		s.lg.Debug("Token rejected", zap.Error(err))
		return nil, ErrAuthFailed
	}
	return id, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
