// Package local implements auth.Provider with bcrypt password hashes and
// HS256 JWT sessions. Credentials live in the configured document store.
package local

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenking/nks-storefront/internal/domain/auth"
)

// MinPasswordLength matches the hosted provider's password policy.
const MinPasswordLength = 6

const defaultTTL = time.Hour

var (
	ErrNotFound           = errors.New("credential not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWeakPassword       = errors.New("password too short")
	ErrInvalidToken       = errors.New("invalid token")
	ErrResetUnsupported   = errors.New("password reset is not available for local accounts")
)

// Credential is a stored email/password account.
type Credential struct {
	UID          string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Store persists credentials. Emails are stored normalized.
type Store interface {
	// CreateCredential fails with ErrEmailTaken when the email exists.
	CreateCredential(ctx context.Context, c *Credential) error
	CredentialByEmail(ctx context.Context, email string) (*Credential, error)
	CredentialByUID(ctx context.Context, uid string) (*Credential, error)
	SetPasswordHash(ctx context.Context, uid, hash string) error
}

// Config configures a Provider.
type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
	// Cost is the bcrypt cost. Zero means bcrypt.DefaultCost.
	Cost   int
	Logger *zap.Logger
}

var _ auth.Provider = (*Provider)(nil)

// Provider is a self-hosted auth.Provider.
type Provider struct {
	store  Store
	secret []byte
	issuer string
	ttl    time.Duration
	cost   int
	lg     *zap.Logger
	now    func() time.Time
}

// New creates a Provider. Secret is required.
func New(store Store, cfg Config) (*Provider, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.Cost == 0 {
		cfg.Cost = bcrypt.DefaultCost
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "nks-storefront"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Provider{
		store:  store,
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		cost:   cfg.Cost,
		lg:     cfg.Logger,
		now:    time.Now,
	}, nil
}

// SignIn checks password against the stored hash and issues a token.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*auth.Session, error) {
	c, err := p.store.CredentialByEmail(ctx, normalize(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "lookup credential")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return p.issue(auth.Identity{UID: c.UID, Email: c.Email})
}

// Register creates a credential with a fresh uid and signs it in.
func (p *Provider) Register(ctx context.Context, email, password string) (*auth.Session, error) {
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	c := &Credential{
		UID:          uuid.NewString(),
		Email:        normalize(email),
		PasswordHash: string(hash),
		CreatedAt:    p.now().UTC(),
	}
	if err := p.store.CreateCredential(ctx, c); err != nil {
		return nil, errors.Wrap(err, "create credential")
	}
	return p.issue(auth.Identity{UID: c.UID, Email: c.Email})
}

// ResetPassword always fails with ErrResetUnsupported: local accounts have
// no mail delivery to send a reset link through.
func (p *Provider) ResetPassword(context.Context, string) error {
	p.lg.Info("Password reset requested for local account")
	return ErrResetUnsupported
}

// ChangePassword re-checks current before storing the hash of next.
func (p *Provider) ChangePassword(ctx context.Context, id auth.Identity, current, next string) error {
	if len(next) < MinPasswordLength {
		return ErrWeakPassword
	}
	c, err := p.store.CredentialByUID(ctx, id.UID)
	if err != nil {
		return errors.Wrap(err, "lookup credential")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), p.cost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	if err := p.store.SetPasswordHash(ctx, c.UID, string(hash)); err != nil {
		return errors.Wrap(err, "store password")
	}
	return nil
}

// SignOut is a no-op: tokens are stateless and expire on their own.
func (p *Provider) SignOut(context.Context, auth.Identity) error { return nil }

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Verify parses an HS256 token issued by this provider.
func (p *Provider) Verify(_ context.Context, token string) (*auth.Identity, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(p.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}
	if c.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &auth.Identity{UID: c.Subject, Email: c.Email}, nil
}

func (p *Provider) issue(id auth.Identity) (*auth.Session, error) {
	now := p.now().UTC()
	exp := now.Add(p.ttl)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := tok.SignedString(p.secret)
	if err != nil {
		return nil, errors.Wrap(err, "sign token")
	}
	return &auth.Session{Token: signed, Identity: id, ExpiresAt: exp}, nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
