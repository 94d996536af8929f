// Package firebase implements auth.Provider on Firebase Authentication.
//
// Token checks, password updates and revocation go through the Admin SDK.
// Password sign-in, sign-up and reset mail have no Admin API and use the
// Identity Toolkit REST endpoints with the project's web API key.
package firebase

import (
	"context"
	"net/http"
	"time"

	fb "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/nks-storefront/internal/domain/auth"
)

// DefaultIdentityURL is the Identity Toolkit v1 accounts endpoint.
const DefaultIdentityURL = "https://identitytoolkit.googleapis.com/v1/accounts"

// adminClient is the subset of *fbauth.Client used by Provider.
type adminClient interface {
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*fbauth.Token, error)
	UpdateUser(ctx context.Context, uid string, user *fbauth.UserToUpdate) (*fbauth.UserRecord, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

// Config configures a Provider.
type Config struct {
	// APIKey is the web API key of the Firebase project.
	APIKey         string
	IdentityURL    string
	Timeout        time.Duration
	Transport      http.RoundTripper
	TracerProvider trace.TracerProvider
}

var _ auth.Provider = (*Provider)(nil)

// Provider is a Firebase-backed auth.Provider.
type Provider struct {
	admin    adminClient
	identity *identityClient
}

// New creates a Provider from an initialized Firebase app.
func New(ctx context.Context, app *fb.App, cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("firebase api key is required")
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "init firebase auth")
	}
	return newProvider(client, cfg), nil
}

func newProvider(admin adminClient, cfg Config) *Provider {
	if cfg.IdentityURL == "" {
		cfg.IdentityURL = DefaultIdentityURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	var opts []otelhttp.Option
	if cfg.TracerProvider != nil {
		opts = append(opts, otelhttp.WithTracerProvider(cfg.TracerProvider))
	}
	return &Provider{
		admin: admin,
		identity: &identityClient{
			baseURL: cfg.IdentityURL,
			apiKey:  cfg.APIKey,
			http: &http.Client{
				Timeout:   cfg.Timeout,
				Transport: otelhttp.NewTransport(base, opts...),
			},
		},
	}
}

// SignIn exchanges email and password for an ID token.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*auth.Session, error) {
	res, err := p.identity.call(ctx, "signInWithPassword", passwordRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return res.session(), nil
}

// Register creates the account and returns its first session.
func (p *Provider) Register(ctx context.Context, email, password string) (*auth.Session, error) {
	res, err := p.identity.call(ctx, "signUp", passwordRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return res.session(), nil
}

// ResetPassword asks Firebase to mail a reset link to email.
func (p *Provider) ResetPassword(ctx context.Context, email string) error {
	_, err := p.identity.call(ctx, "sendOobCode", oobRequest{RequestType: "PASSWORD_RESET", Email: email})
	return err
}

// ChangePassword re-authenticates with current, then sets next.
func (p *Provider) ChangePassword(ctx context.Context, id auth.Identity, current, next string) error {
	res, err := p.identity.call(ctx, "signInWithPassword", passwordRequest{Email: id.Email, Password: current})
	if err != nil {
		return errors.Wrap(err, "reauthenticate")
	}
	if res.LocalID != id.UID {
		return errors.New("reauthenticated as another user")
	}
	if _, err := p.admin.UpdateUser(ctx, id.UID, (&fbauth.UserToUpdate{}).Password(next)); err != nil {
		return errors.Wrap(err, "update password")
	}
	return nil
}

// SignOut revokes the refresh tokens of id.
func (p *Provider) SignOut(ctx context.Context, id auth.Identity) error {
	if err := p.admin.RevokeRefreshTokens(ctx, id.UID); err != nil {
		return errors.Wrap(err, "revoke tokens")
	}
	return nil
}

// Verify checks a Firebase ID token. Tokens issued before the last SignOut
// or password change are rejected.
func (p *Provider) Verify(ctx context.Context, token string) (*auth.Identity, error) {
	tok, err := p.admin.VerifyIDTokenAndCheckRevoked(ctx, token)
	if err != nil {
		return nil, errors.Wrap(err, "verify id token")
	}
	email, _ := tok.Claims["email"].(string)
	return &auth.Identity{UID: tok.UID, Email: email}, nil
}
