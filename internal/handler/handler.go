// Package handler implements the storefront HTTP API on top of the domain
// services.
package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xenking/nks-storefront/internal/domain/auth"
	"github.com/xenking/nks-storefront/internal/domain/cart"
	"github.com/xenking/nks-storefront/internal/domain/checkout"
	"github.com/xenking/nks-storefront/internal/domain/order"
	"github.com/xenking/nks-storefront/internal/domain/product"
	"github.com/xenking/nks-storefront/internal/domain/profile"
)

// CartSessionHeader carries the anonymous cart id. The server mints one when
// the request has none and echoes it on every cart response.
const CartSessionHeader = "X-Cart-Session"

// Carts hands out the cart manager of an owner.
type Carts interface {
	Get(ctx context.Context, owner cart.Owner) *cart.Manager
	Forget(owner cart.Owner)
}

// Details resolves cart lines and single products.
type Details interface {
	Fetch(ctx context.Context, productID string) *product.Product
	Resolve(ctx context.Context, lines []cart.Line) cart.Summary
}

// Initiator builds payment sessions.
type Initiator interface {
	Begin(s cart.Summary) (*checkout.Session, error)
}

// Confirmer completes a payment returning from the gateway.
type Confirmer interface {
	Confirm(ctx context.Context, req checkout.Confirmation) (*checkout.Payment, error)
}

// Authenticator is the auth service.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
	Register(ctx context.Context, email, password, name string) (*auth.Session, error)
	ResetPassword(ctx context.Context, email string) error
	ChangePassword(ctx context.Context, id auth.Identity, current, next string) error
	SignOut(ctx context.Context, id auth.Identity) error
	Verify(ctx context.Context, token string) (*auth.Identity, error)
}

// Profiles reads and edits user profiles.
type Profiles interface {
	Get(ctx context.Context, userID string) *profile.Profile
	Update(ctx context.Context, userID string, u profile.Update) (*profile.Profile, error)
}

// Orders lists order history.
type Orders interface {
	History(ctx context.Context, userID string) ([]order.Order, error)
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// PublicURL is the storefront origin used to rebuild the transaction URL
	// stored with each order.
	PublicURL string
}

// Deps are the services behind the API.
type Deps struct {
	Products  product.Repository
	Carts     Carts
	Details   Details
	Initiator Initiator
	Confirmer Confirmer
	Auth      Authenticator
	Profiles  Profiles
	Orders    Orders
}

// Handler serves the storefront API.
type Handler struct {
	products  product.Repository
	carts     Carts
	details   Details
	initiator Initiator
	confirmer Confirmer
	auth      Authenticator
	profiles  Profiles
	orders    Orders
	publicURL string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(cfg Config, deps Deps) *Handler {
	return &Handler{
		products:  deps.Products,
		carts:     deps.Carts,
		details:   deps.Details,
		initiator: deps.Initiator,
		confirmer: deps.Confirmer,
		auth:      deps.Auth,
		profiles:  deps.Profiles,
		orders:    deps.Orders,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}
}

// Mount registers the API routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(h.authenticate)

		r.Get("/products", h.listProducts)
		r.Get("/products/{id}", h.getProduct)

		r.Group(func(r chi.Router) {
			r.Use(rejectInvalidToken, h.cartSession)
			r.Get("/cart", h.getCart)
			r.Post("/cart/items", h.addCartItem)
			r.Patch("/cart/items/{id}", h.updateCartItem)
			r.Delete("/cart/items/{id}", h.removeCartItem)
			r.Post("/checkout", h.beginCheckout)
			r.Get("/payment/response", h.paymentResponse)
		})

		r.Post("/auth/login", h.login)
		r.Post("/auth/register", h.register)
		r.Post("/auth/reset", h.resetPassword)

		r.Group(func(r chi.Router) {
			r.Use(requireIdentity)
			r.Post("/auth/password", h.changePassword)
			r.With(h.cartSession).Post("/auth/logout", h.logout)
			r.Get("/profile", h.getProfile)
			r.Put("/profile", h.updateProfile)
			r.Get("/orders", h.listOrders)
		})
	})
}

type rejectedTokenKey struct{}

// authenticate attaches the bearer token identity. Requests without a valid
// token pass through anonymous; a rejected token is remembered so cart and
// account routes can answer 401 while the catalog stays browsable.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearer(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		id, err := h.auth.Verify(r.Context(), token)
		if err != nil {
			zctx.From(r.Context()).Debug("Bearer token rejected", zap.Error(err))
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), rejectedTokenKey{}, true)))
			return
		}
		ctx := auth.WithIdentity(r.Context(), *id)
		ctx = zctx.With(ctx, zap.String("user_id", id.UID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rejectInvalidToken answers 401 when the request sent a token that failed
// verification. Cart routes use it so an expired session never silently
// switches to an anonymous cart.
func rejectInvalidToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rejected, _ := r.Context().Value(rejectedTokenKey{}).(bool); rejected {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.FromContext(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearer(r *http.Request) (string, bool) {
	v := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(v) <= len(prefix) || !strings.EqualFold(v[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(v[len(prefix):]), true
}

type sessionKey struct{}

// cartSession makes sure the request carries a valid anonymous cart id.
func (h *Handler) cartSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := r.Header.Get(CartSessionHeader)
		if _, err := uuid.Parse(session); err != nil {
			session = uuid.NewString()
		}
		w.Header().Set(CartSessionHeader, session)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, session)))
	})
}

func ownerFrom(ctx context.Context) cart.Owner {
	owner := cart.Owner{}
	owner.Session, _ = ctx.Value(sessionKey{}).(string)
	if id, ok := auth.FromContext(ctx); ok {
		owner.UserID = id.UID
	}
	return owner
}

// writeError renders the API error body {code, message}.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(message)
		e.ObjEnd()
	})
}

func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	var e jx.Encoder
	fn(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
