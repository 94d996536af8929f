// Package checkout builds the hosted payment session for a cart and handles
// the confirmation that comes back from the payment gateway.
package checkout

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/nks-storefront/internal/domain/cart"
)

// Sentinel errors for checkout.
var (
	ErrEmptyCart   = errors.New("cart is empty")
	ErrTransaction = errors.New("transaction error")
)

// Gateway constants sent with every session.
const (
	Currency    = "COP"
	Country     = "CO"
	SessionName = "Carrito de Compras"

	responsePath = "/payment-response"
)

// Session is the payload handed to the payment widget.
type Session struct {
	Key            string
	Test           bool
	Name           string
	Description    string
	Invoice        string
	Currency       string
	Amount         decimal.Decimal
	TaxBase        string
	Tax            string
	Country        string
	External       bool
	Response       string
	Confirmation   string
	Rejected       string
	CancelURL      string
	MethodsDisable []string
}

// Config holds the gateway account and where it redirects back to.
type Config struct {
	// PublicURL is the storefront origin, e.g. https://nks.com.co.
	PublicURL string
	// PublicKey is the gateway public key.
	PublicKey string
	// Test marks sessions as sandbox payments.
	Test bool
}

// Initiator builds payment sessions.
type Initiator struct {
	cfg Config
	now func() time.Time
}

// NewInitiator creates an Initiator.
func NewInitiator(cfg Config) *Initiator {
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	return &Initiator{cfg: cfg, now: time.Now}
}

// Begin builds the session for a resolved cart. The invoice is the current
// time in unix milliseconds.
func (i *Initiator) Begin(s cart.Summary) (*Session, error) {
	if s.IsEmpty() {
		return nil, ErrEmptyCart
	}

	response := i.cfg.PublicURL + responsePath
	cancelled := response + "?" + url.Values{"cancelled": {"true"}}.Encode()

	return &Session{
		Key:            i.cfg.PublicKey,
		Test:           i.cfg.Test,
		Name:           SessionName,
		Description:    Describe(s),
		Invoice:        strconv.FormatInt(i.now().UnixMilli(), 10),
		Currency:       Currency,
		Amount:         s.Total,
		TaxBase:        "0",
		Tax:            "0",
		Country:        Country,
		External:       false,
		Response:       response,
		Confirmation:   response,
		Rejected:       cancelled,
		CancelURL:      cancelled,
		MethodsDisable: []string{},
	}, nil
}

// Describe renders "Compra de N productos: title (xq), ...".
func Describe(s cart.Summary) string {
	parts := make([]string, len(s.Items))
	for i, it := range s.Items {
		parts[i] = fmt.Sprintf("%s (x%d)", it.Product.Title, it.Quantity)
	}
	return fmt.Sprintf("Compra de %d productos: %s", s.TotalItems, strings.Join(parts, ", "))
}
