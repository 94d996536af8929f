// Package epayco looks up transaction status at the ePayco validation API.
package epayco

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/nks-storefront/internal/domain/checkout"
)

// DefaultVerifyURL is the production validation endpoint. The reference is
// appended to it.
const DefaultVerifyURL = "https://secure.epayco.co/validation/v1/reference/"

const maxBody = 1 << 20

var _ checkout.Verifier = (*Client)(nil)

// Sentinel errors for validation responses.
var (
	ErrUnsuccessful = errors.New("validation unsuccessful")
	ErrNoData       = errors.New("validation response has no data")
)

// StatusError is returned for non-200 responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Config configures a Client.
type Config struct {
	VerifyURL      string
	Timeout        time.Duration
	Transport      http.RoundTripper
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Client calls the validation endpoint.
type Client struct {
	verifyURL string
	http      *http.Client
}

// New creates a Client. Requests are traced with otelhttp.
func New(cfg Config) *Client {
	if cfg.VerifyURL == "" {
		cfg.VerifyURL = DefaultVerifyURL
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
	if cfg.MeterProvider != nil {
		opts = append(opts, otelhttp.WithMeterProvider(cfg.MeterProvider))
	}

	return &Client{
		verifyURL: cfg.VerifyURL,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(base, opts...),
		},
	}
}

// Verify fetches the final status of reference.
func (c *Client) Verify(ctx context.Context, reference string) (*checkout.Payment, error) {
	u := strings.TrimRight(c.verifyURL, "/") + "/" + url.PathEscape(reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}

	p, err := decodeValidation(body)
	if err != nil {
		return nil, errors.Wrap(err, "decode validation")
	}
	p.Reference = reference
	return p, nil
}

// decodeValidation parses {success, data: {x_...}}. Numeric fields may be
// sent as JSON strings or numbers.
func decodeValidation(body []byte) (*checkout.Payment, error) {
	var (
		success = true
		p       *checkout.Payment
	)
	d := jx.DecodeBytes(body)
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "success":
			if d.Next() != jx.Bool {
				return d.Skip()
			}
			v, err := d.Bool()
			success = v
			return err
		case "data":
			if d.Next() != jx.Object {
				return d.Skip()
			}
			p = &checkout.Payment{}
			return decodeData(d, p)
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, err
	}
	if !success {
		return nil, ErrUnsuccessful
	}
	if p == nil {
		return nil, ErrNoData
	}
	return p, nil
}

func decodeData(d *jx.Decoder, p *checkout.Payment) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var dst *string
		switch string(key) {
		case "x_transaction_state":
			dst = &p.State
		case "x_id_invoice":
			dst = &p.InvoiceID
		case "x_description":
			dst = &p.Description
		case "x_currency_code":
			dst = &p.Currency
		case "x_type_payment":
			dst = &p.PaymentType
		case "x_transaction_date":
			dst = &p.TransactionDate
		case "x_amount":
			s, err := scalar(d)
			if err != nil {
				return err
			}
			if s == "" {
				return nil
			}
			amount, err := decimal.NewFromString(s)
			if err != nil {
				return errors.Wrapf(err, "parse x_amount %q", s)
			}
			p.Amount = amount
			return nil
		default:
			return d.Skip()
		}
		s, err := scalar(d)
		*dst = s
		return err
	})
}

// scalar reads a string, number or null as text.
func scalar(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.String:
		return d.Str()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return n.String(), nil
	case jx.Null:
		return "", d.Null()
	default:
		return "", d.Skip()
	}
}
