// Package firestore implements the storefront stores on Cloud Firestore,
// the document database the storefront was first built on.
package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Collection names.
const (
	Products    = "products"
	Carts       = "carts"
	Users       = "users"
	Orders      = "orders"
	Credentials = "credentials"
)

// NewApp initializes a Firebase app for projectID. Empty credentialsJSON
// falls back to Application Default Credentials.
func NewApp(ctx context.Context, projectID, credentialsJSON string) (*firebase.App, error) {
	var opts []option.ClientOption
	if credentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "init firebase app")
	}
	return app, nil
}

// Open returns the Firestore client of app.
func Open(ctx context.Context, app *firebase.App) (*firestore.Client, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "init firestore client")
	}
	return client, nil
}

// Pinger reads a single product to check the database answers.
type Pinger struct {
	Client *firestore.Client
}

// Ping implements health.Pinger.
func (p Pinger) Ping(ctx context.Context) error {
	it := p.Client.Collection(Products).Limit(1).Documents(ctx)
	defer it.Stop()
	if _, err := it.Next(); err != nil && err != iterator.Done {
		return errors.Wrap(err, "ping firestore")
	}
	return nil
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func isAlreadyExists(err error) bool {
	return status.Code(err) == codes.AlreadyExists
}

// toFirestore replaces decimals with their string form. Firestore has no
// decimal type and product.FromDocument parses numeric strings.
func toFirestore(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = toFirestore(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = toFirestore(item)
		}
		return out
	case decimal.Decimal:
		return t.String()
	default:
		return v
	}
}

func toDecimal(v any) decimal.Decimal {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n)
	case int64:
		return decimal.NewFromInt(n)
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func toString(v any) string {
	s, _ := v.(string)
	return s
}
