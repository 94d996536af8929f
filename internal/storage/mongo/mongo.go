// Package mongo implements the storefront stores on MongoDB.
//
// Every collection is keyed by _id: product id, user id or order id.
package mongo

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names.
const (
	Products    = "products"
	Carts       = "carts"
	Users       = "users"
	Orders      = "orders"
	Credentials = "credentials"
)

// Store owns the client and hands out repositories over one database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to uri and selects database.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "connect")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "ping")
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

// EnsureIndexes creates the indexes the repositories rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.db.Collection(Credentials).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return errors.Wrap(err, "credentials email index")
	}
	if _, err := s.db.Collection(Orders).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	}); err != nil {
		return errors.Wrap(err, "orders user index")
	}
	return nil
}

// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Database returns the selected database.
func (s *Store) Database() *mongo.Database { return s.db }

// fromBSON converts driver values to the plain maps, slices and decimals
// that product.FromDocument understands.
func fromBSON(v any) any {
	switch t := v.(type) {
	case bson.M:
		return fromBSONMap(t)
	case map[string]any:
		return fromBSONMap(t)
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = fromBSON(e.Value)
		}
		return m
	case bson.A:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = fromBSON(item)
		}
		return out
	case primitive.Decimal128:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return decimal.Zero
		}
		return d
	case primitive.DateTime:
		return t.Time()
	default:
		return v
	}
}

func fromBSONMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, item := range m {
		out[k] = fromBSON(item)
	}
	return out
}

// toBSON converts decimals to Decimal128 so they keep their precision.
func toBSON(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(bson.M, len(t))
		for k, item := range t {
			out[k] = toBSON(item)
		}
		return out
	case []any:
		out := make(bson.A, len(t))
		for i, item := range t {
			out[i] = toBSON(item)
		}
		return out
	case decimal.Decimal:
		return decimal128(t)
	default:
		return v
	}
}

func decimal128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}
