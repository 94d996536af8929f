package app

import (
	"context"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/nks-storefront/internal/auth/local"
	"github.com/xenking/nks-storefront/internal/domain/cart"
	"github.com/xenking/nks-storefront/internal/domain/order"
	"github.com/xenking/nks-storefront/internal/domain/product"
	"github.com/xenking/nks-storefront/internal/domain/profile"
	"github.com/xenking/nks-storefront/internal/storage/firestore"
	"github.com/xenking/nks-storefront/internal/storage/mongo"
	"github.com/xenking/nks-storefront/internal/storage/postgres"
	"github.com/xenking/nks-storefront/pkg/health"
)

// Stores is the set of repositories of one backend.
type Stores struct {
	Products    product.Repository
	Writer      product.Writer
	Carts       cart.Store
	Profiles    profile.Repository
	Orders      order.Repository
	Credentials local.Store

	// Pinger backs the readiness check of the backend.
	Pinger health.Pinger
	close  func()
}

// Close releases the backend connections.
func (s *Stores) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStores connects to the backend named by cfg.Store. fb must be set for
// the firestore backend.
func OpenStores(ctx context.Context, lg *zap.Logger, cfg *Config, fb *firebase.App) (*Stores, error) {
	switch cfg.Store {
	case StorePostgres:
		return openPostgres(ctx, lg, cfg.DatabaseURL)
	case StoreMongo:
		return openMongo(ctx, cfg.Mongo)
	case StoreFirestore:
		if fb == nil {
			return nil, errors.New("firestore store needs a firebase app")
		}
		return openFirestore(ctx, fb)
	default:
		return nil, errors.Errorf("unknown store %q", cfg.Store)
	}
}

func openPostgres(ctx context.Context, lg *zap.Logger, databaseURL string) (*Stores, error) {
	if err := postgres.Migrate(databaseURL, lg); err != nil {
		return nil, errors.Wrap(err, "run migrations")
	}
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	products := postgres.NewProductRepository(pool)
	return &Stores{
		Products:    products,
		Writer:      products,
		Carts:       postgres.NewCartRepository(pool),
		Profiles:    postgres.NewProfileRepository(pool),
		Orders:      postgres.NewOrderRepository(pool),
		Credentials: postgres.NewCredentialRepository(pool),
		Pinger:      pool,
		close:       pool.Close,
	}, nil
}

func openMongo(ctx context.Context, cfg MongoConfig) (*Stores, error) {
	s, err := mongo.Open(ctx, cfg.URI, cfg.Database)
	if err != nil {
		return nil, errors.Wrap(err, "open mongo")
	}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = s.Close(context.Background())
		return nil, errors.Wrap(err, "ensure indexes")
	}
	products := mongo.NewProductRepository(s)
	return &Stores{
		Products:    products,
		Writer:      products,
		Carts:       mongo.NewCartRepository(s),
		Profiles:    mongo.NewProfileRepository(s),
		Orders:      mongo.NewOrderRepository(s),
		Credentials: mongo.NewCredentialRepository(s),
		Pinger:      s,
		close: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.Close(ctx)
		},
	}, nil
}

func openFirestore(ctx context.Context, fb *firebase.App) (*Stores, error) {
	client, err := firestore.Open(ctx, fb)
	if err != nil {
		return nil, err
	}
	products := firestore.NewProductRepository(client)
	return &Stores{
		Products:    products,
		Writer:      products,
		Carts:       firestore.NewCartRepository(client),
		Profiles:    firestore.NewProfileRepository(client),
		Orders:      firestore.NewOrderRepository(client),
		Credentials: firestore.NewCredentialRepository(client),
		Pinger:      firestore.Pinger{Client: client},
		close:       func() { _ = client.Close() },
	}, nil
}
