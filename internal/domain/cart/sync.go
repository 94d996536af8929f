package cart

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

const defaultSyncTimeout = 5 * time.Second

// Syncer pushes cart snapshots to a Store from background goroutines.
type Syncer struct {
	store   Store
	lg      *zap.Logger
	timeout time.Duration

	pushes   metric.Int64Counter
	failures metric.Int64Counter

	wg sync.WaitGroup
}

// SyncerConfig configures a Syncer. Zero values get defaults.
type SyncerConfig struct {
	Logger  *zap.Logger
	Meter   metric.Meter
	Timeout time.Duration
}

// NewSyncer creates a Syncer writing to store.
func NewSyncer(store Store, cfg SyncerConfig) (*Syncer, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Meter == nil {
		cfg.Meter = noop.NewMeterProvider().Meter("cart")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSyncTimeout
	}

	pushes, err := cfg.Meter.Int64Counter("cart.sync.pushes",
		metric.WithDescription("Cart snapshots pushed to the document store"),
	)
	if err != nil {
		return nil, err
	}
	failures, err := cfg.Meter.Int64Counter("cart.sync.failures",
		metric.WithDescription("Cart snapshots the document store rejected"),
	)
	if err != nil {
		return nil, err
	}

	return &Syncer{
		store:    store,
		lg:       cfg.Logger,
		timeout:  cfg.Timeout,
		pushes:   pushes,
		failures: failures,
	}, nil
}

// push writes lines for userID without blocking the caller. The write is not
// tied to any request context so a finished request never cancels it.
// done runs once the write has finished, successfully or not.
func (s *Syncer) push(userID string, lines []Line, done func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		s.pushes.Add(ctx, 1)
		if err := s.store.Save(ctx, userID, lines); err != nil {
			s.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason(err))))
			s.lg.Error("Sync cart failed",
				zap.String("user_id", userID),
				zap.Int("lines", len(lines)),
				zap.Error(err),
			)
		}
	}()
}

// Wait blocks until every in-flight push has finished.
func (s *Syncer) Wait() {
	s.wg.Wait()
}

func reason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "store"
}
