package app

import (
	"context"
	"net/http"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	firebaseauth "github.com/xenking/nks-storefront/internal/auth/firebase"
	"github.com/xenking/nks-storefront/internal/auth/local"
	"github.com/xenking/nks-storefront/internal/domain/auth"
	"github.com/xenking/nks-storefront/internal/domain/cart"
	"github.com/xenking/nks-storefront/internal/domain/checkout"
	"github.com/xenking/nks-storefront/internal/domain/order"
	"github.com/xenking/nks-storefront/internal/domain/profile"
	"github.com/xenking/nks-storefront/internal/events"
	"github.com/xenking/nks-storefront/internal/handler"
	"github.com/xenking/nks-storefront/internal/payment/epayco"
	"github.com/xenking/nks-storefront/internal/storage/firestore"
	"github.com/xenking/nks-storefront/pkg/health"
	"github.com/xenking/nks-storefront/pkg/httpmiddleware"
)

const serviceName = "nks-storefront"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("store", cfg.Store),
		zap.String("auth", cfg.Auth.Provider),
	)

	var fb *firebase.App
	if cfg.needsFirebase() {
		var err error
		if fb, err = firestore.NewApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsJSON); err != nil {
			return err
		}
	}

	stores, err := OpenStores(ctx, lg, cfg, fb)
	if err != nil {
		return errors.Wrap(err, "open stores")
	}
	defer stores.Close()

	// Health check service.
	healthSvc := health.New()
	healthSvc.Register(health.Readiness, health.Check{
		Name:    cfg.Store,
		Timeout: 5 * time.Second,
		Func:    health.PingCheck(stores.Pinger),
	})
	healthSvc.Register(health.Liveness, health.Check{Name: "goroutines", Func: health.GoroutineCountCheck(10000)})
	healthSvc.Register(health.Liveness, health.Check{Name: "gc_pause", Func: health.GCMaxPauseCheck(time.Second)})

	// Order events.
	var publisher checkout.Publisher = events.Noop{}
	if cfg.Broker.URL != "" {
		conn, err := amqp.Dial(cfg.Broker.URL)
		if err != nil {
			return errors.Wrap(err, "dial broker")
		}
		defer func() { _ = conn.Close() }()

		p, err := events.NewPublisher(conn, cfg.Broker.Queue)
		if err != nil {
			return errors.Wrap(err, "create publisher")
		}
		defer func() { _ = p.Close() }()
		publisher = p

		healthSvc.Register(health.Readiness, health.Check{Name: "amqp", Func: health.ClosedCheck(conn.IsClosed)})
	}

	// Auth.
	provider, err := newAuthProvider(ctx, lg, m, cfg, fb, stores.Credentials)
	if err != nil {
		return errors.Wrap(err, "create auth provider")
	}
	profiles := profile.NewService(stores.Profiles, lg.Named("profile"))
	authSvc := auth.NewService(provider, profiles, lg.Named("auth"))

	// Carts.
	syncer, err := cart.NewSyncer(stores.Carts, cart.SyncerConfig{
		Logger:  lg.Named("cart"),
		Meter:   m.MeterProvider().Meter("nks/cart"),
		Timeout: cfg.Cart.SyncTimeout,
	})
	if err != nil {
		return errors.Wrap(err, "create cart syncer")
	}
	registry := cart.NewRegistry(syncer, lg.Named("cart"), cfg.Cart.IdleTTL)
	registry.StartJanitor(ctx)
	details := cart.NewDetails(stores.Products, lg.Named("catalog"))

	// Checkout.
	orders := order.NewService(stores.Orders)
	verifier := epayco.New(epayco.Config{
		VerifyURL:      cfg.Payment.VerifyURL,
		Timeout:        cfg.Payment.Timeout,
		TracerProvider: m.TracerProvider(),
		MeterProvider:  m.MeterProvider(),
	})
	initiator := checkout.NewInitiator(checkout.Config{
		PublicURL: cfg.PublicURL,
		PublicKey: cfg.Payment.PublicKey,
		Test:      cfg.Payment.Test,
	})
	confirmer := checkout.NewConfirmer(verifier, details, orders, checkout.ConfirmerConfig{
		Publisher: publisher,
		Logger:    lg.Named("checkout"),
		Tracer:    m.TracerProvider().Tracer("nks/checkout"),
	})

	// HTTP handlers.
	h := handler.NewHandler(handler.Config{PublicURL: cfg.PublicURL}, handler.Deps{
		Products:  stores.Products,
		Carts:     registry,
		Details:   details,
		Initiator: initiator,
		Confirmer: confirmer,
		Auth:      authSvc,
		Profiles:  profiles,
		Orders:    orders,
	})

	r := chi.NewRouter()
	r.Use(
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			Origins:          cfg.CORS.Origins,
			Headers:          []string{"Content-Type", "Authorization", handler.CartSessionHeader},
			ExposeHeaders:    []string{handler.CartSessionHeader, httpmiddleware.RequestIDHeader},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.Instrument(serviceName, m),
		httpmiddleware.LogRequests(),
	)
	r.Get("/livez", healthSvc.LiveEndpoint)
	r.Get("/readyz", healthSvc.ReadyEndpoint)
	h.Mount(r)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           r,
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		registry.Wait()
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

func newAuthProvider(
	ctx context.Context,
	lg *zap.Logger,
	m *app.Telemetry,
	cfg *Config,
	fb *firebase.App,
	credentials local.Store,
) (auth.Provider, error) {
	switch cfg.Auth.Provider {
	case AuthFirebase:
		return firebaseauth.New(ctx, fb, firebaseauth.Config{
			APIKey:         cfg.Firebase.APIKey,
			TracerProvider: m.TracerProvider(),
		})
	case AuthLocal:
		return local.New(credentials, local.Config{
			Secret: cfg.Auth.Secret,
			TTL:    cfg.Auth.TTL,
			Logger: lg.Named("auth.local"),
		})
	default:
		return nil, errors.Errorf("unknown auth provider %q", cfg.Auth.Provider)
	}
}
