package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Store backends.
const (
	StorePostgres  = "postgres"
	StoreMongo     = "mongo"
	StoreFirestore = "firestore"
)

// Auth providers.
const (
	AuthLocal    = "local"
	AuthFirebase = "firebase"
)

// Config holds the complete application configuration, loadable from
// environment variables (NKS_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	PublicURL   string `default:"http://localhost:3000" usage:"Storefront origin the payment gateway redirects to" flag:"public-url"`
	Store       string `default:"postgres" usage:"Document store backend: postgres, mongo or firestore"`
	DatabaseURL string `usage:"PostgreSQL connection URL (NKS_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Mongo       MongoConfig
	Firebase    FirebaseConfig
	Auth        AuthConfig
	Payment     PaymentConfig
	Broker      BrokerConfig
	Cart        CartConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// MongoConfig selects the MongoDB deployment used by the mongo store.
type MongoConfig struct {
	URI      string `usage:"MongoDB connection URI"`
	Database string `default:"nks" usage:"MongoDB database name"`
}

// FirebaseConfig identifies the Firebase project behind the firestore store
// and the firebase auth provider.
type FirebaseConfig struct {
	ProjectID       string `usage:"Firebase project id"`
	CredentialsJSON string `usage:"Service account JSON; empty uses Application Default Credentials"`
	APIKey          string `usage:"Web API key for password sign-in"`
}

// AuthConfig selects the identity provider.
type AuthConfig struct {
	Provider string        `default:"local" usage:"Identity provider: local or firebase"`
	Secret   string        `usage:"HS256 signing secret for local sessions"`
	TTL      time.Duration `default:"1h" usage:"Local session lifetime"`
}

// PaymentConfig holds the ePayco account.
type PaymentConfig struct {
	PublicKey string        `usage:"ePayco public key"`
	Test      bool          `default:"true" usage:"Mark payment sessions as sandbox payments"`
	VerifyURL string        `default:"https://secure.epayco.co/validation/v1/reference/" usage:"Transaction validation endpoint"`
	Timeout   time.Duration `default:"10s" usage:"Validation request timeout"`
}

// BrokerConfig enables order-confirmed events. Empty URL disables them.
type BrokerConfig struct {
	URL   string `usage:"AMQP URL for order events"`
	Queue string `default:"orders.confirmed" usage:"Queue receiving order-confirmed events"`
}

// CartConfig tunes the in-memory cart registry.
type CartConfig struct {
	IdleTTL     time.Duration `default:"30m" usage:"Evict carts unused for this long"`
	SyncTimeout time.Duration `default:"5s" usage:"Timeout of one remote cart write"`
}

// RateLimitConfig controls the per-client token bucket rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(false)
}

func loadConfig(skipFlags bool) (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "NKS",
		SkipFlags: skipFlags,
		Files:     []string{"config.yaml", "/etc/nks/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required: set NKS_DATABASE_URL or DATABASE_URL")
		}
	case StoreMongo:
		if c.Mongo.URI == "" {
			return errors.New("mongo URI is required: set NKS_MONGO_URI")
		}
	case StoreFirestore:
		if c.Firebase.ProjectID == "" {
			return errors.New("firebase project is required: set NKS_FIREBASE_PROJECT_ID")
		}
	default:
		return errors.Errorf("unknown store %q", c.Store)
	}

	switch c.Auth.Provider {
	case AuthLocal:
		if c.Auth.Secret == "" {
			return errors.New("auth secret is required: set NKS_AUTH_SECRET")
		}
	case AuthFirebase:
		if c.Firebase.ProjectID == "" || c.Firebase.APIKey == "" {
			return errors.New("firebase auth needs NKS_FIREBASE_PROJECT_ID and NKS_FIREBASE_API_KEY")
		}
	default:
		return errors.Errorf("unknown auth provider %q", c.Auth.Provider)
	}

	if c.Payment.PublicKey == "" {
		return errors.New("payment public key is required: set NKS_PAYMENT_PUBLIC_KEY")
	}
	return nil
}

// needsFirebase reports whether a Firebase app must be initialized.
func (c *Config) needsFirebase() bool {
	return c.Store == StoreFirestore || c.Auth.Provider == AuthFirebase
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's NKS_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
