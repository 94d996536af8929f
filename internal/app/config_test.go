package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	setEnv(t, map[string]string{
		"NKS_DATABASE_URL":       "postgres://localhost/nks",
		"NKS_AUTH_SECRET":        "s3cret",
		"NKS_PAYMENT_PUBLIC_KEY": "pk_test",
	})

	cfg, err := loadConfig(true)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, AuthLocal, cfg.Auth.Provider)
	assert.Equal(t, time.Hour, cfg.Auth.TTL)
	assert.True(t, cfg.Payment.Test)
	assert.Equal(t, "orders.confirmed", cfg.Broker.Queue)
	assert.Equal(t, 30*time.Minute, cfg.Cart.IdleTTL)
	assert.Equal(t, 5*time.Second, cfg.Cart.SyncTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)
	assert.False(t, cfg.needsFirebase())
}

func TestLoadConfig_PlatformDefaults(t *testing.T) {
	setEnv(t, map[string]string{
		"DATABASE_URL":           "postgres://platform/nks",
		"PORT":                   "9090",
		"NKS_AUTH_SECRET":        "s3cret",
		"NKS_PAYMENT_PUBLIC_KEY": "pk_test",
	})

	cfg, err := loadConfig(true)
	require.NoError(t, err)
	assert.Equal(t, "postgres://platform/nks", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)
}

func TestLoadConfig_Invalid(t *testing.T) {
	base := map[string]string{
		"NKS_DATABASE_URL":       "postgres://localhost/nks",
		"NKS_AUTH_SECRET":        "s3cret",
		"NKS_PAYMENT_PUBLIC_KEY": "pk_test",
	}
	tests := []struct {
		name     string
		override map[string]string
	}{
		{name: "unknown store", override: map[string]string{"NKS_STORE": "redis"}},
		{name: "mongo without uri", override: map[string]string{"NKS_STORE": "mongo"}},
		{name: "firestore without project", override: map[string]string{"NKS_STORE": "firestore"}},
		{name: "local without secret", override: map[string]string{"NKS_AUTH_SECRET": ""}},
		{name: "firebase without api key", override: map[string]string{
			"NKS_AUTH_PROVIDER":        "firebase",
			"NKS_FIREBASE_PROJECT_ID": "nks",
		}},
		{name: "unknown provider", override: map[string]string{"NKS_AUTH_PROVIDER": "ldap"}},
		{name: "missing payment key", override: map[string]string{"NKS_PAYMENT_PUBLIC_KEY": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnv(t, base)
			setEnv(t, tt.override)

			_, err := loadConfig(true)
			require.Error(t, err)
		})
	}
}

func TestLoadConfig_Firestore(t *testing.T) {
	setEnv(t, map[string]string{
		"NKS_STORE":               "firestore",
		"NKS_AUTH_PROVIDER":       "firebase",
		"NKS_FIREBASE_PROJECT_ID": "nks-autopartes",
		"NKS_FIREBASE_API_KEY":    "web-key",
		"NKS_PAYMENT_PUBLIC_KEY":  "pk_test",
	})

	cfg, err := loadConfig(true)
	require.NoError(t, err)
	assert.True(t, cfg.needsFirebase())
	assert.Equal(t, "nks-autopartes", cfg.Firebase.ProjectID)
}
