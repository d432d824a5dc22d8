package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setAPIEnv(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "dynamodb")
	t.Setenv("DYNAMODB_SESSIONS_TABLE_NAME", "sessions")
	t.Setenv("DYNAMODB_BALANCES_TABLE_NAME", "balances")
	t.Setenv("DYNAMODB_LEDGER_TABLE_NAME", "ledger")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_real")
	t.Setenv("CLIENT_URL", "https://app.example.com/")
}

func TestLoad(t *testing.T) {
	t.Run("API Defaults", func(t *testing.T) {
		setAPIEnv(t)

		cfg, err := Load(ProfileAPI)
		require.NoError(t, err)
		assert.Equal(t, "8080", cfg.HTTPPort)
		assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
		assert.Equal(t, "https://app.example.com", cfg.ClientURL)
		assert.Equal(t, "inr", cfg.CheckoutCurrency)
		assert.Equal(t, 30*time.Minute, cfg.CheckoutExpiry)
		assert.Equal(t, 5*time.Minute, cfg.WebhookTolerance)
		assert.Equal(t, 5, cfg.RateLimitMaxAttempts)
		assert.Equal(t, time.Minute, cfg.RateLimitWindow)
		assert.Equal(t, 3, cfg.ProviderMaxAttempts)
		assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
		assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	})

	t.Run("Rejects Unbounded Store Calls", func(t *testing.T) {
		setAPIEnv(t)
		t.Setenv("STORE_TIMEOUT", "0s")

		_, err := Load(ProfileAPI)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "STORE_TIMEOUT must be positive")
	})

	t.Run("Overrides", func(t *testing.T) {
		setAPIEnv(t)
		t.Setenv("LOG_LEVEL", "debug")
		t.Setenv("RATE_LIMIT_MAX_ATTEMPTS", "10")
		t.Setenv("RATE_LIMIT_WINDOW", "2m")
		t.Setenv("CHECKOUT_CURRENCY", "USD")

		cfg, err := Load(ProfileAPI)
		require.NoError(t, err)
		assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
		assert.Equal(t, 10, cfg.RateLimitMaxAttempts)
		assert.Equal(t, 2*time.Minute, cfg.RateLimitWindow)
		assert.Equal(t, "usd", cfg.CheckoutCurrency)
	})

	t.Run("Reports Every Problem", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "dynamodb")
		t.Setenv("DYNAMODB_SESSIONS_TABLE_NAME", "")
		t.Setenv("DYNAMODB_BALANCES_TABLE_NAME", "")
		t.Setenv("DYNAMODB_LEDGER_TABLE_NAME", "")
		t.Setenv("STRIPE_SECRET_KEY", "")
		t.Setenv("STRIPE_WEBHOOK_SECRET", "")
		t.Setenv("CLIENT_URL", "")
		t.Setenv("RATE_LIMIT_WINDOW", "soon")

		_, err := Load(ProfileAPI)
		require.Error(t, err)
		for _, want := range []string{
			"DYNAMODB_SESSIONS_TABLE_NAME is required",
			"STRIPE_SECRET_KEY is required",
			"STRIPE_WEBHOOK_SECRET is required",
			"CLIENT_URL is required",
			"RATE_LIMIT_WINDOW",
		} {
			assert.Contains(t, err.Error(), want)
		}
	})

	t.Run("Rejects Placeholder Webhook Secret", func(t *testing.T) {
		setAPIEnv(t)
		t.Setenv("STRIPE_WEBHOOK_SECRET", placeholderWebhookSecret)

		_, err := Load(ProfileAPI)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "placeholder")
	})

	t.Run("Memory Driver Needs No Tables", func(t *testing.T) {
		setAPIEnv(t)
		t.Setenv("STORAGE_DRIVER", "memory")
		t.Setenv("DYNAMODB_SESSIONS_TABLE_NAME", "")

		_, err := Load(ProfileAPI)
		assert.NoError(t, err)
	})

	t.Run("Sweeper Needs Queue", func(t *testing.T) {
		setAPIEnv(t)
		t.Setenv("SQS_QUEUE_URL", "")

		_, err := Load(ProfileSweeper)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SQS_QUEUE_URL is required")
	})

	t.Run("Websocket Only Needs Connections Table", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "dynamodb")
		t.Setenv("DYNAMODB_CONNECTIONS_TABLE_NAME", "connections")

		_, err := Load(ProfileWebsocket)
		assert.NoError(t, err)
	})
}
