// Package config reads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Profile selects which settings a binary needs.
type Profile string

const (
	ProfileAPI       Profile = "api"
	ProfileSweeper   Profile = "sweeper"
	ProfileWorker    Profile = "worker"
	ProfileWebsocket Profile = "websocket"
)

const (
	DriverDynamoDB = "dynamodb"
	DriverMemory   = "memory"
)

// placeholderWebhookSecret ships in example env files and must never be used.
const placeholderWebhookSecret = "whsec_your_webhook_secret"

type Config struct {
	HTTPPort string
	LogLevel slog.Level

	StorageDriver        string
	SessionsTable        string
	BalancesTable        string
	LedgerTable          string
	ConnectionsTable     string
	SQSQueueURL          string
	WebsocketAPIEndpoint string

	StripeSecretKey     string
	StripeWebhookSecret string
	WebhookTolerance    time.Duration

	ClientURL        string
	CheckoutCurrency string
	CheckoutExpiry   time.Duration

	ProviderTimeout     time.Duration
	ProviderMaxAttempts int
	StoreTimeout        time.Duration
	RequestTimeout      time.Duration

	RateLimitMaxAttempts int
	RateLimitWindow      time.Duration
	RedisAddr            string

	PendingSweepAge  time.Duration
	SweepConcurrency int
}

// Load reads .env (if present) and the process environment, then validates
// the result for profile. Every problem found is returned in one joined error.
func Load(profile Profile) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	r := &reader{}
	cfg := &Config{
		HTTPPort: r.str("HTTP_PORT", "8080"),
		LogLevel: r.level("LOG_LEVEL", slog.LevelInfo),

		StorageDriver:        r.str("STORAGE_DRIVER", DriverDynamoDB),
		SessionsTable:        r.str("DYNAMODB_SESSIONS_TABLE_NAME", ""),
		BalancesTable:        r.str("DYNAMODB_BALANCES_TABLE_NAME", ""),
		LedgerTable:          r.str("DYNAMODB_LEDGER_TABLE_NAME", ""),
		ConnectionsTable:     r.str("DYNAMODB_CONNECTIONS_TABLE_NAME", ""),
		SQSQueueURL:          r.str("SQS_QUEUE_URL", ""),
		WebsocketAPIEndpoint: r.str("WEBSOCKET_API_ENDPOINT", ""),

		StripeSecretKey:     r.str("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: r.str("STRIPE_WEBHOOK_SECRET", ""),
		WebhookTolerance:    r.duration("WEBHOOK_TOLERANCE", 5*time.Minute),

		ClientURL:        strings.TrimRight(r.str("CLIENT_URL", ""), "/"),
		CheckoutCurrency: strings.ToLower(r.str("CHECKOUT_CURRENCY", "inr")),
		CheckoutExpiry:   r.duration("CHECKOUT_EXPIRY", 30*time.Minute),

		ProviderTimeout:     r.duration("PROVIDER_TIMEOUT", 10*time.Second),
		ProviderMaxAttempts: r.int("PROVIDER_MAX_ATTEMPTS", 3),
		StoreTimeout:        r.duration("STORE_TIMEOUT", 5*time.Second),
		RequestTimeout:      r.duration("REQUEST_TIMEOUT", 30*time.Second),

		RateLimitMaxAttempts: r.int("RATE_LIMIT_MAX_ATTEMPTS", 5),
		RateLimitWindow:      r.duration("RATE_LIMIT_WINDOW", time.Minute),
		RedisAddr:            r.str("REDIS_ADDR", ""),

		PendingSweepAge:  r.duration("PENDING_SWEEP_AGE", 10*time.Minute),
		SweepConcurrency: r.int("SWEEP_CONCURRENCY", 8),
	}

	errs := append(r.errs, cfg.Validate(profile))
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid %s configuration: %w", profile, err)
	}
	return cfg, nil
}

// Logger returns a JSON logger at the configured level.
func (c *Config) Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: c.LogLevel}))
}

// Validate checks that every setting profile depends on is present.
func (c *Config) Validate(profile Profile) error {
	var errs []error
	require := func(name, value string) {
		if value == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}

	switch c.StorageDriver {
	case DriverDynamoDB:
		switch profile {
		case ProfileWebsocket:
			require("DYNAMODB_CONNECTIONS_TABLE_NAME", c.ConnectionsTable)
		default:
			require("DYNAMODB_SESSIONS_TABLE_NAME", c.SessionsTable)
			require("DYNAMODB_BALANCES_TABLE_NAME", c.BalancesTable)
			require("DYNAMODB_LEDGER_TABLE_NAME", c.LedgerTable)
		}
	case DriverMemory:
		if profile != ProfileAPI {
			errs = append(errs, fmt.Errorf("STORAGE_DRIVER=memory is only supported by the api profile"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", DriverDynamoDB, DriverMemory, c.StorageDriver))
	}

	switch profile {
	case ProfileAPI:
		require("STRIPE_SECRET_KEY", c.StripeSecretKey)
		require("STRIPE_WEBHOOK_SECRET", c.StripeWebhookSecret)
		require("CLIENT_URL", c.ClientURL)
		if c.StripeWebhookSecret == placeholderWebhookSecret {
			errs = append(errs, fmt.Errorf("STRIPE_WEBHOOK_SECRET is still the example placeholder"))
		}
		if c.RateLimitMaxAttempts <= 0 {
			errs = append(errs, fmt.Errorf("RATE_LIMIT_MAX_ATTEMPTS must be positive"))
		}
		if c.RateLimitWindow <= 0 {
			errs = append(errs, fmt.Errorf("RATE_LIMIT_WINDOW must be positive"))
		}
		if c.RequestTimeout <= 0 {
			errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT must be positive"))
		}
		if c.CheckoutExpiry < 30*time.Minute || c.CheckoutExpiry > 24*time.Hour {
			errs = append(errs, fmt.Errorf("CHECKOUT_EXPIRY must be between 30m and 24h"))
		}
	case ProfileSweeper:
		require("SQS_QUEUE_URL", c.SQSQueueURL)
	case ProfileWorker:
		require("STRIPE_SECRET_KEY", c.StripeSecretKey)
	case ProfileWebsocket:
	default:
		errs = append(errs, fmt.Errorf("unknown profile %q", profile))
	}

	if c.StoreTimeout <= 0 {
		errs = append(errs, fmt.Errorf("STORE_TIMEOUT must be positive"))
	}

	if (profile == ProfileAPI || profile == ProfileSweeper) && c.PendingSweepAge <= 0 {
		errs = append(errs, fmt.Errorf("PENDING_SWEEP_AGE must be positive"))
	}

	if profile == ProfileAPI || profile == ProfileWorker {
		if c.ProviderMaxAttempts < 1 {
			errs = append(errs, fmt.Errorf("PROVIDER_MAX_ATTEMPTS must be at least 1"))
		}
		if c.ProviderTimeout <= 0 {
			errs = append(errs, fmt.Errorf("PROVIDER_TIMEOUT must be positive"))
		}
	}

	return errors.Join(errs...)
}

type reader struct {
	errs []error
}

func (r *reader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (r *reader) int(key string, def int) int {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (r *reader) level(key string, def slog.Level) slog.Level {
	v := r.str(key, "")
	if v == "" {
		return def
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return l
}
