package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/chris/credit-reconciliation/pkg/api"
	"github.com/chris/credit-reconciliation/pkg/checkout"
	"github.com/chris/credit-reconciliation/pkg/config"
	"github.com/chris/credit-reconciliation/pkg/handlers"
	"github.com/chris/credit-reconciliation/pkg/handlers/balances"
	"github.com/chris/credit-reconciliation/pkg/handlers/ledger"
	"github.com/chris/credit-reconciliation/pkg/handlers/respond"
	"github.com/chris/credit-reconciliation/pkg/handlers/sessions"
	"github.com/chris/credit-reconciliation/pkg/handlers/webhooks"
	wshandler "github.com/chris/credit-reconciliation/pkg/handlers/websockets"
	"github.com/chris/credit-reconciliation/pkg/metrics"
	"github.com/chris/credit-reconciliation/pkg/middleware"
	"github.com/chris/credit-reconciliation/pkg/models"
	"github.com/chris/credit-reconciliation/pkg/payments"
	"github.com/chris/credit-reconciliation/pkg/ratelimit"
	"github.com/chris/credit-reconciliation/pkg/reconciler"
	"github.com/chris/credit-reconciliation/pkg/scheduler"
	"github.com/chris/credit-reconciliation/pkg/signature"
	"github.com/chris/credit-reconciliation/pkg/storage"
	dydbstore "github.com/chris/credit-reconciliation/pkg/storage/dynamodb"
	"github.com/chris/credit-reconciliation/pkg/storage/memory"
	"github.com/chris/credit-reconciliation/pkg/websockets"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

// appStore is what the local server needs from a storage driver.
type appStore interface {
	storage.Storage
	storage.WebSocketManager
}

func main() {
	cfg, err := config.Load(config.ProfileAPI)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := newStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialise storage: %v", err)
	}

	limiter, closeLimiter := newLimiter(cfg)
	defer closeLimiter()

	recorder := metrics.NewRecorder()
	hub := websockets.NewHub()
	provider := payments.NewStripeProvider(payments.StripeConfig{
		SecretKey:   cfg.StripeSecretKey,
		HTTPTimeout: cfg.ProviderTimeout,
	}, logger)

	reconcileCfg := reconciler.DefaultConfig()
	reconcileCfg.ProviderTimeout = cfg.ProviderTimeout
	reconcileCfg.StoreTimeout = cfg.StoreTimeout
	reconcileCfg.MaxAttempts = cfg.ProviderMaxAttempts
	rec := reconciler.New(store, provider, reconcileCfg,
		reconciler.WithNotifier(websockets.NewGrantNotifier(hub)),
		reconciler.WithMetrics(recorder),
		reconciler.WithLogger(logger),
	)

	checkoutSvc := checkout.NewService(models.DefaultCatalog(), limiter, provider, store, checkout.Config{
		ClientURL:     cfg.ClientURL,
		Currency:      cfg.CheckoutCurrency,
		SessionExpiry: cfg.CheckoutExpiry,
		StoreTimeout:  cfg.StoreTimeout,
	}, checkout.WithMetrics(recorder), checkout.WithLogger(logger))

	// Locally the sweep reconciles in-process instead of going through SQS.
	sweeper := scheduler.NewSweeper(store, scheduler.NewInlineScheduler(rec), cfg.PendingSweepAge, cfg.SweepConcurrency, logger,
		scheduler.WithSweepMetrics(recorder))
	go sweeper.Start(ctx, cfg.PendingSweepAge)

	handler := handlers.NewApiHandler(
		sessions.NewSessionsHandler(checkoutSvc, rec, store, logger),
		webhooks.NewWebhooksHandler(signature.NewVerifier(cfg.StripeWebhookSecret, cfg.WebhookTolerance), rec, recorder, logger),
		balances.NewBalancesHandler(store),
		ledger.NewLedgerHandler(store),
	)

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.NewStructuredLogger(logger, "/healthz", "/metrics"))
	router.Use(chimiddleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Handle("/metrics", recorder.Handler())
	router.Handle("/ws", wshandler.NewHandler(store, hub))

	// /ws is long-lived, so only the API routes get a request deadline.
	router.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
		api.HandlerWithOptions(handler, api.ChiServerOptions{
			BaseRouter:       r,
			ErrorHandlerFunc: respond.ParamError,
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("starting server", "port", cfg.HTTPPort, "storage", cfg.StorageDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func newStore(ctx context.Context, cfg *config.Config) (appStore, error) {
	if cfg.StorageDriver == config.DriverMemory {
		slog.Warn("using in-memory storage, data is lost on restart")
		return memory.New(), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return dydbstore.New(dynamodb.NewFromConfig(awsCfg), cfg.SessionsTable, cfg.BalancesTable, cfg.LedgerTable, cfg.ConnectionsTable), nil
}

// newLimiter uses Redis when REDIS_ADDR is set so several instances share
// one window, and an in-process limiter otherwise.
func newLimiter(cfg *config.Config) (ratelimit.Limiter, func()) {
	rlCfg := ratelimit.Config{MaxAttempts: cfg.RateLimitMaxAttempts, Window: cfg.RateLimitWindow}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return ratelimit.NewRedisLimiter(client, rlCfg, time.Now), func() { _ = client.Close() }
	}

	limiter := ratelimit.NewMemoryLimiter(rlCfg, cfg.RateLimitWindow)
	return limiter, limiter.Stop
}
