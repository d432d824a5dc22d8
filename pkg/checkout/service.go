// Package checkout opens provider checkout sessions and records them as pending.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chris/credit-reconciliation/pkg/models"
	"github.com/chris/credit-reconciliation/pkg/payments"
	"github.com/chris/credit-reconciliation/pkg/ratelimit"
	"github.com/chris/credit-reconciliation/pkg/storage"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultCurrency      = "inr"
	DefaultSessionExpiry = 30 * time.Minute
	DefaultStoreTimeout  = 5 * time.Second
)

// Request is a user's intent to buy a plan.
type Request struct {
	Plan   string `validate:"required,plan"`
	UserID string `validate:"required,min=5,max=128,userid"`
	Email  string `validate:"omitempty,email,max=254"`
}

// Session is handed back to the client for the redirect.
type Session struct {
	SessionID   string
	RedirectURL string
}

type Config struct {
	ClientURL     string
	Currency      string
	SessionExpiry time.Duration
	StoreTimeout  time.Duration
}

// Metrics receives checkout results.
type Metrics interface {
	ObserveCheckout(result string)
}

type Service struct {
	catalog  models.Catalog
	limiter  ratelimit.Limiter
	provider payments.Provider
	store    storage.SessionWriter
	cfg      Config
	validate *validator.Validate
	metrics  Metrics
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithMetrics(m Metrics) Option { return func(s *Service) { s.metrics = m } }

func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(catalog models.Catalog, limiter ratelimit.Limiter, provider payments.Provider, store storage.SessionWriter, cfg Config, opts ...Option) *Service {
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}
	if cfg.SessionExpiry <= 0 {
		cfg.SessionExpiry = DefaultSessionExpiry
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}
	cfg.ClientURL = strings.TrimRight(cfg.ClientURL, "/")

	s := &Service{
		catalog:  catalog,
		limiter:  limiter,
		provider: provider,
		store:    store,
		cfg:      cfg,
		validate: newValidator(catalog),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession validates the request, applies the per-user rate limit, opens
// a provider checkout and stores it as pending. Plan terms are copied into the
// stored session so later catalog changes never alter what it grants.
func (s *Service) CreateSession(ctx context.Context, req Request) (*Session, error) {
	req.Plan = strings.TrimSpace(req.Plan)
	req.UserID = strings.TrimSpace(req.UserID)
	req.Email = strings.TrimSpace(req.Email)

	if err := s.validateRequest(req); err != nil {
		s.observe("invalid")
		return nil, err
	}
	plan, _ := s.catalog.Lookup(req.Plan)

	decision, err := s.limiter.Allow(ctx, req.UserID)
	if err != nil {
		s.logger.WarnContext(ctx, "rate limiter unavailable, allowing request", "user_id", req.UserID, "error", err)
	} else if !decision.Allowed {
		s.observe("rate_limited")
		return nil, &RateLimitedError{RetryAfter: decision.RetryAfter}
	}

	now := s.now().UTC()
	checkout, err := s.provider.CreateCheckoutSession(ctx, payments.CheckoutRequest{
		UserID:     req.UserID,
		Plan:       plan,
		Currency:   s.cfg.Currency,
		Email:      req.Email,
		SuccessURL: s.cfg.ClientURL + "/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.cfg.ClientURL + "/cancel",
		ExpiresAt:  now.Add(s.cfg.SessionExpiry),
	})
	if err != nil {
		s.observe("provider_error")
		return nil, fmt.Errorf("failed to open checkout: %w", err)
	}

	session := &models.PaymentSession{
		SessionId: checkout.ID,
		UserId:    req.UserID,
		Plan:      plan.Name,
		Credits:   plan.Credits,
		Amount:    plan.Amount,
		Currency:  s.cfg.Currency,
		Email:     req.Email,
		Status:    models.PENDING,
		CreatedAt: now,
		UpdatedAt: now,
	}
	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	if err := s.store.CreateSession(storeCtx, session); err != nil {
		s.observe("store_error")
		s.logger.ErrorContext(ctx, "checkout opened but pending session not stored", "session_id", checkout.ID, "user_id", req.UserID, "error", err)
		return nil, fmt.Errorf("failed to record pending session %s: %w", checkout.ID, err)
	}

	s.observe("created")
	s.logger.InfoContext(ctx, "checkout session created", "session_id", checkout.ID, "user_id", req.UserID, "plan", plan.Name)
	return &Session{SessionID: checkout.ID, RedirectURL: checkout.URL}, nil
}

func (s *Service) observe(result string) {
	if s.metrics != nil {
		s.metrics.ObserveCheckout(result)
	}
}
