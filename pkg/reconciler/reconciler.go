// Package reconciler converts confirmed provider payments into credit grants.
// Every trigger (redirect verification, webhook, sweep) goes through
// Reconciler.Reconcile, which grants each session at most once.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/chris/credit-reconciliation/pkg/models"
	"github.com/chris/credit-reconciliation/pkg/payments"
	"github.com/chris/credit-reconciliation/pkg/storage"
)

var (
	ErrMissingSessionID = errors.New("session id is required")
	// ErrUpstreamTransient means the outcome is unknown or the dependency was
	// unavailable. Callers may invoke Reconcile again.
	ErrUpstreamTransient = errors.New("upstream temporarily unavailable")
	// ErrMetadataMismatch means the provider session does not belong to the
	// user recorded at checkout. It is permanent.
	ErrMetadataMismatch = errors.New("provider metadata does not match session")
)

// Result describes what a reconciliation observed or did.
type Result struct {
	SessionID        string
	AlreadyProcessed bool
	Confirmed        bool
	CreditsGranted   int64
	NewBalance       *int64
	PaymentStatus    payments.PaymentStatus
	Status           models.SessionStatus
	Plan             models.PlanName
}

// Grant is handed to the Notifier after a successful commit.
type Grant struct {
	SessionID  string
	UserID     string
	Plan       models.PlanName
	Credits    int64
	NewBalance *int64
}

// Notifier is told about committed grants. Failures are logged and ignored.
type Notifier interface {
	NotifyGrant(ctx context.Context, grant Grant) error
}

// Outcome labels a finished reconciliation for metrics.
type Outcome string

const (
	OutcomeGranted          Outcome = "granted"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeUnpaid           Outcome = "unpaid"
	OutcomeClosed           Outcome = "closed"
	OutcomeError            Outcome = "error"
)

// Metrics receives reconciliation outcomes.
type Metrics interface {
	ObserveReconcile(outcome Outcome, elapsed time.Duration)
	AddCreditsGranted(plan models.PlanName, credits int64)
}

// Config bounds provider and store calls.
type Config struct {
	ProviderTimeout time.Duration
	StoreTimeout    time.Duration
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
}

// DefaultConfig returns the provider call limits used in production.
func DefaultConfig() Config {
	return Config{
		ProviderTimeout: 10 * time.Second,
		StoreTimeout:    5 * time.Second,
		MaxAttempts:     3,
		InitialBackoff:  200 * time.Millisecond,
		MaxBackoff:      2 * time.Second,
	}
}

type Reconciler struct {
	store    storage.ReconcileStore
	provider payments.Provider
	cfg      Config
	notifier Notifier
	metrics  Metrics
	logger   *slog.Logger
	now      func() time.Time
	locks    *keyedLock
}

type Option func(*Reconciler)

func WithNotifier(n Notifier) Option { return func(r *Reconciler) { r.notifier = n } }

func WithMetrics(m Metrics) Option { return func(r *Reconciler) { r.metrics = m } }

func WithLogger(l *slog.Logger) Option { return func(r *Reconciler) { r.logger = l } }

func WithClock(now func() time.Time) Option { return func(r *Reconciler) { r.now = now } }

func New(store storage.ReconcileStore, provider payments.Provider, cfg Config, opts ...Option) *Reconciler {
	def := DefaultConfig()
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = def.ProviderTimeout
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = def.StoreTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}

	r := &Reconciler{
		store:    store,
		provider: provider,
		cfg:      cfg,
		metrics:  nopMetrics{},
		logger:   slog.Default(),
		now:      time.Now,
		locks:    newKeyedLock(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile brings the ledger in line with the provider for one session.
// Concurrent calls for the same session within this process are serialized;
// across processes the store's conditional commit decides the single winner.
func (r *Reconciler) Reconcile(ctx context.Context, sessionID string) (*Result, error) {
	if sessionID == "" {
		return nil, ErrMissingSessionID
	}

	start := time.Now()
	result, err := r.reconcile(ctx, sessionID)
	r.metrics.ObserveReconcile(outcomeOf(result, err), time.Since(start))
	return result, err
}

func (r *Reconciler) reconcile(ctx context.Context, sessionID string) (*Result, error) {
	release, err := r.locks.Lock(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("waiting for session %s: %w", sessionID, errors.Join(ErrUpstreamTransient, err))
	}
	defer release()

	session, err := r.loadSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load session: %w", errors.Join(ErrUpstreamTransient, err))
	}

	result := &Result{SessionID: session.SessionId, Status: session.Status, Plan: session.Plan}

	switch session.Status {
	case models.COMPLETED:
		return r.alreadyProcessed(ctx, result, session), nil
	case models.FAILED, models.EXPIRED:
		return result, nil
	}

	state, err := r.retrieve(ctx, sessionID)
	if err != nil {
		if errors.Is(err, payments.ErrSessionNotFound) {
			// The provider will never know this session, so no trigger can
			// ever complete it. Close it so sweeps stop picking it up.
			r.logger.ErrorContext(ctx, "provider has no such session, marking failed", "session_id", sessionID, "error", err)
			if terr := r.transition(ctx, sessionID, models.FAILED); terr != nil && !errors.Is(terr, storage.ErrSessionNotPending) {
				r.logger.WarnContext(ctx, "failed to mark session failed", "session_id", sessionID, "error", terr)
			}
		}
		return nil, err
	}
	result.PaymentStatus = state.PaymentStatus

	if !state.Paid() {
		if state.Status == payments.CheckoutStatusExpired {
			if err := r.transition(ctx, sessionID, models.EXPIRED); err != nil && !errors.Is(err, storage.ErrSessionNotPending) {
				r.logger.WarnContext(ctx, "failed to mark session expired", "session_id", sessionID, "error", err)
			} else if err == nil {
				result.Status = models.EXPIRED
			}
		}
		r.logger.InfoContext(ctx, "payment not confirmed", "session_id", sessionID, "payment_status", state.PaymentStatus)
		return result, nil
	}

	// Metadata is advisory: a missing owner leaves the ledger record in charge,
	// a different one is refused.
	if owner := state.Metadata[payments.MetadataUserID]; owner != "" && owner != session.UserId {
		r.logger.ErrorContext(ctx, "provider session belongs to a different user",
			"session_id", sessionID, "ledger_user_id", session.UserId, "metadata_user_id", owner)
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrMetadataMismatch)
	}

	commitCtx, cancel := context.WithTimeout(ctx, r.cfg.StoreTimeout)
	err = r.store.CompleteSession(commitCtx, session, r.now())
	cancel()
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrSessionAlreadyCompleted):
		result.Status = models.COMPLETED
		return r.alreadyProcessed(ctx, result, session), nil
	case errors.Is(err, storage.ErrSessionNotPending):
		return r.refreshStatus(ctx, result), nil
	case errors.Is(err, storage.ErrSessionNotFound):
		return nil, err
	default:
		return nil, fmt.Errorf("failed to commit grant for session %s: %w", sessionID, errors.Join(ErrUpstreamTransient, err))
	}

	result.Confirmed = true
	result.CreditsGranted = session.Credits
	result.Status = models.COMPLETED
	result.NewBalance = r.currentBalance(ctx, session.UserId)

	r.logger.InfoContext(ctx, "credits granted",
		"session_id", sessionID, "user_id", session.UserId, "plan", session.Plan, "credits", session.Credits)
	r.metrics.AddCreditsGranted(session.Plan, session.Credits)

	if r.notifier != nil {
		grant := Grant{
			SessionID:  sessionID,
			UserID:     session.UserId,
			Plan:       session.Plan,
			Credits:    session.Credits,
			NewBalance: result.NewBalance,
		}
		notifyCtx, cancel := context.WithTimeout(ctx, r.cfg.StoreTimeout)
		err := r.notifier.NotifyGrant(notifyCtx, grant)
		cancel()
		if err != nil {
			r.logger.WarnContext(ctx, "failed to notify grant", "session_id", sessionID, "error", err)
		}
	}

	return result, nil
}

// MarkSession moves a pending session to failed or expired. A session that
// already left pending is left untouched and reported without error.
func (r *Reconciler) MarkSession(ctx context.Context, sessionID string, status models.SessionStatus) (*Result, error) {
	if sessionID == "" {
		return nil, ErrMissingSessionID
	}
	if status != models.FAILED && status != models.EXPIRED {
		return nil, fmt.Errorf("cannot mark session as %q", status)
	}

	release, err := r.locks.Lock(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("waiting for session %s: %w", sessionID, errors.Join(ErrUpstreamTransient, err))
	}
	defer release()

	err = r.transition(ctx, sessionID, status)
	switch {
	case err == nil:
		r.logger.InfoContext(ctx, "session closed without payment", "session_id", sessionID, "status", status)
		return &Result{SessionID: sessionID, Status: status}, nil
	case errors.Is(err, storage.ErrSessionNotPending):
		return r.refreshStatus(ctx, &Result{SessionID: sessionID}), nil
	case errors.Is(err, storage.ErrSessionNotFound):
		return nil, err
	default:
		return nil, fmt.Errorf("failed to mark session %s as %s: %w", sessionID, status, errors.Join(ErrUpstreamTransient, err))
	}
}

// retrieve calls the provider with a per-attempt timeout, retrying transient failures.
func (r *Reconciler) retrieve(ctx context.Context, sessionID string) (*payments.SessionState, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.cfg.InitialBackoff
	policy.MaxInterval = r.cfg.MaxBackoff
	policy.MaxElapsedTime = 0

	attempts := 0
	operation := func() (*payments.SessionState, error) {
		attempts++
		callCtx, cancel := context.WithTimeout(ctx, r.cfg.ProviderTimeout)
		defer cancel()

		state, err := r.provider.RetrieveSession(callCtx, sessionID)
		if err != nil && !errors.Is(err, payments.ErrTransient) {
			return nil, backoff.Permanent(err)
		}
		return state, err
	}
	notify := func(err error, wait time.Duration) {
		r.logger.WarnContext(ctx, "retrying provider session lookup", "session_id", sessionID, "attempt", attempts, "wait", wait, "error", err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(r.cfg.MaxAttempts-1)), ctx)
	state, err := backoff.RetryNotifyWithData(operation, b, notify)
	if err != nil {
		if errors.Is(err, payments.ErrTransient) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("provider lookup for session %s failed after %d attempts: %w", sessionID, attempts, errors.Join(ErrUpstreamTransient, err))
		}
		return nil, fmt.Errorf("provider lookup for session %s: %w", sessionID, err)
	}
	return state, nil
}

func (r *Reconciler) loadSession(ctx context.Context, sessionID string) (*models.PaymentSession, error) {
	storeCtx, cancel := context.WithTimeout(ctx, r.cfg.StoreTimeout)
	defer cancel()
	return r.store.GetSession(storeCtx, sessionID)
}

func (r *Reconciler) transition(ctx context.Context, sessionID string, to models.SessionStatus) error {
	storeCtx, cancel := context.WithTimeout(ctx, r.cfg.StoreTimeout)
	defer cancel()
	return r.store.TransitionSession(storeCtx, sessionID, to)
}

func (r *Reconciler) alreadyProcessed(ctx context.Context, result *Result, session *models.PaymentSession) *Result {
	result.AlreadyProcessed = true
	result.Confirmed = true
	result.NewBalance = r.currentBalance(ctx, session.UserId)
	return result
}

// refreshStatus reports the stored status after losing a conditional write.
func (r *Reconciler) refreshStatus(ctx context.Context, result *Result) *Result {
	current, err := r.loadSession(ctx, result.SessionID)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to reload session", "session_id", result.SessionID, "error", err)
		return result
	}
	result.Status = current.Status
	result.Plan = current.Plan
	if current.Status == models.COMPLETED {
		return r.alreadyProcessed(ctx, result, current)
	}
	return result
}

// currentBalance is informational; a failed read leaves it unset.
func (r *Reconciler) currentBalance(ctx context.Context, userID string) *int64 {
	storeCtx, cancel := context.WithTimeout(ctx, r.cfg.StoreTimeout)
	defer cancel()
	balance, err := r.store.GetBalance(storeCtx, userID)
	if err != nil {
		if !errors.Is(err, storage.ErrBalanceNotFound) {
			r.logger.WarnContext(ctx, "failed to read balance", "user_id", userID, "error", err)
		}
		return nil
	}
	v := balance.CreditBalance
	return &v
}

func outcomeOf(result *Result, err error) Outcome {
	switch {
	case err != nil:
		return OutcomeError
	case result.AlreadyProcessed:
		return OutcomeAlreadyProcessed
	case result.Confirmed:
		return OutcomeGranted
	case result.Status == models.FAILED || result.Status == models.EXPIRED:
		return OutcomeClosed
	default:
		return OutcomeUnpaid
	}
}

type nopMetrics struct{}

func (nopMetrics) ObserveReconcile(Outcome, time.Duration)  {}
func (nopMetrics) AddCreditsGranted(models.PlanName, int64) {}
