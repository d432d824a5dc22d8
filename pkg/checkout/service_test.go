package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chris/credit-reconciliation/pkg/models"
	"github.com/chris/credit-reconciliation/pkg/payments"
	paymentmocks "github.com/chris/credit-reconciliation/pkg/payments/mocks"
	"github.com/chris/credit-reconciliation/pkg/ratelimit"
	"github.com/chris/credit-reconciliation/pkg/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (ratelimit.Decision, error) {
	return ratelimit.Decision{}, errors.New("redis: connection refused")
}

type countingProvider struct {
	mu sync.Mutex
	n  int
}

func (p *countingProvider) CreateCheckoutSession(_ context.Context, req payments.CheckoutRequest) (*payments.CheckoutSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n++
	id := "cs_test_" + req.UserID + "_" + string(rune('a'+p.n))
	return &payments.CheckoutSession{ID: id, URL: "https://checkout.stripe.com/c/pay/" + id}, nil
}

func (p *countingProvider) RetrieveSession(context.Context, string) (*payments.SessionState, error) {
	return nil, payments.ErrSessionNotFound
}

// stallingWriter blocks until the caller's deadline passes.
type stallingWriter struct{}

func (stallingWriter) CreateSession(ctx context.Context, _ *models.PaymentSession) error {
	<-ctx.Done()
	return ctx.Err()
}

func newService(t *testing.T, limiter ratelimit.Limiter, provider payments.Provider, store *memory.Store) *Service {
	t.Helper()
	return NewService(models.DefaultCatalog(), limiter, provider, store, Config{ClientURL: "http://localhost:5173/"})
}

func TestCreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		store := memory.New()
		limiter := ratelimit.NewMemoryLimiter(ratelimit.Config{}, time.Hour)
		defer limiter.Stop()
		provider := paymentmocks.NewProvider(t)
		provider.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(req payments.CheckoutRequest) bool {
			return req.UserID == "user_12345" &&
				req.Plan.Credits == 500 &&
				req.Currency == "inr" &&
				req.SuccessURL == "http://localhost:5173/success?session_id={CHECKOUT_SESSION_ID}" &&
				req.CancelURL == "http://localhost:5173/cancel"
		})).Return(&payments.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil).Once()

		svc := newService(t, limiter, provider, store)
		session, err := svc.CreateSession(ctx, Request{Plan: "Advanced", UserID: "user_12345", Email: "buyer@example.com"})

		require.NoError(t, err)
		assert.Equal(t, "cs_test_1", session.SessionID)
		assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", session.RedirectURL)

		stored, err := store.GetSession(ctx, "cs_test_1")
		require.NoError(t, err)
		assert.Equal(t, models.PENDING, stored.Status)
		assert.Equal(t, int64(500), stored.Credits)
		assert.Equal(t, int64(79900), stored.Amount)
		assert.Equal(t, "buyer@example.com", stored.Email)
		assert.Nil(t, stored.ProcessedAt)
	})

	t.Run("Validation", func(t *testing.T) {
		tests := []struct {
			name string
			req  Request
			want error
			code string
		}{
			{"Missing Plan", Request{UserID: "user_12345"}, ErrInvalidPlan, "INVALID_PLAN"},
			{"Unknown Plan", Request{Plan: "Enterprise", UserID: "user_12345"}, ErrInvalidPlan, "INVALID_PLAN"},
			{"Missing User", Request{Plan: "Basic"}, ErrMissingUserID, "MISSING_USER_ID"},
			{"Short User", Request{Plan: "Basic", UserID: "usr"}, ErrInvalidUserID, "INVALID_USER_ID"},
			{"User With Spaces", Request{Plan: "Basic", UserID: "user 12345"}, ErrInvalidUserID, "INVALID_USER_ID"},
			{"Bad Email", Request{Plan: "Basic", UserID: "user_12345", Email: "not-an-email"}, ErrInvalidEmail, "INVALID_EMAIL"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				provider := paymentmocks.NewProvider(t)
				limiter := ratelimit.NewMemoryLimiter(ratelimit.Config{}, time.Hour)
				defer limiter.Stop()
				svc := newService(t, limiter, provider, memory.New())

				_, err := svc.CreateSession(ctx, tt.req)

				assert.ErrorIs(t, err, ErrValidation)
				assert.ErrorIs(t, err, tt.want)
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.code, verr.Code())
				provider.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("Sixth Attempt In Window Is Rate Limited", func(t *testing.T) {
		clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
		limiter := ratelimit.NewMemoryLimiter(ratelimit.Config{MaxAttempts: 5, Window: time.Minute}, time.Hour, ratelimit.WithClock(clock.Now))
		defer limiter.Stop()
		provider := &countingProvider{}
		svc := newService(t, limiter, provider, memory.New())

		for i := 0; i < 5; i++ {
			_, err := svc.CreateSession(ctx, Request{Plan: "Basic", UserID: "user_12345"})
			require.NoError(t, err, "attempt %d", i+1)
		}

		_, err := svc.CreateSession(ctx, Request{Plan: "Basic", UserID: "user_12345"})
		assert.ErrorIs(t, err, ErrRateLimited)
		var rl *RateLimitedError
		require.ErrorAs(t, err, &rl)
		assert.Equal(t, time.Minute, rl.RetryAfter)
		assert.Equal(t, 5, provider.n)

		// Other users are unaffected.
		_, err = svc.CreateSession(ctx, Request{Plan: "Basic", UserID: "user_67890"})
		assert.NoError(t, err)

		clock.Advance(time.Minute + time.Second)
		_, err = svc.CreateSession(ctx, Request{Plan: "Basic", UserID: "user_12345"})
		assert.NoError(t, err)
	})

	t.Run("Limiter Failure Fails Open", func(t *testing.T) {
		provider := paymentmocks.NewProvider(t)
		provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).
			Return(&payments.CheckoutSession{ID: "cs_open", URL: "https://checkout.stripe.com/c/pay/cs_open"}, nil).Once()
		svc := newService(t, failingLimiter{}, provider, memory.New())

		session, err := svc.CreateSession(ctx, Request{Plan: "Basic", UserID: "user_12345"})

		require.NoError(t, err)
		assert.Equal(t, "cs_open", session.SessionID)
	})

	t.Run("Provider Failure", func(t *testing.T) {
		store := memory.New()
		limiter := ratelimit.NewMemoryLimiter(ratelimit.Config{}, time.Hour)
		defer limiter.Stop()
		provider := paymentmocks.NewProvider(t)
		provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).Return(nil, payments.ErrTransient).Once()
		svc := newService(t, limiter, provider, store)

		_, err := svc.CreateSession(ctx, Request{Plan: "Basic", UserID: "user_12345"})

		assert.ErrorIs(t, err, payments.ErrTransient)
		pending, err := store.ListPendingSessions(ctx, -time.Hour)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("Stalled Store Write Is Bounded", func(t *testing.T) {
		limiter := ratelimit.NewMemoryLimiter(ratelimit.Config{}, time.Hour)
		defer limiter.Stop()
		svc := NewService(models.DefaultCatalog(), limiter, &countingProvider{}, stallingWriter{},
			Config{ClientURL: "http://localhost:5173", StoreTimeout: 20 * time.Millisecond})

		start := time.Now()
		_, err := svc.CreateSession(ctx, Request{Plan: "Basic", UserID: "user_12345"})

		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("Stored Terms Survive Catalog Change", func(t *testing.T) {
		store := memory.New()
		limiter := ratelimit.NewMemoryLimiter(ratelimit.Config{}, time.Hour)
		defer limiter.Stop()
		catalog := models.DefaultCatalog()
		provider := paymentmocks.NewProvider(t)
		provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).
			Return(&payments.CheckoutSession{ID: "cs_terms", URL: "https://checkout.stripe.com/c/pay/cs_terms"}, nil).Once()
		svc := NewService(catalog, limiter, provider, store, Config{ClientURL: "http://localhost:5173"})

		_, err := svc.CreateSession(ctx, Request{Plan: "Basic", UserID: "user_12345"})
		require.NoError(t, err)

		catalog[models.PlanBasic] = models.Plan{Name: models.PlanBasic, Amount: 1, Credits: 1}

		stored, err := store.GetSession(ctx, "cs_terms")
		require.NoError(t, err)
		assert.Equal(t, int64(100), stored.Credits)
		assert.Equal(t, int64(29900), stored.Amount)
	})
}
