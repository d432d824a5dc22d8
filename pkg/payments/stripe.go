package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	stripe "github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
)

// StripeConfig configures the Stripe adapter.
type StripeConfig struct {
	SecretKey         string
	HTTPTimeout       time.Duration
	MaxNetworkRetries int64
	// BackendURL overrides the Stripe API base URL. Empty means production.
	BackendURL string
}

// StripeProvider implements Provider with Stripe Checkout.
type StripeProvider struct {
	sessions checkoutsession.Client
	logger   *slog.Logger
}

// NewStripeProvider builds a provider with its own backend so that the
// process-wide stripe.Key is never touched.
func NewStripeProvider(cfg StripeConfig, logger *slog.Logger) *StripeProvider {
	if logger == nil {
		logger = slog.Default()
	}
	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.HTTPTimeout},
		MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
	}
	if cfg.BackendURL != "" {
		backendCfg.URL = stripe.String(cfg.BackendURL)
	}
	return &StripeProvider{
		sessions: checkoutsession.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
			Key: cfg.SecretKey,
		},
		logger: logger,
	}
}

// CreateCheckoutSession opens a hosted checkout page for a single plan.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(req.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(fmt.Sprintf("%s Plan - %d Credits", req.Plan.Name, req.Plan.Credits)),
						Description: stripe.String(fmt.Sprintf("Get %d credits for background removal", req.Plan.Credits)),
					},
					UnitAmount: stripe.Int64(req.Plan.Amount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		ClientReferenceID: stripe.String(req.UserID),
		ExpiresAt:         stripe.Int64(req.ExpiresAt.Unix()),
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	params.AddMetadata(MetadataUserID, req.UserID)
	params.AddMetadata(MetadataCredits, strconv.FormatInt(req.Plan.Credits, 10))
	params.AddMetadata(MetadataPlan, string(req.Plan.Name))
	params.AddMetadata(MetadataTimestamp, time.Now().UTC().Format(time.RFC3339))
	params.Context = ctx
	// Network retries inside the client reuse this key, so Stripe creates at most one session.
	params.SetIdempotencyKey(uuid.NewString())

	sess, err := p.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create stripe checkout session: %w", classifyError(err))
	}

	p.logger.InfoContext(ctx, "stripe checkout session created", "session_id", sess.ID, "user_id", req.UserID, "plan", req.Plan.Name)
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// RetrieveSession fetches the current state of a checkout session.
func (p *StripeProvider) RetrieveSession(ctx context.Context, sessionID string) (*SessionState, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := p.sessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve stripe checkout session %s: %w", sessionID, classifyError(err))
	}

	return &SessionState{
		ID:            sess.ID,
		Status:        CheckoutStatus(sess.Status),
		PaymentStatus: PaymentStatus(sess.PaymentStatus),
		AmountTotal:   sess.AmountTotal,
		Currency:      string(sess.Currency),
		Metadata:      sess.Metadata,
	}, nil
}

// classifyError maps Stripe client errors onto the package sentinels while
// keeping the original error in the chain.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errors.Join(ErrTransient, err)
	}

	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch {
		case stripeErr.Code == stripe.ErrorCodeResourceMissing || stripeErr.HTTPStatusCode == http.StatusNotFound:
			return errors.Join(ErrSessionNotFound, err)
		case stripeErr.HTTPStatusCode == http.StatusTooManyRequests,
			stripeErr.HTTPStatusCode >= http.StatusInternalServerError,
			stripeErr.Type == stripe.ErrorTypeAPI:
			return errors.Join(ErrTransient, err)
		default:
			return errors.Join(ErrRejected, err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return errors.Join(ErrTransient, err)
	}

	// Anything else never reached Stripe in a well-formed way; retrying is the safe default.
	return errors.Join(ErrTransient, err)
}
