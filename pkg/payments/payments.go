// Package payments talks to the payment provider that owns checkout sessions.
package payments

import (
	"context"
	"errors"
	"time"

	"github.com/chris/credit-reconciliation/pkg/models"
)

var (
	// ErrSessionNotFound is returned when the provider has no session with the given id.
	ErrSessionNotFound = errors.New("provider session not found")
	// ErrTransient marks failures that may succeed on retry: timeouts, network
	// errors, rate limiting and provider 5xx responses.
	ErrTransient = errors.New("transient provider error")
	// ErrRejected marks requests the provider refused and that will not succeed on retry.
	ErrRejected = errors.New("provider rejected request")
)

// Metadata keys attached to every checkout session.
const (
	MetadataUserID    = "userId"
	MetadataCredits   = "credits"
	MetadataPlan      = "plan"
	MetadataTimestamp = "timestamp"
)

type PaymentStatus string

const (
	PaymentStatusPaid              PaymentStatus = "paid"
	PaymentStatusUnpaid            PaymentStatus = "unpaid"
	PaymentStatusNoPaymentRequired PaymentStatus = "no_payment_required"
)

type CheckoutStatus string

const (
	CheckoutStatusOpen     CheckoutStatus = "open"
	CheckoutStatusComplete CheckoutStatus = "complete"
	CheckoutStatusExpired  CheckoutStatus = "expired"
)

// CheckoutRequest describes a one-off purchase of a credit pack.
type CheckoutRequest struct {
	UserID     string
	Plan       models.Plan
	Currency   string
	Email      string
	SuccessURL string
	CancelURL  string
	ExpiresAt  time.Time
}

// CheckoutSession is the provider's answer to a checkout request.
type CheckoutSession struct {
	ID  string
	URL string
}

// SessionState is the provider's authoritative view of a checkout session.
type SessionState struct {
	ID            string
	Status        CheckoutStatus
	PaymentStatus PaymentStatus
	AmountTotal   int64
	Currency      string
	Metadata      map[string]string
}

// Paid reports whether the provider confirmed the payment.
func (s *SessionState) Paid() bool {
	return s.PaymentStatus == PaymentStatusPaid
}

// Provider is implemented by payment provider adapters.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	RetrieveSession(ctx context.Context, sessionID string) (*SessionState, error)
}
