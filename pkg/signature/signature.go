// Package signature authenticates payment provider webhook deliveries.
package signature

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// DefaultTolerance is the maximum accepted age of a signed delivery.
const DefaultTolerance = 300 * time.Second

var (
	ErrSignatureInvalid = errors.New("webhook signature invalid")
	ErrTimestampExpired = errors.New("webhook timestamp outside tolerance")
	ErrMalformedEvent   = errors.New("webhook event malformed")
)

const checkoutSessionEventPrefix = "checkout.session."

// Event is an authenticated webhook event.
type Event struct {
	ID      string
	Type    string
	Created time.Time
	// SessionID and PaymentStatus are set for checkout.session.* events.
	SessionID     string
	PaymentStatus string
}

// Verifier checks provider signatures against a shared secret.
type Verifier struct {
	secret    string
	tolerance time.Duration
}

// NewVerifier returns a Verifier. A non-positive tolerance selects DefaultTolerance.
func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Verifier{secret: secret, tolerance: tolerance}
}

// Verify authenticates payload against the signature header and decodes it.
// payload must be the request body exactly as received.
func (v *Verifier) Verify(payload []byte, header string) (*Event, error) {
	if strings.TrimSpace(header) == "" {
		return nil, fmt.Errorf("missing signature header: %w", ErrSignatureInvalid)
	}

	raw, err := webhook.ConstructEventWithOptions(payload, header, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		switch {
		case errors.Is(err, webhook.ErrTooOld):
			return nil, fmt.Errorf("%w: %v", ErrTimestampExpired, err)
		case errors.Is(err, webhook.ErrNotSigned),
			errors.Is(err, webhook.ErrInvalidHeader),
			errors.Is(err, webhook.ErrNoValidSignature):
			return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
	}

	event := &Event{
		ID:      raw.ID,
		Type:    string(raw.Type),
		Created: time.Unix(raw.Created, 0).UTC(),
	}
	if event.ID == "" || event.Type == "" {
		return nil, fmt.Errorf("event without id or type: %w", ErrMalformedEvent)
	}

	if strings.HasPrefix(event.Type, checkoutSessionEventPrefix) {
		if raw.Data == nil || len(raw.Data.Raw) == 0 {
			return nil, fmt.Errorf("%s event %s has no data: %w", event.Type, event.ID, ErrMalformedEvent)
		}
		var session stripe.CheckoutSession
		if err := json.Unmarshal(raw.Data.Raw, &session); err != nil {
			return nil, fmt.Errorf("failed to decode checkout session of event %s: %w", event.ID, errors.Join(ErrMalformedEvent, err))
		}
		if session.ID == "" {
			return nil, fmt.Errorf("%s event %s has no session id: %w", event.Type, event.ID, ErrMalformedEvent)
		}
		event.SessionID = session.ID
		event.PaymentStatus = string(session.PaymentStatus)
	}

	return event, nil
}
