package signature

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testSecret = "whsec_test_secret"

func sign(payload []byte, secret string, at time.Time) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: at,
	})
	return signed.Header
}

func checkoutEvent(eventType, sessionID, paymentStatus string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_123","object":"event","type":%q,"created":1767225600,"data":{"object":{"id":%q,"object":"checkout.session","payment_status":%q}}}`,
		eventType, sessionID, paymentStatus))
}

func TestVerify(t *testing.T) {
	verifier := NewVerifier(testSecret, 0)

	t.Run("Valid Checkout Event", func(t *testing.T) {
		payload := checkoutEvent("checkout.session.completed", "cs_test_1", "paid")

		event, err := verifier.Verify(payload, sign(payload, testSecret, time.Now()))

		require.NoError(t, err)
		assert.Equal(t, "evt_123", event.ID)
		assert.Equal(t, "checkout.session.completed", event.Type)
		assert.Equal(t, "cs_test_1", event.SessionID)
		assert.Equal(t, "paid", event.PaymentStatus)
	})

	t.Run("Altered Payload", func(t *testing.T) {
		payload := checkoutEvent("checkout.session.completed", "cs_test_1", "paid")
		header := sign(payload, testSecret, time.Now())

		altered := append([]byte{}, payload...)
		altered[len(altered)-5] ^= 0x01

		_, err := verifier.Verify(altered, header)

		assert.ErrorIs(t, err, ErrSignatureInvalid)
	})

	t.Run("Wrong Secret", func(t *testing.T) {
		payload := checkoutEvent("checkout.session.completed", "cs_test_1", "paid")

		_, err := verifier.Verify(payload, sign(payload, "whsec_other", time.Now()))

		assert.ErrorIs(t, err, ErrSignatureInvalid)
	})

	t.Run("Expired Timestamp", func(t *testing.T) {
		payload := checkoutEvent("checkout.session.completed", "cs_test_1", "paid")

		_, err := verifier.Verify(payload, sign(payload, testSecret, time.Now().Add(-10*time.Minute)))

		assert.ErrorIs(t, err, ErrTimestampExpired)
	})

	t.Run("Missing Header", func(t *testing.T) {
		payload := checkoutEvent("checkout.session.completed", "cs_test_1", "paid")

		_, err := verifier.Verify(payload, "")

		assert.ErrorIs(t, err, ErrSignatureInvalid)
	})

	t.Run("Garbage Header", func(t *testing.T) {
		payload := checkoutEvent("checkout.session.completed", "cs_test_1", "paid")

		_, err := verifier.Verify(payload, "not-a-signature")

		assert.ErrorIs(t, err, ErrSignatureInvalid)
	})

	t.Run("Authentic But Not Json", func(t *testing.T) {
		payload := []byte("definitely not json")

		_, err := verifier.Verify(payload, sign(payload, testSecret, time.Now()))

		assert.ErrorIs(t, err, ErrMalformedEvent)
	})

	t.Run("Unrelated Event Type", func(t *testing.T) {
		payload := []byte(`{"id":"evt_456","object":"event","type":"customer.created","created":1767225600,"data":{"object":{"id":"cus_1","object":"customer"}}}`)

		event, err := verifier.Verify(payload, sign(payload, testSecret, time.Now()))

		require.NoError(t, err)
		assert.Equal(t, "customer.created", event.Type)
		assert.Empty(t, event.SessionID)
	})
}
