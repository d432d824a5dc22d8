package mapping

import (
	"testing"
	"time"

	"github.com/chris/credit-reconciliation/pkg/api"
	"github.com/chris/credit-reconciliation/pkg/models"
	"github.com/chris/credit-reconciliation/pkg/payments"
	"github.com/chris/credit-reconciliation/pkg/reconciler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToApiVerifySessionResponse(t *testing.T) {
	t.Run("Granted", func(t *testing.T) {
		balance := int64(600)
		out := ToApiVerifySessionResponse(&reconciler.Result{
			SessionID:      "cs_1",
			Confirmed:      true,
			CreditsGranted: 500,
			NewBalance:     &balance,
			PaymentStatus:  payments.PaymentStatusPaid,
			Status:         models.COMPLETED,
			Plan:           models.PlanAdvanced,
		})

		require.NotNil(t, out.CreditsGranted)
		assert.Equal(t, int64(500), *out.CreditsGranted)
		assert.Equal(t, int64(600), *out.NewBalance)
		assert.Equal(t, "paid", *out.PaymentStatus)
		assert.Equal(t, "Advanced", *out.Plan)
		assert.Equal(t, api.Completed, out.Status)
	})

	t.Run("Not Confirmed Omits Optional Fields", func(t *testing.T) {
		out := ToApiVerifySessionResponse(&reconciler.Result{SessionID: "cs_1", Status: models.PENDING})

		assert.False(t, out.Confirmed)
		assert.Nil(t, out.CreditsGranted)
		assert.Nil(t, out.NewBalance)
		assert.Nil(t, out.PaymentStatus)
		assert.Nil(t, out.Plan)
		assert.Equal(t, api.Pending, out.Status)
	})
}

func TestToApiPaymentSession(t *testing.T) {
	now := time.Now().UTC()
	out := ToApiPaymentSession(&models.PaymentSession{
		SessionId: "cs_1",
		UserId:    "user_1",
		Plan:      models.PlanBasic,
		Credits:   100,
		Amount:    29900,
		Currency:  "inr",
		Status:    models.PENDING,
		CreatedAt: now,
		UpdatedAt: now,
	})

	assert.Equal(t, "Basic", out.Plan)
	assert.Nil(t, out.Email)
	assert.Nil(t, out.ProcessedAt)
	assert.Equal(t, api.Pending, out.Status)
}

func TestToDomainCheckoutRequest(t *testing.T) {
	email := "a@example.com"
	req := ToDomainCheckoutRequest(&api.CreateSessionRequest{Plan: "Basic", UserId: "user_1", Email: &email})
	assert.Equal(t, "a@example.com", req.Email)

	req = ToDomainCheckoutRequest(&api.CreateSessionRequest{Plan: "Basic", UserId: "user_1"})
	assert.Empty(t, req.Email)
}
