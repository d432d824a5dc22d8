package websockets_test

import (
	"context"
	"testing"

	"github.com/chris/credit-reconciliation/pkg/models"
	"github.com/chris/credit-reconciliation/pkg/reconciler"
	"github.com/chris/credit-reconciliation/pkg/websockets"
	"github.com/chris/credit-reconciliation/pkg/websockets/mocks"
	"github.com/stretchr/testify/assert"
)

func TestGrantNotifier_NotifyGrant(t *testing.T) {
	ctx := context.Background()
	publisher := mocks.NewPublisher(t)
	balance := int64(600)

	publisher.On("PublishToUser", ctx, "user_1", websockets.Message{
		Type: websockets.MessageTypeCreditUpdate,
		Payload: websockets.CreditUpdatePayload{
			UserID:         "user_1",
			SessionID:      "cs_1",
			Plan:           "Advanced",
			CreditsGranted: 500,
			NewBalance:     &balance,
		},
	}).Return(nil).Once()

	err := websockets.NewGrantNotifier(publisher).NotifyGrant(ctx, reconciler.Grant{
		SessionID:  "cs_1",
		UserID:     "user_1",
		Plan:       models.PlanAdvanced,
		Credits:    500,
		NewBalance: &balance,
	})
	assert.NoError(t, err)
}
