package websockets

import (
	"context"

	"github.com/chris/credit-reconciliation/pkg/reconciler"
)

// GrantNotifier turns committed grants into creditUpdate pushes.
type GrantNotifier struct {
	publisher Publisher
}

func NewGrantNotifier(publisher Publisher) *GrantNotifier {
	return &GrantNotifier{publisher: publisher}
}

var _ reconciler.Notifier = (*GrantNotifier)(nil)

func (n *GrantNotifier) NotifyGrant(ctx context.Context, grant reconciler.Grant) error {
	return n.publisher.PublishToUser(ctx, grant.UserID, Message{
		Type: MessageTypeCreditUpdate,
		Payload: CreditUpdatePayload{
			UserID:         grant.UserID,
			SessionID:      grant.SessionID,
			Plan:           string(grant.Plan),
			CreditsGranted: grant.Credits,
			NewBalance:     grant.NewBalance,
		},
	})
}
