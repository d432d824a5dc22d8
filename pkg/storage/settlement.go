package storage

import (
	"context"
	"time"

	"github.com/chris/credit-reconciliation/pkg/models"
)

// GrantStore defines the privileged interface for the state transitions of a
// payment session. It should only be exposed to the reconciler.
type GrantStore interface {
	// CompleteSession atomically moves the session from pending to completed,
	// adds its credits to the user's balance (creating the balance if needed)
	// and appends the grant ledger entry. It returns ErrSessionAlreadyCompleted
	// when another caller completed the session first and ErrSessionNotPending
	// when the session is failed or expired.
	CompleteSession(ctx context.Context, session *models.PaymentSession, processedAt time.Time) error

	// TransitionSession moves a pending session to a terminal non-completed
	// status. Only pending sessions can transition.
	TransitionSession(ctx context.Context, sessionID string, to models.SessionStatus) error
}

// ReconcileStore is everything the reconciler needs from the ledger store.
type ReconcileStore interface {
	SessionReader
	GrantStore
	BalanceReader
}
