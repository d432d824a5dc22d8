package storage

import (
	"context"
	"time"

	"github.com/chris/credit-reconciliation/pkg/models"
)

// SessionReader defines the interface for reading payment sessions.
type SessionReader interface {
	// GetSession retrieves a payment session by its provider-issued ID.
	GetSession(ctx context.Context, sessionID string) (*models.PaymentSession, error)

	// ListPendingSessions retrieves sessions still pending after maxAge.
	ListPendingSessions(ctx context.Context, maxAge time.Duration) ([]models.PaymentSession, error)
}

// SessionWriter defines the interface for recording new checkout sessions.
type SessionWriter interface {
	// CreateSession records a new session in the pending state.
	CreateSession(ctx context.Context, session *models.PaymentSession) error
}

// SessionStore combines the reader and writer interfaces.
type SessionStore interface {
	SessionReader
	SessionWriter
}
