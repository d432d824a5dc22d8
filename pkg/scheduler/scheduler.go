package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Scheduler queues sessions for asynchronous reconciliation.
type Scheduler interface {
	// EnqueueReconciliation asks a worker to reconcile the session after delay.
	EnqueueReconciliation(ctx context.Context, sessionID string, delay time.Duration) error
}

// ReconcileMessage is the queue payload.
type ReconcileMessage struct {
	SessionID  string    `json:"session_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// ParseMessage decodes a queue body.
func ParseMessage(body string) (*ReconcileMessage, error) {
	var msg ReconcileMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reconcile message: %w", err)
	}
	if msg.SessionID == "" {
		return nil, fmt.Errorf("reconcile message without session_id")
	}
	return &msg, nil
}
