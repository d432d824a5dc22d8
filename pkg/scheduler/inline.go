package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chris/credit-reconciliation/pkg/reconciler"
)

// InlineScheduler reconciles in the calling goroutine. The single-process
// server uses it where the deployed stack would go through SQS. Delays are
// ignored.
type InlineScheduler struct {
	reconciler SessionReconciler
}

func NewInlineScheduler(r SessionReconciler) *InlineScheduler {
	return &InlineScheduler{reconciler: r}
}

var _ Scheduler = (*InlineScheduler)(nil)

// EnqueueReconciliation only reports transient failures, matching what a
// queue consumer would retry.
func (s *InlineScheduler) EnqueueReconciliation(ctx context.Context, sessionID string, _ time.Duration) error {
	if _, err := s.reconciler.Reconcile(ctx, sessionID); err != nil && errors.Is(err, reconciler.ErrUpstreamTransient) {
		return fmt.Errorf("reconcile %s: %w", sessionID, err)
	}
	return nil
}
