package scheduler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/chris/credit-reconciliation/pkg/reconciler"
	"github.com/chris/credit-reconciliation/pkg/storage"
)

// SessionReconciler is satisfied by *reconciler.Reconciler.
type SessionReconciler interface {
	Reconcile(ctx context.Context, sessionID string) (*reconciler.Result, error)
}

// Worker consumes reconcile messages.
type Worker struct {
	reconciler SessionReconciler
	logger     *slog.Logger
}

func NewWorker(r SessionReconciler, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{reconciler: r, logger: logger}
}

// HandleSQSEvent reconciles every record and reports only the transient
// failures back to SQS, so poison messages are not redelivered forever.
func (w *Worker) HandleSQSEvent(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, record := range event.Records {
		if retry := w.handle(ctx, record); retry {
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return resp, nil
}

func (w *Worker) handle(ctx context.Context, record events.SQSMessage) (retry bool) {
	msg, err := ParseMessage(record.Body)
	if err != nil {
		w.logger.ErrorContext(ctx, "dropping malformed reconcile message", "message_id", record.MessageId, "error", err)
		return false
	}

	result, err := w.reconciler.Reconcile(ctx, msg.SessionID)
	switch {
	case err == nil:
		w.logger.InfoContext(ctx, "session reconciled",
			"session_id", msg.SessionID, "confirmed", result.Confirmed, "already_processed", result.AlreadyProcessed, "status", result.Status)
		return false
	case errors.Is(err, reconciler.ErrUpstreamTransient):
		w.logger.WarnContext(ctx, "reconcile failed transiently, will retry", "session_id", msg.SessionID, "error", err)
		return true
	case errors.Is(err, storage.ErrSessionNotFound), errors.Is(err, reconciler.ErrMetadataMismatch):
		w.logger.ErrorContext(ctx, "dropping unreconcilable session", "session_id", msg.SessionID, "error", err)
		return false
	default:
		w.logger.ErrorContext(ctx, "reconcile failed", "session_id", msg.SessionID, "error", err)
		return false
	}
}
