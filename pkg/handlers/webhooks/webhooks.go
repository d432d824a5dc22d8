package webhooks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/chris/credit-reconciliation/pkg/api"
	"github.com/chris/credit-reconciliation/pkg/handlers/respond"
	"github.com/chris/credit-reconciliation/pkg/models"
	"github.com/chris/credit-reconciliation/pkg/reconciler"
	"github.com/chris/credit-reconciliation/pkg/signature"
)

// MaxBodyBytes caps the webhook payload.
const MaxBodyBytes = 1 << 20

const (
	EventCheckoutCompleted          = "checkout.session.completed"
	EventCheckoutAsyncPaymentOK     = "checkout.session.async_payment_succeeded"
	EventCheckoutAsyncPaymentFailed = "checkout.session.async_payment_failed"
	EventCheckoutExpired            = "checkout.session.expired"
)

// Webhook outcomes reported to Metrics.
const (
	ResultProcessed = "processed"
	ResultIgnored   = "ignored"
	ResultRejected  = "rejected"
	ResultRetry     = "retry"
	ResultError     = "error"
)

// EventVerifier authenticates raw webhook payloads.
type EventVerifier interface {
	Verify(payload []byte, header string) (*signature.Event, error)
}

// SessionReconciler applies webhook events to sessions.
type SessionReconciler interface {
	Reconcile(ctx context.Context, sessionID string) (*reconciler.Result, error)
	MarkSession(ctx context.Context, sessionID string, status models.SessionStatus) (*reconciler.Result, error)
}

type Metrics interface {
	ObserveWebhook(eventType, result string)
}

// WebhooksHandler holds the dependencies for the provider webhook.
type WebhooksHandler struct {
	Verifier   EventVerifier
	Reconciler SessionReconciler
	Metrics    Metrics
	Logger     *slog.Logger
}

// NewWebhooksHandler creates a new WebhooksHandler. metrics may be nil.
func NewWebhooksHandler(verifier EventVerifier, reconciler SessionReconciler, metrics Metrics, logger *slog.Logger) *WebhooksHandler {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhooksHandler{Verifier: verifier, Reconciler: reconciler, Metrics: metrics, Logger: logger}
}

// HandleWebhook authenticates the event and routes it to the reconciler.
// Authentic events are acknowledged even when they cannot be applied, except
// for transient failures which are answered with 500 so the provider retries.
func (h *WebhooksHandler) HandleWebhook(w http.ResponseWriter, r *http.Request, params api.HandleWebhookParams) {
	ctx := r.Context()

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(w, http.StatusRequestEntityTooLarge, respond.CodePayloadTooLarge, "Webhook payload too large")
		} else {
			respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "Failed to read webhook payload")
		}
		h.Metrics.ObserveWebhook("unknown", ResultRejected)
		return
	}

	header := ""
	if params.StripeSignature != nil {
		header = *params.StripeSignature
	}

	event, err := h.Verifier.Verify(payload, header)
	if err != nil {
		h.Logger.WarnContext(ctx, "rejected webhook", "error", err)
		h.Metrics.ObserveWebhook("unknown", ResultRejected)
		switch {
		case errors.Is(err, signature.ErrTimestampExpired):
			respond.Error(w, http.StatusBadRequest, "TIMESTAMP_EXPIRED", err.Error())
		case errors.Is(err, signature.ErrMalformedEvent):
			respond.Error(w, http.StatusBadRequest, "MALFORMED_EVENT", err.Error())
		default:
			respond.Error(w, http.StatusBadRequest, respond.CodeInvalidSig, "Webhook signature verification failed")
		}
		return
	}

	logger := h.Logger.With("event_id", event.ID, "event_type", event.Type, "session_id", event.SessionID)

	switch event.Type {
	case EventCheckoutCompleted, EventCheckoutAsyncPaymentOK:
		_, err = h.Reconciler.Reconcile(ctx, event.SessionID)
	case EventCheckoutExpired:
		_, err = h.Reconciler.MarkSession(ctx, event.SessionID, models.EXPIRED)
	case EventCheckoutAsyncPaymentFailed:
		_, err = h.Reconciler.MarkSession(ctx, event.SessionID, models.FAILED)
	default:
		logger.InfoContext(ctx, "ignoring unhandled webhook event")
		h.Metrics.ObserveWebhook(event.Type, ResultIgnored)
		respond.JSON(w, http.StatusOK, api.WebhookAck{Received: true})
		return
	}

	if err != nil {
		if errors.Is(err, reconciler.ErrUpstreamTransient) {
			logger.WarnContext(ctx, "webhook processing failed transiently", "error", err)
			h.Metrics.ObserveWebhook(event.Type, ResultRetry)
			respond.Error(w, http.StatusInternalServerError, respond.CodeUpstream, "Temporary failure processing webhook")
			return
		}
		logger.ErrorContext(ctx, "webhook event could not be applied", "error", err)
		h.Metrics.ObserveWebhook(event.Type, ResultError)
		respond.JSON(w, http.StatusOK, api.WebhookAck{Received: true})
		return
	}

	logger.InfoContext(ctx, "webhook processed")
	h.Metrics.ObserveWebhook(event.Type, ResultProcessed)
	respond.JSON(w, http.StatusOK, api.WebhookAck{Received: true})
}

type nopMetrics struct{}

func (nopMetrics) ObserveWebhook(string, string) {}
