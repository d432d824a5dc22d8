package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/chris/credit-reconciliation/pkg/api"
	"github.com/chris/credit-reconciliation/pkg/checkout"
	"github.com/chris/credit-reconciliation/pkg/handlers/respond"
	"github.com/chris/credit-reconciliation/pkg/mapping"
	"github.com/chris/credit-reconciliation/pkg/payments"
	"github.com/chris/credit-reconciliation/pkg/reconciler"
	"github.com/chris/credit-reconciliation/pkg/storage"
)

// CheckoutService starts provider checkouts.
type CheckoutService interface {
	CreateSession(ctx context.Context, req checkout.Request) (*checkout.Session, error)
}

// SessionReconciler grants credits for a returning checkout.
type SessionReconciler interface {
	Reconcile(ctx context.Context, sessionID string) (*reconciler.Result, error)
}

// SessionsHandler holds the dependencies for session-related handlers.
type SessionsHandler struct {
	Checkout   CheckoutService
	Reconciler SessionReconciler
	Store      storage.SessionReader
	Logger     *slog.Logger
}

// NewSessionsHandler creates a new SessionsHandler.
func NewSessionsHandler(checkout CheckoutService, reconciler SessionReconciler, store storage.SessionReader, logger *slog.Logger) *SessionsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionsHandler{Checkout: checkout, Reconciler: reconciler, Store: store, Logger: logger}
}

// CreateSession validates the request, applies the per-user rate limit and
// returns the provider redirect.
func (h *SessionsHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body api.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	session, err := h.Checkout.CreateSession(r.Context(), mapping.ToDomainCheckoutRequest(&body))
	if err != nil {
		var validationErr *checkout.ValidationError
		var rateErr *checkout.RateLimitedError
		switch {
		case errors.As(err, &validationErr):
			respond.Error(w, http.StatusBadRequest, validationErr.Code(), validationErr.Error())
		case errors.As(err, &rateErr):
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(rateErr.RetryAfter.Seconds()))))
			respond.Error(w, http.StatusTooManyRequests, respond.CodeRateLimited, "Too many payment requests. Please try again later.")
		case errors.Is(err, payments.ErrTransient), errors.Is(err, payments.ErrRejected):
			h.Logger.ErrorContext(r.Context(), "checkout provider failed", "user_id", body.UserId, "error", err)
			respond.Error(w, http.StatusBadGateway, respond.CodeUpstream, "Failed to create payment session")
		default:
			h.Logger.ErrorContext(r.Context(), "failed to create checkout session", "user_id", body.UserId, "error", err)
			respond.Error(w, http.StatusInternalServerError, respond.CodeInternal, "Failed to create payment session")
		}
		return
	}

	respond.JSON(w, http.StatusCreated, mapping.ToApiCreateSessionResponse(session))
}

// VerifySession reconciles the session inline for the returning user.
func (h *SessionsHandler) VerifySession(w http.ResponseWriter, r *http.Request, params api.VerifySessionParams) {
	if params.SessionId == "" {
		respond.Error(w, http.StatusBadRequest, respond.CodeMissingParam, "sessionId is required")
		return
	}

	result, err := h.Reconciler.Reconcile(r.Context(), params.SessionId)
	if err != nil {
		switch {
		case errors.Is(err, reconciler.ErrMissingSessionID):
			respond.Error(w, http.StatusBadRequest, respond.CodeMissingParam, err.Error())
		case errors.Is(err, storage.ErrSessionNotFound):
			respond.Error(w, http.StatusNotFound, respond.CodeNotFound, "Payment session not found")
		case errors.Is(err, reconciler.ErrMetadataMismatch):
			respond.Error(w, http.StatusUnprocessableEntity, respond.CodeMetadata, "Payment session does not belong to this user")
		case errors.Is(err, reconciler.ErrUpstreamTransient):
			h.Logger.WarnContext(r.Context(), "verification failed transiently", "session_id", params.SessionId, "error", err)
			respond.Error(w, http.StatusServiceUnavailable, respond.CodeUpstream, "Payment verification temporarily unavailable")
		default:
			h.Logger.ErrorContext(r.Context(), "verification failed", "session_id", params.SessionId, "error", err)
			respond.Error(w, http.StatusBadGateway, respond.CodeUpstream, "Failed to verify payment")
		}
		return
	}

	respond.JSON(w, http.StatusOK, mapping.ToApiVerifySessionResponse(result))
}

// GetSessionById returns the stored session.
func (h *SessionsHandler) GetSessionById(w http.ResponseWriter, r *http.Request, sessionId string) {
	session, err := h.Store.GetSession(r.Context(), sessionId)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			respond.Error(w, http.StatusNotFound, respond.CodeNotFound, "Payment session not found")
		} else {
			respond.Error(w, http.StatusInternalServerError, respond.CodeInternal, fmt.Sprintf("Failed to retrieve session: %v", err))
		}
		return
	}

	respond.JSON(w, http.StatusOK, mapping.ToApiPaymentSession(session))
}
