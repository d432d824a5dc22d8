package sessions_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chris/credit-reconciliation/pkg/api"
	"github.com/chris/credit-reconciliation/pkg/checkout"
	"github.com/chris/credit-reconciliation/pkg/handlers/mocks"
	"github.com/chris/credit-reconciliation/pkg/handlers/sessions"
	"github.com/chris/credit-reconciliation/pkg/models"
	"github.com/chris/credit-reconciliation/pkg/payments"
	"github.com/chris/credit-reconciliation/pkg/reconciler"
	"github.com/chris/credit-reconciliation/pkg/storage"
	storagemocks "github.com/chris/credit-reconciliation/pkg/storage/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) api.Error {
	t.Helper()
	var body api.Error
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestCreateSession(t *testing.T) {
	reqBody := api.CreateSessionRequest{Plan: "Basic", UserId: "user_12345"}

	newRequest := func() *http.Request {
		body, _ := json.Marshal(reqBody)
		return httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader(body))
	}

	t.Run("Success", func(t *testing.T) {
		svc := mocks.NewCheckoutService(t)
		svc.On("CreateSession", mock.Anything, checkout.Request{Plan: "Basic", UserID: "user_12345"}).
			Return(&checkout.Session{SessionID: "cs_1", RedirectURL: "https://checkout.stripe.com/c/cs_1"}, nil).Once()

		h := sessions.NewSessionsHandler(svc, nil, nil, nil)
		rr := httptest.NewRecorder()
		h.CreateSession(rr, newRequest())

		assert.Equal(t, http.StatusCreated, rr.Code)
		var resp api.CreateSessionResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "cs_1", resp.SessionId)
		assert.Equal(t, "https://checkout.stripe.com/c/cs_1", resp.RedirectUrl)
	})

	t.Run("Invalid Body", func(t *testing.T) {
		h := sessions.NewSessionsHandler(mocks.NewCheckoutService(t), nil, nil, nil)
		rr := httptest.NewRecorder()
		h.CreateSession(rr, httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader("{")))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Validation Error Carries Code", func(t *testing.T) {
		svc := mocks.NewCheckoutService(t)
		svc.On("CreateSession", mock.Anything, mock.Anything).
			Return(nil, &checkout.ValidationError{Field: "Plan", Message: "Invalid plan selected"}).Once()

		h := sessions.NewSessionsHandler(svc, nil, nil, nil)
		rr := httptest.NewRecorder()
		h.CreateSession(rr, newRequest())

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Invalid plan selected", decodeError(t, rr).Error)
	})

	t.Run("Rate Limited Sets Retry After", func(t *testing.T) {
		svc := mocks.NewCheckoutService(t)
		svc.On("CreateSession", mock.Anything, mock.Anything).
			Return(nil, &checkout.RateLimitedError{RetryAfter: 54500 * time.Millisecond}).Once()

		h := sessions.NewSessionsHandler(svc, nil, nil, nil)
		rr := httptest.NewRecorder()
		h.CreateSession(rr, newRequest())

		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.Equal(t, "55", rr.Header().Get("Retry-After"))
		assert.Equal(t, "RATE_LIMITED", decodeError(t, rr).Code)
	})

	t.Run("Provider Failure", func(t *testing.T) {
		svc := mocks.NewCheckoutService(t)
		svc.On("CreateSession", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("create checkout session: %w", payments.ErrTransient)).Once()

		h := sessions.NewSessionsHandler(svc, nil, nil, nil)
		rr := httptest.NewRecorder()
		h.CreateSession(rr, newRequest())

		assert.Equal(t, http.StatusBadGateway, rr.Code)
	})

	t.Run("Persistence Failure", func(t *testing.T) {
		svc := mocks.NewCheckoutService(t)
		svc.On("CreateSession", mock.Anything, mock.Anything).Return(nil, errors.New("put failed")).Once()

		h := sessions.NewSessionsHandler(svc, nil, nil, nil)
		rr := httptest.NewRecorder()
		h.CreateSession(rr, newRequest())

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestVerifySession(t *testing.T) {
	params := api.VerifySessionParams{SessionId: "cs_1"}
	newRequest := func() *http.Request {
		return httptest.NewRequest(http.MethodGet, "/sessions/verify?sessionId=cs_1", nil)
	}

	t.Run("Granted", func(t *testing.T) {
		balance := int64(100)
		rec := mocks.NewSessionReconciler(t)
		rec.On("Reconcile", mock.Anything, "cs_1").Return(&reconciler.Result{
			SessionID:      "cs_1",
			Confirmed:      true,
			CreditsGranted: 100,
			NewBalance:     &balance,
			PaymentStatus:  payments.PaymentStatusPaid,
			Status:         models.COMPLETED,
			Plan:           models.PlanBasic,
		}, nil).Once()

		h := sessions.NewSessionsHandler(nil, rec, nil, nil)
		rr := httptest.NewRecorder()
		h.VerifySession(rr, newRequest(), params)

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp api.VerifySessionResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp.Confirmed)
		assert.False(t, resp.AlreadyProcessed)
		assert.Equal(t, int64(100), *resp.CreditsGranted)
		assert.Equal(t, int64(100), *resp.NewBalance)
	})

	t.Run("Already Processed", func(t *testing.T) {
		balance := int64(100)
		rec := mocks.NewSessionReconciler(t)
		rec.On("Reconcile", mock.Anything, "cs_1").Return(&reconciler.Result{
			SessionID:        "cs_1",
			AlreadyProcessed: true,
			Confirmed:        true,
			NewBalance:       &balance,
			Status:           models.COMPLETED,
		}, nil).Once()

		h := sessions.NewSessionsHandler(nil, rec, nil, nil)
		rr := httptest.NewRecorder()
		h.VerifySession(rr, newRequest(), params)

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp api.VerifySessionResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.True(t, resp.AlreadyProcessed)
		assert.Nil(t, resp.CreditsGranted)
	})

	t.Run("Unpaid", func(t *testing.T) {
		rec := mocks.NewSessionReconciler(t)
		rec.On("Reconcile", mock.Anything, "cs_1").Return(&reconciler.Result{
			SessionID:     "cs_1",
			PaymentStatus: payments.PaymentStatusUnpaid,
			Status:        models.PENDING,
		}, nil).Once()

		h := sessions.NewSessionsHandler(nil, rec, nil, nil)
		rr := httptest.NewRecorder()
		h.VerifySession(rr, newRequest(), params)

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp api.VerifySessionResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.False(t, resp.Confirmed)
		assert.Equal(t, "unpaid", *resp.PaymentStatus)
	})

	errorCases := []struct {
		name   string
		err    error
		status int
	}{
		{"Not Found", storage.ErrSessionNotFound, http.StatusNotFound},
		{"Metadata Mismatch", reconciler.ErrMetadataMismatch, http.StatusUnprocessableEntity},
		{"Transient", fmt.Errorf("%w: timeout", reconciler.ErrUpstreamTransient), http.StatusServiceUnavailable},
		{"Rejected By Provider", payments.ErrRejected, http.StatusBadGateway},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := mocks.NewSessionReconciler(t)
			rec.On("Reconcile", mock.Anything, "cs_1").Return(nil, tc.err).Once()

			h := sessions.NewSessionsHandler(nil, rec, nil, nil)
			rr := httptest.NewRecorder()
			h.VerifySession(rr, newRequest(), params)

			assert.Equal(t, tc.status, rr.Code)
		})
	}

	t.Run("Missing Session ID", func(t *testing.T) {
		h := sessions.NewSessionsHandler(nil, mocks.NewSessionReconciler(t), nil, nil)
		rr := httptest.NewRecorder()
		h.VerifySession(rr, httptest.NewRequest(http.MethodGet, "/sessions/verify", nil), api.VerifySessionParams{})

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestGetSessionById(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		store := storagemocks.NewStorage(t)
		store.On("GetSession", mock.Anything, "cs_1").Return(&models.PaymentSession{
			SessionId: "cs_1",
			UserId:    "user_12345",
			Plan:      models.PlanBasic,
			Credits:   100,
			Status:    models.PENDING,
		}, nil).Once()

		h := sessions.NewSessionsHandler(nil, nil, store, nil)
		rr := httptest.NewRecorder()
		h.GetSessionById(rr, httptest.NewRequest(http.MethodGet, "/sessions/cs_1", nil), "cs_1")

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp api.PaymentSession
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, api.Pending, resp.Status)
		assert.Equal(t, int64(100), resp.Credits)
	})

	t.Run("Not Found", func(t *testing.T) {
		store := storagemocks.NewStorage(t)
		store.On("GetSession", mock.Anything, "cs_x").Return(nil, storage.ErrSessionNotFound).Once()

		h := sessions.NewSessionsHandler(nil, nil, store, nil)
		rr := httptest.NewRecorder()
		h.GetSessionById(rr, httptest.NewRequest(http.MethodGet, "/sessions/cs_x", nil), "cs_x")

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
