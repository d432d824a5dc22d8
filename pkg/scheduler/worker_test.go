package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/chris/credit-reconciliation/pkg/models"
	"github.com/chris/credit-reconciliation/pkg/payments"
	"github.com/chris/credit-reconciliation/pkg/reconciler"
	"github.com/chris/credit-reconciliation/pkg/scheduler/mocks"
	"github.com/chris/credit-reconciliation/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func record(id, sessionID string) events.SQSMessage {
	return events.SQSMessage{MessageId: id, Body: fmt.Sprintf(`{"session_id":%q}`, sessionID)}
}

func TestWorker_HandleSQSEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("Reports Only Transient Failures", func(t *testing.T) {
		r := mocks.NewSessionReconciler(t)
		r.On("Reconcile", mock.Anything, "cs_ok").
			Return(&reconciler.Result{SessionID: "cs_ok", Confirmed: true, Status: models.COMPLETED}, nil).Once()
		r.On("Reconcile", mock.Anything, "cs_flaky").
			Return(nil, fmt.Errorf("%w: %w", reconciler.ErrUpstreamTransient, payments.ErrTransient)).Once()
		r.On("Reconcile", mock.Anything, "cs_gone").Return(nil, storage.ErrSessionNotFound).Once()
		r.On("Reconcile", mock.Anything, "cs_mismatch").Return(nil, reconciler.ErrMetadataMismatch).Once()

		event := events.SQSEvent{Records: []events.SQSMessage{
			record("1", "cs_ok"),
			record("2", "cs_flaky"),
			record("3", "cs_gone"),
			record("4", "cs_mismatch"),
			{MessageId: "5", Body: "garbage"},
		}}

		resp, err := NewWorker(r, nil).HandleSQSEvent(ctx, event)
		require.NoError(t, err)
		require.Len(t, resp.BatchItemFailures, 1)
		assert.Equal(t, "2", resp.BatchItemFailures[0].ItemIdentifier)
	})

	t.Run("Permanent Error Is Dropped", func(t *testing.T) {
		r := mocks.NewSessionReconciler(t)
		r.On("Reconcile", mock.Anything, "cs_1").Return(nil, errors.New("unexpected")).Once()

		resp, err := NewWorker(r, nil).HandleSQSEvent(ctx, events.SQSEvent{Records: []events.SQSMessage{record("1", "cs_1")}})
		require.NoError(t, err)
		assert.Empty(t, resp.BatchItemFailures)
	})
}
