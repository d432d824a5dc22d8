package dynamodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/credit-reconciliation/pkg/models"
	"github.com/chris/credit-reconciliation/pkg/storage"
	"github.com/chris/credit-reconciliation/pkg/storage/dynamodb/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newPendingSession(id string) *models.PaymentSession {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &models.PaymentSession{
		SessionId: id,
		UserId:    "user_12345",
		Plan:      models.PlanAdvanced,
		Credits:   500,
		Amount:    79900,
		Currency:  "inr",
		Status:    models.PENDING,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateSession(t *testing.T) {
	session := newPendingSession("cs_test_create")

	t.Run("Success", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, "sessions", "balances", "ledger", "connections")

		mockClient.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
			return *in.TableName == "sessions" && *in.ConditionExpression == "attribute_not_exists(session_id)"
		})).Return(&dynamodb.PutItemOutput{}, nil).Once()

		err := store.CreateSession(context.Background(), session)

		assert.NoError(t, err)
		mockClient.AssertExpectations(t)
	})

	t.Run("Session Already Exists", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, "sessions", "balances", "ledger", "connections")

		mockClient.On("PutItem", mock.Anything, mock.Anything).Return(nil, &types.ConditionalCheckFailedException{}).Once()

		err := store.CreateSession(context.Background(), session)

		assert.ErrorIs(t, err, storage.ErrSessionExists)
		mockClient.AssertExpectations(t)
	})

	t.Run("Storage Error", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, "sessions", "balances", "ledger", "connections")

		mockClient.On("PutItem", mock.Anything, mock.Anything).Return(nil, errors.New("put failed")).Once()

		err := store.CreateSession(context.Background(), session)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create payment session in DynamoDB")
		mockClient.AssertExpectations(t)
	})
}

func TestGetSession(t *testing.T) {
	session := newPendingSession("cs_test_get")

	t.Run("Found", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, "sessions", "balances", "ledger", "connections")

		item, err := attributevalue.MarshalMap(session)
		require.NoError(t, err)
		mockClient.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
			return *in.ConsistentRead
		})).Return(&dynamodb.GetItemOutput{Item: item}, nil).Once()

		got, err := store.GetSession(context.Background(), session.SessionId)

		require.NoError(t, err)
		assert.Equal(t, session.SessionId, got.SessionId)
		assert.Equal(t, int64(500), got.Credits)
		assert.Equal(t, models.PENDING, got.Status)
		assert.Nil(t, got.ProcessedAt)
		mockClient.AssertExpectations(t)
	})

	t.Run("Not Found", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, "sessions", "balances", "ledger", "connections")

		mockClient.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil).Once()

		got, err := store.GetSession(context.Background(), "cs_missing")

		assert.Nil(t, got)
		assert.ErrorIs(t, err, storage.ErrSessionNotFound)
		mockClient.AssertExpectations(t)
	})

	t.Run("Storage Error", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, "sessions", "balances", "ledger", "connections")

		mockClient.On("GetItem", mock.Anything, mock.Anything).Return(nil, errors.New("get failed")).Once()

		_, err := store.GetSession(context.Background(), session.SessionId)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get payment session from DynamoDB")
		mockClient.AssertExpectations(t)
	})
}

func TestListPendingSessions(t *testing.T) {
	first := newPendingSession("cs_page_1")
	second := newPendingSession("cs_page_2")

	t.Run("Follows Pagination", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, "sessions", "balances", "ledger", "connections")

		firstAV, err := attributevalue.MarshalMap(first)
		require.NoError(t, err)
		secondAV, err := attributevalue.MarshalMap(second)
		require.NoError(t, err)
		lastKey := map[string]types.AttributeValue{"session_id": &types.AttributeValueMemberS{Value: first.SessionId}}

		mockClient.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
			return in.ExclusiveStartKey == nil && *in.IndexName == pendingSessionsGSI
		})).Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{firstAV}, LastEvaluatedKey: lastKey}, nil).Once()
		mockClient.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
			return in.ExclusiveStartKey != nil
		})).Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{secondAV}}, nil).Once()

		sessions, err := store.ListPendingSessions(context.Background(), 10*time.Minute)

		require.NoError(t, err)
		require.Len(t, sessions, 2)
		assert.Equal(t, "cs_page_1", sessions[0].SessionId)
		assert.Equal(t, "cs_page_2", sessions[1].SessionId)
		mockClient.AssertExpectations(t)
	})

	t.Run("Storage Error", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, "sessions", "balances", "ledger", "connections")

		mockClient.On("Query", mock.Anything, mock.Anything).Return(nil, errors.New("query failed")).Once()

		_, err := store.ListPendingSessions(context.Background(), 10*time.Minute)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to query for pending sessions")
		mockClient.AssertExpectations(t)
	})
}
