package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/credit-reconciliation/pkg/models"
	"github.com/chris/credit-reconciliation/pkg/storage"
)

const pendingSessionsGSI = "status-created_at-index"

// CreateSession records a new pending payment session.
func (s *Store) CreateSession(ctx context.Context, session *models.PaymentSession) error {
	slog.Log(ctx, slog.LevelDebug, "creating payment session", "session_id", session.SessionId, "user_id", session.UserId)

	item, err := attributevalue.MarshalMap(session)
	if err != nil {
		return fmt.Errorf("failed to marshal payment session: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(s.SessionsTableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(session_id)"), // Never overwrite an existing session.
	}

	_, err = s.Client.PutItem(ctx, input)
	if err != nil {
		var condCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailed) {
			return storage.ErrSessionExists
		}
		return fmt.Errorf("failed to create payment session in DynamoDB: %w", err)
	}

	return nil
}

// GetSession retrieves a payment session from DynamoDB by its ID.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*models.PaymentSession, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"session_id": sessionID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session ID: %w", err)
	}

	input := &dynamodb.GetItemInput{
		TableName:      aws.String(s.SessionsTableName),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	}

	result, err := s.Client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment session from DynamoDB: %w", err)
	}

	if result.Item == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, storage.ErrSessionNotFound)
	}

	var session models.PaymentSession
	if err := attributevalue.UnmarshalMap(result.Item, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment session: %w", err)
	}

	return &session, nil
}

// ListPendingSessions retrieves sessions that have been pending for longer than maxAge.
func (s *Store) ListPendingSessions(ctx context.Context, maxAge time.Duration) ([]models.PaymentSession, error) {
	cutoffAV, err := attributevalue.Marshal(time.Now().UTC().Add(-maxAge))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cutoff time: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.SessionsTableName),
		IndexName:              aws.String(pendingSessionsGSI),
		KeyConditionExpression: aws.String("#status = :status AND created_at < :cutoff"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(models.PENDING)},
			":cutoff": cutoffAV,
		},
	}

	var sessions []models.PaymentSession
	for {
		result, err := s.Client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query for pending sessions: %w", err)
		}

		var batch []models.PaymentSession
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pending sessions: %w", err)
		}
		sessions = append(sessions, batch...)

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return sessions, nil
}
