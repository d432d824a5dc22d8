package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	connectionsByUserGSI = "user_id-index"

	// API Gateway drops websocket connections after two hours. The table TTL
	// cleans up rows whose $disconnect never arrived.
	connectionTTL = 2 * time.Hour
)

// connectionRecord is a row of the connections table. expires_at is the
// table's TTL attribute and must be epoch seconds.
type connectionRecord struct {
	ConnectionID string    `dynamodbav:"connection_id"`
	UserID       string    `dynamodbav:"user_id"`
	ConnectedAt  time.Time `dynamodbav:"connected_at"`
	ExpiresAt    int64     `dynamodbav:"expires_at"`
}

// AddConnection records that connectionID receives credit updates for userID.
func (s *Store) AddConnection(ctx context.Context, connectionID, userID string) error {
	now := time.Now().UTC()
	item, err := attributevalue.MarshalMap(connectionRecord{
		ConnectionID: connectionID,
		UserID:       userID,
		ConnectedAt:  now,
		ExpiresAt:    now.Add(connectionTTL).Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal connection %s: %w", connectionID, err)
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.WebsocketConnectionsTableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to store connection %s: %w", connectionID, err)
	}
	return nil
}

// RemoveConnection forgets a connection. Removing an unknown id is not an error.
func (s *Store) RemoveConnection(ctx context.Context, connectionID string) error {
	_, err := s.Client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.WebsocketConnectionsTableName),
		Key: map[string]types.AttributeValue{
			"connection_id": &types.AttributeValueMemberS{Value: connectionID},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete connection %s: %w", connectionID, err)
	}
	return nil
}

// GetConnections returns the ids of every live connection of a user.
// Rows past their TTL may linger until DynamoDB sweeps them, so they are
// filtered out here.
func (s *Store) GetConnections(ctx context.Context, userID string) ([]string, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.WebsocketConnectionsTableName),
		IndexName:              aws.String(connectionsByUserGSI),
		KeyConditionExpression: aws.String("user_id = :user_id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":user_id": &types.AttributeValueMemberS{Value: userID},
		},
	}

	now := time.Now().Unix()
	var ids []string
	for {
		result, err := s.Client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query connections of user %s: %w", userID, err)
		}

		var batch []connectionRecord
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &batch); err != nil {
			return nil, fmt.Errorf("failed to unmarshal connections: %w", err)
		}
		for _, rec := range batch {
			if rec.ExpiresAt != 0 && rec.ExpiresAt <= now {
				continue
			}
			ids = append(ids, rec.ConnectionID)
		}

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	return ids, nil
}
