package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/chris/credit-reconciliation/pkg/models"
	"github.com/chris/credit-reconciliation/pkg/storage"
)

// GetBalance retrieves a user's credit balance from DynamoDB by their user ID.
func (s *Store) GetBalance(ctx context.Context, userID string) (*models.UserBalance, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal balance user ID: %w", err)
	}

	input := &dynamodb.GetItemInput{
		TableName:      aws.String(s.BalancesTableName),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	}

	result, err := s.Client.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance from DynamoDB: %w", err)
	}

	if result.Item == nil {
		return nil, fmt.Errorf("user %s: %w", userID, storage.ErrBalanceNotFound)
	}

	var balance models.UserBalance
	if err := attributevalue.UnmarshalMap(result.Item, &balance); err != nil {
		return nil, fmt.Errorf("failed to unmarshal balance: %w", err)
	}

	return &balance, nil
}
