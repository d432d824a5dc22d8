package dynamodb

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/credit-reconciliation/pkg/models"
	"github.com/chris/credit-reconciliation/pkg/storage/dynamodb/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestListLedgerEntries(t *testing.T) {
	entries := []models.LedgerEntry{
		{EntryID: models.GrantEntryID("cs_2"), SessionID: "cs_2", UserID: "user_12345", Credits: 100, GSI1PK: models.LedgerPartition},
		{EntryID: models.GrantEntryID("cs_1"), SessionID: "cs_1", UserID: "user_12345", Credits: 500, GSI1PK: models.LedgerPartition},
	}

	t.Run("Success", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, "sessions", "balances", "ledger", "connections")

		var items []map[string]types.AttributeValue
		for _, e := range entries {
			av, err := attributevalue.MarshalMap(e)
			require.NoError(t, err)
			items = append(items, av)
		}
		mockClient.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
			return *in.IndexName == ledgerGSI && !*in.ScanIndexForward && *in.Limit == 2
		})).Return(&dynamodb.QueryOutput{Items: items}, nil).Once()

		got, err := store.ListLedgerEntries(context.Background(), 2)

		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "grant#cs_2", got[0].EntryID)
		assert.Equal(t, int64(500), got[1].Credits)
		mockClient.AssertExpectations(t)
	})

	t.Run("Storage Error", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, "sessions", "balances", "ledger", "connections")

		mockClient.On("Query", mock.Anything, mock.Anything).Return(nil, errors.New("query failed")).Once()

		_, err := store.ListLedgerEntries(context.Background(), 10)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to query for ledger entries")
		mockClient.AssertExpectations(t)
	})
}
