package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/credit-reconciliation/pkg/models"
	"github.com/chris/credit-reconciliation/pkg/storage"
)

// Positions of the items inside the completion transaction. Cancellation
// reasons are reported in the same order.
const (
	completeSessionOp = iota
	grantBalanceOp
	appendLedgerOp
)

// CompleteSession commits a grant as a single DynamoDB transaction:
//  1. the session moves from pending to completed (compare-and-set on status),
//  2. the user's balance is incremented, creating the item if it does not exist,
//  3. the grant ledger entry is put with attribute_not_exists(entry_id).
//
// Either all three writes apply or none does.
func (s *Store) CompleteSession(ctx context.Context, session *models.PaymentSession, processedAt time.Time) error {
	processedAt = processedAt.UTC()

	entry := models.LedgerEntry{
		EntryID:     models.GrantEntryID(session.SessionId),
		SessionID:   session.SessionId,
		UserID:      session.UserId,
		Plan:        session.Plan,
		Credits:     session.Credits,
		Description: fmt.Sprintf("%s plan purchase, session %s", session.Plan, session.SessionId),
		Timestamp:   processedAt,
		GSI1PK:      models.LedgerPartition,
	}
	entryAV, err := attributevalue.MarshalMap(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger entry: %w", err)
	}

	nowAV, err := attributevalue.Marshal(processedAt)
	if err != nil {
		return fmt.Errorf("failed to marshal processed timestamp: %w", err)
	}
	creditsAV, err := attributevalue.Marshal(session.Credits)
	if err != nil {
		return fmt.Errorf("failed to marshal credits: %w", err)
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			completeSessionOp: {
				Update: &types.Update{
					TableName:           aws.String(s.SessionsTableName),
					Key:                 map[string]types.AttributeValue{"session_id": &types.AttributeValueMemberS{Value: session.SessionId}},
					UpdateExpression:    aws.String("SET #status = :completed, processed_at = :now, updated_at = :now"),
					ConditionExpression: aws.String("#status = :pending"),
					ExpressionAttributeNames: map[string]string{
						"#status": "status",
					},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":completed": &types.AttributeValueMemberS{Value: string(models.COMPLETED)},
						":pending":   &types.AttributeValueMemberS{Value: string(models.PENDING)},
						":now":       nowAV,
					},
					ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
				},
			},
			grantBalanceOp: {
				// ADD creates the item and the attributes when they do not exist yet.
				Update: &types.Update{
					TableName:        aws.String(s.BalancesTableName),
					Key:              map[string]types.AttributeValue{"user_id": &types.AttributeValueMemberS{Value: session.UserId}},
					UpdateExpression: aws.String("ADD credit_balance :credits, version :inc SET updated_at = :now, created_at = if_not_exists(created_at, :now)"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":credits": creditsAV,
						":inc":     &types.AttributeValueMemberN{Value: "1"},
						":now":     nowAV,
					},
				},
			},
			appendLedgerOp: {
				Put: &types.Put{
					TableName:           aws.String(s.LedgerTableName),
					Item:                entryAV,
					ConditionExpression: aws.String("attribute_not_exists(entry_id)"),
				},
			},
		},
	}

	_, err = s.Client.TransactWriteItems(ctx, input)
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			return completionConflict(tce.CancellationReasons)
		}
		return fmt.Errorf("failed to execute completion transaction: %w", err)
	}

	return nil
}

// completionConflict translates the cancellation reasons of a completion
// transaction into a storage sentinel.
func completionConflict(reasons []types.CancellationReason) error {
	if len(reasons) > appendLedgerOp && isConditionFailure(reasons[appendLedgerOp]) {
		return storage.ErrSessionAlreadyCompleted
	}
	if len(reasons) > completeSessionOp && isConditionFailure(reasons[completeSessionOp]) {
		reason := reasons[completeSessionOp]
		if reason.Item == nil {
			return fmt.Errorf("completion transaction cancelled: %w", storage.ErrSessionNotFound)
		}
		var current models.PaymentSession
		if err := attributevalue.UnmarshalMap(reason.Item, &current); err != nil {
			return fmt.Errorf("failed to unmarshal conflicting session: %w", err)
		}
		if current.Status == models.COMPLETED {
			return storage.ErrSessionAlreadyCompleted
		}
		return fmt.Errorf("session is %s: %w", current.Status, storage.ErrSessionNotPending)
	}
	return fmt.Errorf("completion transaction cancelled: %s", describeReasons(reasons))
}

// TransitionSession moves a pending session to a terminal non-completed status.
func (s *Store) TransitionSession(ctx context.Context, sessionID string, to models.SessionStatus) error {
	if to != models.FAILED && to != models.EXPIRED {
		return fmt.Errorf("unsupported session transition to %q", to)
	}

	nowAV, err := attributevalue.Marshal(time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to marshal timestamp for transition: %w", err)
	}

	input := &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.SessionsTableName),
		Key:                 map[string]types.AttributeValue{"session_id": &types.AttributeValueMemberS{Value: sessionID}},
		UpdateExpression:    aws.String("SET #status = :to, updated_at = :now"),
		ConditionExpression: aws.String("#status = :pending"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":to":      &types.AttributeValueMemberS{Value: string(to)},
			":pending": &types.AttributeValueMemberS{Value: string(models.PENDING)},
			":now":     nowAV,
		},
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	}

	_, err = s.Client.UpdateItem(ctx, input)
	if err != nil {
		var condCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailed) {
			if condCheckFailed.Item == nil {
				return fmt.Errorf("session %s: %w", sessionID, storage.ErrSessionNotFound)
			}
			return fmt.Errorf("session %s: %w", sessionID, storage.ErrSessionNotPending)
		}
		return fmt.Errorf("failed to update session status to %s: %w", to, err)
	}

	return nil
}

func isConditionFailure(reason types.CancellationReason) bool {
	return reason.Code != nil && *reason.Code == "ConditionalCheckFailed"
}

func describeReasons(reasons []types.CancellationReason) string {
	codes := make([]string, len(reasons))
	for i, r := range reasons {
		codes[i] = aws.ToString(r.Code)
	}
	return strings.Join(codes, ",")
}
