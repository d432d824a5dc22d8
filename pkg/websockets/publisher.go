package websockets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
)

// PostToConnectionAPI is the subset of the API Gateway management client used
// by DefaultPublisher.
type PostToConnectionAPI interface {
	PostToConnection(ctx context.Context, params *apigatewaymanagementapi.PostToConnectionInput, optFns ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.PostToConnectionOutput, error)
}

// DefaultPublisher pushes messages through an API Gateway websocket API.
type DefaultPublisher struct {
	connManager ConnectionManager
	apiGwClient PostToConnectionAPI
	logger      *slog.Logger
}

// NewAPIGatewayClient builds a management client for the given websocket
// endpoint (https://{api-id}.execute-api.{region}.amazonaws.com/{stage}).
func NewAPIGatewayClient(ctx context.Context, apiEndpoint string) (*apigatewaymanagementapi.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return apigatewaymanagementapi.NewFromConfig(cfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = aws.String(apiEndpoint)
	}), nil
}

// NewPublisher creates a new DefaultPublisher. A nil logger means slog.Default().
func NewPublisher(connManager ConnectionManager, apiGwClient PostToConnectionAPI, logger *slog.Logger) *DefaultPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultPublisher{
		connManager: connManager,
		apiGwClient: apiGwClient,
		logger:      logger,
	}
}

var _ Publisher = (*DefaultPublisher)(nil)

// PublishToUser sends a message to every open connection of a user. Gone
// connections are removed from the store. An error is returned only when the
// lookup fails or no live connection accepted the message.
func (p *DefaultPublisher) PublishToUser(ctx context.Context, userID string, message Message) error {
	connectionIDs, err := p.connManager.GetConnections(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get connections of user %s: %w", userID, err)
	}
	if len(connectionIDs) == 0 {
		return nil
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", message.Type, err)
	}

	var delivered int
	var failures []error
	for _, connectionID := range connectionIDs {
		_, err := p.apiGwClient.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
			ConnectionId: aws.String(connectionID),
			Data:         payload,
		})

		var goneErr *apigwtypes.GoneException
		switch {
		case err == nil:
			delivered++
		case errors.As(err, &goneErr):
			p.logger.InfoContext(ctx, "removing gone connection", "connection_id", connectionID, "user_id", userID)
			if err := p.connManager.RemoveConnection(ctx, connectionID); err != nil {
				p.logger.ErrorContext(ctx, "failed to remove gone connection", "connection_id", connectionID, "error", err)
			}
		default:
			p.logger.WarnContext(ctx, "failed to post to connection", "connection_id", connectionID, "user_id", userID, "error", err)
			failures = append(failures, fmt.Errorf("connection %s: %w", connectionID, err))
		}
	}

	if delivered == 0 && len(failures) > 0 {
		return fmt.Errorf("failed to deliver %s to user %s: %w", message.Type, userID, errors.Join(failures...))
	}
	return nil
}
