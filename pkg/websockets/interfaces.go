package websockets

import (
	"context"
)

// ConnectionManager defines the interface for managing WebSocket connections.
type ConnectionManager interface {
	AddConnection(ctx context.Context, connectionID, userID string) error
	RemoveConnection(ctx context.Context, connectionID string) error
	GetConnections(ctx context.Context, userID string) ([]string, error)
}

// Publisher defines the interface for publishing messages to WebSocket clients.
type Publisher interface {
	PublishToUser(ctx context.Context, userID string, message Message) error
}
