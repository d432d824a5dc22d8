package websockets

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

type hubConn struct {
	userID string
	conn   *websocket.Conn
	mu     sync.Mutex
}

// Hub tracks websocket connections held by this process. The local server
// uses it in place of API Gateway.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*hubConn
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]*hubConn)}
}

var _ Publisher = (*Hub)(nil)

// Register adds a connection for userID.
func (h *Hub) Register(connectionID, userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[connectionID] = &hubConn{userID: userID, conn: conn}
}

// Unregister forgets a connection. The caller owns closing it.
func (h *Hub) Unregister(connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, connectionID)
}

// Len returns the number of registered connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// PublishToUser writes the message to each local connection of userID.
func (h *Hub) PublishToUser(ctx context.Context, userID string, message Message) error {
	h.mu.RLock()
	targets := make(map[string]*hubConn)
	for id, c := range h.conns {
		if c.userID == userID {
			targets[id] = c
		}
	}
	h.mu.RUnlock()

	for id, c := range targets {
		c.mu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := c.conn.WriteJSON(message)
		c.mu.Unlock()
		if err != nil {
			slog.WarnContext(ctx, "failed to write to local connection, dropping it", "connectionId", id, "error", err)
			h.Unregister(id)
		}
	}
	return nil
}
