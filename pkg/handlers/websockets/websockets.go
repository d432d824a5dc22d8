package websockets

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/chris/credit-reconciliation/pkg/websockets"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// userIDParam names the query parameter a client identifies itself with.
const userIDParam = "userId"

// Handler handles WebSocket connections.
type Handler struct {
	connManager websockets.ConnectionManager
	hub         *websockets.Hub
}

// NewHandler creates a new Handler. hub is only needed for ServeHTTP.
func NewHandler(connManager websockets.ConnectionManager, hub *websockets.Hub) *Handler {
	return &Handler{
		connManager: connManager,
		hub:         hub,
	}
}

// HandleConnect handles new client connections.
func (h *Handler) HandleConnect(ctx context.Context, request events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	connectionID := request.RequestContext.ConnectionID
	userID := request.QueryStringParameters[userIDParam]
	if userID == "" {
		slog.Warn("rejecting connection without userId", "connectionId", connectionID)
		return events.APIGatewayProxyResponse{StatusCode: http.StatusBadRequest}, nil
	}

	slog.Info("Client connected", "connectionId", connectionID, "userId", userID)

	if err := h.connManager.AddConnection(ctx, connectionID, userID); err != nil {
		slog.Error("failed to save connection ID", "error", err)
		return events.APIGatewayProxyResponse{StatusCode: 500}, err
	}

	return events.APIGatewayProxyResponse{StatusCode: 200}, nil
}

// HandleDisconnect handles client disconnections.
func (h *Handler) HandleDisconnect(ctx context.Context, request events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	slog.Info("Client disconnected", "connectionId", request.RequestContext.ConnectionID)

	if err := h.connManager.RemoveConnection(ctx, request.RequestContext.ConnectionID); err != nil {
		slog.Error("failed to delete connection ID", "error", err)
		return events.APIGatewayProxyResponse{StatusCode: 500}, err
	}

	return events.APIGatewayProxyResponse{StatusCode: 200}, nil
}

// HandleDefault handles messages sent from a client. Clients only listen.
func (h *Handler) HandleDefault(ctx context.Context, request events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	slog.Info("Received message", "connectionId", request.RequestContext.ConnectionID, "body", request.Body)
	return events.APIGatewayProxyResponse{StatusCode: 200}, nil
}

// Route dispatches an API Gateway websocket event by its route key.
func (h *Handler) Route(ctx context.Context, request events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	switch request.RequestContext.RouteKey {
	case "$connect":
		return h.HandleConnect(ctx, request)
	case "$disconnect":
		return h.HandleDisconnect(ctx, request)
	default:
		return h.HandleDefault(ctx, request)
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Allow all connections by default for local development.
		return true
	},
}

// ServeHTTP handles WebSocket requests for the local development server.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get(userIDParam)
	if userID == "" {
		http.Error(w, "userId query parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	// Generate a unique connection ID for local connections.
	connectionID := uuid.New().String()
	slog.Info("Client connected locally", "connectionId", connectionID, "userId", userID)

	ctx := r.Context()
	if err := h.connManager.AddConnection(ctx, connectionID, userID); err != nil {
		slog.Error("failed to save local connection ID", "error", err)
		return
	}
	if h.hub != nil {
		h.hub.Register(connectionID, userID, conn)
	}

	defer func() {
		slog.Info("Client disconnected locally", "connectionId", connectionID)
		if h.hub != nil {
			h.hub.Unregister(connectionID)
		}
		if err := h.connManager.RemoveConnection(context.WithoutCancel(ctx), connectionID); err != nil {
			slog.Error("failed to delete local connection ID", "error", err)
		}
	}()

	// Reading is how a client disconnect is detected.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("unexpected close error", "error", err)
			}
			break
		}
	}
}
