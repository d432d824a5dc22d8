package websockets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishToUser(t *testing.T) {
	hub := NewHub()
	upgrader := websocket.Upgrader{}
	registered := make(chan struct{}, 2)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		id := r.URL.Query().Get("id")
		hub.Register(id, r.URL.Query().Get("userId"), conn)
		registered <- struct{}{}
		defer func() {
			hub.Unregister(id)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	alice, _, err := websocket.DefaultDialer.Dial(wsURL+"?id=a&userId=alice", nil)
	require.NoError(t, err)
	defer alice.Close()
	bob, _, err := websocket.DefaultDialer.Dial(wsURL+"?id=b&userId=bob", nil)
	require.NoError(t, err)
	defer bob.Close()
	<-registered
	<-registered
	require.Equal(t, 2, hub.Len())

	t.Run("Delivers Only To Target User", func(t *testing.T) {
		err := hub.PublishToUser(context.Background(), "alice", Message{
			Type:    MessageTypeCreditUpdate,
			Payload: CreditUpdatePayload{UserID: "alice", CreditsGranted: 100},
		})
		require.NoError(t, err)

		var got struct {
			Type    MessageType         `json:"type"`
			Payload CreditUpdatePayload `json:"payload"`
		}
		require.NoError(t, alice.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, alice.ReadJSON(&got))
		assert.Equal(t, MessageTypeCreditUpdate, got.Type)
		assert.Equal(t, int64(100), got.Payload.CreditsGranted)

		require.NoError(t, bob.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
		_, _, err = bob.ReadMessage()
		assert.Error(t, err)
	})

	t.Run("Unknown User Is A No-Op", func(t *testing.T) {
		assert.NoError(t, hub.PublishToUser(context.Background(), "carol", Message{Type: MessageTypeCreditUpdate}))
	})
}
