package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func dialTestSocket(t *testing.T, serverURL string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(serverURL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocket_HelloOnConnect(t *testing.T) {
	handler := NewWebSocketHandler(nil, nil, arbor.NewLogger())
	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer server.Close()

	conn := dialTestSocket(t, server.URL)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "hello", msg.Type)

	payload, ok := msg.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, payload["serverInstanceId"])
}

func TestWebSocket_BroadcastFansOutToAllTabs(t *testing.T) {
	handler := NewWebSocketHandler(nil, nil, arbor.NewLogger())
	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer server.Close()

	const tabs = 5
	conns := make([]*websocket.Conn, tabs)
	for i := range conns {
		conns[i] = dialTestSocket(t, server.URL)
		// Consume the hello frame
		conns[i].SetReadDeadline(time.Now().Add(2 * time.Second))
		var hello WSMessage
		require.NoError(t, conns[i].ReadJSON(&hello))
	}

	require.Eventually(t, func() bool { return handler.ClientCount() == tabs }, time.Second, 10*time.Millisecond)

	handler.Broadcast("session_cleared", map[string]string{"reason": "logout"})

	for i, conn := range conns {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg WSMessage
		require.NoError(t, conn.ReadJSON(&msg), "tab %d", i)
		assert.Equal(t, "session_cleared", msg.Type)
	}
}

func TestWebSocket_DeadTabDoesNotBlockOthers(t *testing.T) {
	handler := NewWebSocketHandler(nil, nil, arbor.NewLogger())
	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer server.Close()

	dead := dialTestSocket(t, server.URL)
	var hello WSMessage
	dead.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, dead.ReadJSON(&hello))

	alive := dialTestSocket(t, server.URL)
	alive.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, alive.ReadJSON(&hello))

	dead.Close()

	handler.Broadcast("bridge_error", map[string]string{"detail": "boom"})

	alive.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	require.NoError(t, alive.ReadJSON(&msg))
	assert.Equal(t, "bridge_error", msg.Type)
}
