package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/allyhumai/bridge/internal/interfaces"
	"github.com/allyhumai/bridge/internal/services/status"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Local bridge, extension pages connect from arbitrary origins
	},
}

// WSMessage is the envelope for every broadcast frame.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WebSocketHandler fans bridge state changes out to every connected tab.
// Broadcasts are fire and forget: a dead tab never fails or delays the
// others.
type WebSocketHandler struct {
	logger           arbor.ILogger
	statusService    *status.Service
	clients          map[*websocket.Conn]bool
	clientMutex      map[*websocket.Conn]*sync.Mutex
	mu               sync.RWMutex
	serverInstanceID string // Unique per startup; tabs clear local state when it changes
}

// NewWebSocketHandler creates the tab broadcaster and subscribes it to
// the bridge event bus.
func NewWebSocketHandler(eventService interfaces.EventService, statusService *status.Service, logger arbor.ILogger) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		statusService:    statusService,
		clients:          make(map[*websocket.Conn]bool),
		clientMutex:      make(map[*websocket.Conn]*sync.Mutex),
		serverInstanceID: uuid.New().String(),
	}

	logger.Info().Str("server_instance_id", h.serverInstanceID).Msg("WebSocket handler initialized")

	if eventService != nil {
		h.subscribeToBridgeEvents(eventService)
	}

	return h
}

// subscribeToBridgeEvents relays bus events to all connected tabs.
func (h *WebSocketHandler) subscribeToBridgeEvents(eventService interfaces.EventService) {
	relay := func(eventType interfaces.EventType) {
		eventService.Subscribe(eventType, func(ctx context.Context, event interfaces.Event) error {
			h.Broadcast(string(event.Type), event.Payload)
			return nil
		})
	}

	relay(interfaces.EventSessionUpdated)
	relay(interfaces.EventSessionCleared)
	relay(interfaces.EventBridgeError)
	relay(interfaces.EventSuccessNotification)
	relay(interfaces.EventStatusChanged)
	relay(interfaces.EventQueueChanged)
}

// HandleWebSocket upgrades the connection and keeps it registered until
// the tab goes away.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = &sync.Mutex{}
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Msgf("Tab connected (total: %d)", clientCount)

	h.sendHello(conn)

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		delete(h.clientMutex, conn)
		remaining := len(h.clients)
		h.mu.Unlock()

		conn.Close()
		h.logger.Debug().Msgf("Tab disconnected (remaining: %d)", remaining)
	}()

	// Keep the connection alive; tabs never send anything we act on.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			break
		}
	}
}

// sendHello sends the current indicator state and the server instance ID
// to a freshly connected tab.
func (h *WebSocketHandler) sendHello(conn *websocket.Conn) {
	payload := map[string]interface{}{
		"serverInstanceId": h.serverInstanceID,
	}
	if h.statusService != nil {
		payload["status"] = h.statusService.GetStatus()
	}

	data, err := json.Marshal(WSMessage{Type: "hello", Payload: payload})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to marshal hello message")
		return
	}

	h.mu.RLock()
	mutex := h.clientMutex[conn]
	h.mu.RUnlock()
	if mutex == nil {
		return
	}

	mutex.Lock()
	conn.WriteMessage(websocket.TextMessage, data)
	mutex.Unlock()
}

// Broadcast sends one message to every connected tab. Write failures are
// logged and otherwise ignored.
func (h *WebSocketHandler) Broadcast(messageType string, payload interface{}) {
	data, err := json.Marshal(WSMessage{Type: messageType, Payload: payload})
	if err != nil {
		h.logger.Error().Err(err).Str("type", messageType).Msg("Failed to marshal broadcast message")
		return
	}

	h.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn := range h.clients {
		clients = append(clients, conn)
		mutexes = append(mutexes, h.clientMutex[conn])
	}
	h.mu.RUnlock()

	for i, conn := range clients {
		mutex := mutexes[i]
		mutex.Lock()
		err := conn.WriteMessage(websocket.TextMessage, data)
		mutex.Unlock()

		if err != nil {
			h.logger.Warn().Err(err).Str("type", messageType).Msg("Failed to send broadcast to tab")
		}
	}
}

// ClientCount returns the number of connected tabs.
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects all tabs.
func (h *WebSocketHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]bool)
	h.clientMutex = make(map[*websocket.Conn]*sync.Mutex)
}
