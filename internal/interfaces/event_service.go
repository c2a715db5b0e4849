package interfaces

import "context"

// EventType represents different event types in the system
type EventType string

const (
	// EventSessionUpdated fires when a new session is adopted.
	EventSessionUpdated EventType = "session_updated"
	// EventSessionCleared fires on logout, expiry, or auth failure.
	EventSessionCleared EventType = "session_cleared"
	// EventBridgeError fires when a delivery attempt fails.
	EventBridgeError EventType = "bridge_error"
	// EventSuccessNotification carries server-enriched fields back to tabs
	// after a successful immediate send.
	EventSuccessNotification EventType = "success_notification"
	// EventStatusChanged fires when the visible status indicator changes.
	EventStatusChanged EventType = "status_changed"
	// EventQueueChanged fires when the pending queue size changes.
	EventQueueChanged EventType = "queue_changed"
)

// Event represents a system event
type Event struct {
	Type    EventType
	Payload interface{}
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService manages pub/sub event bus
type EventService interface {
	// Subscribe to an event type
	Subscribe(eventType EventType, handler EventHandler) error

	// Publish an event to all subscribers
	Publish(ctx context.Context, event Event) error

	// PublishSync publishes event and waits for all handlers to complete
	PublishSync(ctx context.Context, event Event) error

	// Close shuts down the event service
	Close() error
}
