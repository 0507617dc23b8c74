// Package sse pushes per-user events to connected clients over Server-Sent
// Events.
package sse

import (
	"time"

	"github.com/askhub/askhub-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventNotificationCreated is sent to the recipient of a new notification.
	EventNotificationCreated EventType = "notification.created"
	// EventNotificationsRead is sent when some or all notifications were marked read.
	EventNotificationsRead EventType = "notifications.read"
	// EventNotificationsCleared is sent after the recipient cleared all notifications.
	EventNotificationsCleared EventType = "notifications.cleared"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
	// UserID targets the event. Empty means every connected client.
	UserID string `json:"-"`
}

// NotificationCreatedData is the payload of EventNotificationCreated.
type NotificationCreatedData struct {
	Notification domain.Notification `json:"notification"`
	Unread       int                 `json:"unread"`
}

// NotificationsReadData is the payload of EventNotificationsRead. An empty ID
// means every notification was marked read.
type NotificationsReadData struct {
	ID string `json:"id,omitempty"`
}

// NewNotificationCreatedEvent creates a notification.created event for userID.
func NewNotificationCreatedEvent(userID string, n domain.Notification, unread int) Event {
	return Event{
		Type:      EventNotificationCreated,
		UserID:    userID,
		Timestamp: time.Now(),
		Data:      NotificationCreatedData{Notification: n, Unread: unread},
	}
}

// NewNotificationsReadEvent creates a notifications.read event for userID.
func NewNotificationsReadEvent(userID, notificationID string) Event {
	return Event{
		Type:      EventNotificationsRead,
		UserID:    userID,
		Timestamp: time.Now(),
		Data:      NotificationsReadData{ID: notificationID},
	}
}

// NewNotificationsClearedEvent creates a notifications.cleared event for userID.
func NewNotificationsClearedEvent(userID string) Event {
	return Event{
		Type:      EventNotificationsCleared,
		UserID:    userID,
		Timestamp: time.Now(),
		Data:      struct{}{},
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Timestamp: time.Now(),
		Data:      struct{}{},
	}
}
