package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/askhub/askhub-server/internal/domain"
)

func (s *Server) registerNotificationRoutes() {
	huma.Register(s.api, op("listNotifications", http.MethodGet, "/api/v1/notifications",
		"List the caller's notifications, newest first", "Notifications", secured), s.handleListNotifications)

	huma.Register(s.api, op("markNotificationRead", http.MethodPost, "/api/v1/notifications/{id}/read",
		"Mark a notification read", "Notifications", secured, noContent), s.handleMarkNotificationRead)

	huma.Register(s.api, op("markAllNotificationsRead", http.MethodPost, "/api/v1/notifications/read-all",
		"Mark every notification read", "Notifications", secured, noContent), s.handleMarkAllNotificationsRead)

	huma.Register(s.api, op("clearNotifications", http.MethodDelete, "/api/v1/notifications",
		"Delete every notification", "Notifications", secured, noContent), s.handleClearNotifications)
}

// Inbox is the caller's notifications with the unread total.
type Inbox struct {
	Notifications []domain.Notification `json:"notifications"`
	Unread        int                   `json:"unread"`
}

// NotificationsOutput wraps the caller's inbox.
type NotificationsOutput struct {
	Body Inbox
}

// NotificationIDInput addresses a notification.
type NotificationIDInput struct {
	ID string `path:"id" doc:"Notification ID"`
}

func (s *Server) handleListNotifications(ctx context.Context, _ *struct{}) (*NotificationsOutput, error) {
	list, err := s.services.Notifications.List(ctx)
	if err != nil {
		return nil, err
	}
	return &NotificationsOutput{Body: Inbox{Notifications: list, Unread: domain.UnreadCount(list)}}, nil
}

func (s *Server) handleMarkNotificationRead(ctx context.Context, input *NotificationIDInput) (*struct{}, error) {
	return nil, s.services.Notifications.MarkRead(ctx, input.ID)
}

func (s *Server) handleMarkAllNotificationsRead(ctx context.Context, _ *struct{}) (*struct{}, error) {
	return nil, s.services.Notifications.MarkAllRead(ctx)
}

func (s *Server) handleClearNotifications(ctx context.Context, _ *struct{}) (*struct{}, error) {
	return nil, s.services.Notifications.ClearAll(ctx)
}
