package domain

import (
	"cmp"
	"slices"

	"github.com/google/uuid"

	"github.com/askhub/askhub-server/internal/docstore"
)

// NotificationType is what happened.
type NotificationType string

const (
	NotifyMention NotificationType = "mention"
	NotifyLike    NotificationType = "like"
	NotifyComment NotificationType = "comment"
	NotifyReply   NotificationType = "reply"
	NotifyAnswer  NotificationType = "answer"
)

// Notification is embedded in the recipient's user record.
type Notification struct {
	ID           string             `json:"id"`
	Type         NotificationType   `json:"type"`
	FromUserID   string             `json:"fromUserId"`
	FromUsername string             `json:"fromUsername"`
	Content      string             `json:"content"`
	ItemID       string             `json:"itemId"`
	ItemType     ItemType           `json:"itemType"`
	Read         bool               `json:"read"`
	CreatedAt    docstore.Timestamp `json:"createdAt"`
}

// NewNotification builds an unread notification with a fresh id.
func NewNotification(typ NotificationType, fromID, fromName, content, itemID string, itemType ItemType, at docstore.Timestamp) Notification {
	return Notification{
		ID:           uuid.NewString(),
		Type:         typ,
		FromUserID:   fromID,
		FromUsername: fromName,
		Content:      content,
		ItemID:       itemID,
		ItemType:     itemType,
		CreatedAt:    at,
	}
}

// NewestFirst returns a copy sorted by creation time, newest first.
func NewestFirst(ns []Notification) []Notification {
	out := slices.Clone(ns)
	slices.SortStableFunc(out, func(a, b Notification) int {
		return cmp.Compare(b.CreatedAt.String(), a.CreatedAt.String())
	})
	return out
}

// TrimOldest keeps the limit newest notifications, preserving stored order.
func TrimOldest(ns []Notification, limit int) []Notification {
	if len(ns) <= limit {
		return ns
	}
	keep := make(map[string]bool, limit)
	for _, n := range NewestFirst(ns)[:limit] {
		keep[n.ID] = true
	}
	out := make([]Notification, 0, limit)
	for _, n := range ns {
		if keep[n.ID] {
			out = append(out, n)
		}
	}
	return out
}

// UnreadCount counts unread notifications.
func UnreadCount(ns []Notification) int {
	n := 0
	for _, x := range ns {
		if !x.Read {
			n++
		}
	}
	return n
}
