package service

import (
	"context"
	"log/slog"

	"github.com/askhub/askhub-server/internal/domain"
	apperrors "github.com/askhub/askhub-server/internal/errors"
	"github.com/askhub/askhub-server/internal/sse"
	"github.com/askhub/askhub-server/internal/store"
)

// Notifier delivers a notification to a user. Other services depend on this
// rather than on NotificationService.
type Notifier interface {
	Notify(ctx context.Context, recipientID string, n domain.Notification) error
}

// NotificationService manages the notifications embedded in user records.
type NotificationService struct {
	store   *store.Store
	emitter sse.Emitter
	locks   *keyedLock
	limit   int
	logger  *slog.Logger
	clock   clock
}

// NewNotificationService creates a notification service that keeps at most
// maxPerUser notifications per user. A nil emitter disables push.
func NewNotificationService(st *store.Store, emitter sse.Emitter, maxPerUser int, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		store:   st,
		emitter: emitter,
		locks:   newKeyedLock(),
		limit:   maxPerUser,
		logger:  discardIfNil(logger),
	}
}

// Notify appends n to the recipient's notifications, trims the oldest past
// the limit and pushes a notification.created event. A notification to the
// actor themself is skipped.
func (s *NotificationService) Notify(ctx context.Context, recipientID string, n domain.Notification) error {
	if recipientID == "" || recipientID == n.FromUserID {
		return nil
	}

	unlock, err := s.locks.lock(ctx, recipientID)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := s.store.Users.AddToSet(ctx, recipientID, "notifications", n); err != nil {
		return err
	}

	u, err := s.store.Users.Get(ctx, recipientID)
	if err != nil {
		return err
	}
	if u == nil {
		return apperrors.NotFoundf("user %s not found", recipientID)
	}
	if len(u.Notifications) > s.limit {
		u.Notifications = domain.TrimOldest(u.Notifications, s.limit)
		if _, err := s.store.Users.Update(ctx, recipientID, map[string]any{"notifications": u.Notifications}); err != nil {
			return err
		}
	}

	s.emit(recipientID, sse.NewNotificationCreatedEvent(recipientID, n, domain.UnreadCount(u.Notifications)))
	s.logger.Debug("notification delivered",
		"recipient_id", recipientID,
		"type", n.Type,
		"item_id", n.ItemID,
	)
	return nil
}

// List returns the caller's notifications, newest first.
func (s *NotificationService) List(ctx context.Context) ([]domain.Notification, error) {
	u, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	return domain.NewestFirst(u.Notifications), nil
}

// MarkRead marks one of the caller's notifications read.
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	return s.edit(ctx, func(u *domain.User) (bool, error) {
		i := u.FindNotification(id)
		if i < 0 {
			return false, apperrors.NotFoundf("notification %s not found", id)
		}
		if u.Notifications[i].Read {
			return false, nil
		}
		u.Notifications[i].Read = true
		return true, nil
	}, sse.NewNotificationsReadEvent)
}

// MarkAllRead marks every notification of the caller read.
func (s *NotificationService) MarkAllRead(ctx context.Context) error {
	return s.edit(ctx, func(u *domain.User) (bool, error) {
		changed := false
		for i := range u.Notifications {
			if !u.Notifications[i].Read {
				u.Notifications[i].Read = true
				changed = true
			}
		}
		return changed, nil
	}, func(userID, _ string) sse.Event { return sse.NewNotificationsReadEvent(userID, "") })
}

// ClearAll removes every notification of the caller.
func (s *NotificationService) ClearAll(ctx context.Context) error {
	return s.edit(ctx, func(u *domain.User) (bool, error) {
		u.Notifications = []domain.Notification{}
		return true, nil
	}, func(userID, _ string) sse.Event { return sse.NewNotificationsClearedEvent(userID) })
}

// edit runs a read-merge-write of the caller's notifications under the
// per-user lock. The event is emitted only when change reports a change.
func (s *NotificationService) edit(
	ctx context.Context,
	change func(*domain.User) (bool, error),
	event func(userID, notificationID string) sse.Event,
) error {
	sess, err := requireSession(ctx)
	if err != nil {
		return err
	}
	userID := sess.UserID()

	unlock, err := s.locks.lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	u, err := s.store.Users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return apperrors.NotFoundf("user %s not found", userID)
	}

	before := make(map[string]bool, len(u.Notifications))
	for _, n := range u.Notifications {
		before[n.ID] = n.Read
	}

	changed, err := change(u)
	if err != nil || !changed {
		return err
	}
	if u.Notifications == nil {
		u.Notifications = []domain.Notification{}
	}
	if _, err := s.store.Users.Update(ctx, userID, map[string]any{"notifications": u.Notifications}); err != nil {
		return err
	}

	// A single newly-read notification is reported by id.
	var readID string
	for _, n := range u.Notifications {
		if n.Read && !before[n.ID] {
			if readID != "" {
				readID = ""
				break
			}
			readID = n.ID
		}
	}
	s.emit(userID, event(userID, readID))
	return nil
}

func (s *NotificationService) caller(ctx context.Context) (*domain.User, error) {
	sess, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.store.Users.Get(ctx, sess.UserID())
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperrors.NotFoundf("user %s not found", sess.UserID())
	}
	return u, nil
}

func (s *NotificationService) emit(userID string, e sse.Event) {
	if s.emitter != nil {
		s.emitter.EmitToUser(userID, e)
	}
}

// notifyBestEffort sends n and logs failures. Notification delivery never
// fails the action that triggered it.
func notifyBestEffort(ctx context.Context, notifier Notifier, logger *slog.Logger, recipientID string, n domain.Notification) {
	if notifier == nil {
		return
	}
	if err := notifier.Notify(ctx, recipientID, n); err != nil {
		logger.Warn("failed to deliver notification",
			"recipient_id", recipientID,
			"type", n.Type,
			"item_id", n.ItemID,
			"error", err,
		)
	}
}
