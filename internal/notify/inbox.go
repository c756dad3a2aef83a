package notify

import (
	"context"

	"hostelgrievance/backend/internal/models"
	"hostelgrievance/backend/internal/storage"
)

type InboxStore interface {
	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID string, id uint) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)
}

// Inbox is a user's view of their notifications.
type Inbox struct {
	Store InboxStore
}

func NewInbox(store InboxStore) *Inbox {
	return &Inbox{Store: store}
}

// List returns userID's notifications, newest first.
func (i *Inbox) List(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	list, err := i.Store.ListNotifications(ctx, userID, unreadOnly)
	if err != nil {
		return nil, storage.Classify(err, "notification")
	}
	if list == nil {
		list = []models.Notification{}
	}
	return list, nil
}

// MarkRead marks one of userID's notifications read. Someone else's
// notification is reported as not found.
func (i *Inbox) MarkRead(ctx context.Context, userID string, id uint) error {
	if err := i.Store.MarkNotificationRead(ctx, userID, id); err != nil {
		return storage.Classify(err, "notification")
	}
	return nil
}

// MarkAllRead returns how many notifications changed.
func (i *Inbox) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := i.Store.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		return 0, storage.Classify(err, "notification")
	}
	return n, nil
}
