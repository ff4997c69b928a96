package repository

import (
	"sync"

	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/models"
	appErrors "github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/errors"
)

// NotificationRepository is the append-only, order-preserving notification
// log. There are no delivery guarantees beyond storage.
type NotificationRepository struct {
	mu    sync.RWMutex
	items map[string][]*models.Notification
}

// NewNotificationRepository constructs an empty log.
func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{items: make(map[string][]*models.Notification)}
}

// Append stores a notification at the tail of the user's log.
func (r *NotificationRepository) Append(n *models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[n.UserID] = append(r.items[n.UserID], n)
}

// ListByUser returns the user's notifications in insertion order.
func (r *NotificationRepository) ListByUser(userID string) []*models.Notification {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src := r.items[userID]
	out := make([]*models.Notification, len(src))
	copy(out, src)
	return out
}

// MarkRead flags a single notification as read.
func (r *NotificationRepository) MarkRead(userID, notificationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, n := range r.items[userID] {
		if n.ID == notificationID {
			n.Read = true
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
}
