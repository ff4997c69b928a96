package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/models"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/internal/repository"
	"github.com/EWAEAWEAEWA/luis-k-f-consultation-queue-system/pkg/jobs"
)

// NotificationService appends messages to the per-user notification log and
// serves reads from it. The log write is synchronous; when a delivery pool is
// configured, outward delivery is handed off to its workers.
type NotificationService struct {
	repo       *repository.NotificationRepository
	deliveries *jobs.Pool
	logger     *zap.Logger
	now        func() time.Time
}

// NewNotificationService constructs the service. deliveries may be nil, in
// which case notifications are stored but no delivery task is queued.
func NewNotificationService(repo *repository.NotificationRepository, deliveries *jobs.Pool, logger *zap.Logger, clock func() time.Time) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}
	return &NotificationService{repo: repo, deliveries: deliveries, logger: logger, now: clock}
}

// NewDeliveryPool builds the worker pool consumed by NotificationService.
// The handler stands in for an outward channel such as e-mail or push.
func NewDeliveryPool(logger *zap.Logger) *jobs.Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return jobs.NewPool("notification-delivery", func(ctx context.Context, task jobs.Task) error {
		n, ok := task.Payload.(*models.Notification)
		if !ok {
			return nil
		}
		logger.Info("notification delivered",
			zap.String("notification_id", n.ID),
			zap.String("user_id", n.UserID))
		return nil
	}, jobs.Options{Workers: 2, Logger: logger})
}

// Notify records a message for the user.
func (s *NotificationService) Notify(userID, message string) {
	if userID == "" || message == "" {
		return
	}
	n := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   message,
		CreatedAt: s.now(),
	}
	s.repo.Append(n)
	s.logger.Debug("notification stored", zap.String("user_id", userID), zap.String("message", message))

	if s.deliveries != nil {
		if err := s.deliveries.Submit(jobs.Task{ID: n.ID, Kind: "notification.deliver", Payload: n}); err != nil {
			s.logger.Warn("notification delivery enqueue failed", zap.String("notification_id", n.ID), zap.Error(err))
		}
	}
}

// ListForUser returns the user's notifications in insertion order.
func (s *NotificationService) ListForUser(userID string) []*models.Notification {
	return s.repo.ListByUser(userID)
}

// MarkRead flags one notification as read.
func (s *NotificationService) MarkRead(userID, notificationID string) error {
	return s.repo.MarkRead(userID, notificationID)
}
