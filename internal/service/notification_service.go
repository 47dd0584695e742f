package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sipodi-api/internal/dto"
	"github.com/noah-isme/sipodi-api/internal/models"
	appErrors "github.com/noah-isme/sipodi-api/pkg/errors"
	"github.com/noah-isme/sipodi-api/pkg/jobs"
)

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, filter models.NotificationFilter) ([]models.Notification, int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

// NotificationService delivers and reads in-app notifications.
type NotificationService struct {
	repo   notificationRepository
	queue  jobEnqueuer
	logger *zap.Logger
}

// NewNotificationService constructs the service. With a nil queue notifications are written
// synchronously.
func NewNotificationService(repo notificationRepository, queue jobEnqueuer, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, queue: queue, logger: logger}
}

// Notify delivers n in the background. Delivery is best effort and never fails the caller.
func (s *NotificationService) Notify(ctx context.Context, n *models.Notification) {
	if s.queue != nil {
		err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: JobCreateNotification, Payload: *n})
		if err == nil {
			return
		}
		s.logger.Warn("failed to enqueue notification, writing inline", zap.String("user_id", n.UserID), zap.Error(err))
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Warn("failed to create notification", zap.String("user_id", n.UserID), zap.Error(err))
	}
}

// HandleCreateNotification is the job handler for JobCreateNotification.
func (s *NotificationService) HandleCreateNotification(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(models.Notification)
	if !ok {
		return fmt.Errorf("notification job %s: invalid payload %T", job.ID, job.Payload)
	}
	return s.repo.Create(ctx, &n)
}

// List returns the actor's notifications newest first.
func (s *NotificationService) List(ctx context.Context, actor models.Actor, query dto.NotificationQuery) ([]models.Notification, *models.Pagination, error) {
	page, size := normalizePaging(query.Page, query.PageSize)
	items, total, err := s.repo.ListByUser(ctx, actor.UserID, models.NotificationFilter{UnreadOnly: query.UnreadOnly, Page: page, PageSize: size})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	if items == nil {
		items = []models.Notification{}
	}
	return items, models.NewPagination(page, size, total), nil
}

// UnreadCount counts the actor's unread notifications.
func (s *NotificationService) UnreadCount(ctx context.Context, actor models.Actor) (int, error) {
	count, err := s.repo.CountUnread(ctx, actor.UserID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count notifications")
	}
	return count, nil
}

// MarkRead marks one of the actor's notifications read.
func (s *NotificationService) MarkRead(ctx context.Context, actor models.Actor, id string) error {
	if err := s.repo.MarkRead(ctx, id, actor.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update notification")
	}
	return nil
}

// MarkAllRead marks every unread notification of the actor read.
func (s *NotificationService) MarkAllRead(ctx context.Context, actor models.Actor) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, actor.UserID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update notifications")
	}
	return n, nil
}
