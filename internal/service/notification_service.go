package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusevents/event-api/internal/dto"
	"github.com/campusevents/event-api/pkg/broker"
	"github.com/campusevents/event-api/pkg/jobs"
)

// JobTypeStatusChanged identifies queued status change notifications.
const JobTypeStatusChanged = "event_request.status_changed"

// Notifier receives workflow transitions once they are persisted.
type Notifier interface {
	Notify(ctx context.Context, notification dto.StatusChangeNotification)
}

type messagePublisher interface {
	Publish(ctx context.Context, msg broker.Message) error
}

type jobQueue interface {
	Enqueue(job jobs.Job) error
}

// NotificationService fans status changes out to RabbitMQ, or to the log
// when no broker is configured. With a queue attached, delivery happens on
// the queue's workers; otherwise it runs inline.
type NotificationService struct {
	publisher messagePublisher
	queue     jobQueue
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewNotificationService constructs the notifier. publisher may be nil.
func NewNotificationService(publisher messagePublisher, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{publisher: publisher, metrics: metrics, logger: logger}
}

// UseQueue routes deliveries through queue.
func (s *NotificationService) UseQueue(queue jobQueue) {
	s.queue = queue
}

// Notify schedules delivery. Failures are logged and never returned.
func (s *NotificationService) Notify(ctx context.Context, notification dto.StatusChangeNotification) {
	job := jobs.Job{ID: uuid.NewString(), Type: JobTypeStatusChanged, Payload: notification}
	if s.queue == nil {
		if err := s.Handle(ctx, job); err != nil {
			s.logger.Warn("status notification failed", zap.String("request_id", notification.RequestID), zap.Error(err))
		}
		return
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.metrics.RecordNotification("dropped")
		s.logger.Warn("status notification dropped", zap.String("request_id", notification.RequestID), zap.Error(err))
	}
}

// Handle delivers one queued notification. It satisfies jobs.Handler.
func (s *NotificationService) Handle(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(dto.StatusChangeNotification)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID), zap.String("type", fmt.Sprintf("%T", job.Payload)))
		return nil
	}

	if s.publisher == nil {
		s.logger.Info("event request status changed",
			zap.String("request_id", notification.RequestID),
			zap.String("title", notification.Title),
			zap.String("previous", string(notification.Previous)),
			zap.String("current", string(notification.Current)),
			zap.String("actor_id", notification.ActorID),
			zap.String("note", notification.Note),
		)
		s.metrics.RecordNotification("logged")
		return nil
	}

	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	msg := broker.Message{
		RoutingKey: RoutingKey(notification),
		Body:       body,
		MessageID:  job.ID,
		Headers: map[string]interface{}{
			"request_id":   notification.RequestID,
			"requested_by": notification.RequestedBy,
			"status":       string(notification.Current),
		},
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.metrics.RecordNotification("failed")
		return err
	}
	s.metrics.RecordNotification("published")
	return nil
}

// RoutingKey returns the topic a notification is published under.
func RoutingKey(notification dto.StatusChangeNotification) string {
	return "event_request." + strings.ToLower(string(notification.Current))
}
