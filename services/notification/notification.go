// File: services/notification/notification.go
package notification

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"slotify/models"
)

// NotificationService hands notices to the delivery collaborator. The
// engine never formats or sends messages itself.
type NotificationService interface {
	Send(ctx context.Context, notice models.Notice) error
}

// TaskEnqueuer is the slice of asynq.Client this service uses.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// DefaultNotificationService enqueues notices for asynchronous delivery
// so booking flows never block on a downstream messenger.
type DefaultNotificationService struct {
	Tasks  TaskEnqueuer
	Logger *zap.Logger
}

func NewNotificationService(tasks TaskEnqueuer, logger *zap.Logger) *DefaultNotificationService {
	return &DefaultNotificationService{Tasks: tasks, Logger: logger}
}

func (s *DefaultNotificationService) Send(_ context.Context, notice models.Notice) error {
	payload, err := json.Marshal(notice)
	if err != nil {
		return err
	}
	if _, err := s.Tasks.Enqueue(asynq.NewTask(models.TaskNotifySend, payload)); err != nil {
		s.Logger.Error("failed to enqueue notice",
			zap.String("template", notice.TemplateID),
			zap.Error(err))
		return err
	}
	return nil
}
