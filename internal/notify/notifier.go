package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/allisson/resourcegateway/internal/directory"
	"github.com/allisson/resourcegateway/internal/gateway/domain"
	"github.com/allisson/resourcegateway/internal/store"
	taskDomain "github.com/allisson/resourcegateway/internal/task/domain"
)

// Collection is the store collection notifications are kept in.
const Collection = "notifications"

// Notification levels.
const (
	LevelInfo  = "info"
	LevelError = "error"
)

// TaskNotifier turns finished tasks into notifications for the user that started them.
type TaskNotifier struct {
	store     *store.Store
	directory *directory.Directory
	hub       *Hub
	logger    *slog.Logger
	now       func() time.Time
}

// NewTaskNotifier creates a TaskNotifier. hub may be nil.
func NewTaskNotifier(s *store.Store, d *directory.Directory, hub *Hub, logger *slog.Logger) *TaskNotifier {
	return &TaskNotifier{store: s, directory: d, hub: hub, logger: logger, now: time.Now}
}

// TaskFinished stores a notification for task and pushes it to live subscribers.
// Child tasks are reported through their parent.
func (n *TaskNotifier) TaskFinished(ctx context.Context, task *taskDomain.Task) {
	if task.ParentID != nil {
		return
	}
	user, err := n.directory.UserByLogin(task.UserID)
	if err != nil {
		n.logger.WarnContext(ctx, "task owner not found, notification dropped",
			slog.String("task_id", task.ID.String()),
			slog.String("userid", task.UserID),
		)
		return
	}

	level := LevelInfo
	if task.Status == taskDomain.StatusError {
		level = LevelError
	}
	entity, err := n.store.Insert(Collection, domain.Entity{
		Type: "notification",
		Attributes: map[string]any{
			"user_id":    user.ID,
			"level":      level,
			"text":       fmt.Sprintf("%s: %s", task.Name, task.Message),
			"task_id":    task.ID.String(),
			"seen":       false,
			"created_on": n.now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		n.logger.ErrorContext(ctx, "failed to store notification",
			slog.String("task_id", task.ID.String()),
			slog.Any("error", err),
		)
		return
	}

	if n.hub != nil {
		n.hub.Publish(user.ID, entity)
	}
}
