package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	taskDomain "github.com/allisson/resourcegateway/internal/task/domain"
)

// lifecycle stores finished tasks and rolls completion up to their parents.
type lifecycle struct {
	repo     TaskRepository
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// finish stores a task that has reached a final state and finishes its parent once
// every sibling is done.
func (l *lifecycle) finish(ctx context.Context, task *taskDomain.Task) error {
	if err := l.repo.Update(ctx, task); err != nil {
		return err
	}
	if task.State == taskDomain.StateFinished && l.notifier != nil {
		l.notifier.TaskFinished(ctx, task)
	}
	return l.finishParent(ctx, task)
}

func (l *lifecycle) finishParent(ctx context.Context, task *taskDomain.Task) error {
	if task.ParentID == nil {
		return nil
	}

	children, err := l.repo.ListChildren(ctx, *task.ParentID)
	if err != nil {
		return err
	}
	failed := 0
	for _, child := range children {
		if !child.Done() {
			return nil
		}
		if child.Status == taskDomain.StatusError {
			failed++
		}
	}

	parent, err := l.repo.Get(ctx, *task.ParentID)
	if err != nil {
		return err
	}
	if parent.Done() {
		return nil
	}

	status, message := taskDomain.StatusOK, "Task completed successfully"
	if failed > 0 {
		status = taskDomain.StatusError
		message = fmt.Sprintf("%d of %d child tasks failed", failed, len(children))
	}
	parent.Finish(status, message, l.now())

	if l.logger != nil {
		l.logger.Info("parent task finished",
			slog.String("task_id", parent.ID.String()),
			slog.String("status", string(status)),
		)
	}
	return l.finish(ctx, parent)
}
