package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/resourcegateway/internal/database"
	apperrors "github.com/allisson/resourcegateway/internal/errors"
	taskDomain "github.com/allisson/resourcegateway/internal/task/domain"
)

// taskUseCase implements TaskUseCase.
type taskUseCase struct {
	txManager database.TxManager
	repo      TaskRepository
	queue     Queue
	lifecycle *lifecycle
	logger    *slog.Logger
}

// NewTaskUseCase creates a TaskUseCase. queue may be nil, in which case tasks are
// only picked up by the worker sweep.
func NewTaskUseCase(
	txManager database.TxManager,
	repo TaskRepository,
	queue Queue,
	notifier Notifier,
	logger *slog.Logger,
) TaskUseCase {
	return &taskUseCase{
		txManager: txManager,
		repo:      repo,
		queue:     queue,
		lifecycle: &lifecycle{repo: repo, notifier: notifier, logger: logger, now: time.Now},
		logger:    logger,
	}
}

func (t *taskUseCase) Enqueue(ctx context.Context, spec taskDomain.Spec) (*taskDomain.Task, error) {
	if spec.Operation == "" && len(spec.Children) == 0 {
		return nil, apperrors.Errorf(apperrors.ErrInvalidInput, "Task %s has neither an operation nor children", spec.Name)
	}

	var root *taskDomain.Task
	var runnable []uuid.UUID
	now := time.Now().UTC()

	err := t.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		root, err = t.create(ctx, spec, nil, now, &runnable)
		return err
	})
	if err != nil {
		return nil, err
	}

	if t.queue != nil && len(runnable) > 0 {
		if err := t.queue.Publish(ctx, runnable...); err != nil && t.logger != nil {
			// The worker sweep still picks the tasks up.
			t.logger.Warn("failed to publish tasks",
				slog.String("task_id", root.ID.String()),
				slog.Any("error", err),
			)
		}
	}
	return root, nil
}

func (t *taskUseCase) create(
	ctx context.Context,
	spec taskDomain.Spec,
	parentID *uuid.UUID,
	now time.Time,
	runnable *[]uuid.UUID,
) (*taskDomain.Task, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to generate task id")
	}

	task := &taskDomain.Task{
		ID:         id,
		ParentID:   parentID,
		Name:       spec.Name,
		Operation:  spec.Operation,
		Collection: spec.Collection,
		ResourceID: spec.ResourceID,
		UserID:     spec.UserID,
		State:      taskDomain.StateQueued,
		Payload:    spec.Payload,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if len(spec.Children) > 0 {
		task.Operation = ""
	}
	if task.Payload == nil {
		task.Payload = map[string]any{}
	}

	if err := t.repo.Create(ctx, task); err != nil {
		return nil, err
	}
	if !task.IsParent() {
		*runnable = append(*runnable, task.ID)
	}

	for _, childSpec := range spec.Children {
		if childSpec.UserID == "" {
			childSpec.UserID = spec.UserID
		}
		if childSpec.Collection == "" {
			childSpec.Collection, childSpec.ResourceID = spec.Collection, spec.ResourceID
		}
		child, err := t.create(ctx, childSpec, &task.ID, now, runnable)
		if err != nil {
			return nil, err
		}
		task.Children = append(task.Children, child)
	}
	return task, nil
}

func (t *taskUseCase) Get(ctx context.Context, id string) (*taskDomain.Task, error) {
	taskID, err := taskDomain.ParseID(id)
	if err != nil {
		return nil, err
	}
	return t.repo.Get(ctx, taskID)
}

func (t *taskUseCase) List(ctx context.Context) ([]*taskDomain.Task, error) {
	return t.repo.List(ctx)
}

func (t *taskUseCase) Cancel(ctx context.Context, id string) (*taskDomain.Task, error) {
	taskID, err := taskDomain.ParseID(id)
	if err != nil {
		return nil, err
	}

	var task *taskDomain.Task
	err = t.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		task, err = t.repo.Get(ctx, taskID)
		if err != nil {
			return err
		}
		if task.State != taskDomain.StateQueued {
			return taskDomain.ErrNotCancellable(task)
		}

		now := t.lifecycle.now().UTC()
		if err := t.cancelChildren(ctx, task, now); err != nil {
			return err
		}
		cancel(task, now)
		return t.lifecycle.finish(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	if t.logger != nil {
		t.logger.Info("task cancelled", slog.String("task_id", task.ID.String()))
	}
	return task, nil
}

func (t *taskUseCase) cancelChildren(ctx context.Context, task *taskDomain.Task, now time.Time) error {
	if !task.IsParent() {
		return nil
	}
	children, err := t.repo.ListChildren(ctx, task.ID)
	if err != nil {
		return err
	}
	for _, child := range children {
		if child.State != taskDomain.StateQueued {
			continue
		}
		if err := t.cancelChildren(ctx, child, now); err != nil {
			return err
		}
		cancel(child, now)
		if err := t.repo.Update(ctx, child); err != nil {
			return err
		}
	}
	return nil
}

func cancel(task *taskDomain.Task, now time.Time) {
	task.State = taskDomain.StateCancelled
	task.Message = "Task cancelled"
	task.UpdatedAt = now
	task.FinishedAt = &now
}

func (t *taskUseCase) Delete(ctx context.Context, id string) error {
	taskID, err := taskDomain.ParseID(id)
	if err != nil {
		return err
	}

	return t.txManager.WithTx(ctx, func(ctx context.Context) error {
		task, err := t.repo.Get(ctx, taskID)
		if err != nil {
			return err
		}
		if !task.Done() {
			return taskDomain.ErrNotDeletable(task)
		}
		return t.repo.Delete(ctx, task.ID)
	})
}
