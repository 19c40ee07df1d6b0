// Package usecase implements the task delegator: enqueueing delegated work, the task
// lifecycle and the worker that runs queued tasks.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	taskDomain "github.com/allisson/resourcegateway/internal/task/domain"
)

// TaskRepository persists tasks.
type TaskRepository interface {
	Create(ctx context.Context, task *taskDomain.Task) error
	Get(ctx context.Context, id uuid.UUID) (*taskDomain.Task, error)
	List(ctx context.Context) ([]*taskDomain.Task, error)
	ListChildren(ctx context.Context, parentID uuid.UUID) ([]*taskDomain.Task, error)

	// ListQueued locks up to limit runnable queued tasks. Must run inside a transaction.
	ListQueued(ctx context.Context, limit int) ([]*taskDomain.Task, error)

	// Claim moves a queued task to running and reports whether this caller won it.
	Claim(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)

	Update(ctx context.Context, task *taskDomain.Task) error

	// Delete removes a task and its children.
	Delete(ctx context.Context, id uuid.UUID) error
}

// Queue delivers runnable task ids to workers ahead of the next sweep.
type Queue interface {
	Publish(ctx context.Context, ids ...uuid.UUID) error

	// Consume waits up to timeout for the next id. ok is false when nothing arrived.
	Consume(ctx context.Context, timeout time.Duration) (id uuid.UUID, ok bool, err error)
}

// Runner executes one task operation. The returned message is stored on the task
// when it succeeds.
type Runner interface {
	Run(ctx context.Context, task *taskDomain.Task) (string, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, task *taskDomain.Task) (string, error)

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, task *taskDomain.Task) (string, error) {
	return f(ctx, task)
}

// Notifier is told about every task that finishes, parents included.
type Notifier interface {
	TaskFinished(ctx context.Context, task *taskDomain.Task)
}

// TaskUseCase is the task delegator used by gateway backends.
type TaskUseCase interface {
	// Enqueue persists the task described by spec together with its children and
	// returns the top-level task. Runnable ids are published after commit.
	Enqueue(ctx context.Context, spec taskDomain.Spec) (*taskDomain.Task, error)

	Get(ctx context.Context, id string) (*taskDomain.Task, error)
	List(ctx context.Context) ([]*taskDomain.Task, error)

	// Cancel cancels a queued task and its queued children.
	Cancel(ctx context.Context, id string) (*taskDomain.Task, error)

	// Delete removes a finished or cancelled task.
	Delete(ctx context.Context, id string) error
}
