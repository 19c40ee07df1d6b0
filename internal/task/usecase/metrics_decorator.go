package usecase

import (
	"context"
	"time"

	"github.com/allisson/resourcegateway/internal/metrics"
	taskDomain "github.com/allisson/resourcegateway/internal/task/domain"
)

// taskUseCaseWithMetrics decorates TaskUseCase with metrics instrumentation.
type taskUseCaseWithMetrics struct {
	next    TaskUseCase
	metrics metrics.BusinessMetrics
}

// NewTaskUseCaseWithMetrics wraps a TaskUseCase with metrics recording.
func NewTaskUseCaseWithMetrics(useCase TaskUseCase, m metrics.BusinessMetrics) TaskUseCase {
	return &taskUseCaseWithMetrics{next: useCase, metrics: m}
}

func (t *taskUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	t.metrics.RecordOperation(ctx, "task", operation, status)
	t.metrics.RecordDuration(ctx, "task", operation, time.Since(start), status)
}

func (t *taskUseCaseWithMetrics) Enqueue(ctx context.Context, spec taskDomain.Spec) (*taskDomain.Task, error) {
	start := time.Now()
	task, err := t.next.Enqueue(ctx, spec)
	t.record(ctx, "task_enqueue", start, err)
	return task, err
}

func (t *taskUseCaseWithMetrics) Get(ctx context.Context, id string) (*taskDomain.Task, error) {
	start := time.Now()
	task, err := t.next.Get(ctx, id)
	t.record(ctx, "task_get", start, err)
	return task, err
}

func (t *taskUseCaseWithMetrics) List(ctx context.Context) ([]*taskDomain.Task, error) {
	start := time.Now()
	tasks, err := t.next.List(ctx)
	t.record(ctx, "task_list", start, err)
	return tasks, err
}

func (t *taskUseCaseWithMetrics) Cancel(ctx context.Context, id string) (*taskDomain.Task, error) {
	start := time.Now()
	task, err := t.next.Cancel(ctx, id)
	t.record(ctx, "task_cancel", start, err)
	return task, err
}

func (t *taskUseCaseWithMetrics) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := t.next.Delete(ctx, id)
	t.record(ctx, "task_delete", start, err)
	return err
}
