package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/resourcegateway/internal/database"
	taskDomain "github.com/allisson/resourcegateway/internal/task/domain"
)

// Config holds task worker configuration.
type Config struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	// ConsumeTimeout bounds each blocking wait on the queue.
	ConsumeTimeout time.Duration
}

// Worker runs queued tasks. It sweeps the tasks table on an interval and, when a
// queue is configured, also runs tasks as their ids are published.
type Worker struct {
	config    Config
	txManager database.TxManager
	repo      TaskRepository
	queue     Queue
	lifecycle *lifecycle
	logger    *slog.Logger

	mu      sync.RWMutex
	runners map[string]Runner
}

// NewWorker creates a Worker. queue and notifier may be nil.
func NewWorker(
	config Config,
	txManager database.TxManager,
	repo TaskRepository,
	queue Queue,
	notifier Notifier,
	logger *slog.Logger,
) *Worker {
	if config.ConsumeTimeout <= 0 {
		config.ConsumeTimeout = time.Second
	}
	return &Worker{
		config:    config,
		txManager: txManager,
		repo:      repo,
		queue:     queue,
		lifecycle: &lifecycle{repo: repo, notifier: notifier, logger: logger, now: time.Now},
		logger:    logger,
		runners:   make(map[string]Runner),
	}
}

// RegisterRunner binds an operation name to the runner that executes it.
func (w *Worker) RegisterRunner(operation string, runner Runner) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.runners[operation] = runner
}

// Operations lists the registered operation names.
func (w *Worker) Operations() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ops := make([]string, 0, len(w.runners))
	for op := range w.runners {
		ops = append(ops, op)
	}
	return ops
}

func (w *Worker) runner(operation string) (Runner, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	r, ok := w.runners[operation]
	return r, ok
}

// Start runs the worker until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	if w.logger != nil {
		w.logger.Info("starting task worker",
			slog.Duration("interval", w.config.Interval),
			slog.Int("batch_size", w.config.BatchSize),
			slog.Bool("queue", w.queue != nil),
		)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.sweep(gctx) })
	if w.queue != nil {
		g.Go(func() error { return w.consume(gctx) })
	}

	err := g.Wait()
	if w.logger != nil {
		w.logger.Info("stopping task worker")
	}
	return err
}

func (w *Worker) sweep(ctx context.Context) error {
	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessQueued(ctx); err != nil && w.logger != nil {
				w.logger.Error("failed to process queued tasks", slog.Any("error", err))
			}
		}
	}
}

func (w *Worker) consume(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		id, ok, err := w.queue.Consume(ctx, w.config.ConsumeTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if w.logger != nil {
				w.logger.Error("failed to consume task queue", slog.Any("error", err))
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.config.Interval):
			}
			continue
		}
		if !ok {
			continue
		}

		if err := w.ProcessTask(ctx, id); err != nil && w.logger != nil {
			w.logger.Error("failed to process task",
				slog.String("task_id", id.String()),
				slog.Any("error", err),
			)
		}
	}
}

// ProcessQueued claims and runs a batch of queued tasks in a transaction.
func (w *Worker) ProcessQueued(ctx context.Context) error {
	return w.txManager.WithTx(ctx, func(ctx context.Context) error {
		tasks, err := w.repo.ListQueued(ctx, w.config.BatchSize)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			return nil
		}

		if w.logger != nil {
			w.logger.Info("processing tasks", slog.Int("count", len(tasks)))
		}

		for _, task := range tasks {
			if err := w.claimAndRun(ctx, task); err != nil {
				return err
			}
		}
		return nil
	})
}

// ProcessTask runs a single task by id. Tasks that are no longer queued are skipped.
func (w *Worker) ProcessTask(ctx context.Context, id uuid.UUID) error {
	return w.txManager.WithTx(ctx, func(ctx context.Context) error {
		task, err := w.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if task.State != taskDomain.StateQueued || task.IsParent() {
			return nil
		}
		return w.claimAndRun(ctx, task)
	})
}

func (w *Worker) claimAndRun(ctx context.Context, task *taskDomain.Task) error {
	claimed, err := w.repo.Claim(ctx, task.ID, w.lifecycle.now().UTC())
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}
	task.State = taskDomain.StateRunning

	message, runErr := w.run(ctx, task)
	now := w.lifecycle.now().UTC()

	if runErr == nil {
		if message == "" {
			message = "Task completed successfully"
		}
		task.Finish(taskDomain.StatusOK, message, now)
		return w.lifecycle.finish(ctx, task)
	}

	task.Retries++
	if w.logger != nil {
		w.logger.Error("task failed",
			slog.String("task_id", task.ID.String()),
			slog.String("operation", task.Operation),
			slog.Int("retries", task.Retries),
			slog.Any("error", runErr),
		)
	}

	if _, known := w.runner(task.Operation); !known || task.Retries >= w.config.MaxRetries {
		task.Finish(taskDomain.StatusError, runErr.Error(), now)
		return w.lifecycle.finish(ctx, task)
	}

	task.State = taskDomain.StateQueued
	task.Message = runErr.Error()
	task.UpdatedAt = now
	return w.repo.Update(ctx, task)
}

func (w *Worker) run(ctx context.Context, task *taskDomain.Task) (message string, err error) {
	runner, ok := w.runner(task.Operation)
	if !ok {
		return "", fmt.Errorf("no runner registered for operation %s", task.Operation)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation %s panicked: %v", task.Operation, r)
		}
	}()

	if w.logger != nil {
		w.logger.Info("running task",
			slog.String("task_id", task.ID.String()),
			slog.String("operation", task.Operation),
		)
	}
	return runner.Run(ctx, task)
}
