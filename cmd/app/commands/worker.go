package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// TaskRunner processes queued tasks until ctx is cancelled.
type TaskRunner interface {
	Start(ctx context.Context) error
	Operations() []string
}

// RunWorker runs the task worker in the foreground until SIGINT/SIGTERM. The API
// server may run with TASK_WORKER_ENABLED=false when workers run as separate processes.
func RunWorker(ctx context.Context, worker TaskRunner, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting worker", slog.Any("operations", worker.Operations()))

	if err := worker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("worker error: %w", err)
	}

	logger.Info("worker stopped")
	return nil
}
