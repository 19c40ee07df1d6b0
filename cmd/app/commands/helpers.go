// Package commands implements the gateway's CLI commands. Each Run function takes
// its collaborators explicitly so tests can drive it without a container.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"

	"github.com/allisson/resourcegateway/internal/app"
)

// IOTuple is the terminal a command talks to.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO binds commands to the process terminal.
func DefaultIO() IOTuple {
	return IOTuple{Reader: os.Stdin, Writer: os.Stdout}
}

func closeContainer(container *app.Container, logger *slog.Logger) {
	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("container shutdown failed", slog.Any("error", err))
	}
}

func closeMigrate(m *migrate.Migrate, logger *slog.Logger) {
	if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
		logger.Error("migrate close failed",
			slog.Any("source_error", srcErr),
			slog.Any("database_error", dbErr),
		)
	}
}

func writeJSON(writer io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, _ = fmt.Fprintln(writer, string(data))
	return nil
}

// retentionPurge describes a "delete rows older than N days" maintenance command.
type retentionPurge struct {
	subject string // plural noun used in output, e.g. "audit log(s)"
	purge   func(ctx context.Context, days int, dryRun bool) (int64, error)
}

func (p retentionPurge) run(
	ctx context.Context,
	logger *slog.Logger,
	writer io.Writer,
	days int,
	dryRun bool,
	format string,
) (int64, error) {
	if days < 0 {
		return 0, fmt.Errorf("days must be a positive number, got: %d", days)
	}

	attrs := []any{slog.String("subject", p.subject), slog.Int("days", days), slog.Bool("dry_run", dryRun)}
	logger.Info("retention purge started", attrs...)

	count, err := p.purge(ctx, days, dryRun)
	if err != nil {
		return 0, err
	}

	switch {
	case format == "json":
		if err := writeJSON(writer, map[string]any{"count": count, "days": days, "dry_run": dryRun}); err != nil {
			return 0, err
		}
	case dryRun:
		_, _ = fmt.Fprintf(writer, "Dry-run mode: Would delete %d %s older than %d day(s)\n", count, p.subject, days)
	default:
		_, _ = fmt.Fprintf(writer, "Successfully deleted %d %s older than %d day(s)\n", count, p.subject, days)
	}

	logger.Info("retention purge completed", append(attrs, slog.Int64("count", count))...)
	return count, nil
}
