package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	authzUsecase "github.com/allisson/resourcegateway/internal/authz/usecase"
)

// RunCleanAuditLogs removes authorization audit entries older than days.
func RunCleanAuditLogs(
	ctx context.Context,
	auditLogUseCase authzUsecase.AuditLogUseCase,
	logger *slog.Logger,
	writer io.Writer,
	days int,
	dryRun bool,
	format string,
) error {
	job := retentionPurge{subject: "audit log(s)", purge: auditLogUseCase.DeleteOlderThan}
	if _, err := job.run(ctx, logger, writer, days, dryRun, format); err != nil {
		return fmt.Errorf("failed to delete audit logs: %w", err)
	}
	return nil
}
