package usecase

import (
	"context"
	"time"

	authzDomain "github.com/allisson/resourcegateway/internal/authz/domain"
	"github.com/allisson/resourcegateway/internal/metrics"
)

// auditLogUseCaseWithMetrics decorates AuditLogUseCase with metrics instrumentation.
type auditLogUseCaseWithMetrics struct {
	next    AuditLogUseCase
	metrics metrics.BusinessMetrics
}

// NewAuditLogUseCaseWithMetrics wraps an AuditLogUseCase with metrics recording.
func NewAuditLogUseCaseWithMetrics(useCase AuditLogUseCase, m metrics.BusinessMetrics) AuditLogUseCase {
	return &auditLogUseCaseWithMetrics{next: useCase, metrics: m}
}

func (a *auditLogUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	a.metrics.RecordOperation(ctx, "authz", operation, status)
	a.metrics.RecordDuration(ctx, "authz", operation, time.Since(start), status)
}

func (a *auditLogUseCaseWithMetrics) Record(ctx context.Context, auditLog *authzDomain.AuditLog) error {
	start := time.Now()
	err := a.next.Record(ctx, auditLog)
	a.record(ctx, "audit_log_record", start, err)
	return err
}

func (a *auditLogUseCaseWithMetrics) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*authzDomain.AuditLog, error) {
	start := time.Now()
	logs, err := a.next.List(ctx, offset, limit, createdAtFrom, createdAtTo)
	a.record(ctx, "audit_log_list", start, err)
	return logs, err
}

func (a *auditLogUseCaseWithMetrics) DeleteOlderThan(ctx context.Context, days int, dryRun bool) (int64, error) {
	start := time.Now()
	count, err := a.next.DeleteOlderThan(ctx, days, dryRun)
	a.record(ctx, "audit_log_delete", start, err)
	return count, err
}

func (a *auditLogUseCaseWithMetrics) VerifyBatch(
	ctx context.Context,
	createdAtFrom, createdAtTo *time.Time,
) (*authzDomain.VerificationReport, error) {
	start := time.Now()
	report, err := a.next.VerifyBatch(ctx, createdAtFrom, createdAtTo)
	a.record(ctx, "audit_log_verify", start, err)
	return report, err
}
