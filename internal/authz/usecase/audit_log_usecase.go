package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authzDomain "github.com/allisson/resourcegateway/internal/authz/domain"
	authzService "github.com/allisson/resourcegateway/internal/authz/service"
	apperrors "github.com/allisson/resourcegateway/internal/errors"
)

const verifyBatchSize = 500

type auditLogUseCase struct {
	auditLogRepo AuditLogRepository
	signer       authzService.AuditSigner
	secret       []byte
}

// NewAuditLogUseCase creates an AuditLogUseCase. Entries are stored unsigned when
// secret is empty.
func NewAuditLogUseCase(
	auditLogRepo AuditLogRepository,
	signer authzService.AuditSigner,
	secret []byte,
) AuditLogUseCase {
	return &auditLogUseCase{
		auditLogRepo: auditLogRepo,
		signer:       signer,
		secret:       secret,
	}
}

// Record stores a decision with a fresh UUIDv7 and a UTC timestamp.
func (a *auditLogUseCase) Record(ctx context.Context, auditLog *authzDomain.AuditLog) error {
	auditLog.ID = uuid.Must(uuid.NewV7())
	// Postgres keeps microseconds; truncating keeps the signature verifiable after a round trip.
	auditLog.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	if len(a.secret) > 0 {
		signature, err := a.signer.Sign(a.secret, auditLog)
		if err != nil {
			return apperrors.Wrap(err, "failed to sign audit log")
		}
		auditLog.Signature = signature
		auditLog.IsSigned = true
	}

	if err := a.auditLogRepo.Create(ctx, auditLog); err != nil {
		return apperrors.Wrap(err, "failed to create audit log")
	}
	return nil
}

func (a *auditLogUseCase) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*authzDomain.AuditLog, error) {
	auditLogs, err := a.auditLogRepo.List(ctx, offset, limit, createdAtFrom, createdAtTo)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	return auditLogs, nil
}

func (a *auditLogUseCase) DeleteOlderThan(ctx context.Context, days int, dryRun bool) (int64, error) {
	if days < 0 {
		return 0, apperrors.Errorf(apperrors.ErrInvalidInput, "days must be a non-negative number")
	}

	olderThan := time.Now().UTC().AddDate(0, 0, -days)
	count, err := a.auditLogRepo.DeleteOlderThan(ctx, olderThan, dryRun)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete audit logs")
	}
	return count, nil
}

// VerifyBatch pages through the range and checks every signed entry. Entries that
// were stored unsigned are counted but not verified.
func (a *auditLogUseCase) VerifyBatch(
	ctx context.Context,
	createdAtFrom, createdAtTo *time.Time,
) (*authzDomain.VerificationReport, error) {
	if len(a.secret) == 0 {
		return nil, apperrors.Errorf(apperrors.ErrInvalidInput, "audit signing secret is not configured")
	}

	report := &authzDomain.VerificationReport{InvalidLogs: make([]uuid.UUID, 0)}
	for offset := 0; ; offset += verifyBatchSize {
		logs, err := a.auditLogRepo.List(ctx, offset, verifyBatchSize, createdAtFrom, createdAtTo)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to list audit logs")
		}

		for _, log := range logs {
			report.TotalChecked++
			if !log.IsSigned {
				report.UnsignedCount++
				continue
			}
			report.SignedCount++
			if err := a.signer.Verify(a.secret, log); err != nil {
				report.InvalidCount++
				report.InvalidLogs = append(report.InvalidLogs, log.ID)
				continue
			}
			report.ValidCount++
		}

		if len(logs) < verifyBatchSize {
			return report, nil
		}
	}
}
