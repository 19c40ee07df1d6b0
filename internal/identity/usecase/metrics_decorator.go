package usecase

import (
	"context"
	"time"

	identityDomain "github.com/allisson/resourcegateway/internal/identity/domain"
	"github.com/allisson/resourcegateway/internal/metrics"
)

// tokenUseCaseWithMetrics decorates TokenUseCase with metrics instrumentation.
type tokenUseCaseWithMetrics struct {
	next    TokenUseCase
	metrics metrics.BusinessMetrics
}

// NewTokenUseCaseWithMetrics wraps a TokenUseCase with metrics recording.
func NewTokenUseCaseWithMetrics(useCase TokenUseCase, m metrics.BusinessMetrics) TokenUseCase {
	return &tokenUseCaseWithMetrics{next: useCase, metrics: m}
}

func (t *tokenUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	t.metrics.RecordOperation(ctx, "identity", operation, status)
	t.metrics.RecordDuration(ctx, "identity", operation, time.Since(start), status)
}

// Issue records metrics for token issuance.
func (t *tokenUseCaseWithMetrics) Issue(
	ctx context.Context,
	principal *identityDomain.Principal,
	purpose identityDomain.Purpose,
) (*identityDomain.IssueTokenOutput, error) {
	start := time.Now()
	output, err := t.next.Issue(ctx, principal, purpose)
	t.record(ctx, "token_issue", start, err)
	return output, err
}

// IssueForLogin records metrics for command-line token issuance.
func (t *tokenUseCaseWithMetrics) IssueForLogin(
	ctx context.Context,
	login string,
	purpose identityDomain.Purpose,
) (*identityDomain.IssueTokenOutput, error) {
	start := time.Now()
	output, err := t.next.IssueForLogin(ctx, login, purpose)
	t.record(ctx, "token_issue", start, err)
	return output, err
}

// Authenticate records metrics for token authentication.
func (t *tokenUseCaseWithMetrics) Authenticate(
	ctx context.Context,
	tokenHash string,
	allowed []identityDomain.Purpose,
) (*identityDomain.Token, error) {
	start := time.Now()
	token, err := t.next.Authenticate(ctx, tokenHash, allowed)
	t.record(ctx, "token_authenticate", start, err)
	return token, err
}

// Revoke records metrics for token revocation.
func (t *tokenUseCaseWithMetrics) Revoke(ctx context.Context, tokenHash string) error {
	start := time.Now()
	err := t.next.Revoke(ctx, tokenHash)
	t.record(ctx, "token_revoke", start, err)
	return err
}

// PurgeExpired records metrics for expired token cleanup.
func (t *tokenUseCaseWithMetrics) PurgeExpired(ctx context.Context, days int, dryRun bool) (int64, error) {
	start := time.Now()
	count, err := t.next.PurgeExpired(ctx, days, dryRun)
	t.record(ctx, "token_purge", start, err)
	return count, err
}
