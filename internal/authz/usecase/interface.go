// Package usecase implements authorization decisions and the audit trail they leave.
package usecase

import (
	"context"
	"time"

	authzDomain "github.com/allisson/resourcegateway/internal/authz/domain"
	identityDomain "github.com/allisson/resourcegateway/internal/identity/domain"
)

// AuditLogRepository persists audit log entries.
type AuditLogRepository interface {
	// Create stores a new audit log entry.
	Create(ctx context.Context, auditLog *authzDomain.AuditLog) error

	// List returns entries newest first. Nil bounds are not applied; both bounds are inclusive.
	List(
		ctx context.Context,
		offset, limit int,
		createdAtFrom, createdAtTo *time.Time,
	) ([]*authzDomain.AuditLog, error)

	// DeleteOlderThan removes entries created before olderThan, or only counts them when dryRun is set.
	DeleteOlderThan(ctx context.Context, olderThan time.Time, dryRun bool) (int64, error)
}

// FeatureChecker answers whether a role holds a feature identifier, directly or
// through the feature tree.
type FeatureChecker interface {
	RoleAllows(roleID, identifier string) bool
}

// Authorizer evaluates policy checks for principals.
type Authorizer interface {
	// Authorize returns nil when the principal's role holds one of the identifiers
	// the check requires. Any other outcome, including a missing policy entry, is a
	// Forbidden error. The decision is audited.
	Authorize(ctx context.Context, principal *identityDomain.Principal, check authzDomain.Check) error

	// Allowed evaluates a check without auditing it. It is used to filter the action
	// lists rendered to the principal.
	Allowed(principal *identityDomain.Principal, check authzDomain.Check) bool

	// Permits reports whether the principal holds any of the identifiers.
	Permits(principal *identityDomain.Principal, identifiers ...string) bool
}

// AuditLogUseCase records and maintains the authorization audit trail.
type AuditLogUseCase interface {
	// Record assigns an id and timestamp to the entry, signs it when a signing
	// secret is configured and stores it.
	Record(ctx context.Context, auditLog *authzDomain.AuditLog) error

	// List returns entries newest first.
	List(
		ctx context.Context,
		offset, limit int,
		createdAtFrom, createdAtTo *time.Time,
	) ([]*authzDomain.AuditLog, error)

	// DeleteOlderThan removes entries older than days days.
	DeleteOlderThan(ctx context.Context, days int, dryRun bool) (int64, error)

	// VerifyBatch checks the signatures of every entry in the range.
	VerifyBatch(ctx context.Context, createdAtFrom, createdAtTo *time.Time) (*authzDomain.VerificationReport, error)
}
