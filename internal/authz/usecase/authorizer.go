package usecase

import (
	"context"
	"log/slog"

	authzDomain "github.com/allisson/resourcegateway/internal/authz/domain"
	identityDomain "github.com/allisson/resourcegateway/internal/identity/domain"
	"github.com/allisson/resourcegateway/internal/metrics"
)

type authorizer struct {
	table     *authzDomain.PolicyTable
	features  FeatureChecker
	auditLogs AuditLogUseCase
	metrics   metrics.BusinessMetrics
	logger    *slog.Logger
}

// NewAuthorizer creates an Authorizer over the policy table. auditLogs may be nil,
// in which case decisions are only logged and counted.
func NewAuthorizer(
	table *authzDomain.PolicyTable,
	features FeatureChecker,
	auditLogs AuditLogUseCase,
	m metrics.BusinessMetrics,
	logger *slog.Logger,
) Authorizer {
	return &authorizer{
		table:     table,
		features:  features,
		auditLogs: auditLogs,
		metrics:   m,
		logger:    logger,
	}
}

func (a *authorizer) Authorize(
	ctx context.Context,
	principal *identityDomain.Principal,
	check authzDomain.Check,
) error {
	identifier, allowed := a.evaluate(principal, check)

	a.metrics.RecordAuthzDecision(ctx, check.Collection, check.Action, allowed)
	a.audit(ctx, principal, check, identifier, allowed)

	if !allowed {
		a.logger.Debug("authorization denied",
			slog.String("check", check.String()),
			slog.String("role_id", principal.RoleID),
		)
		return authzDomain.ErrActionForbidden(check)
	}
	return nil
}

func (a *authorizer) Allowed(principal *identityDomain.Principal, check authzDomain.Check) bool {
	_, allowed := a.evaluate(principal, check)
	return allowed
}

func (a *authorizer) Permits(principal *identityDomain.Principal, identifiers ...string) bool {
	return a.match(principal, identifiers) != ""
}

// evaluate returns the first identifier that grants check, if any.
func (a *authorizer) evaluate(principal *identityDomain.Principal, check authzDomain.Check) (string, bool) {
	if principal == nil {
		return "", false
	}
	req, ok := a.table.Lookup(check)
	if !ok {
		return "", false
	}
	identifier := a.match(principal, req.Identifiers)
	return identifier, identifier != ""
}

func (a *authorizer) match(principal *identityDomain.Principal, identifiers []string) string {
	if principal == nil || principal.RoleID == "" {
		return ""
	}
	for _, id := range identifiers {
		if a.features.RoleAllows(principal.RoleID, id) {
			return id
		}
	}
	return ""
}

// audit records the decision. A failed write is logged and never changes the outcome.
func (a *authorizer) audit(
	ctx context.Context,
	principal *identityDomain.Principal,
	check authzDomain.Check,
	identifier string,
	allowed bool,
) {
	if a.auditLogs == nil {
		return
	}

	entry := &authzDomain.AuditLog{
		RequestID:  authzDomain.RequestIDFromContext(ctx),
		Collection: check.Collection,
		Scope:      string(check.Scope),
		Action:     check.Action,
		Identifier: identifier,
		Allowed:    allowed,
	}
	if principal != nil {
		entry.UserID = principal.UserID
		entry.GroupID = principal.GroupID
		entry.Metadata = map[string]any{
			"login":       principal.Login,
			"role":        principal.RoleName,
			"auth_method": string(principal.AuthMethod),
		}
	}
	if check.Parent != "" {
		if entry.Metadata == nil {
			entry.Metadata = map[string]any{}
		}
		entry.Metadata["parent"] = check.Parent
	}

	if err := a.auditLogs.Record(ctx, entry); err != nil {
		a.logger.Error("failed to record audit log",
			slog.String("check", check.String()),
			slog.Any("error", err),
		)
	}
}
