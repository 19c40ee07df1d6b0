package usecase

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authzDomain "github.com/allisson/resourcegateway/internal/authz/domain"
	"github.com/allisson/resourcegateway/internal/authz/usecase/mocks"
	apperrors "github.com/allisson/resourcegateway/internal/errors"
	gatewayDomain "github.com/allisson/resourcegateway/internal/gateway/domain"
	"github.com/allisson/resourcegateway/internal/gateway/registry"
	identityDomain "github.com/allisson/resourcegateway/internal/identity/domain"
	"github.com/allisson/resourcegateway/internal/metrics"
	"github.com/allisson/resourcegateway/internal/testutil"
)

// roleFeatures grants exact identifiers per role id.
type roleFeatures map[string][]string

func (r roleFeatures) RoleAllows(roleID, identifier string) bool {
	return slices.Contains(r[roleID], identifier)
}

func newTestAuthorizer(t *testing.T, auditLogs AuditLogUseCase) Authorizer {
	t.Helper()
	reg, err := registry.Default()
	require.NoError(t, err)

	features := roleFeatures{
		"1": {"zone_view", "zone_new", "zone_edit", "zone_delete"},
		"2": {"zone_view", "vm_retire_now"},
		"3": {"vm_snapshot_add"},
	}
	return NewAuthorizer(
		authzDomain.NewPolicyTable(reg),
		features,
		auditLogs,
		metrics.NewNoOpBusinessMetrics(),
		testutil.DiscardLogger(),
	)
}

func TestAuthorizer_Authorize(t *testing.T) {
	admin := &identityDomain.Principal{UserID: "1", GroupID: "1", RoleID: "1", Login: "admin"}
	viewer := &identityDomain.Principal{UserID: "2", GroupID: "2", RoleID: "2", Login: "viewer"}
	operator := &identityDomain.Principal{UserID: "3", GroupID: "3", RoleID: "3", Login: "operator"}

	tests := []struct {
		name      string
		principal *identityDomain.Principal
		check     authzDomain.Check
		wantErr   string
	}{
		{
			name:      "Success_HeldIdentifier",
			principal: admin,
			check:     authzDomain.Check{Collection: "zones", Scope: gatewayDomain.ScopeResource, Action: "delete"},
		},
		{
			name:      "Success_AnyIdentifierOfOrSet",
			principal: viewer,
			check:     authzDomain.Check{Collection: "vms", Scope: gatewayDomain.ScopeResource, Action: "retire"},
		},
		{
			name:      "Success_Subcollection",
			principal: operator,
			check: authzDomain.Check{
				Collection: "snapshots",
				Scope:      gatewayDomain.ScopeSubcollection,
				Action:     "create",
				Parent:     "vms",
			},
		},
		{
			name:      "Error_IdentifierNotHeld",
			principal: viewer,
			check:     authzDomain.Check{Collection: "zones", Scope: gatewayDomain.ScopeResource, Action: "delete"},
			wantErr:   "Use of the delete action on zones is forbidden",
		},
		{
			name:      "Error_NoPolicyEntry",
			principal: admin,
			check:     authzDomain.Check{Collection: "zones", Scope: gatewayDomain.ScopeResource, Action: "start"},
			wantErr:   "Use of the start action on zones is forbidden",
		},
		{
			name:      "Error_RoleWithoutFeatures",
			principal: &identityDomain.Principal{UserID: "9", RoleID: "9"},
			check:     authzDomain.Check{Collection: "zones", Scope: gatewayDomain.ScopeCollection, Action: "read"},
			wantErr:   "Use of the read action on zones is forbidden",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authz := newTestAuthorizer(t, nil)
			err := authz.Authorize(context.Background(), tt.principal, tt.check)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))
			assert.Equal(t, tt.wantErr, apperrors.Message(err))
		})
	}
}

func TestAuthorizer_Audit(t *testing.T) {
	ctx := authzDomain.WithRequestID(context.Background(), "req-42")
	principal := &identityDomain.Principal{
		UserID:     "2",
		GroupID:    "2",
		RoleID:     "2",
		Login:      "viewer",
		RoleName:   "EvmRole-viewer",
		AuthMethod: identityDomain.AuthToken,
	}

	t.Run("Success_RecordsAllowedDecision", func(t *testing.T) {
		auditLogs := &mocks.MockAuditLogUseCase{}
		auditLogs.On("Record", ctx, mock.MatchedBy(func(l *authzDomain.AuditLog) bool {
			return l.RequestID == "req-42" &&
				l.UserID == "2" &&
				l.GroupID == "2" &&
				l.Collection == "vms" &&
				l.Scope == "resource" &&
				l.Action == "retire" &&
				l.Identifier == "vm_retire_now" &&
				l.Allowed &&
				l.Metadata["auth_method"] == "token"
		})).Return(nil).Once()

		authz := newTestAuthorizer(t, auditLogs)
		err := authz.Authorize(ctx, principal,
			authzDomain.Check{Collection: "vms", Scope: gatewayDomain.ScopeResource, Action: "retire"})
		require.NoError(t, err)
		auditLogs.AssertExpectations(t)
	})

	t.Run("Success_RecordsDenialWithParent", func(t *testing.T) {
		auditLogs := &mocks.MockAuditLogUseCase{}
		auditLogs.On("Record", ctx, mock.MatchedBy(func(l *authzDomain.AuditLog) bool {
			return !l.Allowed && l.Identifier == "" && l.Metadata["parent"] == "vms"
		})).Return(nil).Once()

		authz := newTestAuthorizer(t, auditLogs)
		err := authz.Authorize(ctx, principal, authzDomain.Check{
			Collection: "snapshots",
			Scope:      gatewayDomain.ScopeSubresource,
			Action:     "delete",
			Parent:     "vms",
		})
		require.Error(t, err)
		auditLogs.AssertExpectations(t)
	})

	t.Run("Success_AuditFailureDoesNotChangeDecision", func(t *testing.T) {
		auditLogs := &mocks.MockAuditLogUseCase{}
		auditLogs.On("Record", ctx, mock.Anything).Return(assert.AnError).Once()

		authz := newTestAuthorizer(t, auditLogs)
		err := authz.Authorize(ctx, principal,
			authzDomain.Check{Collection: "zones", Scope: gatewayDomain.ScopeCollection, Action: "read"})
		assert.NoError(t, err)
		auditLogs.AssertExpectations(t)
	})
}

func TestAuthorizer_AllowedAndPermits(t *testing.T) {
	auditLogs := &mocks.MockAuditLogUseCase{}
	authz := newTestAuthorizer(t, auditLogs)
	viewer := &identityDomain.Principal{UserID: "2", RoleID: "2"}

	assert.True(t, authz.Allowed(viewer,
		authzDomain.Check{Collection: "zones", Scope: gatewayDomain.ScopeResource, Action: "read"}))
	assert.False(t, authz.Allowed(viewer,
		authzDomain.Check{Collection: "zones", Scope: gatewayDomain.ScopeResource, Action: "edit"}))
	assert.False(t, authz.Allowed(nil,
		authzDomain.Check{Collection: "zones", Scope: gatewayDomain.ScopeResource, Action: "read"}))

	assert.True(t, authz.Permits(viewer, "task_admin", "zone_view"))
	assert.False(t, authz.Permits(viewer, "task_admin"))
	assert.False(t, authz.Permits(viewer))

	// Allowed and Permits never write audit entries.
	auditLogs.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}
