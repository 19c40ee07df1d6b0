// Package mocks provides testify mocks for the authorization use cases.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	authzDomain "github.com/allisson/resourcegateway/internal/authz/domain"
	identityDomain "github.com/allisson/resourcegateway/internal/identity/domain"
)

// MockAuthorizer is a mock implementation of usecase.Authorizer.
type MockAuthorizer struct {
	mock.Mock
}

func (m *MockAuthorizer) Authorize(
	ctx context.Context,
	principal *identityDomain.Principal,
	check authzDomain.Check,
) error {
	args := m.Called(ctx, principal, check)
	return args.Error(0)
}

func (m *MockAuthorizer) Allowed(principal *identityDomain.Principal, check authzDomain.Check) bool {
	args := m.Called(principal, check)
	return args.Bool(0)
}

func (m *MockAuthorizer) Permits(principal *identityDomain.Principal, identifiers ...string) bool {
	args := m.Called(principal, identifiers)
	return args.Bool(0)
}

// MockAuditLogUseCase is a mock implementation of usecase.AuditLogUseCase.
type MockAuditLogUseCase struct {
	mock.Mock
}

func (m *MockAuditLogUseCase) Record(ctx context.Context, auditLog *authzDomain.AuditLog) error {
	args := m.Called(ctx, auditLog)
	return args.Error(0)
}

func (m *MockAuditLogUseCase) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*authzDomain.AuditLog, error) {
	args := m.Called(ctx, offset, limit, createdAtFrom, createdAtTo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*authzDomain.AuditLog), args.Error(1)
}

func (m *MockAuditLogUseCase) DeleteOlderThan(ctx context.Context, days int, dryRun bool) (int64, error) {
	args := m.Called(ctx, days, dryRun)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAuditLogUseCase) VerifyBatch(
	ctx context.Context,
	createdAtFrom, createdAtTo *time.Time,
) (*authzDomain.VerificationReport, error) {
	args := m.Called(ctx, createdAtFrom, createdAtTo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authzDomain.VerificationReport), args.Error(1)
}
