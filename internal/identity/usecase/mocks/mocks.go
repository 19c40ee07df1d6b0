// Package mocks provides testify mocks for the identity use cases.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	identityDomain "github.com/allisson/resourcegateway/internal/identity/domain"
	"github.com/allisson/resourcegateway/internal/identity/usecase"
)

// MockTokenUseCase is a mock implementation of usecase.TokenUseCase.
type MockTokenUseCase struct {
	mock.Mock
}

func (m *MockTokenUseCase) Issue(
	ctx context.Context,
	principal *identityDomain.Principal,
	purpose identityDomain.Purpose,
) (*identityDomain.IssueTokenOutput, error) {
	args := m.Called(ctx, principal, purpose)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityDomain.IssueTokenOutput), args.Error(1)
}

func (m *MockTokenUseCase) IssueForLogin(
	ctx context.Context,
	login string,
	purpose identityDomain.Purpose,
) (*identityDomain.IssueTokenOutput, error) {
	args := m.Called(ctx, login, purpose)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityDomain.IssueTokenOutput), args.Error(1)
}

func (m *MockTokenUseCase) Authenticate(
	ctx context.Context,
	tokenHash string,
	allowed []identityDomain.Purpose,
) (*identityDomain.Token, error) {
	args := m.Called(ctx, tokenHash, allowed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityDomain.Token), args.Error(1)
}

func (m *MockTokenUseCase) Revoke(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func (m *MockTokenUseCase) PurgeExpired(ctx context.Context, days int, dryRun bool) (int64, error) {
	args := m.Called(ctx, days, dryRun)
	return args.Get(0).(int64), args.Error(1)
}

// MockResolverUseCase is a mock implementation of usecase.ResolverUseCase.
type MockResolverUseCase struct {
	mock.Mock
}

func (m *MockResolverUseCase) Resolve(
	ctx context.Context,
	creds usecase.Credentials,
	allowed []identityDomain.Purpose,
) (*identityDomain.Principal, error) {
	args := m.Called(ctx, creds, allowed)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityDomain.Principal), args.Error(1)
}
