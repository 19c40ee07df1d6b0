package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/resourcegateway/internal/directory"
	identityDomain "github.com/allisson/resourcegateway/internal/identity/domain"
	identityService "github.com/allisson/resourcegateway/internal/identity/service"
	"github.com/allisson/resourcegateway/internal/seed"
	"github.com/allisson/resourcegateway/internal/store"
)

type prefixHasher struct{}

func (prefixHasher) HashSecret(plain string) (string, error) { return "hashed:" + plain, nil }

// prefixSecrets verifies digests produced by prefixHasher.
type prefixSecrets struct{}

func (prefixSecrets) HashSecret(plain string) (string, error) { return "hashed:" + plain, nil }

func (prefixSecrets) CompareSecret(plain, hashed string) bool { return hashed == "hashed:"+plain }

func newTestDirectory(t *testing.T) *directory.Directory {
	t.Helper()
	f, err := seed.Default()
	require.NoError(t, err)
	d, err := directory.New(store.FromFixture(f), f.Features, prefixHasher{})
	require.NoError(t, err)
	return d
}

func newTestResolver(
	t *testing.T,
	tokens TokenUseCase,
	systemTokens identityService.SystemTokenService,
) ResolverUseCase {
	t.Helper()
	return NewResolverUseCase(
		newTestDirectory(t),
		tokens,
		prefixSecrets{},
		identityService.NewTokenService(),
		systemTokens,
	)
}

func TestResolver_Basic(t *testing.T) {
	ctx := context.Background()
	resolver := newTestResolver(t, &mockTokenUseCaseStub{}, nil)

	t.Run("Success_DefaultGroup", func(t *testing.T) {
		p, err := resolver.Resolve(ctx, Credentials{HasBasic: true, Login: "jdoe", Password: "jdoe"},
			identityDomain.APIPurposes)
		require.NoError(t, err)
		assert.Equal(t, "4", p.UserID)
		assert.Equal(t, "jdoe", p.Login)
		assert.Equal(t, "4", p.GroupID)
		assert.Equal(t, "EvmRole-user", p.RoleName)
		assert.Equal(t, "Engineering", p.TenantName)
		assert.Equal(t, identityDomain.AuthBasic, p.AuthMethod)
	})

	t.Run("Success_GroupSwitchByDescription", func(t *testing.T) {
		p, err := resolver.Resolve(ctx, Credentials{
			HasBasic: true, Login: "operator", Password: "operator", Group: "EvmGroup-user",
		}, identityDomain.APIPurposes)
		require.NoError(t, err)
		assert.Equal(t, "4", p.GroupID)
		assert.Equal(t, "4", p.RoleID)
	})

	t.Run("Error_GroupNotMember", func(t *testing.T) {
		_, err := resolver.Resolve(ctx, Credentials{
			HasBasic: true, Login: "jdoe", Password: "jdoe", Group: "EvmGroup-super_administrator",
		}, identityDomain.APIPurposes)
		require.Error(t, err)
		assert.Equal(t, "Invalid Authorization Group EvmGroup-super_administrator specified", err.Error())
	})

	t.Run("Error_WrongPassword", func(t *testing.T) {
		_, err := resolver.Resolve(ctx, Credentials{HasBasic: true, Login: "jdoe", Password: "nope"},
			identityDomain.APIPurposes)
		assert.ErrorIs(t, err, identityDomain.ErrInvalidCredentials)
	})

	t.Run("Error_UnknownUser", func(t *testing.T) {
		_, err := resolver.Resolve(ctx, Credentials{HasBasic: true, Login: "ghost", Password: "x"},
			identityDomain.APIPurposes)
		assert.ErrorIs(t, err, identityDomain.ErrInvalidCredentials)
	})

	t.Run("Error_NoCredentials", func(t *testing.T) {
		_, err := resolver.Resolve(ctx, Credentials{}, identityDomain.APIPurposes)
		assert.ErrorIs(t, err, identityDomain.ErrMissingCredentials)
	})
}

// mockTokenUseCaseStub authenticates hash("good") as user 1 with an api token.
type mockTokenUseCaseStub struct {
	TokenUseCase
}

func (mockTokenUseCaseStub) Authenticate(
	_ context.Context,
	tokenHash string,
	allowed []identityDomain.Purpose,
) (*identityDomain.Token, error) {
	if tokenHash != identityService.NewTokenService().HashToken("good") {
		return nil, identityDomain.ErrInvalidCredentials
	}
	if !identityDomain.PurposeAPI.In(allowed) {
		return nil, identityDomain.ErrWrongPurpose
	}
	return &identityDomain.Token{UserID: "1", Purpose: identityDomain.PurposeAPI}, nil
}

func TestResolver_Token(t *testing.T) {
	ctx := context.Background()
	resolver := newTestResolver(t, mockTokenUseCaseStub{}, nil)

	p, err := resolver.Resolve(ctx, Credentials{AuthToken: "good"}, identityDomain.APIPurposes)
	require.NoError(t, err)
	assert.Equal(t, "admin", p.Login)
	assert.Equal(t, identityDomain.AuthToken, p.AuthMethod)
	assert.Equal(t, identityDomain.PurposeAPI, p.Purpose)
	assert.NotEmpty(t, p.TokenHash)

	_, err = resolver.Resolve(ctx, Credentials{AuthToken: "good"}, identityDomain.WSPurposes)
	assert.ErrorIs(t, err, identityDomain.ErrWrongPurpose)

	_, err = resolver.Resolve(ctx, Credentials{AuthToken: "bad"}, identityDomain.APIPurposes)
	assert.ErrorIs(t, err, identityDomain.ErrInvalidCredentials)
}

func TestResolver_SystemToken(t *testing.T) {
	ctx := context.Background()
	svc, err := identityService.NewSystemTokenService(identityService.SystemTokenConfig{
		Secret:  []byte("shared"),
		Issuer:  "guid-a",
		Trusted: []string{"guid-a"},
		MaxAge:  time.Minute,
		Skew:    time.Second,
	})
	require.NoError(t, err)

	t.Run("Success_TakesPrecedence", func(t *testing.T) {
		resolver := newTestResolver(t, mockTokenUseCaseStub{}, svc)
		token, err := svc.Sign("approver", time.Now().UTC())
		require.NoError(t, err)

		p, err := resolver.Resolve(ctx, Credentials{
			SystemToken: token, AuthToken: "good", HasBasic: true, Login: "jdoe", Password: "jdoe",
		}, identityDomain.APIPurposes)
		require.NoError(t, err)
		assert.Equal(t, "approver", p.Login)
		assert.Equal(t, identityDomain.AuthSystemToken, p.AuthMethod)
	})

	t.Run("Error_InvalidDoesNotFallThrough", func(t *testing.T) {
		resolver := newTestResolver(t, mockTokenUseCaseStub{}, svc)
		_, err := resolver.Resolve(ctx, Credentials{SystemToken: "junk", AuthToken: "good"},
			identityDomain.APIPurposes)
		assert.ErrorIs(t, err, identityDomain.ErrInvalidSystemToken)
	})

	t.Run("Error_NotConfigured", func(t *testing.T) {
		resolver := newTestResolver(t, mockTokenUseCaseStub{}, nil)
		_, err := resolver.Resolve(ctx, Credentials{SystemToken: "anything"}, identityDomain.APIPurposes)
		assert.ErrorIs(t, err, identityDomain.ErrInvalidSystemToken)
	})
}
