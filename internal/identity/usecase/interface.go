// Package usecase implements credential resolution and token lifecycle.
package usecase

import (
	"context"
	"time"

	"github.com/allisson/resourcegateway/internal/directory"
	identityDomain "github.com/allisson/resourcegateway/internal/identity/domain"
)

// TokenRepository defines persistence operations for opaque tokens.
// Implementations must support transaction-aware operations via context propagation.
type TokenRepository interface {
	// Create stores a new token.
	Create(ctx context.Context, token *identityDomain.Token) error

	// GetByTokenHash retrieves a token by hash. Returns ErrTokenNotFound if not found.
	GetByTokenHash(ctx context.Context, tokenHash string) (*identityDomain.Token, error)

	// RevokeByTokenHash marks a live token revoked. Returns ErrTokenNotFound otherwise.
	RevokeByTokenHash(ctx context.Context, tokenHash string, revokedAt time.Time) error

	// DeleteExpired deletes tokens that expired before olderThan.
	DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error)

	// CountExpired counts tokens that expired before olderThan.
	CountExpired(ctx context.Context, olderThan time.Time) (int64, error)
}

// Directory is the read side of users, groups, roles and tenants.
type Directory interface {
	UserByLogin(login string) (directory.User, error)
	User(id string) (directory.User, error)
	Group(id string) (directory.Group, error)
	GroupByRef(ref string) (directory.Group, error)
	Role(id string) (directory.Role, error)
	Tenant(id string) (directory.Tenant, error)
}

// Credentials are the raw credentials presented on a request.
type Credentials struct {
	SystemToken string
	AuthToken   string
	Login       string
	Password    string
	HasBasic    bool
	// Group selects the active group by id or description.
	Group string
}

// TokenUseCase manages opaque tokens.
type TokenUseCase interface {
	// Issue mints a token of purpose for an authenticated principal. The plain token
	// is returned only once.
	Issue(
		ctx context.Context,
		principal *identityDomain.Principal,
		purpose identityDomain.Purpose,
	) (*identityDomain.IssueTokenOutput, error)

	// IssueForLogin mints a token for a directory user without credentials. It backs the
	// issue-token command.
	IssueForLogin(
		ctx context.Context,
		login string,
		purpose identityDomain.Purpose,
	) (*identityDomain.IssueTokenOutput, error)

	// Authenticate validates a token hash against the allowed purposes.
	Authenticate(
		ctx context.Context,
		tokenHash string,
		allowed []identityDomain.Purpose,
	) (*identityDomain.Token, error)

	// Revoke revokes the token with the given hash.
	Revoke(ctx context.Context, tokenHash string) error

	// PurgeExpired removes tokens expired for more than days. With dryRun it only counts them.
	PurgeExpired(ctx context.Context, days int, dryRun bool) (int64, error)
}

// ResolverUseCase turns request credentials into a Principal.
type ResolverUseCase interface {
	// Resolve authenticates creds and resolves the active group, role and tenant.
	// Token credentials must carry one of the allowed purposes.
	Resolve(
		ctx context.Context,
		creds Credentials,
		allowed []identityDomain.Purpose,
	) (*identityDomain.Principal, error)
}
