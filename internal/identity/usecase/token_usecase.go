package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/resourcegateway/internal/config"
	apperrors "github.com/allisson/resourcegateway/internal/errors"
	identityDomain "github.com/allisson/resourcegateway/internal/identity/domain"
	identityService "github.com/allisson/resourcegateway/internal/identity/service"
)

type tokenUseCase struct {
	config       *config.Config
	tokenRepo    TokenRepository
	directory    Directory
	tokenService identityService.TokenService
}

// Issue mints a token for the principal.
//
// Tokens can only be minted from basic or token authentication, and a ws token can
// never mint another token. Expiration comes from Config.TokenTTL for the purpose.
func (t *tokenUseCase) Issue(
	ctx context.Context,
	principal *identityDomain.Principal,
	purpose identityDomain.Purpose,
) (*identityDomain.IssueTokenOutput, error) {
	switch principal.AuthMethod {
	case identityDomain.AuthBasic:
	case identityDomain.AuthToken:
		if principal.Purpose == identityDomain.PurposeWS {
			return nil, identityDomain.ErrWrongPurpose
		}
	default:
		return nil, apperrors.Errorf(
			apperrors.ErrForbidden,
			"Token issuance requires basic or token authentication",
		)
	}
	return t.issue(ctx, principal.UserID, purpose)
}

// IssueForLogin mints a token for the user with the given login.
func (t *tokenUseCase) IssueForLogin(
	ctx context.Context,
	login string,
	purpose identityDomain.Purpose,
) (*identityDomain.IssueTokenOutput, error) {
	user, err := t.directory.UserByLogin(login)
	if err != nil {
		return nil, err
	}
	return t.issue(ctx, user.ID, purpose)
}

func (t *tokenUseCase) issue(
	ctx context.Context,
	userID string,
	purpose identityDomain.Purpose,
) (*identityDomain.IssueTokenOutput, error) {
	plainToken, tokenHash, err := t.tokenService.GenerateToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ttl := t.config.TokenTTL(string(purpose))

	token := &identityDomain.Token{
		ID:        uuid.Must(uuid.NewV7()),
		TokenHash: tokenHash,
		UserID:    userID,
		Purpose:   purpose,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := t.tokenRepo.Create(ctx, token); err != nil {
		return nil, err
	}

	return &identityDomain.IssueTokenOutput{
		PlainToken: plainToken,
		TTL:        ttl,
		ExpiresAt:  token.ExpiresAt,
	}, nil
}

// Authenticate validates a token.
//
// Unknown, expired and revoked tokens all return ErrInvalidCredentials so callers
// cannot probe which tokens exist. A live token of another purpose returns
// ErrWrongPurpose.
func (t *tokenUseCase) Authenticate(
	ctx context.Context,
	tokenHash string,
	allowed []identityDomain.Purpose,
) (*identityDomain.Token, error) {
	token, err := t.tokenRepo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, identityDomain.ErrTokenNotFound) {
			return nil, identityDomain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !token.Valid(time.Now().UTC()) {
		return nil, identityDomain.ErrInvalidCredentials
	}
	if !token.Purpose.In(allowed) {
		return nil, identityDomain.ErrWrongPurpose
	}
	return token, nil
}

// Revoke revokes a live token.
func (t *tokenUseCase) Revoke(ctx context.Context, tokenHash string) error {
	err := t.tokenRepo.RevokeByTokenHash(ctx, tokenHash, time.Now().UTC())
	if errors.Is(err, identityDomain.ErrTokenNotFound) {
		return identityDomain.ErrInvalidCredentials
	}
	return err
}

// PurgeExpired deletes tokens that expired more than days ago.
func (t *tokenUseCase) PurgeExpired(ctx context.Context, days int, dryRun bool) (int64, error) {
	if days < 0 {
		return 0, fmt.Errorf("days must be a positive number, got: %d", days)
	}

	olderThan := time.Now().UTC().AddDate(0, 0, -days)
	if dryRun {
		return t.tokenRepo.CountExpired(ctx, olderThan)
	}
	return t.tokenRepo.DeleteExpired(ctx, olderThan)
}

// NewTokenUseCase creates a new TokenUseCase with the provided dependencies.
func NewTokenUseCase(
	config *config.Config,
	tokenRepo TokenRepository,
	directory Directory,
	tokenService identityService.TokenService,
) TokenUseCase {
	return &tokenUseCase{
		config:       config,
		tokenRepo:    tokenRepo,
		directory:    directory,
		tokenService: tokenService,
	}
}
