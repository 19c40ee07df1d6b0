package usecase

import (
	"context"
	"slices"
	"time"

	"github.com/allisson/resourcegateway/internal/directory"
	apperrors "github.com/allisson/resourcegateway/internal/errors"
	identityDomain "github.com/allisson/resourcegateway/internal/identity/domain"
	identityService "github.com/allisson/resourcegateway/internal/identity/service"
)

type resolverUseCase struct {
	directory     Directory
	tokenUseCase  TokenUseCase
	secretService identityService.SecretService
	tokenService  identityService.TokenService
	systemTokens  identityService.SystemTokenService
}

// Resolve authenticates the request credentials. Precedence is system token, then
// opaque token, then basic. The first credential present decides; a failing
// system token never falls through to the others.
func (r *resolverUseCase) Resolve(
	ctx context.Context,
	creds Credentials,
	allowed []identityDomain.Purpose,
) (*identityDomain.Principal, error) {
	var (
		user      directory.User
		method    identityDomain.AuthMethod
		purpose   identityDomain.Purpose
		tokenHash string
		err       error
	)

	switch {
	case creds.SystemToken != "":
		method = identityDomain.AuthSystemToken
		user, err = r.fromSystemToken(creds.SystemToken)
	case creds.AuthToken != "":
		method = identityDomain.AuthToken
		tokenHash = r.tokenService.HashToken(creds.AuthToken)
		var token *identityDomain.Token
		token, err = r.tokenUseCase.Authenticate(ctx, tokenHash, allowed)
		if err == nil {
			purpose = token.Purpose
			user, err = r.directory.User(token.UserID)
			err = hideLookupFailure(err)
		}
	case creds.HasBasic:
		method = identityDomain.AuthBasic
		user, err = r.fromBasic(creds.Login, creds.Password)
	default:
		return nil, identityDomain.ErrMissingCredentials
	}
	if err != nil {
		return nil, err
	}

	group, err := r.activeGroup(user, creds.Group)
	if err != nil {
		return nil, err
	}

	principal := &identityDomain.Principal{
		UserID:     user.ID,
		Login:      user.Login,
		Name:       user.Name,
		GroupID:    group.ID,
		GroupName:  group.Description,
		AuthMethod: method,
		Purpose:    purpose,
		TokenHash:  tokenHash,
	}
	if role, err := r.directory.Role(group.RoleID); err == nil {
		principal.RoleID = role.ID
		principal.RoleName = role.Name
	}
	if tenant, err := r.directory.Tenant(group.TenantID); err == nil {
		principal.TenantID = tenant.ID
		principal.TenantName = tenant.Name
	}
	return principal, nil
}

func (r *resolverUseCase) fromSystemToken(token string) (directory.User, error) {
	if r.systemTokens == nil {
		return directory.User{}, identityDomain.ErrInvalidSystemToken
	}
	login, err := r.systemTokens.Verify(token, time.Now().UTC())
	if err != nil {
		return directory.User{}, err
	}
	user, err := r.directory.UserByLogin(login)
	return user, hideLookupFailure(err)
}

func (r *resolverUseCase) fromBasic(login, password string) (directory.User, error) {
	user, err := r.directory.UserByLogin(login)
	if err != nil {
		return directory.User{}, hideLookupFailure(err)
	}
	if !r.secretService.CompareSecret(password, user.PasswordDigest) {
		return directory.User{}, identityDomain.ErrInvalidCredentials
	}
	return user, nil
}

// activeGroup returns the requested group when the user belongs to it, otherwise the
// user's current group.
func (r *resolverUseCase) activeGroup(user directory.User, ref string) (directory.Group, error) {
	if ref != "" {
		group, err := r.directory.GroupByRef(ref)
		if err != nil || !slices.Contains(user.GroupIDs, group.ID) {
			return directory.Group{}, identityDomain.ErrInvalidGroup(ref)
		}
		return group, nil
	}

	groupID := user.CurrentGroupID
	if groupID == "" && len(user.GroupIDs) > 0 {
		groupID = user.GroupIDs[0]
	}
	group, err := r.directory.Group(groupID)
	if err != nil {
		return directory.Group{}, identityDomain.ErrInvalidCredentials
	}
	return group, nil
}

// hideLookupFailure collapses a missing user into ErrInvalidCredentials.
func hideLookupFailure(err error) error {
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return identityDomain.ErrInvalidCredentials
	}
	return err
}

// NewResolverUseCase creates a ResolverUseCase. systemTokens may be nil, in which case
// system tokens are always rejected.
func NewResolverUseCase(
	directory Directory,
	tokenUseCase TokenUseCase,
	secretService identityService.SecretService,
	tokenService identityService.TokenService,
	systemTokens identityService.SystemTokenService,
) ResolverUseCase {
	return &resolverUseCase{
		directory:     directory,
		tokenUseCase:  tokenUseCase,
		secretService: secretService,
		tokenService:  tokenService,
		systemTokens:  systemTokens,
	}
}
