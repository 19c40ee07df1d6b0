package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/allisson/resourcegateway/internal/httputil"
	identityDomain "github.com/allisson/resourcegateway/internal/identity/domain"
	identityUseCase "github.com/allisson/resourcegateway/internal/identity/usecase"
)

// Credential headers.
const (
	HeaderSystemToken = "X-MIQ-Token"
	HeaderAuthToken   = "X-Auth-Token"
	HeaderGroup       = "X-MIQ-Group"
)

// ExtractCredentials reads every supported credential from the request. Precedence
// between them is decided by the resolver.
func ExtractCredentials(c *gin.Context) identityUseCase.Credentials {
	creds := identityUseCase.Credentials{
		SystemToken: c.GetHeader(HeaderSystemToken),
		AuthToken:   c.GetHeader(HeaderAuthToken),
		Group:       c.GetHeader(HeaderGroup),
	}
	creds.Login, creds.Password, creds.HasBasic = c.Request.BasicAuth()
	return creds
}

// AuthenticationMiddleware resolves the request principal.
//
// Credentials are checked in this order:
//  1. X-MIQ-Token: signed system token from a trusted server
//  2. X-Auth-Token: opaque token, which must carry one of the allowed purposes
//  3. Authorization: Basic login and password
//
// X-MIQ-Group switches the active group when the user is a member of it.
//
// Error handling:
//   - No credentials → 401 Unauthorized with WWW-Authenticate
//   - Invalid credentials, wrong purpose, foreign group → 401 Unauthorized
//   - Other errors → 500 Internal Server Error
//
// Usage:
//
//	api := router.Group("/api")
//	api.Use(AuthenticationMiddleware(resolver, identityDomain.APIPurposes, logger))
func AuthenticationMiddleware(
	resolver identityUseCase.ResolverUseCase,
	allowed []identityDomain.Purpose,
	logger *slog.Logger,
) gin.HandlerFunc {
	return authenticate(resolver, allowed, logger, ExtractCredentials)
}

// WebSocketAuthenticationMiddleware authenticates the notifications stream. Browsers
// cannot set headers on a WebSocket handshake, so the token may also be passed as the
// auth_token query parameter. Only ws tokens are accepted.
func WebSocketAuthenticationMiddleware(
	resolver identityUseCase.ResolverUseCase,
	logger *slog.Logger,
) gin.HandlerFunc {
	return authenticate(resolver, identityDomain.WSPurposes, logger, func(c *gin.Context) identityUseCase.Credentials {
		creds := identityUseCase.Credentials{AuthToken: c.GetHeader(HeaderAuthToken)}
		if creds.AuthToken == "" {
			creds.AuthToken = c.Query("auth_token")
		}
		return creds
	})
}

func authenticate(
	resolver identityUseCase.ResolverUseCase,
	allowed []identityDomain.Purpose,
	logger *slog.Logger,
	extract func(c *gin.Context) identityUseCase.Credentials,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := resolver.Resolve(c.Request.Context(), extract(c), allowed)
		if err != nil {
			logger.Debug("authentication failed", slog.String("error", err.Error()))
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), principal))

		logger.Debug("authentication successful",
			slog.String("user_id", principal.UserID),
			slog.String("login", principal.Login),
			slog.String("group_id", principal.GroupID),
			slog.String("auth_method", string(principal.AuthMethod)))

		c.Next()
	}
}
