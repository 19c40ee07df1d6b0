package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/resourcegateway/internal/errors"
	"github.com/allisson/resourcegateway/internal/httputil"
	identityDomain "github.com/allisson/resourcegateway/internal/identity/domain"
	"github.com/allisson/resourcegateway/internal/identity/http/dto"
	identityUseCase "github.com/allisson/resourcegateway/internal/identity/usecase"
)

// TokenHandler handles HTTP requests for token operations.
type TokenHandler struct {
	tokenUseCase identityUseCase.TokenUseCase
	logger       *slog.Logger
}

// NewTokenHandler creates a new token handler with required dependencies.
func NewTokenHandler(tokenUseCase identityUseCase.TokenUseCase, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{
		tokenUseCase: tokenUseCase,
		logger:       logger,
	}
}

// IssueTokenHandler issues a token for the authenticated principal.
// GET /api/auth?requester_type=api|ui|ws - Requires basic or token authentication.
func (h *TokenHandler) IssueTokenHandler(c *gin.Context) {
	principal, ok := GetPrincipal(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, identityDomain.ErrMissingCredentials, h.logger)
		return
	}

	purpose, err := identityDomain.ParsePurpose(c.Query("requester_type"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	output, err := h.tokenUseCase.Issue(c.Request.Context(), principal, purpose)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapIssueTokenOutput(output))
}

// RevokeTokenHandler revokes the token the request authenticated with.
// DELETE /api/auth - Returns 204 No Content.
func (h *TokenHandler) RevokeTokenHandler(c *gin.Context) {
	principal, ok := GetPrincipal(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, identityDomain.ErrMissingCredentials, h.logger)
		return
	}

	if principal.TokenHash == "" {
		httputil.HandleErrorGin(c,
			apperrors.Errorf(apperrors.ErrBadRequest, "Only token authentication can be revoked"),
			h.logger)
		return
	}

	if err := h.tokenUseCase.Revoke(c.Request.Context(), principal.TokenHash); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}
