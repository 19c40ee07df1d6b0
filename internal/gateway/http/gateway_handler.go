// Package http exposes the gateway over gin: the entrypoint document, the OpenAPI
// description and the generic collection routes.
package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	authzDomain "github.com/allisson/resourcegateway/internal/authz/domain"
	apperrors "github.com/allisson/resourcegateway/internal/errors"
	"github.com/allisson/resourcegateway/internal/gateway/bulk"
	"github.com/allisson/resourcegateway/internal/gateway/dispatch"
	"github.com/allisson/resourcegateway/internal/gateway/executor"
	"github.com/allisson/resourcegateway/internal/gateway/openapi"
	"github.com/allisson/resourcegateway/internal/gateway/registry"
	"github.com/allisson/resourcegateway/internal/gateway/render"
	"github.com/allisson/resourcegateway/internal/httputil"
	identityDomain "github.com/allisson/resourcegateway/internal/identity/domain"
	identityHTTP "github.com/allisson/resourcegateway/internal/identity/http"
)

// APIPrefix is the path every gateway route lives under.
const APIPrefix = "/api"

const maxBodyBytes = 4 << 20

// GatewayHandler serves every registered collection through one set of routes.
type GatewayHandler struct {
	executor *executor.Executor
	renderer *render.Renderer
	registry *registry.Registry
	logger   *slog.Logger
}

// NewGatewayHandler creates a new gateway handler with required dependencies.
func NewGatewayHandler(
	exec *executor.Executor,
	renderer *render.Renderer,
	reg *registry.Registry,
	logger *slog.Logger,
) *GatewayHandler {
	return &GatewayHandler{
		executor: exec,
		renderer: renderer,
		registry: reg,
		logger:   logger,
	}
}

// RegisterRoutes mounts the gateway routes on an authenticated /api group.
func (h *GatewayHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("", h.EntrypointHandler)
	api.GET("/openapi.json", h.OpenAPIHandler)

	for _, path := range []string{
		"/:collection",
		"/:collection/:id",
		"/:collection/:id/:subcollection",
		"/:collection/:id/:subcollection/:subresource_id",
	} {
		api.GET(path, h.ReadHandler)
		api.POST(path, h.ActionHandler)
		api.PUT(path, h.ActionHandler)
		api.PATCH(path, h.ActionHandler)
		api.DELETE(path, h.ActionHandler)
	}
}

// EntrypointHandler describes the API and the authenticated identity.
// GET /api - Returns the collections the gateway serves.
func (h *GatewayHandler) EntrypointHandler(c *gin.Context) {
	principal, ok := identityHTTP.GetPrincipal(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, identityDomain.ErrMissingCredentials, h.logger)
		return
	}
	c.JSON(http.StatusOK, h.renderer.Entrypoint(principal, baseURL(c)))
}

// OpenAPIHandler returns the OpenAPI 3 description generated from the registry.
// GET /api/openapi.json
func (h *GatewayHandler) OpenAPIHandler(c *gin.Context) {
	c.JSON(http.StatusOK, openapi.Generate(h.registry, baseURL(c)))
}

// ReadHandler lists a collection or shows one resource.
// GET /api/:collection[/:id[/:subcollection[/:subresource_id]]]
// Supports expand, attributes, filter[], sort_by, sort_order, offset and limit.
func (h *GatewayHandler) ReadHandler(c *gin.Context) {
	principal, ctx, ok := h.begin(c)
	if !ok {
		return
	}

	n, err := dispatch.Normalize(h.registry, h.input(c, nil))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	query, err := render.ParseQuery(c.Request.URL.Query())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	if n.Request.Scope.Single() {
		entity, err := h.executor.Show(ctx, principal, n)
		if err != nil {
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}
		c.JSON(http.StatusOK, h.renderer.Resource(principal, n, entity, query))
		return
	}

	listing, err := h.executor.List(ctx, principal, n)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, h.renderer.List(principal, n, listing, query))
}

// ActionHandler executes create, edit, delete and custom actions, single or bulk.
// POST|PUT|PATCH|DELETE /api/:collection[/:id[/:subcollection[/:subresource_id]]]
// Single requests return the action result, bulk requests a results envelope and
// a successful DELETE returns 204 No Content.
func (h *GatewayHandler) ActionHandler(c *gin.Context) {
	principal, ctx, ok := h.begin(c)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.HandleErrorGin(c, apperrors.Errorf(
				apperrors.ErrBadRequest,
				"Request body too large, the limit is %d bytes",
				tooLarge.Limit,
			), h.logger)
			return
		}
		httputil.HandleBadRequestGin(c, apperrors.Wrap(apperrors.ErrBadRequest, "failed to read request body"), h.logger)
		return
	}

	n, err := dispatch.Normalize(h.registry, h.input(c, body))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	outcome, err := h.executor.Execute(ctx, principal, n)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	if outcome.Bulk {
		h.logger.InfoContext(ctx, "bulk action completed",
			slog.String("collection", n.Request.Collection),
			slog.String("action", n.Request.Action),
			slog.Any("summary", bulk.Summarize(outcome.Results)),
		)
	}

	status, payload := bulk.Response(outcome, n.Request.Verb)
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}

// begin returns the principal and a context carrying the request id for auditing.
func (h *GatewayHandler) begin(c *gin.Context) (*identityDomain.Principal, context.Context, bool) {
	principal, ok := identityHTTP.GetPrincipal(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(c, identityDomain.ErrMissingCredentials, h.logger)
		return nil, nil, false
	}
	ctx := authzDomain.WithRequestID(c.Request.Context(), requestid.Get(c))
	return principal, ctx, true
}

func (h *GatewayHandler) input(c *gin.Context, body []byte) dispatch.Input {
	return dispatch.Input{
		Verb:          c.Request.Method,
		BaseURL:       baseURL(c),
		Collection:    c.Param("collection"),
		ResourceID:    c.Param("id"),
		Subcollection: c.Param("subcollection"),
		SubresourceID: c.Param("subresource_id"),
		Body:          body,
	}
}

// baseURL is the absolute /api URL as seen by the client.
func baseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + c.Request.Host + APIPrefix
}
