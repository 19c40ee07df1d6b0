// Package http provides the HTTP servers of the gateway: the API server with its
// router and the Prometheus metrics server.
package http

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/resourcegateway/internal/config"
	gatewayHTTP "github.com/allisson/resourcegateway/internal/gateway/http"
	identityDomain "github.com/allisson/resourcegateway/internal/identity/domain"
	identityHTTP "github.com/allisson/resourcegateway/internal/identity/http"
	identityUseCase "github.com/allisson/resourcegateway/internal/identity/usecase"
	"github.com/allisson/resourcegateway/internal/metrics"
	"github.com/allisson/resourcegateway/internal/notify"
)

// NotificationsPath is the websocket endpoint of the notification stream.
const NotificationsPath = "/ws/notifications"

// Server is the API server.
type Server struct {
	listener
	db *sql.DB
}

// NewServer creates the API server. SetupRouter must be called before Start.
func NewServer(db *sql.DB, host string, port int, logger *slog.Logger) *Server {
	return &Server{listener: newListener("api", host, port, 0, logger), db: db}
}

// Handlers groups the request handlers mounted by SetupRouter.
type Handlers struct {
	Gateway *gatewayHTTP.GatewayHandler
	Token   *identityHTTP.TokenHandler
	Stream  *notify.StreamHandler
}

// SetupRouter builds the gin engine.
//
// Routes:
//   - GET /health, GET /ready
//   - GET|DELETE /api/auth (token issue and revoke)
//   - /api/... gateway routes, authenticated and rate limited per principal
//   - GET /ws/notifications (ws tokens only)
//
// ctx bounds the background cleanup of the rate limiters.
func (s *Server) SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	handlers Handlers,
	resolver identityUseCase.ResolverUseCase,
	metricsProvider *metrics.Provider,
) {
	gin.SetMode(cfg.GetGinMode())

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if policy := newCORSPolicy(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); policy != nil {
		router.Use(policy.middleware())
		if handlers.Stream != nil {
			handlers.Stream.CheckOrigin(policy.origins)
		}
	}
	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	authMiddleware := identityHTTP.AuthenticationMiddleware(resolver, identityDomain.APIPurposes, s.logger)

	api := router.Group(gatewayHTTP.APIPrefix)
	{
		if handlers.Token != nil {
			tokenRoutes := []gin.HandlerFunc{}
			if cfg.RateLimitAuthEnabled {
				tokenRoutes = append(tokenRoutes, identityHTTP.TokenRateLimitMiddleware(
					ctx,
					cfg.RateLimitAuthRequestsPerSec,
					cfg.RateLimitAuthBurst,
					s.logger,
				))
			}
			tokenRoutes = append(tokenRoutes, authMiddleware)
			api.GET("/auth", append(tokenRoutes, handlers.Token.IssueTokenHandler)...)
			api.DELETE("/auth", authMiddleware, handlers.Token.RevokeTokenHandler)
		}

		protected := api.Group("", authMiddleware)
		if cfg.RateLimitEnabled {
			protected.Use(identityHTTP.RateLimitMiddleware(
				ctx,
				cfg.RateLimitRequestsPerSec,
				cfg.RateLimitBurst,
				s.logger,
			))
		}
		if handlers.Gateway != nil {
			handlers.Gateway.RegisterRoutes(protected)
		}
	}

	if handlers.Stream != nil {
		router.GET(
			NotificationsPath,
			identityHTTP.WebSocketAuthenticationMiddleware(resolver, s.logger),
			handlers.Stream.Stream,
		)
	}

	s.server.Handler = router
}

// healthHandler reports liveness.
// GET /health
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the database is reachable.
// GET /ready
func (s *Server) readinessHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db == nil || s.db.PingContext(ctx) != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": "error"},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": gin.H{"database": "ok"},
	})
}
