package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/allisson/resourcegateway/internal/metrics"
)

// MetricsServer exposes /metrics on a separate port, outside the authenticated API.
type MetricsServer struct {
	listener
}

// NewMetricsServer builds the scrape endpoint. A nil provider serves only /health.
func NewMetricsServer(host string, port int, logger *slog.Logger, provider *metrics.Provider) *MetricsServer {
	router := gin.New()
	router.Use(gin.Recovery(), CustomLoggerMiddleware(logger))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	if provider != nil {
		router.GET("/metrics", gin.WrapH(provider.Handler()))
	}

	s := &MetricsServer{listener: newListener("metrics", host, port, 15*time.Second, logger)}
	s.server.Handler = router
	return s
}
