package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	identityHTTP "github.com/allisson/resourcegateway/internal/identity/http"
)

// corsPolicy is the browser access policy of the API router. Its origin list also
// decides which pages may open the notification websocket.
type corsPolicy struct {
	origins []string
}

// newCORSPolicy returns nil when CORS is disabled or allowOrigins names no origin.
func newCORSPolicy(enabled bool, allowOrigins string, logger *slog.Logger) *corsPolicy {
	if !enabled {
		return nil
	}
	origins := parseOrigins(allowOrigins)
	if len(origins) == 0 {
		logger.Warn("CORS enabled without origins, not applied")
		return nil
	}
	logger.Info("CORS enabled", slog.Any("origins", origins))
	return &corsPolicy{origins: origins}
}

func (p *corsPolicy) middleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins: p.origins,
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete,
		},
		AllowHeaders: []string{
			"Authorization",
			"Content-Type",
			identityHTTP.HeaderAuthToken,
			identityHTTP.HeaderGroup,
			identityHTTP.HeaderSystemToken,
		},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func parseOrigins(raw string) []string {
	var origins []string
	for part := range strings.SplitSeq(raw, ",") {
		if origin := strings.TrimSpace(part); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
