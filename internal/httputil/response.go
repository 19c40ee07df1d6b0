// Package httputil provides HTTP utility functions for request and response handling.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/resourcegateway/internal/errors"
)

// Error kinds exposed in the error envelope.
const (
	KindBadRequest    = "bad_request"
	KindUnauthorized  = "unauthorized"
	KindForbidden     = "forbidden"
	KindNotFound      = "not_found"
	KindConflict      = "conflict"
	KindUnprocessable = "unprocessable_entity"
	KindTooMany       = "too_many_requests"
	KindInternal      = "internal_server_error"
)

// BasicRealm is advertised on every 401 response.
const BasicRealm = `Basic realm="Application"`

// ErrorDetail is the body of the error envelope.
type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ErrorResponse represents the structured error envelope: {"error": {"kind", "message"}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// StatusAndKind maps a domain error to its HTTP status code and envelope kind.
func StatusAndKind(err error) (int, string) {
	switch {
	case apperrors.Is(err, apperrors.ErrBadRequest):
		return http.StatusBadRequest, KindBadRequest
	case apperrors.Is(err, apperrors.ErrUnauthorized):
		return http.StatusUnauthorized, KindUnauthorized
	case apperrors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, KindForbidden
	case apperrors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, KindNotFound
	case apperrors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, KindConflict
	case apperrors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusUnprocessableEntity, KindUnprocessable
	case apperrors.Is(err, apperrors.ErrUnsupported):
		return http.StatusBadRequest, KindBadRequest
	default:
		return http.StatusInternalServerError, KindInternal
	}
}

// HandleErrorGin maps domain errors to HTTP status codes and writes the error envelope.
// Internal errors are logged with full detail but never exposed to the client.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	statusCode, kind := StatusAndKind(err)

	message := apperrors.Message(err)
	switch {
	case statusCode == http.StatusInternalServerError:
		message = "An internal error occurred"
	case message == apperrors.ErrUnauthorized.Error():
		message = "Authentication failed"
	case message == apperrors.ErrForbidden.Error():
		message = "Access to the requested resource is forbidden"
	}

	if statusCode == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", BasicRealm)
	}

	if logger != nil {
		level := slog.LevelWarn
		if statusCode >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request failed",
			slog.Int("status_code", statusCode),
			slog.String("error_kind", kind),
			slog.Any("error", err),
		)
	}

	c.JSON(statusCode, ErrorResponse{Error: ErrorDetail{Kind: kind, Message: message}})
}

// HandleBadRequestGin writes a 400 Bad Request response for malformed JSON or parameters using Gin.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("bad request", slog.Any("error", err))
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{Kind: KindBadRequest, Message: err.Error()},
	})
}

// HandleValidationErrorGin writes a 422 Unprocessable Entity response for validation errors using Gin.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("validation failed", slog.Any("error", err))
	}

	c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error: ErrorDetail{Kind: KindUnprocessable, Message: apperrors.Message(err)},
	})
}

// HandleTooManyRequestsGin writes a 429 response with a Retry-After header.
func HandleTooManyRequestsGin(c *gin.Context, retryAfter string) {
	c.Header("Retry-After", retryAfter)
	c.JSON(http.StatusTooManyRequests, ErrorResponse{
		Error: ErrorDetail{
			Kind:    KindTooMany,
			Message: "Too many requests. Please retry after the specified delay.",
		},
	})
}
