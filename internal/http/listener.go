package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// listener is the run loop shared by the API and metrics servers.
type listener struct {
	name   string
	server *http.Server
	logger *slog.Logger
}

func newListener(name, host string, port int, writeTimeout time.Duration, logger *slog.Logger) listener {
	return listener{
		name: name,
		server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", host, port),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			// Zero for the API server: websocket streams outlive any write deadline.
			WriteTimeout: writeTimeout,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger.With(slog.String("server", name)),
	}
}

// GetHandler exposes the router to tests.
func (l listener) GetHandler() http.Handler {
	return l.server.Handler
}

// Start serves until Shutdown is called.
func (l listener) Start(ctx context.Context) error {
	l.logger.Info("server listening", slog.String("addr", l.server.Addr))
	if err := l.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server failed: %w", l.name, err)
	}
	return nil
}

// Shutdown drains open connections until ctx expires.
func (l listener) Shutdown(ctx context.Context) error {
	l.logger.Info("server shutting down")
	return l.server.Shutdown(ctx)
}
