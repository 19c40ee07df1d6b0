package app

import (
	"context"
	"fmt"

	"github.com/allisson/resourcegateway/internal/gateway/executor"
	gatewayHTTP "github.com/allisson/resourcegateway/internal/gateway/http"
	"github.com/allisson/resourcegateway/internal/gateway/render"
	"github.com/allisson/resourcegateway/internal/http"
	"github.com/allisson/resourcegateway/internal/resources"
)

// Executor returns the action executor with every sample collection registered.
func (c *Container) Executor() (*executor.Executor, error) {
	c.executorInit.Do(func() {
		exec, err := c.initExecutor()
		if err != nil {
			c.setInitError("executor", err)
			return
		}
		c.executor = exec
	})
	if err := c.initError("executor"); err != nil {
		return nil, err
	}
	return c.executor, nil
}

// Renderer returns the response renderer.
func (c *Container) Renderer() (*render.Renderer, error) {
	c.rendererInit.Do(func() {
		reg, err := c.Registry()
		if err != nil {
			c.setInitError("renderer", err)
			return
		}
		authorizer, err := c.Authorizer()
		if err != nil {
			c.setInitError("renderer", err)
			return
		}
		c.renderer = render.New(reg, authorizer)
	})
	if err := c.initError("renderer"); err != nil {
		return nil, err
	}
	return c.renderer, nil
}

// GatewayHandler returns the HTTP handler of the /api collection routes.
func (c *Container) GatewayHandler() (*gatewayHTTP.GatewayHandler, error) {
	c.gatewayHandlerInit.Do(func() {
		exec, err := c.Executor()
		if err != nil {
			c.setInitError("gatewayHandler", fmt.Errorf("failed to get executor for gateway handler: %w", err))
			return
		}
		renderer, err := c.Renderer()
		if err != nil {
			c.setInitError("gatewayHandler", fmt.Errorf("failed to get renderer for gateway handler: %w", err))
			return
		}
		c.gatewayHandler = gatewayHTTP.NewGatewayHandler(exec, renderer, exec.Registry(), c.Logger())
	})
	if err := c.initError("gatewayHandler"); err != nil {
		return nil, err
	}
	return c.gatewayHandler, nil
}

// HTTPServer returns the API server with its router set up. ctx bounds the
// background cleanup of the rate limiters.
func (c *Container) HTTPServer(ctx context.Context) (*http.Server, error) {
	c.httpServerInit.Do(func() {
		server, err := c.initHTTPServer(ctx)
		if err != nil {
			c.setInitError("httpServer", err)
			return
		}
		c.mu.Lock()
		c.httpServer = server
		c.mu.Unlock()
	})
	if err := c.initError("httpServer"); err != nil {
		return nil, err
	}
	return c.httpServer, nil
}

// MetricsServer returns the Prometheus metrics server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	c.metricsServerInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.setInitError("metricsServer", err)
			return
		}
		if provider == nil {
			return
		}
		server := http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider)
		c.mu.Lock()
		c.metricsServer = server
		c.mu.Unlock()
	})
	if err := c.initError("metricsServer"); err != nil {
		return nil, err
	}
	return c.metricsServer, nil
}

func (c *Container) initExecutor() (*executor.Executor, error) {
	reg, err := c.Registry()
	if err != nil {
		return nil, fmt.Errorf("failed to get registry for executor: %w", err)
	}
	authorizer, err := c.Authorizer()
	if err != nil {
		return nil, fmt.Errorf("failed to get authorizer for executor: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for executor: %w", err)
	}
	s, err := c.Store()
	if err != nil {
		return nil, fmt.Errorf("failed to get store for executor: %w", err)
	}
	dir, err := c.Directory()
	if err != nil {
		return nil, fmt.Errorf("failed to get directory for executor: %w", err)
	}
	tasks, err := c.TaskUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get task use case for executor: %w", err)
	}

	exec := executor.New(reg, authorizer, executor.NewCapabilities(), businessMetrics, c.Logger())
	resources.Register(exec, resources.Deps{
		Store:      s,
		Directory:  dir,
		Tasks:      tasks,
		Authorizer: authorizer,
		Hasher:     c.SecretService(),
		Logger:     c.Logger(),
	})
	return exec, nil
}

func (c *Container) initHTTPServer(ctx context.Context) (*http.Server, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}
	gatewayHandler, err := c.GatewayHandler()
	if err != nil {
		return nil, err
	}
	tokenHandler, err := c.TokenHandler()
	if err != nil {
		return nil, err
	}
	streamHandler, err := c.StreamHandler()
	if err != nil {
		return nil, err
	}
	resolver, err := c.ResolverUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get resolver for http server: %w", err)
	}
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, c.Logger())
	server.SetupRouter(ctx, c.config, http.Handlers{
		Gateway: gatewayHandler,
		Token:   tokenHandler,
		Stream:  streamHandler,
	}, resolver, provider)
	return server, nil
}
