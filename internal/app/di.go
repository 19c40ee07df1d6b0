// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/redis/go-redis/v9"

	authzDomain "github.com/allisson/resourcegateway/internal/authz/domain"
	authzUsecase "github.com/allisson/resourcegateway/internal/authz/usecase"
	"github.com/allisson/resourcegateway/internal/config"
	"github.com/allisson/resourcegateway/internal/database"
	"github.com/allisson/resourcegateway/internal/directory"
	"github.com/allisson/resourcegateway/internal/gateway/executor"
	gatewayHTTP "github.com/allisson/resourcegateway/internal/gateway/http"
	"github.com/allisson/resourcegateway/internal/gateway/registry"
	"github.com/allisson/resourcegateway/internal/gateway/render"
	"github.com/allisson/resourcegateway/internal/http"
	identityHTTP "github.com/allisson/resourcegateway/internal/identity/http"
	identityService "github.com/allisson/resourcegateway/internal/identity/service"
	identityUseCase "github.com/allisson/resourcegateway/internal/identity/usecase"
	"github.com/allisson/resourcegateway/internal/metrics"
	"github.com/allisson/resourcegateway/internal/notify"
	"github.com/allisson/resourcegateway/internal/seed"
	"github.com/allisson/resourcegateway/internal/store"
	taskUsecase "github.com/allisson/resourcegateway/internal/task/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	txManager       database.TxManager
	redisClient     *redis.Client
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Collections
	registry  *registry.Registry
	fixture   *seed.Fixture
	store     *store.Store
	directory *directory.Directory

	// Identity
	secretService      identityService.SecretService
	tokenService       identityService.TokenService
	kmsService         identityService.KMSService
	systemTokenService identityService.SystemTokenService
	tokenRepository    identityUseCase.TokenRepository
	tokenUseCase       identityUseCase.TokenUseCase
	resolverUseCase    identityUseCase.ResolverUseCase
	tokenHandler       *identityHTTP.TokenHandler

	// Authorization
	policyTable        *authzDomain.PolicyTable
	auditLogRepository authzUsecase.AuditLogRepository
	auditLogUseCase    authzUsecase.AuditLogUseCase
	authorizer         authzUsecase.Authorizer

	// Tasks and notifications
	taskRepository taskUsecase.TaskRepository
	taskQueue      taskUsecase.Queue
	hub            *notify.Hub
	taskNotifier   *notify.TaskNotifier
	taskUseCase    taskUsecase.TaskUseCase
	worker         *taskUsecase.Worker
	streamHandler  *notify.StreamHandler

	// Gateway
	executor       *executor.Executor
	renderer       *render.Renderer
	gatewayHandler *gatewayHTTP.GatewayHandler

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                     sync.Mutex
	loggerInit             sync.Once
	dbInit                 sync.Once
	txManagerInit          sync.Once
	redisClientInit        sync.Once
	metricsProviderInit    sync.Once
	businessMetricsInit    sync.Once
	registryInit           sync.Once
	fixtureInit            sync.Once
	storeInit              sync.Once
	directoryInit          sync.Once
	secretServiceInit      sync.Once
	tokenServiceInit       sync.Once
	kmsServiceInit         sync.Once
	systemTokenServiceInit sync.Once
	tokenRepositoryInit    sync.Once
	tokenUseCaseInit       sync.Once
	resolverUseCaseInit    sync.Once
	tokenHandlerInit       sync.Once
	policyTableInit        sync.Once
	auditLogRepoInit       sync.Once
	auditLogUseCaseInit    sync.Once
	authorizerInit         sync.Once
	taskRepositoryInit     sync.Once
	taskQueueInit          sync.Once
	hubInit                sync.Once
	taskNotifierInit       sync.Once
	taskUseCaseInit        sync.Once
	workerInit             sync.Once
	streamHandlerInit      sync.Once
	executorInit           sync.Once
	rendererInit           sync.Once
	gatewayHandlerInit     sync.Once
	httpServerInit         sync.Once
	metricsServerInit      sync.Once
	initErrors             map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	c.dbInit.Do(func() {
		var err error
		if c.db, err = c.initDB(); err != nil {
			c.setInitError("db", err)
		}
	})
	if err := c.initError("db"); err != nil {
		return nil, err
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	c.txManagerInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.setInitError("txManager", fmt.Errorf("failed to get database for tx manager: %w", err))
			return
		}
		c.txManager = database.NewTxManager(db)
	})
	if err := c.initError("txManager"); err != nil {
		return nil, err
	}
	return c.txManager, nil
}

// RedisClient returns the Redis client used by the redis task queue.
func (c *Container) RedisClient() (*redis.Client, error) {
	c.redisClientInit.Do(func() {
		client, err := newRedisClient(c.config)
		if err != nil {
			c.setInitError("redisClient", fmt.Errorf("failed to connect to redis: %w", err))
			return
		}
		c.redisClient = client
	})
	if err := c.initError("redisClient"); err != nil {
		return nil, err
	}
	return c.redisClient, nil
}

// MetricsProvider returns the Prometheus-backed OpenTelemetry provider, or nil when
// metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.setInitError("metricsProvider", fmt.Errorf("failed to create metrics provider: %w", err))
			return
		}
		c.metricsProvider = provider
	})
	if err := c.initError("metricsProvider"); err != nil {
		return nil, err
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. It is a no-op when metrics
// are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	c.businessMetricsInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.setInitError("businessMetrics", err)
			return
		}
		if provider == nil {
			c.businessMetrics = metrics.NewNoOpBusinessMetrics()
			return
		}
		bm, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			c.setInitError("businessMetrics", fmt.Errorf("failed to create business metrics: %w", err))
			return
		}
		c.businessMetrics = bm
	})
	if err := c.initError("businessMetrics"); err != nil {
		return nil, err
	}
	return c.businessMetrics, nil
}

// Registry returns the collection registry, from REGISTRY_FILE when set and the
// embedded registry otherwise.
func (c *Container) Registry() (*registry.Registry, error) {
	c.registryInit.Do(func() {
		var err error
		if c.config.RegistryFile != "" {
			c.registry, err = registry.LoadFile(c.config.RegistryFile)
		} else {
			c.registry, err = registry.Default()
		}
		if err != nil {
			c.setInitError("registry", fmt.Errorf("failed to load registry: %w", err))
		}
	})
	if err := c.initError("registry"); err != nil {
		return nil, err
	}
	return c.registry, nil
}

// Fixture returns the seed document, from SEED_FILE when set and the embedded
// fixture otherwise.
func (c *Container) Fixture() (*seed.Fixture, error) {
	c.fixtureInit.Do(func() {
		var err error
		if c.config.SeedFile != "" {
			c.fixture, err = seed.LoadFile(c.config.SeedFile)
		} else {
			c.fixture, err = seed.Default()
		}
		if err != nil {
			c.setInitError("fixture", fmt.Errorf("failed to load seed fixture: %w", err))
		}
	})
	if err := c.initError("fixture"); err != nil {
		return nil, err
	}
	return c.fixture, nil
}

// Store returns the in-memory entity store populated from the fixture.
func (c *Container) Store() (*store.Store, error) {
	c.storeInit.Do(func() {
		fixture, err := c.Fixture()
		if err != nil {
			c.setInitError("store", err)
			return
		}
		c.store = store.FromFixture(fixture)
	})
	if err := c.initError("store"); err != nil {
		return nil, err
	}
	return c.store, nil
}

// Directory returns the users, groups, roles and tenants view over the store. Seeded
// plain text passwords are hashed on first access.
func (c *Container) Directory() (*directory.Directory, error) {
	c.directoryInit.Do(func() {
		s, err := c.Store()
		if err != nil {
			c.setInitError("directory", err)
			return
		}
		fixture, err := c.Fixture()
		if err != nil {
			c.setInitError("directory", err)
			return
		}
		d, err := directory.New(s, fixture.Features, c.SecretService())
		if err != nil {
			c.setInitError("directory", fmt.Errorf("failed to build directory: %w", err))
			return
		}
		c.directory = d
	})
	if err := c.initError("directory"); err != nil {
		return nil, err
	}
	return c.directory, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("redis close: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	return errors.Join(shutdownErrors...)
}

func (c *Container) setInitError(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initErrors[name] = err
}

func (c *Container) initError(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initErrors[name]
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// unsupportedDriver is returned by every driver-selected repository.
func (c *Container) unsupportedDriver() error {
	return fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
}
