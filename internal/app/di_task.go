package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/allisson/resourcegateway/internal/config"
	"github.com/allisson/resourcegateway/internal/notify"
	"github.com/allisson/resourcegateway/internal/resources"
	"github.com/allisson/resourcegateway/internal/task/queue"
	taskRepository "github.com/allisson/resourcegateway/internal/task/repository"
	taskUsecase "github.com/allisson/resourcegateway/internal/task/usecase"
)

func newRedisClient(cfg *config.Config) (*redis.Client, error) {
	return queue.NewRedisClient(context.Background(), cfg.RedisAddr, cfg.RedisDB)
}

// TaskRepository returns the task repository for the configured driver.
func (c *Container) TaskRepository() (taskUsecase.TaskRepository, error) {
	c.taskRepositoryInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.setInitError("taskRepository", fmt.Errorf("failed to get database for task repository: %w", err))
			return
		}
		switch c.config.DBDriver {
		case "mysql":
			c.taskRepository = taskRepository.NewMySQLTaskRepository(db)
		case "postgres":
			c.taskRepository = taskRepository.NewPostgreSQLTaskRepository(db)
		default:
			c.setInitError("taskRepository", c.unsupportedDriver())
		}
	})
	if err := c.initError("taskRepository"); err != nil {
		return nil, err
	}
	return c.taskRepository, nil
}

// TaskQueue returns the Redis queue when TASK_QUEUE_BACKEND is redis and nil for
// the database backend, where the worker only sweeps.
func (c *Container) TaskQueue() (taskUsecase.Queue, error) {
	c.taskQueueInit.Do(func() {
		switch c.config.TaskQueueBackend {
		case config.TaskQueueDatabase, "":
		case config.TaskQueueRedis:
			client, err := c.RedisClient()
			if err != nil {
				c.setInitError("taskQueue", err)
				return
			}
			c.taskQueue = queue.NewRedisQueue(client, c.config.RedisQueueKey)
		default:
			c.setInitError("taskQueue", fmt.Errorf("unsupported task queue backend: %s", c.config.TaskQueueBackend))
		}
	})
	if err := c.initError("taskQueue"); err != nil {
		return nil, err
	}
	return c.taskQueue, nil
}

// NotificationHub returns the in-process fan-out of new notifications.
func (c *Container) NotificationHub() *notify.Hub {
	c.hubInit.Do(func() {
		c.hub = notify.NewHub()
	})
	return c.hub
}

// TaskNotifier returns the notifier that turns finished tasks into notifications.
func (c *Container) TaskNotifier() (*notify.TaskNotifier, error) {
	c.taskNotifierInit.Do(func() {
		s, err := c.Store()
		if err != nil {
			c.setInitError("taskNotifier", err)
			return
		}
		dir, err := c.Directory()
		if err != nil {
			c.setInitError("taskNotifier", err)
			return
		}
		c.taskNotifier = notify.NewTaskNotifier(s, dir, c.NotificationHub(), c.Logger())
	})
	if err := c.initError("taskNotifier"); err != nil {
		return nil, err
	}
	return c.taskNotifier, nil
}

// TaskUseCase returns the task use case decorated with business metrics.
func (c *Container) TaskUseCase() (taskUsecase.TaskUseCase, error) {
	c.taskUseCaseInit.Do(func() {
		useCase, err := c.initTaskUseCase()
		if err != nil {
			c.setInitError("taskUseCase", err)
			return
		}
		c.taskUseCase = useCase
	})
	if err := c.initError("taskUseCase"); err != nil {
		return nil, err
	}
	return c.taskUseCase, nil
}

// Worker returns the task worker with every runner of the sample collections registered.
func (c *Container) Worker() (*taskUsecase.Worker, error) {
	c.workerInit.Do(func() {
		worker, err := c.initWorker()
		if err != nil {
			c.setInitError("worker", err)
			return
		}
		c.worker = worker
	})
	if err := c.initError("worker"); err != nil {
		return nil, err
	}
	return c.worker, nil
}

// StreamHandler returns the websocket handler of the notification stream.
func (c *Container) StreamHandler() (*notify.StreamHandler, error) {
	c.streamHandlerInit.Do(func() {
		s, err := c.Store()
		if err != nil {
			c.setInitError("streamHandler", err)
			return
		}
		c.streamHandler = notify.NewStreamHandler(s, c.NotificationHub(), c.Logger())
	})
	if err := c.initError("streamHandler"); err != nil {
		return nil, err
	}
	return c.streamHandler, nil
}

func (c *Container) initTaskUseCase() (taskUsecase.TaskUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for task use case: %w", err)
	}
	repo, err := c.TaskRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get task repository for task use case: %w", err)
	}
	q, err := c.TaskQueue()
	if err != nil {
		return nil, fmt.Errorf("failed to get task queue for task use case: %w", err)
	}
	notifier, err := c.TaskNotifier()
	if err != nil {
		return nil, fmt.Errorf("failed to get task notifier for task use case: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for task use case: %w", err)
	}

	baseUseCase := taskUsecase.NewTaskUseCase(txManager, repo, q, notifier, c.Logger())
	return taskUsecase.NewTaskUseCaseWithMetrics(baseUseCase, businessMetrics), nil
}

func (c *Container) initWorker() (*taskUsecase.Worker, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for worker: %w", err)
	}
	repo, err := c.TaskRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get task repository for worker: %w", err)
	}
	q, err := c.TaskQueue()
	if err != nil {
		return nil, fmt.Errorf("failed to get task queue for worker: %w", err)
	}
	notifier, err := c.TaskNotifier()
	if err != nil {
		return nil, fmt.Errorf("failed to get task notifier for worker: %w", err)
	}
	s, err := c.Store()
	if err != nil {
		return nil, fmt.Errorf("failed to get store for worker: %w", err)
	}

	worker := taskUsecase.NewWorker(
		taskUsecase.Config{
			Interval:       c.config.TaskWorkerInterval,
			BatchSize:      c.config.TaskBatchSize,
			MaxRetries:     c.config.TaskMaxRetries,
			ConsumeTimeout: time.Second,
		},
		txManager,
		repo,
		q,
		notifier,
		c.Logger(),
	)
	resources.RegisterRunners(worker, s, c.Logger())
	return worker, nil
}
