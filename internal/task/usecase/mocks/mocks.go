// Package mocks provides testify mocks for the task use case interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	taskDomain "github.com/allisson/resourcegateway/internal/task/domain"
)

// MockTaskRepository is a mock implementation of usecase.TaskRepository.
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) Create(ctx context.Context, task *taskDomain.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) Get(ctx context.Context, id uuid.UUID) (*taskDomain.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*taskDomain.Task), args.Error(1)
}

func (m *MockTaskRepository) List(ctx context.Context) ([]*taskDomain.Task, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*taskDomain.Task), args.Error(1)
}

func (m *MockTaskRepository) ListChildren(ctx context.Context, parentID uuid.UUID) ([]*taskDomain.Task, error) {
	args := m.Called(ctx, parentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*taskDomain.Task), args.Error(1)
}

func (m *MockTaskRepository) ListQueued(ctx context.Context, limit int) ([]*taskDomain.Task, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*taskDomain.Task), args.Error(1)
}

func (m *MockTaskRepository) Claim(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	args := m.Called(ctx, id, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockTaskRepository) Update(ctx context.Context, task *taskDomain.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockQueue is a mock implementation of usecase.Queue.
type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Publish(ctx context.Context, ids ...uuid.UUID) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockQueue) Consume(ctx context.Context, timeout time.Duration) (uuid.UUID, bool, error) {
	args := m.Called(ctx, timeout)
	return args.Get(0).(uuid.UUID), args.Bool(1), args.Error(2)
}

// MockNotifier is a mock implementation of usecase.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) TaskFinished(ctx context.Context, task *taskDomain.Task) {
	m.Called(ctx, task)
}

// MockTaskUseCase is a mock implementation of usecase.TaskUseCase.
type MockTaskUseCase struct {
	mock.Mock
}

func (m *MockTaskUseCase) Enqueue(ctx context.Context, spec taskDomain.Spec) (*taskDomain.Task, error) {
	args := m.Called(ctx, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*taskDomain.Task), args.Error(1)
}

func (m *MockTaskUseCase) Get(ctx context.Context, id string) (*taskDomain.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*taskDomain.Task), args.Error(1)
}

func (m *MockTaskUseCase) List(ctx context.Context) ([]*taskDomain.Task, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*taskDomain.Task), args.Error(1)
}

func (m *MockTaskUseCase) Cancel(ctx context.Context, id string) (*taskDomain.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*taskDomain.Task), args.Error(1)
}

func (m *MockTaskUseCase) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
