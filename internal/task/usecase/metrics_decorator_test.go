package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	metricsMocks "github.com/allisson/resourcegateway/internal/metrics/mocks"
	taskDomain "github.com/allisson/resourcegateway/internal/task/domain"
	"github.com/allisson/resourcegateway/internal/task/usecase"
	usecaseMocks "github.com/allisson/resourcegateway/internal/task/usecase/mocks"
)

func TestTaskUseCaseWithMetrics(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_RecordsSuccess", func(t *testing.T) {
		next := &usecaseMocks.MockTaskUseCase{}
		m := &metricsMocks.MockBusinessMetrics{}
		decorated := usecase.NewTaskUseCaseWithMetrics(next, m)

		spec := taskDomain.Spec{Name: "Start", Operation: "vm.start"}
		next.On("Enqueue", ctx, spec).Return(&taskDomain.Task{Name: "Start"}, nil).Once()
		m.On("RecordOperation", ctx, "task", "task_enqueue", "success").Once()
		m.On("RecordDuration", ctx, "task", "task_enqueue", mock.Anything, "success").Once()

		task, err := decorated.Enqueue(ctx, spec)
		assert.NoError(t, err)
		assert.Equal(t, "Start", task.Name)
		next.AssertExpectations(t)
		m.AssertExpectations(t)
	})

	t.Run("Error_RecordsError", func(t *testing.T) {
		next := &usecaseMocks.MockTaskUseCase{}
		m := &metricsMocks.MockBusinessMetrics{}
		decorated := usecase.NewTaskUseCaseWithMetrics(next, m)

		next.On("Cancel", ctx, "42").Return(nil, assert.AnError).Once()
		m.On("RecordOperation", ctx, "task", "task_cancel", "error").Once()
		m.On("RecordDuration", ctx, "task", "task_cancel", mock.Anything, "error").Once()

		_, err := decorated.Cancel(ctx, "42")
		assert.ErrorIs(t, err, assert.AnError)
		next.AssertExpectations(t)
		m.AssertExpectations(t)
	})
}
