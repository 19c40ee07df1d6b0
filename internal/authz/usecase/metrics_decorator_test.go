package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	authzDomain "github.com/allisson/resourcegateway/internal/authz/domain"
	"github.com/allisson/resourcegateway/internal/authz/usecase"
	usecaseMocks "github.com/allisson/resourcegateway/internal/authz/usecase/mocks"
	metricsMocks "github.com/allisson/resourcegateway/internal/metrics/mocks"
)

func TestAuditLogUseCaseWithMetrics(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_RecordsSuccess", func(t *testing.T) {
		next := &usecaseMocks.MockAuditLogUseCase{}
		m := &metricsMocks.MockBusinessMetrics{}
		decorated := usecase.NewAuditLogUseCaseWithMetrics(next, m)

		entry := &authzDomain.AuditLog{Collection: "zones"}
		next.On("Record", ctx, entry).Return(nil).Once()
		m.On("RecordOperation", ctx, "authz", "audit_log_record", "success").Once()
		m.On("RecordDuration", ctx, "authz", "audit_log_record", mock.Anything, "success").Once()

		assert.NoError(t, decorated.Record(ctx, entry))
		next.AssertExpectations(t)
		m.AssertExpectations(t)
	})

	t.Run("Error_RecordsError", func(t *testing.T) {
		next := &usecaseMocks.MockAuditLogUseCase{}
		m := &metricsMocks.MockBusinessMetrics{}
		decorated := usecase.NewAuditLogUseCaseWithMetrics(next, m)

		next.On("DeleteOlderThan", ctx, 30, true).Return(int64(0), assert.AnError).Once()
		m.On("RecordOperation", ctx, "authz", "audit_log_delete", "error").Once()
		m.On("RecordDuration", ctx, "authz", "audit_log_delete", mock.Anything, "error").Once()

		_, err := decorated.DeleteOlderThan(ctx, 30, true)
		assert.ErrorIs(t, err, assert.AnError)
		next.AssertExpectations(t)
		m.AssertExpectations(t)
	})
}
