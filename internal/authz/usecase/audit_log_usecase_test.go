package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authzDomain "github.com/allisson/resourcegateway/internal/authz/domain"
	authzService "github.com/allisson/resourcegateway/internal/authz/service"
	apperrors "github.com/allisson/resourcegateway/internal/errors"
)

// MockAuditLogRepository is a mock implementation of AuditLogRepository.
type MockAuditLogRepository struct {
	mock.Mock
}

func (m *MockAuditLogRepository) Create(ctx context.Context, auditLog *authzDomain.AuditLog) error {
	args := m.Called(ctx, auditLog)
	return args.Error(0)
}

func (m *MockAuditLogRepository) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*authzDomain.AuditLog, error) {
	args := m.Called(ctx, offset, limit, createdAtFrom, createdAtTo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*authzDomain.AuditLog), args.Error(1)
}

func (m *MockAuditLogRepository) DeleteOlderThan(
	ctx context.Context,
	olderThan time.Time,
	dryRun bool,
) (int64, error) {
	args := m.Called(ctx, olderThan, dryRun)
	return args.Get(0).(int64), args.Error(1)
}

func TestAuditLogUseCase_Record(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_Signed", func(t *testing.T) {
		repo := &MockAuditLogRepository{}
		signer := authzService.NewAuditSigner()
		secret := []byte("audit-secret")
		useCase := NewAuditLogUseCase(repo, signer, secret)

		var stored *authzDomain.AuditLog
		repo.On("Create", ctx, mock.AnythingOfType("*domain.AuditLog")).
			Run(func(args mock.Arguments) { stored = args.Get(1).(*authzDomain.AuditLog) }).
			Return(nil).Once()

		err := useCase.Record(ctx, &authzDomain.AuditLog{Collection: "zones", Action: "read", Allowed: true})
		require.NoError(t, err)

		require.NotNil(t, stored)
		assert.NotEqual(t, uuid.Nil, stored.ID)
		assert.False(t, stored.CreatedAt.IsZero())
		assert.True(t, stored.IsSigned)
		assert.NoError(t, signer.Verify(secret, stored))
		repo.AssertExpectations(t)
	})

	t.Run("Success_UnsignedWithoutSecret", func(t *testing.T) {
		repo := &MockAuditLogRepository{}
		useCase := NewAuditLogUseCase(repo, authzService.NewAuditSigner(), nil)

		repo.On("Create", ctx, mock.MatchedBy(func(l *authzDomain.AuditLog) bool {
			return !l.IsSigned && l.Signature == nil
		})).Return(nil).Once()

		require.NoError(t, useCase.Record(ctx, &authzDomain.AuditLog{Collection: "zones"}))
		repo.AssertExpectations(t)
	})

	t.Run("Error_RepositoryFailure", func(t *testing.T) {
		repo := &MockAuditLogRepository{}
		useCase := NewAuditLogUseCase(repo, authzService.NewAuditSigner(), nil)
		repo.On("Create", ctx, mock.Anything).Return(assert.AnError).Once()

		err := useCase.Record(ctx, &authzDomain.AuditLog{})
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestAuditLogUseCase_List(t *testing.T) {
	ctx := context.Background()
	repo := &MockAuditLogRepository{}
	useCase := NewAuditLogUseCase(repo, authzService.NewAuditSigner(), nil)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	expected := []*authzDomain.AuditLog{{ID: uuid.Must(uuid.NewV7())}}
	repo.On("List", ctx, 0, 50, &from, (*time.Time)(nil)).Return(expected, nil).Once()

	logs, err := useCase.List(ctx, 0, 50, &from, nil)
	require.NoError(t, err)
	assert.Equal(t, expected, logs)
	repo.AssertExpectations(t)
}

func TestAuditLogUseCase_DeleteOlderThan(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		days    int
		dryRun  bool
		count   int64
		repoErr error
		wantErr bool
	}{
		{name: "Success_Delete", days: 30, count: 12},
		{name: "Success_DryRun", days: 7, dryRun: true, count: 3},
		{name: "Success_ZeroDays", days: 0, count: 1},
		{name: "Error_NegativeDays", days: -1, wantErr: true},
		{name: "Error_Repository", days: 30, repoErr: assert.AnError, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockAuditLogRepository{}
			useCase := NewAuditLogUseCase(repo, authzService.NewAuditSigner(), nil)

			if tt.days >= 0 {
				expectedCutoff := time.Now().UTC().AddDate(0, 0, -tt.days)
				repo.On("DeleteOlderThan", ctx, mock.MatchedBy(func(ts time.Time) bool {
					return ts.Sub(expectedCutoff).Abs() < time.Minute
				}), tt.dryRun).Return(tt.count, tt.repoErr).Once()
			}

			count, err := useCase.DeleteOlderThan(ctx, tt.days, tt.dryRun)
			if tt.wantErr {
				require.Error(t, err)
				if tt.days < 0 {
					assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.count, count)
			repo.AssertExpectations(t)
		})
	}
}

func TestAuditLogUseCase_VerifyBatch(t *testing.T) {
	ctx := context.Background()
	secret := []byte("audit-secret")
	signer := authzService.NewAuditSigner()

	signed := func(action string) *authzDomain.AuditLog {
		l := &authzDomain.AuditLog{
			ID:         uuid.Must(uuid.NewV7()),
			Collection: "zones",
			Action:     action,
			CreatedAt:  time.Now().UTC(),
			IsSigned:   true,
		}
		sig, err := signer.Sign(secret, l)
		require.NoError(t, err)
		l.Signature = sig
		return l
	}

	t.Run("Success_MixedBatch", func(t *testing.T) {
		repo := &MockAuditLogRepository{}
		useCase := NewAuditLogUseCase(repo, signer, secret)

		valid := signed("read")
		tampered := signed("edit")
		tampered.Action = "delete"
		unsigned := &authzDomain.AuditLog{ID: uuid.Must(uuid.NewV7())}

		repo.On("List", ctx, 0, verifyBatchSize, (*time.Time)(nil), (*time.Time)(nil)).
			Return([]*authzDomain.AuditLog{valid, tampered, unsigned}, nil).Once()

		report, err := useCase.VerifyBatch(ctx, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, report.TotalChecked)
		assert.Equal(t, 2, report.SignedCount)
		assert.Equal(t, 1, report.UnsignedCount)
		assert.Equal(t, 1, report.ValidCount)
		assert.Equal(t, 1, report.InvalidCount)
		assert.Equal(t, []uuid.UUID{tampered.ID}, report.InvalidLogs)
		repo.AssertExpectations(t)
	})

	t.Run("Success_Paginates", func(t *testing.T) {
		repo := &MockAuditLogRepository{}
		useCase := NewAuditLogUseCase(repo, signer, secret)

		full := make([]*authzDomain.AuditLog, verifyBatchSize)
		for i := range full {
			full[i] = &authzDomain.AuditLog{ID: uuid.Must(uuid.NewV7())}
		}
		repo.On("List", ctx, 0, verifyBatchSize, (*time.Time)(nil), (*time.Time)(nil)).Return(full, nil).Once()
		repo.On("List", ctx, verifyBatchSize, verifyBatchSize, (*time.Time)(nil), (*time.Time)(nil)).
			Return([]*authzDomain.AuditLog{}, nil).Once()

		report, err := useCase.VerifyBatch(ctx, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, verifyBatchSize, report.TotalChecked)
		assert.Equal(t, verifyBatchSize, report.UnsignedCount)
		repo.AssertExpectations(t)
	})

	t.Run("Error_NoSecret", func(t *testing.T) {
		useCase := NewAuditLogUseCase(&MockAuditLogRepository{}, signer, nil)
		_, err := useCase.VerifyBatch(ctx, nil, nil)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	})
}
