package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/resourcegateway/internal/errors"
	taskDomain "github.com/allisson/resourcegateway/internal/task/domain"
	"github.com/allisson/resourcegateway/internal/testutil"
)

func mustBinary(t *testing.T, id uuid.UUID) []byte {
	t.Helper()
	b, err := id.MarshalBinary()
	require.NoError(t, err)
	return b
}

func TestMySQLTaskRepository_Create(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLTaskRepository(db)
	task := newTestTask()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO tasks`)).
		WithArgs(
			mustBinary(t, task.ID), nil, "Start vm web", "vm.start", "vms", "1", "jdoe", "queued", "",
			"", []byte(`{"vm_id":"1"}`), 0, task.CreatedAt, task.UpdatedAt, nil,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), task))
}

func TestMySQLTaskRepository_Get(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLTaskRepository(db)
	ctx := context.Background()
	task := newTestTask()
	parent := uuid.Must(uuid.NewV7())

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows(taskColumnNames).AddRow(
			mustBinary(t, task.ID), mustBinary(t, parent), task.Name, task.Operation, "vms", "1", "jdoe",
			"running", "", "", []byte(`{"vm_id":"1"}`), 0, task.CreatedAt, task.UpdatedAt, nil,
		)
		mock.ExpectQuery(regexp.QuoteMeta(`FROM tasks WHERE id = ?`)).
			WithArgs(mustBinary(t, task.ID)).
			WillReturnRows(rows)

		got, err := repo.Get(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, task.ID, got.ID)
		require.NotNil(t, got.ParentID)
		assert.Equal(t, parent, *got.ParentID)
		assert.Equal(t, taskDomain.StateRunning, got.State)
		assert.Nil(t, got.FinishedAt)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`FROM tasks WHERE id = ?`)).
			WithArgs(mustBinary(t, task.ID)).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.Get(ctx, task.ID)
		assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	})

	t.Run("Error_BadID", func(t *testing.T) {
		rows := sqlmock.NewRows(taskColumnNames).AddRow(
			[]byte{0x01}, nil, task.Name, task.Operation, "vms", "1", "jdoe",
			"queued", "", "", []byte(`{}`), 0, task.CreatedAt, task.UpdatedAt, nil,
		)
		mock.ExpectQuery(regexp.QuoteMeta(`FROM tasks WHERE id = ?`)).
			WithArgs(mustBinary(t, task.ID)).
			WillReturnRows(rows)

		_, err := repo.Get(ctx, task.ID)
		assert.ErrorContains(t, err, "failed to unmarshal task id")
	})
}

func TestMySQLTaskRepository_ListQueued(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLTaskRepository(db)
	task := newTestTask()

	rows := sqlmock.NewRows(taskColumnNames).AddRow(
		mustBinary(t, task.ID), nil, task.Name, task.Operation, "vms", "1", "jdoe",
		"queued", "", "", []byte(`{"vm_id":"1"}`), 0, task.CreatedAt, task.UpdatedAt, nil,
	)
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE SKIP LOCKED`)).
		WithArgs("queued", 5).
		WillReturnRows(rows)

	tasks, err := repo.ListQueued(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Nil(t, tasks[0].ParentID)
	assert.Equal(t, "vm.start", tasks[0].Operation)
}

func TestMySQLTaskRepository_Claim(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLTaskRepository(db)
	id := uuid.Must(uuid.NewV7())
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE tasks SET state = ?, updated_at = ? WHERE id = ? AND state = ?`)).
		WithArgs("running", now, mustBinary(t, id), "queued").
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := repo.Claim(context.Background(), id, now)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestMySQLTaskRepository_Update(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLTaskRepository(db)
	task := newTestTask()
	task.State = taskDomain.StateQueued
	task.Retries = 1
	task.Message = "retrying"

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE tasks`)).
		WithArgs(
			"queued", "", "retrying", []byte(`{"vm_id":"1"}`), 1,
			task.UpdatedAt, nil, mustBinary(t, task.ID),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), task))
}

func TestMySQLTaskRepository_Delete(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLTaskRepository(db)
	id := uuid.Must(uuid.NewV7())

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM tasks WHERE id = ? OR parent_id = ?`)).
		WithArgs(mustBinary(t, id), mustBinary(t, id)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.Delete(context.Background(), id))
}
