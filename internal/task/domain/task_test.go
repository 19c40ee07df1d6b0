package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/resourcegateway/internal/errors"
)

func TestTask_Finish(t *testing.T) {
	task := &Task{ID: uuid.Must(uuid.NewV7()), Operation: "vm.start", State: StateRunning}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	task.Finish(StatusOK, "Started", now)

	assert.Equal(t, StateFinished, task.State)
	assert.Equal(t, StatusOK, task.Status)
	assert.Equal(t, "Started", task.Message)
	require.NotNil(t, task.FinishedAt)
	assert.Equal(t, now, *task.FinishedAt)
	assert.True(t, task.Done())
	assert.False(t, task.IsParent())
}

func TestTask_Entity(t *testing.T) {
	parent := uuid.Must(uuid.NewV7())
	task := &Task{
		ID:         uuid.Must(uuid.NewV7()),
		ParentID:   &parent,
		Name:       "Refreshing manager 1",
		Operation:  "provider.refresh",
		Collection: "providers",
		ResourceID: "1",
		UserID:     "admin",
		State:      StateQueued,
	}

	e := task.Entity()
	assert.Equal(t, task.ID.String(), e.ID)
	assert.Equal(t, "task", e.Type)
	assert.Equal(t, "queued", e.String("state"))
	assert.Equal(t, "admin", e.String("userid"))
	assert.Equal(t, parent.String(), e.String("parent_id"))
	assert.Equal(t, "providers", e.String("resource_collection"))

	ref := task.Ref("http://localhost/api")
	assert.Equal(t, task.ID.String(), ref.ID)
	assert.Equal(t, "http://localhost/api/tasks/"+task.ID.String(), ref.Href)
}

func TestErrors(t *testing.T) {
	task := &Task{ID: uuid.MustParse("01900000-0000-7000-8000-000000000001"), State: StateRunning}

	assert.True(t, apperrors.Is(ErrTaskNotFound("x"), apperrors.ErrNotFound))
	assert.Equal(t, "Couldn't find tasks with 'id'=x", apperrors.Message(ErrTaskNotFound("x")))

	err := ErrNotCancellable(task)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
	assert.Equal(t, "Task 01900000-0000-7000-8000-000000000001 is running and cannot be cancelled", apperrors.Message(err))

	assert.True(t, apperrors.Is(ErrNotDeletable(task), apperrors.ErrConflict))

	_, err = ParseID("not-a-uuid")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}
