package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/resourcegateway/internal/database"
	apperrors "github.com/allisson/resourcegateway/internal/errors"
	taskDomain "github.com/allisson/resourcegateway/internal/task/domain"
)

// MySQLTaskRepository implements Task persistence for MySQL. Ids are stored as
// BINARY(16).
type MySQLTaskRepository struct {
	db *sql.DB
}

// Create inserts a new Task.
func (m *MySQLTaskRepository) Create(ctx context.Context, task *taskDomain.Task) error {
	querier := database.GetTx(ctx, m.db)

	id, err := task.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal task id")
	}
	parentID, err := binaryParentID(task.ParentID)
	if err != nil {
		return err
	}
	payload, err := marshalPayload(task.Payload)
	if err != nil {
		return err
	}

	query := `INSERT INTO tasks (` + taskColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		parentID,
		task.Name,
		task.Operation,
		task.Collection,
		task.ResourceID,
		task.UserID,
		string(task.State),
		string(task.Status),
		task.Message,
		payload,
		task.Retries,
		task.CreatedAt,
		task.UpdatedAt,
		task.FinishedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create task")
	}
	return nil
}

// Get retrieves a Task by id. Returns a NotFound error when it does not exist.
func (m *MySQLTaskRepository) Get(ctx context.Context, id uuid.UUID) (*taskDomain.Task, error) {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal task id")
	}

	row := querier.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, idBytes)
	task, err := scanMySQLTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, taskDomain.ErrTaskNotFound(id.String())
		}
		return nil, apperrors.Wrap(err, "failed to get task")
	}
	return task, nil
}

// List retrieves every task oldest first.
func (m *MySQLTaskRepository) List(ctx context.Context) ([]*taskDomain.Task, error) {
	querier := database.GetTx(ctx, m.db)

	rows, err := querier.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list tasks")
	}
	return collectMySQLTasks(rows)
}

// ListChildren retrieves the children of a parent task.
func (m *MySQLTaskRepository) ListChildren(ctx context.Context, parentID uuid.UUID) ([]*taskDomain.Task, error) {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := parentID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal task id")
	}

	rows, err := querier.QueryContext(
		ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE parent_id = ? ORDER BY created_at ASC, id ASC`,
		idBytes,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list child tasks")
	}
	return collectMySQLTasks(rows)
}

// ListQueued locks up to limit runnable queued tasks, oldest first. Rows locked by
// another worker are skipped. Must run inside a transaction.
func (m *MySQLTaskRepository) ListQueued(ctx context.Context, limit int) ([]*taskDomain.Task, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + taskColumns + ` FROM tasks
			  WHERE state = ? AND operation <> ''
			  ORDER BY created_at ASC
			  LIMIT ?
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, string(taskDomain.StateQueued), limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list queued tasks")
	}
	return collectMySQLTasks(rows)
}

// Claim moves a queued task to running. It reports false when the task was not
// queued, so each task is claimed at most once.
func (m *MySQLTaskRepository) Claim(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal task id")
	}

	result, err := querier.ExecContext(
		ctx,
		`UPDATE tasks SET state = ?, updated_at = ? WHERE id = ? AND state = ?`,
		string(taskDomain.StateRunning),
		now,
		idBytes,
		string(taskDomain.StateQueued),
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to claim task")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to get affected rows count")
	}
	return n == 1, nil
}

// Update stores the mutable fields of a Task.
func (m *MySQLTaskRepository) Update(ctx context.Context, task *taskDomain.Task) error {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := task.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal task id")
	}
	payload, err := marshalPayload(task.Payload)
	if err != nil {
		return err
	}

	query := `UPDATE tasks
			  SET state = ?, status = ?, message = ?, payload = ?, retries = ?,
			      updated_at = ?, finished_at = ?
			  WHERE id = ?`

	_, err = querier.ExecContext(
		ctx,
		query,
		string(task.State),
		string(task.Status),
		task.Message,
		payload,
		task.Retries,
		task.UpdatedAt,
		task.FinishedAt,
		idBytes,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update task")
	}
	return nil
}

// Delete removes a task and its children.
func (m *MySQLTaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal task id")
	}

	if _, err := querier.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? OR parent_id = ?`, idBytes, idBytes); err != nil {
		return apperrors.Wrap(err, "failed to delete task")
	}
	return nil
}

// NewMySQLTaskRepository creates a new MySQL Task repository.
func NewMySQLTaskRepository(db *sql.DB) *MySQLTaskRepository {
	return &MySQLTaskRepository{db: db}
}

func scanMySQLTask(row scanner) (*taskDomain.Task, error) {
	var task taskDomain.Task
	var id, parentID, payload []byte
	var state, status string

	err := row.Scan(
		&id,
		&parentID,
		&task.Name,
		&task.Operation,
		&task.Collection,
		&task.ResourceID,
		&task.UserID,
		&state,
		&status,
		&task.Message,
		&payload,
		&task.Retries,
		&task.CreatedAt,
		&task.UpdatedAt,
		&task.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := task.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal task id")
	}
	if len(parentID) > 0 {
		var parent uuid.UUID
		if err := parent.UnmarshalBinary(parentID); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal task parent id")
		}
		task.ParentID = &parent
	}
	task.State = taskDomain.State(state)
	task.Status = taskDomain.Status(status)
	if task.Payload, err = unmarshalPayload(payload); err != nil {
		return nil, err
	}
	return &task, nil
}

func collectMySQLTasks(rows *sql.Rows) ([]*taskDomain.Task, error) {
	defer func() {
		_ = rows.Close()
	}()

	tasks := make([]*taskDomain.Task, 0)
	for rows.Next() {
		task, err := scanMySQLTask(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan task")
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate tasks")
	}
	return tasks, nil
}

// binaryParentID returns an untyped nil for root tasks so the driver writes NULL.
func binaryParentID(id *uuid.UUID) (any, error) {
	if id == nil {
		return nil, nil
	}
	b, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal task parent id")
	}
	return b, nil
}
