// Package repository persists delegated tasks for PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/resourcegateway/internal/database"
	apperrors "github.com/allisson/resourcegateway/internal/errors"
	taskDomain "github.com/allisson/resourcegateway/internal/task/domain"
)

const taskColumns = `id, parent_id, name, operation, collection, resource_id, user_id, state, status,
			  message, payload, retries, created_at, updated_at, finished_at`

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// PostgreSQLTaskRepository implements Task persistence for PostgreSQL.
type PostgreSQLTaskRepository struct {
	db *sql.DB
}

// Create inserts a new Task.
func (p *PostgreSQLTaskRepository) Create(ctx context.Context, task *taskDomain.Task) error {
	querier := database.GetTx(ctx, p.db)

	payload, err := marshalPayload(task.Payload)
	if err != nil {
		return err
	}

	query := `INSERT INTO tasks (` + taskColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = querier.ExecContext(
		ctx,
		query,
		task.ID,
		nullUUID(task.ParentID),
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
func (p *PostgreSQLTaskRepository) Get(ctx context.Context, id uuid.UUID) (*taskDomain.Task, error) {
	querier := database.GetTx(ctx, p.db)

	row := querier.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	task, err := scanPostgreSQLTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, taskDomain.ErrTaskNotFound(id.String())
		}
		return nil, apperrors.Wrap(err, "failed to get task")
	}
	return task, nil
}

// List retrieves every task oldest first.
func (p *PostgreSQLTaskRepository) List(ctx context.Context) ([]*taskDomain.Task, error) {
	querier := database.GetTx(ctx, p.db)

	rows, err := querier.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list tasks")
	}
	return collectPostgreSQLTasks(rows)
}

// ListChildren retrieves the children of a parent task.
func (p *PostgreSQLTaskRepository) ListChildren(ctx context.Context, parentID uuid.UUID) ([]*taskDomain.Task, error) {
	querier := database.GetTx(ctx, p.db)

	rows, err := querier.QueryContext(
		ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE parent_id = $1 ORDER BY created_at ASC, id ASC`,
		parentID,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list child tasks")
	}
	return collectPostgreSQLTasks(rows)
}

// ListQueued locks up to limit runnable queued tasks, oldest first. Rows locked by
// another worker are skipped. Must run inside a transaction.
func (p *PostgreSQLTaskRepository) ListQueued(ctx context.Context, limit int) ([]*taskDomain.Task, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + taskColumns + ` FROM tasks
			  WHERE state = $1 AND operation <> ''
			  ORDER BY created_at ASC
			  LIMIT $2
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, string(taskDomain.StateQueued), limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list queued tasks")
	}
	return collectPostgreSQLTasks(rows)
}

// Claim moves a queued task to running. It reports false when the task was not
// queued, so each task is claimed at most once.
func (p *PostgreSQLTaskRepository) Claim(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(
		ctx,
		`UPDATE tasks SET state = $1, updated_at = $2 WHERE id = $3 AND state = $4`,
		string(taskDomain.StateRunning),
		now,
		id,
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
func (p *PostgreSQLTaskRepository) Update(ctx context.Context, task *taskDomain.Task) error {
	querier := database.GetTx(ctx, p.db)

	payload, err := marshalPayload(task.Payload)
	if err != nil {
		return err
	}

	query := `UPDATE tasks
			  SET state = $1, status = $2, message = $3, payload = $4, retries = $5,
			      updated_at = $6, finished_at = $7
			  WHERE id = $8`

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
		task.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update task")
	}
	return nil
}

// Delete removes a task and its children.
func (p *PostgreSQLTaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	if _, err := querier.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 OR parent_id = $1`, id); err != nil {
		return apperrors.Wrap(err, "failed to delete task")
	}
	return nil
}

// NewPostgreSQLTaskRepository creates a new PostgreSQL Task repository.
func NewPostgreSQLTaskRepository(db *sql.DB) *PostgreSQLTaskRepository {
	return &PostgreSQLTaskRepository{db: db}
}

func scanPostgreSQLTask(row scanner) (*taskDomain.Task, error) {
	var task taskDomain.Task
	var parentID uuid.NullUUID
	var state, status string
	var payload []byte

	err := row.Scan(
		&task.ID,
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

	if parentID.Valid {
		task.ParentID = &parentID.UUID
	}
	task.State = taskDomain.State(state)
	task.Status = taskDomain.Status(status)
	if task.Payload, err = unmarshalPayload(payload); err != nil {
		return nil, err
	}
	return &task, nil
}

func collectPostgreSQLTasks(rows *sql.Rows) ([]*taskDomain.Task, error) {
	defer func() {
		_ = rows.Close()
	}()

	tasks := make([]*taskDomain.Task, 0)
	for rows.Next() {
		task, err := scanPostgreSQLTask(rows)
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

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func marshalPayload(payload map[string]any) ([]byte, error) {
	if payload == nil {
		return nil, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal task payload")
	}
	return b, nil
}

func unmarshalPayload(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var payload map[string]any
	if err := json.Unmarshal(b, &payload); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal task payload")
	}
	return payload, nil
}
