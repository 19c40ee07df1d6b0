// Package domain defines delegated tasks: asynchronous operations started by gateway
// actions and polled through the tasks collection.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/resourcegateway/internal/errors"
	gatewayDomain "github.com/allisson/resourcegateway/internal/gateway/domain"
)

// State is the lifecycle position of a task.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateFinished  State = "finished"
	StateCancelled State = "cancelled"
)

// Status is the outcome of a finished task.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Collection is the gateway collection tasks are served from.
const Collection = "tasks"

// Task is one unit of delegated work. A parent task has no operation of its own and
// finishes when all of its children have.
type Task struct {
	ID       uuid.UUID
	ParentID *uuid.UUID
	Name     string
	// Operation names the runner that executes the task. Empty for parents.
	Operation string
	// Collection and ResourceID identify the resource that started the task.
	Collection string
	ResourceID string
	// UserID is the login of the principal that started the task.
	UserID     string
	State      State
	Status     Status
	Message    string
	Payload    map[string]any
	Retries    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
	FinishedAt *time.Time

	// Children is filled in by Enqueue only. It is never persisted.
	Children []*Task
}

// Spec describes a task to enqueue, with its children.
type Spec struct {
	Name       string
	Operation  string
	Collection string
	ResourceID string
	UserID     string
	Payload    map[string]any
	Children   []Spec
}

// IsParent reports whether the task only aggregates children.
func (t *Task) IsParent() bool { return t.Operation == "" }

// Done reports whether the task is finished or cancelled.
func (t *Task) Done() bool { return t.State == StateFinished || t.State == StateCancelled }

// Finish moves the task to finished with status and message.
func (t *Task) Finish(status Status, message string, now time.Time) {
	t.State = StateFinished
	t.Status = status
	t.Message = message
	t.FinishedAt = &now
	t.UpdatedAt = now
}

// Href returns the task href under baseURL.
func (t *Task) Href(baseURL string) string {
	return gatewayDomain.Href(baseURL, Collection, t.ID.String())
}

// Ref returns the reference attached to action results.
func (t *Task) Ref(baseURL string) gatewayDomain.TaskRef {
	return gatewayDomain.TaskRef{ID: t.ID.String(), Href: t.Href(baseURL)}
}

// ChildRefs returns the references of the enqueued children.
func (t *Task) ChildRefs(baseURL string) []gatewayDomain.TaskRef {
	if len(t.Children) == 0 {
		return nil
	}
	refs := make([]gatewayDomain.TaskRef, len(t.Children))
	for i, child := range t.Children {
		refs[i] = child.Ref(baseURL)
	}
	return refs
}

// Entity renders the task as a gateway entity of the tasks collection.
func (t *Task) Entity() gatewayDomain.Entity {
	attrs := map[string]any{
		"name":       t.Name,
		"state":      string(t.State),
		"status":     string(t.Status),
		"message":    t.Message,
		"userid":     t.UserID,
		"created_on": t.CreatedAt.UTC().Format(time.RFC3339),
		"updated_on": t.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if t.ParentID != nil {
		attrs["parent_id"] = t.ParentID.String()
	}
	if t.Collection != "" {
		attrs["resource_collection"] = t.Collection
		attrs["resource_id"] = t.ResourceID
	}
	if t.FinishedAt != nil {
		attrs["finished_on"] = t.FinishedAt.UTC().Format(time.RFC3339)
	}
	return gatewayDomain.Entity{ID: t.ID.String(), Type: "task", Attributes: attrs}
}

// ErrTaskNotFound builds the missing-task error.
func ErrTaskNotFound(id string) error {
	return apperrors.Errorf(apperrors.ErrNotFound, "Couldn't find %s with 'id'=%s", Collection, id)
}

// ErrNotCancellable is returned when cancelling a task that already left the queue.
func ErrNotCancellable(t *Task) error {
	return apperrors.Errorf(apperrors.ErrConflict, "Task %s is %s and cannot be cancelled", t.ID, t.State)
}

// ErrNotDeletable is returned when deleting a task that is still queued or running.
func ErrNotDeletable(t *Task) error {
	return apperrors.Errorf(apperrors.ErrConflict, "Task %s is %s and cannot be deleted", t.ID, t.State)
}

// ParseID parses a task id, reporting malformed ids as not found.
func ParseID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, ErrTaskNotFound(id)
	}
	return parsed, nil
}

// String implements fmt.Stringer.
func (t *Task) String() string {
	return fmt.Sprintf("task %s (%s)", t.ID, t.Operation)
}
