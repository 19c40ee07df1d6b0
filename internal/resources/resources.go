// Package resources wires the sample collections into the gateway: entity store
// backends, the capability handlers of each entity type, per-item guards and the
// task runners behind asynchronous actions.
package resources

import (
	"context"
	"log/slog"

	authzUsecase "github.com/allisson/resourcegateway/internal/authz/usecase"
	"github.com/allisson/resourcegateway/internal/directory"
	apperrors "github.com/allisson/resourcegateway/internal/errors"
	"github.com/allisson/resourcegateway/internal/gateway/domain"
	"github.com/allisson/resourcegateway/internal/gateway/executor"
	"github.com/allisson/resourcegateway/internal/gateway/render"
	"github.com/allisson/resourcegateway/internal/store"
	taskDomain "github.com/allisson/resourcegateway/internal/task/domain"
	taskUsecase "github.com/allisson/resourcegateway/internal/task/usecase"
)

// Collection names served by this package.
const (
	Features         = "features"
	Quotas           = "quotas"
	Zones            = "zones"
	Servers          = "servers"
	Providers        = "providers"
	Vms              = "vms"
	Snapshots        = "snapshots"
	Requests         = "requests"
	AlertDefinitions = "alert_definitions"
	Notifications    = "notifications"
	Tasks            = taskDomain.Collection
)

// Deps are the collaborators of the sample collections.
type Deps struct {
	Store      *store.Store
	Directory  *directory.Directory
	Tasks      taskUsecase.TaskUseCase
	Authorizer authzUsecase.Authorizer
	Hasher     directory.Hasher
	Logger     *slog.Logger
}

// Register adds the backends, handlers and guards of every sample collection to exec.
func Register(exec *executor.Executor, deps Deps) {
	caps := exec.Capabilities()

	registerDirectory(exec, caps, deps)
	registerInfrastructure(exec, caps, deps)
	registerRequests(exec, caps, deps)
	registerAlerts(exec, caps, deps)
	registerNotifications(exec, caps, deps)
	registerTasks(exec, caps, deps)
}

// crud implements the synchronous create, edit, delete and query actions of one
// store collection.
type crud struct {
	store           *store.Store
	collection      string
	kind            string
	entityType      string
	parentAttribute string
}

func (c crud) backend() StoreBackend {
	return StoreBackend{Store: c.store, Collection: c.collection, ParentAttribute: c.parentAttribute}
}

func (c crud) insert(call *executor.Call, attrs map[string]any) (domain.Entity, error) {
	entity := domain.Entity{Type: c.entityType, Attributes: make(map[string]any, len(attrs)+1)}
	for k, v := range attrs {
		if k == "type" {
			if t, ok := v.(string); ok && t != "" {
				entity.Type = t
			}
			continue
		}
		if v != nil {
			entity.Attributes[k] = v
		}
	}
	if c.parentAttribute != "" && call.Parent != nil {
		entity.Attributes[c.parentAttribute] = call.Parent.ID
	}
	return c.store.Insert(c.collection, entity)
}

// update applies attrs to the target. Null values remove the attribute.
func (c crud) update(call *executor.Call, attrs map[string]any) (domain.Entity, error) {
	return c.store.Update(c.collection, call.Entity.ID, func(e *domain.Entity) error {
		for k, v := range attrs {
			switch {
			case k == "type":
			case v == nil:
				delete(e.Attributes, k)
			default:
				e.Attributes[k] = v
			}
		}
		return nil
	})
}

func (c crud) remove(call *executor.Call) error {
	if !c.store.Delete(c.collection, call.Entity.ID) {
		return store.NotFound(c.collection, call.Entity.ID)
	}
	return nil
}

func (c crud) query(_ context.Context, call *executor.Call) (domain.ActionResult, error) {
	return resourceResult(call, *call.Entity), nil
}

func (c crud) create(_ context.Context, call *executor.Call) (domain.ActionResult, error) {
	entity, err := c.insert(call, call.Payload)
	if err != nil {
		return domain.ActionResult{}, err
	}
	return resourceResult(call, entity), nil
}

func (c crud) edit(_ context.Context, call *executor.Call) (domain.ActionResult, error) {
	entity, err := c.update(call, call.Payload)
	if err != nil {
		return domain.ActionResult{}, err
	}
	return resourceResult(call, entity), nil
}

func (c crud) delete(_ context.Context, call *executor.Call) (domain.ActionResult, error) {
	if err := c.remove(call); err != nil {
		return domain.ActionResult{}, err
	}
	return deleted(call, c.kind), nil
}

// register publishes query, create, edit and delete for the collection's base
// type, skipping the actions listed in except.
func (c crud) register(caps *executor.Capabilities, except ...string) {
	handlers := map[string]executor.Handler{
		domain.ActionQuery:  c.query,
		domain.ActionCreate: c.create,
		domain.ActionEdit:   c.edit,
		domain.ActionDelete: c.delete,
	}
	for action, handler := range handlers {
		skip := false
		for _, e := range except {
			skip = skip || e == action
		}
		if !skip {
			caps.Register(c.entityType, action, handler)
		}
	}
}

func resourceResult(call *executor.Call, entity domain.Entity) domain.ActionResult {
	href := call.ResourceHref(entity.ID)
	return domain.ActionResult{
		Success:  true,
		Href:     href,
		Resource: render.Fields(call.Descriptor, entity, href, nil),
	}
}

func deleted(call *executor.Call, kind string) domain.ActionResult {
	return domain.Succeeded(call.Href, "Deleting "+call.Entity.Label(kind))
}

// delegate enqueues spec and returns a result pointing at the new task and its children.
func delegate(
	ctx context.Context,
	tasks taskUsecase.TaskUseCase,
	call *executor.Call,
	spec taskDomain.Spec,
	message string,
) (domain.ActionResult, error) {
	if spec.UserID == "" && call.Principal != nil {
		spec.UserID = call.Principal.Login
	}
	task, err := tasks.Enqueue(ctx, spec)
	if err != nil {
		return domain.ActionResult{}, err
	}
	base := call.Request.BaseURL
	result := domain.Succeeded(call.Href, message).WithTask(task.Ref(base))
	result.Tasks = task.ChildRefs(base)
	return result, nil
}

func badRequest(format string, args ...any) error {
	return apperrors.Errorf(apperrors.ErrBadRequest, format, args...)
}

func unsupported() error {
	return apperrors.Errorf(apperrors.ErrUnsupported, executor.MsgUnsupported)
}

// number converts a JSON or YAML numeric attribute.
func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}
