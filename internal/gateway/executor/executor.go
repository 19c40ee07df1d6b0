// Package executor runs normalized action requests.
//
// Every item of a request moves through Pending, Authorized, Resolved and Executed
// before ending in Succeeded or Failed. The request-level policy check runs once
// before any item. Per-item guards, target resolution and ownership visibility run
// for each item, so one bulk entry never borrows another entry's checks. Handlers
// are found in a capability table keyed by entity type and action.
package executor

import (
	"context"
	"log/slog"
	"sync"

	authzDomain "github.com/allisson/resourcegateway/internal/authz/domain"
	authzUsecase "github.com/allisson/resourcegateway/internal/authz/usecase"
	apperrors "github.com/allisson/resourcegateway/internal/errors"
	"github.com/allisson/resourcegateway/internal/gateway/dispatch"
	"github.com/allisson/resourcegateway/internal/gateway/domain"
	"github.com/allisson/resourcegateway/internal/gateway/registry"
	identityDomain "github.com/allisson/resourcegateway/internal/identity/domain"
	"github.com/allisson/resourcegateway/internal/metrics"
)

// Messages used in failed results.
const (
	MsgUnsupported = "Feature not available/supported"
	MsgInternal    = "Internal error"
)

// Backend serves the entities of one collection. parent is nil for top-level
// collections and the resolved parent resource for subcollections.
type Backend interface {
	List(ctx context.Context, parent *domain.Entity) ([]domain.Entity, error)
	Get(ctx context.Context, parent *domain.Entity, id string) (domain.Entity, error)
}

// AddressableBackend is implemented by backends whose addressable entities differ
// from what List returns under a parent, such as features that a role does not
// hold yet. Lookups by alternate identifying attributes search Addressable.
type AddressableBackend interface {
	Backend
	Addressable(ctx context.Context, parent *domain.Entity) ([]domain.Entity, error)
}

// Guard authorizes one item beyond the policy table, e.g. tenant-scoped quota
// management. It runs before the target is resolved and returns a Forbidden error
// to deny.
type Guard func(ctx context.Context, call *Call) error

// Call is everything a handler needs to execute one item.
type Call struct {
	Principal  *identityDomain.Principal
	Request    *domain.ActionRequest
	Descriptor *registry.Descriptor
	// Parent is the resolved parent resource for nested scopes.
	Parent *domain.Entity
	// Entity is the resolved target. It is nil for create.
	Entity *domain.Entity
	// Payload is the request payload overlaid with the item's own payload.
	Payload map[string]any
	// Href is the href of the resolved target, or of the collection for create.
	Href string
}

// Action returns the action name.
func (c *Call) Action() string { return c.Request.Action }

// String returns a payload attribute as a string, or "" when absent.
func (c *Call) String(name string) string {
	v, ok := c.Payload[name]
	if !ok || v == nil {
		return ""
	}
	return domain.Stringify(v)
}

// ResourceHref builds the href of a resource in the subject collection.
func (c *Call) ResourceHref(id string) string {
	return c.Request.SubjectHref(id)
}

// Outcome is the result of Execute.
type Outcome struct {
	Results []domain.ActionResult
	Bulk    bool
}

// Executor runs action requests against registered backends and handlers.
type Executor struct {
	registry     *registry.Registry
	authorizer   authzUsecase.Authorizer
	capabilities *Capabilities
	metrics      metrics.BusinessMetrics
	logger       *slog.Logger

	mu       sync.RWMutex
	backends map[string]Backend
	guards   map[string][]Guard
}

// New creates an Executor.
func New(
	reg *registry.Registry,
	authorizer authzUsecase.Authorizer,
	capabilities *Capabilities,
	m metrics.BusinessMetrics,
	logger *slog.Logger,
) *Executor {
	return &Executor{
		registry:     reg,
		authorizer:   authorizer,
		capabilities: capabilities,
		metrics:      m,
		logger:       logger,
		backends:     make(map[string]Backend),
		guards:       make(map[string][]Guard),
	}
}

// RegisterBackend serves collection from backend.
func (e *Executor) RegisterBackend(collection string, backend Backend) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.backends[collection] = backend
}

// RegisterGuard adds a per-item guard to collection.
func (e *Executor) RegisterGuard(collection string, guard Guard) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.guards[collection] = append(e.guards[collection], guard)
}

// Registry returns the registry the executor serves.
func (e *Executor) Registry() *registry.Registry { return e.registry }

// Capabilities returns the capability table.
func (e *Executor) Capabilities() *Capabilities { return e.capabilities }

func (e *Executor) backend(collection string) (Backend, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.backends[collection]
	if !ok {
		return nil, apperrors.Errorf(apperrors.ErrUnsupported, MsgUnsupported)
	}
	return b, nil
}

func (e *Executor) guardsFor(collection string) []Guard {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.guards[collection]
}

// authorize runs the request-level policy check.
func (e *Executor) authorize(ctx context.Context, p *identityDomain.Principal, n *dispatch.Normalized) error {
	req := n.Request
	return e.authorizer.Authorize(ctx, p, authzDomain.Check{
		Collection: n.Descriptor.Name,
		Scope:      req.Scope,
		Action:     req.Action,
		Parent:     req.Parent(),
	})
}

// Execute authorizes the request and runs every item. Request-level failures are
// returned as errors. For a single item, failures of a request-level kind are also
// returned as errors; every other failure becomes a failed result.
func (e *Executor) Execute(ctx context.Context, p *identityDomain.Principal, n *dispatch.Normalized) (*Outcome, error) {
	if err := e.authorize(ctx, p, n); err != nil {
		return nil, err
	}

	parent, err := e.resolveParent(ctx, p, n)
	if err != nil {
		return nil, err
	}

	req := n.Request
	outcome := &Outcome{Bulk: req.Bulk, Results: make([]domain.ActionResult, 0, len(req.Targets))}

	for i := range req.Targets {
		result, err := e.runItem(ctx, p, n, parent, req.Targets[i])
		if err != nil {
			if !req.Bulk && RequestLevel(err) {
				e.metrics.RecordAction(ctx, n.Descriptor.Name, req.Action, false)
				return nil, err
			}
			result = e.failure(ctx, n, result.Href, err)
		}
		e.metrics.RecordAction(ctx, n.Descriptor.Name, req.Action, result.Success)
		outcome.Results = append(outcome.Results, result)
	}

	return outcome, nil
}

// runItem drives one target through the lifecycle. The returned result carries the
// target href even when err is set.
func (e *Executor) runItem(
	ctx context.Context,
	p *identityDomain.Principal,
	n *dispatch.Normalized,
	parent *domain.Entity,
	target domain.Target,
) (domain.ActionResult, error) {
	req := n.Request
	m := &machine{}
	call := &Call{
		Principal:  p,
		Request:    req,
		Descriptor: n.Descriptor,
		Parent:     parent,
		Payload:    mergePayload(req.Payload, target.Payload),
		Href:       req.CollectionHref(),
	}
	if target.ID != "" {
		call.Href = req.SubjectHref(target.ID)
	}
	partial := domain.ActionResult{Href: call.Href}

	fail := func(err error) (domain.ActionResult, error) {
		m.fail()
		return partial, err
	}

	if target.Err != nil {
		return fail(target.Err)
	}

	for _, guard := range e.guardsFor(n.Descriptor.Name) {
		if err := guard(ctx, call); err != nil {
			return fail(err)
		}
	}
	if err := m.advance(Authorized); err != nil {
		return fail(e.illegal(err))
	}

	if req.Action != domain.ActionCreate {
		entity, err := e.resolveTarget(ctx, p, n, parent, target)
		if err != nil {
			return fail(err)
		}
		call.Entity = &entity
		call.Href = req.SubjectHref(entity.ID)
		partial.Href = call.Href
	}
	if err := applyExclusive(n.Descriptor, req.Action, call.Payload); err != nil {
		return fail(err)
	}
	if err := m.advance(Resolved); err != nil {
		return fail(e.illegal(err))
	}

	entityType := ""
	if call.Entity != nil {
		entityType = call.Entity.Type
	} else if t, ok := call.Payload["type"].(string); ok {
		entityType = t
	}
	handler, ok := e.capabilities.Lookup(entityType, n.Descriptor.EntityType, req.Action)
	if !ok {
		return fail(apperrors.Errorf(apperrors.ErrUnsupported, MsgUnsupported))
	}

	result, err := handler(ctx, call)
	if err != nil {
		return fail(err)
	}
	if err := m.advance(Executed); err != nil {
		return fail(e.illegal(err))
	}

	if result.Href == "" && call.Entity != nil {
		result.Href = call.Href
	}
	final := Succeeded
	if !result.Success {
		final = Failed
	}
	if err := m.advance(final); err != nil {
		return fail(e.illegal(err))
	}
	return result, nil
}

func (e *Executor) illegal(err error) error {
	e.logger.Error("executor state machine violated", slog.Any("error", err))
	return err
}

// failure converts err into a failed result without leaking internal details.
func (e *Executor) failure(ctx context.Context, n *dispatch.Normalized, href string, err error) domain.ActionResult {
	if !Classified(err) {
		e.logger.ErrorContext(ctx, "action failed",
			slog.String("collection", n.Descriptor.Name),
			slog.String("action", n.Request.Action),
			slog.Any("error", err),
		)
		return domain.Failure(href, MsgInternal)
	}
	return domain.Failure(href, apperrors.Message(err))
}

// RequestLevel reports whether err surfaces as an HTTP error for single requests.
func RequestLevel(err error) bool {
	for _, kind := range []error{
		apperrors.ErrBadRequest,
		apperrors.ErrNotFound,
		apperrors.ErrForbidden,
		apperrors.ErrUnauthorized,
		apperrors.ErrInvalidInput,
	} {
		if apperrors.Is(err, kind) {
			return true
		}
	}
	return false
}

// Classified reports whether err carries one of the domain kinds.
func Classified(err error) bool {
	return RequestLevel(err) ||
		apperrors.Is(err, apperrors.ErrUnsupported) ||
		apperrors.Is(err, apperrors.ErrConflict)
}

func mergePayload(shared, own map[string]any) map[string]any {
	out := make(map[string]any, len(shared)+len(own))
	for k, v := range shared {
		out[k] = v
	}
	for k, v := range own {
		out[k] = v
	}
	return out
}
