package executor

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	apperrors "github.com/allisson/resourcegateway/internal/errors"
	"github.com/allisson/resourcegateway/internal/gateway/dispatch"
	"github.com/allisson/resourcegateway/internal/gateway/domain"
	"github.com/allisson/resourcegateway/internal/gateway/registry"
	identityDomain "github.com/allisson/resourcegateway/internal/identity/domain"
	"github.com/allisson/resourcegateway/internal/store"
)

// Listing is the visible content of a collection.
type Listing struct {
	Descriptor *registry.Descriptor
	Parent     *domain.Entity
	// Total is the number of entities visible to the principal.
	Total    int
	Entities []domain.Entity
}

// List authorizes a read of the subject collection and returns its visible entities.
func (e *Executor) List(ctx context.Context, p *identityDomain.Principal, n *dispatch.Normalized) (*Listing, error) {
	if err := e.authorize(ctx, p, n); err != nil {
		return nil, err
	}
	parent, err := e.resolveParent(ctx, p, n)
	if err != nil {
		return nil, err
	}

	backend, err := e.backend(n.Descriptor.Name)
	if err != nil {
		return nil, err
	}
	all, err := backend.List(ctx, parent)
	if err != nil {
		return nil, err
	}

	visible := make([]domain.Entity, 0, len(all))
	for _, entity := range all {
		if e.Visible(p, n.Descriptor, entity) {
			visible = append(visible, entity)
		}
	}
	return &Listing{Descriptor: n.Descriptor, Parent: parent, Total: len(visible), Entities: visible}, nil
}

// Show authorizes a read of one resource and returns it. Missing and invisible
// resources are both NotFound.
func (e *Executor) Show(ctx context.Context, p *identityDomain.Principal, n *dispatch.Normalized) (domain.Entity, error) {
	if err := e.authorize(ctx, p, n); err != nil {
		return domain.Entity{}, err
	}
	parent, err := e.resolveParent(ctx, p, n)
	if err != nil {
		return domain.Entity{}, err
	}
	if len(n.Request.Targets) != 1 {
		return domain.Entity{}, apperrors.Errorf(apperrors.ErrBadRequest, "Missing %s resource id", n.Descriptor.Name)
	}
	return e.resolveTarget(ctx, p, n, parent, n.Request.Targets[0])
}

// Visible reports whether the principal may see entity. Entities of collections
// without ownership settings are always visible.
func (e *Executor) Visible(p *identityDomain.Principal, desc *registry.Descriptor, entity domain.Entity) bool {
	own := desc.Ownership
	if own == nil {
		return true
	}
	if p == nil {
		return false
	}
	if len(own.Bypass) > 0 && e.authorizer.Permits(p, own.Bypass...) {
		return true
	}
	owner := entity.String(own.Attribute)
	return owner != "" && (owner == p.UserID || owner == p.Login)
}

func (e *Executor) resolveParent(
	ctx context.Context,
	p *identityDomain.Principal,
	n *dispatch.Normalized,
) (*domain.Entity, error) {
	if !n.Request.Scope.Nested() || n.Parent == nil {
		return nil, nil
	}
	backend, err := e.backend(n.Parent.Name)
	if err != nil {
		return nil, err
	}
	parent, err := backend.Get(ctx, nil, n.Request.ResourceID)
	if err != nil {
		return nil, err
	}
	if !e.Visible(p, n.Parent, parent) {
		return nil, store.NotFound(n.Parent.Name, n.Request.ResourceID)
	}
	return &parent, nil
}

// resolveTarget finds the resource an item addresses: by id, by href, or by
// alternate identifying attributes, in that order.
func (e *Executor) resolveTarget(
	ctx context.Context,
	p *identityDomain.Principal,
	n *dispatch.Normalized,
	parent *domain.Entity,
	target domain.Target,
) (domain.Entity, error) {
	desc := n.Descriptor
	backend, err := e.backend(desc.Name)
	if err != nil {
		return domain.Entity{}, err
	}

	id := target.ID
	if id == "" && target.Href != "" {
		if id, err = e.hrefID(n, target.Href); err != nil {
			return domain.Entity{}, err
		}
	}

	if id != "" {
		entity, err := backend.Get(ctx, parent, id)
		if err != nil {
			return domain.Entity{}, err
		}
		if !e.Visible(p, desc, entity) {
			return domain.Entity{}, store.NotFound(desc.Name, id)
		}
		return entity, nil
	}

	if len(target.Attributes) == 0 {
		return domain.Entity{}, apperrors.Errorf(
			apperrors.ErrBadRequest,
			"Missing %s resource id or href",
			desc.Name,
		)
	}
	return e.findByAttributes(ctx, p, desc, backend, parent, target.Attributes)
}

func (e *Executor) hrefID(n *dispatch.Normalized, href string) (string, error) {
	parsed, err := registry.ParseHref(href)
	if err != nil {
		return "", err
	}
	invalid := apperrors.Errorf(apperrors.ErrBadRequest, "Invalid %s href specified: %s", n.Descriptor.Name, href)

	if n.Request.Scope.Nested() {
		if parsed.Collection != n.Parent.Name || parsed.ID != n.Request.ResourceID ||
			parsed.Subcollection != n.Descriptor.Name || parsed.SubID == "" {
			return "", invalid
		}
		return parsed.SubID, nil
	}
	if parsed.Collection != n.Descriptor.Name || parsed.ID == "" || parsed.Subcollection != "" {
		return "", invalid
	}
	return parsed.ID, nil
}

func (e *Executor) findByAttributes(
	ctx context.Context,
	p *identityDomain.Principal,
	desc *registry.Descriptor,
	backend Backend,
	parent *domain.Entity,
	attrs map[string]any,
) (domain.Entity, error) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if !slices.Contains(desc.AlternateIdentifiers(), k) {
			return domain.Entity{}, apperrors.Errorf(
				apperrors.ErrNotFound,
				"Invalid %s resource specified - %s",
				desc.Name,
				strings.Join(keys, ", "),
			)
		}
	}

	search := backend.List
	if addressable, ok := backend.(AddressableBackend); ok {
		search = addressable.Addressable
	}
	all, err := search(ctx, parent)
	if err != nil {
		return domain.Entity{}, err
	}
	for _, entity := range all {
		if matches(entity, attrs) && e.Visible(p, desc, entity) {
			return entity, nil
		}
	}

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%s=%s", k, domain.Stringify(attrs[k]))
	}
	return domain.Entity{}, apperrors.Errorf(
		apperrors.ErrNotFound,
		"Couldn't find %s with %s",
		desc.Name,
		strings.Join(pairs, ", "),
	)
}

func matches(entity domain.Entity, attrs map[string]any) bool {
	for k, want := range attrs {
		got, ok := entity.Get(k)
		if !ok || domain.Stringify(got) != domain.Stringify(want) {
			return false
		}
	}
	return true
}

// applyExclusive enforces mutually exclusive attribute groups on create and edit.
// More than one non-null member is a bad request. On edit, supplying one member
// clears the others.
func applyExclusive(desc *registry.Descriptor, action string, payload map[string]any) error {
	if action != domain.ActionCreate && action != domain.ActionEdit {
		return nil
	}
	for _, group := range desc.Exclusive {
		var present []string
		for _, attr := range group {
			if v, ok := payload[attr]; ok && v != nil {
				present = append(present, attr)
			}
		}
		if len(present) > 1 {
			return apperrors.Errorf(
				apperrors.ErrBadRequest,
				"Only one of %s may be specified",
				strings.Join(group, ", "),
			)
		}
		if len(present) == 1 && action == domain.ActionEdit {
			for _, attr := range group {
				if attr != present[0] {
					payload[attr] = nil
				}
			}
		}
	}
	return nil
}
