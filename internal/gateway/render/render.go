// Package render builds the JSON documents returned by the gateway: the collection
// list envelope, single resources with their permitted actions, and the entry point.
package render

import (
	"net/http"
	"slices"
	"strings"

	authzDomain "github.com/allisson/resourcegateway/internal/authz/domain"
	authzUsecase "github.com/allisson/resourcegateway/internal/authz/usecase"
	"github.com/allisson/resourcegateway/internal/gateway/dispatch"
	"github.com/allisson/resourcegateway/internal/gateway/domain"
	"github.com/allisson/resourcegateway/internal/gateway/executor"
	"github.com/allisson/resourcegateway/internal/gateway/registry"
	identityDomain "github.com/allisson/resourcegateway/internal/identity/domain"
)

// Action is an invocable action advertised on a resource or collection.
type Action struct {
	Name   string `json:"name"`
	Method string `json:"method"`
	Href   string `json:"href"`
}

// Collection is the list envelope.
type Collection struct {
	Name      string           `json:"name"`
	Count     int              `json:"count"`
	Subcount  int              `json:"subcount"`
	Pages     int              `json:"pages"`
	Resources []map[string]any `json:"resources"`
	Actions   []Action         `json:"actions,omitempty"`
}

// Identity describes the caller on the entry point.
type Identity struct {
	UserID string `json:"userid"`
	Name   string `json:"name"`
	Group  string `json:"group"`
	Role   string `json:"role"`
	Tenant string `json:"tenant"`
}

// CollectionRef is one collection listed on the entry point.
type CollectionRef struct {
	Name        string `json:"name"`
	Href        string `json:"href"`
	Description string `json:"description"`
}

// Entrypoint is the GET /api document.
type Entrypoint struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Identity    Identity        `json:"identity"`
	Collections []CollectionRef `json:"collections"`
}

// Renderer turns entities into response documents.
type Renderer struct {
	registry   *registry.Registry
	authorizer authzUsecase.Authorizer
}

// New creates a Renderer.
func New(reg *registry.Registry, authorizer authzUsecase.Authorizer) *Renderer {
	return &Renderer{registry: reg, authorizer: authorizer}
}

// List filters, sorts and pages a listing into the list envelope.
func (r *Renderer) List(
	p *identityDomain.Principal,
	n *dispatch.Normalized,
	listing *executor.Listing,
	q Query,
) Collection {
	req := n.Request
	matched := Filter(listing.Entities, q.Conditions)
	Sort(matched, q)
	page := Page(matched, q.Offset, q.Limit)

	out := Collection{
		Name:      listing.Descriptor.Name,
		Count:     listing.Total,
		Subcount:  len(matched),
		Pages:     pages(len(matched), q.Limit),
		Resources: make([]map[string]any, 0, len(page)),
	}
	for _, e := range page {
		href := req.SubjectHref(e.ID)
		if !q.Expand {
			out.Resources = append(out.Resources, map[string]any{"href": href})
			continue
		}
		out.Resources = append(out.Resources, Fields(listing.Descriptor, e, href, q.Attributes))
	}

	scope := domain.ScopeCollection
	if req.Scope.Nested() {
		scope = domain.ScopeSubcollection
	}
	out.Actions = r.actions(p, listing.Descriptor, req, scope, req.CollectionHref())
	return out
}

// Resource renders one entity with the actions the principal may invoke on it.
func (r *Renderer) Resource(
	p *identityDomain.Principal,
	n *dispatch.Normalized,
	entity domain.Entity,
	q Query,
) map[string]any {
	req := n.Request
	href := req.SubjectHref(entity.ID)
	out := Fields(n.Descriptor, entity, href, q.Attributes)

	scope := domain.ScopeResource
	if req.Scope.Nested() {
		scope = domain.ScopeSubresource
	}
	if actions := r.actions(p, n.Descriptor, req, scope, href); len(actions) > 0 {
		out["actions"] = actions
	}
	return out
}

// Entrypoint renders the GET /api document.
func (r *Renderer) Entrypoint(p *identityDomain.Principal, baseURL string) Entrypoint {
	out := Entrypoint{Name: r.registry.Name(), Version: r.registry.Version()}
	if p != nil {
		out.Identity = Identity{
			UserID: p.Login,
			Name:   p.Name,
			Group:  p.GroupName,
			Role:   p.RoleName,
			Tenant: p.TenantName,
		}
	}
	for _, desc := range r.registry.Collections() {
		if desc.SubcollectionOnly {
			continue
		}
		out.Collections = append(out.Collections, CollectionRef{
			Name:        desc.Name,
			Href:        domain.Href(baseURL, desc.Name),
			Description: desc.Description,
		})
	}
	return out
}

// Fields renders the visible attributes of an entity. A non-empty attrs limits the
// output to those attributes; id and href are always kept.
func Fields(desc *registry.Descriptor, entity domain.Entity, href string, attrs []string) map[string]any {
	all := entity.Fields()
	out := make(map[string]any, len(all)+1)
	for k, v := range all {
		if desc.IsHidden(k) {
			continue
		}
		if len(attrs) > 0 && k != "id" && !slices.Contains(attrs, k) {
			continue
		}
		out[k] = v
	}
	out["href"] = href
	return out
}

func (r *Renderer) actions(
	p *identityDomain.Principal,
	desc *registry.Descriptor,
	req *domain.ActionRequest,
	scope domain.Scope,
	href string,
) []Action {
	var out []Action
	for _, spec := range desc.ActionsAt(scope) {
		allowed := r.authorizer.Allowed(p, authzDomain.Check{
			Collection: desc.Name,
			Scope:      scope,
			Action:     spec.Name,
			Parent:     req.Parent(),
		})
		if !allowed {
			continue
		}
		for _, verb := range spec.Verbs {
			if strings.EqualFold(verb, http.MethodGet) {
				continue
			}
			out = append(out, Action{Name: spec.Name, Method: verb, Href: href})
		}
	}
	return out
}

func pages(total, limit int) int {
	if limit <= 0 || total == 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
