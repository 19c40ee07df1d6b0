// Package domain defines the authorization model: policy checks, the policy table
// derived from the collection registry and the decision audit log.
package domain

import (
	"fmt"
	"slices"

	apperrors "github.com/allisson/resourcegateway/internal/errors"
	gatewayDomain "github.com/allisson/resourcegateway/internal/gateway/domain"
	"github.com/allisson/resourcegateway/internal/gateway/registry"
)

// Check identifies one policy entry. Parent is set only for subcollection and
// subresource scopes, where the same collection may hang under different parents.
type Check struct {
	Collection string
	Scope      gatewayDomain.Scope
	Action     string
	Parent     string
}

// String renders the check for logs.
func (c Check) String() string {
	if c.Parent != "" {
		return fmt.Sprintf("%s/%s %s:%s", c.Parent, c.Collection, c.Scope, c.Action)
	}
	return fmt.Sprintf("%s %s:%s", c.Collection, c.Scope, c.Action)
}

// Requirement is an OR-set of feature identifiers. Holding any one grants the check.
type Requirement struct {
	Identifiers []string
}

// PolicyTable maps checks to requirements. It is built once and never mutated.
type PolicyTable struct {
	entries map[Check]Requirement
}

// NewPolicyTable derives the policy table from the registry. Subcollection actions
// are registered once per parent that declares the subcollection.
func NewPolicyTable(reg *registry.Registry) *PolicyTable {
	t := &PolicyTable{entries: make(map[Check]Requirement)}

	for _, desc := range reg.Collections() {
		for _, scope := range []gatewayDomain.Scope{gatewayDomain.ScopeCollection, gatewayDomain.ScopeResource} {
			for _, a := range desc.ActionsAt(scope) {
				t.add(Check{Collection: desc.Name, Scope: scope, Action: a.Name}, a.Identifiers)
			}
		}

		for _, subName := range desc.Subcollections {
			sub, ok := reg.Get(subName)
			if !ok {
				continue
			}
			for _, scope := range []gatewayDomain.Scope{gatewayDomain.ScopeSubcollection, gatewayDomain.ScopeSubresource} {
				for _, a := range sub.ActionsAt(scope) {
					t.add(Check{Collection: sub.Name, Scope: scope, Action: a.Name, Parent: desc.Name}, a.Identifiers)
				}
			}
		}
	}

	return t
}

func (t *PolicyTable) add(c Check, identifiers []string) {
	t.entries[c] = Requirement{Identifiers: slices.Clone(identifiers)}
}

// Lookup returns the requirement for c. A missing entry means the action is denied.
func (t *PolicyTable) Lookup(c Check) (Requirement, bool) {
	r, ok := t.entries[c]
	return r, ok
}

// Len returns the number of policy entries.
func (t *PolicyTable) Len() int {
	return len(t.entries)
}

// ErrActionForbidden builds the denial returned for c.
func ErrActionForbidden(c Check) error {
	return apperrors.Errorf(apperrors.ErrForbidden, "Use of the %s action on %s is forbidden", c.Action, c.Collection)
}
