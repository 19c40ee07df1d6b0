// Package domain defines the shared value types of the resource gateway: entities,
// normalized action requests and per-item action results.
package domain

// Scope is the addressing level an action is invoked at.
type Scope string

// Supported scopes.
const (
	ScopeCollection    Scope = "collection"
	ScopeResource      Scope = "resource"
	ScopeSubcollection Scope = "subcollection"
	ScopeSubresource   Scope = "subresource"
)

// Scopes lists every scope in addressing order.
var Scopes = []Scope{ScopeCollection, ScopeResource, ScopeSubcollection, ScopeSubresource}

// Valid reports whether s is one of the supported scopes.
func (s Scope) Valid() bool {
	switch s {
	case ScopeCollection, ScopeResource, ScopeSubcollection, ScopeSubresource:
		return true
	}
	return false
}

// Single reports whether the scope addresses exactly one resource by path.
func (s Scope) Single() bool {
	return s == ScopeResource || s == ScopeSubresource
}

// Nested reports whether the scope sits under a parent resource.
func (s Scope) Nested() bool {
	return s == ScopeSubcollection || s == ScopeSubresource
}
