// Package directory exposes users, groups, roles and tenants held in the entity
// store as typed records, and evaluates role features against the feature tree.
package directory

import (
	"slices"
	"sort"
	"sync"

	apperrors "github.com/allisson/resourcegateway/internal/errors"
	"github.com/allisson/resourcegateway/internal/gateway/domain"
	"github.com/allisson/resourcegateway/internal/store"
)

// Directory collection names.
const (
	Users   = "users"
	Groups  = "groups"
	Roles   = "roles"
	Tenants = "tenants"
)

// FeatureEverything grants every feature.
const FeatureEverything = "everything"

// User is a directory user.
type User struct {
	ID             string
	Login          string
	Name           string
	Email          string
	PasswordDigest string
	GroupIDs       []string
	CurrentGroupID string
}

// Group binds a role and a tenant.
type Group struct {
	ID          string
	Description string
	RoleID      string
	TenantID    string
}

// Role holds feature identifiers.
type Role struct {
	ID       string
	Name     string
	ReadOnly bool
	Features []string
}

// Tenant is a node of the tenant tree.
type Tenant struct {
	ID       string
	Name     string
	ParentID string
}

// Hasher hashes plain passwords at load time.
type Hasher interface {
	HashSecret(plain string) (string, error)
}

// Directory reads directory records from the store.
type Directory struct {
	store *store.Store

	mu       sync.RWMutex
	parents  map[string]string
	children map[string][]string
}

// New builds a Directory over s. Users seeded with a plain "password" attribute get
// it replaced by "password_digest".
func New(s *store.Store, features map[string][]string, hasher Hasher) (*Directory, error) {
	d := &Directory{store: s}
	d.SetFeatureTree(features)

	for _, u := range s.List(Users) {
		plain, ok := u.Attributes["password"].(string)
		if !ok {
			continue
		}
		digest, err := hasher.HashSecret(plain)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to hash seeded password")
		}
		if _, err := s.Update(Users, u.ID, func(e *domain.Entity) error {
			delete(e.Attributes, "password")
			e.Attributes["password_digest"] = digest
			return nil
		}); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// SetFeatureTree replaces the feature hierarchy.
func (d *Directory) SetFeatureTree(features map[string][]string) {
	parents := make(map[string]string)
	children := make(map[string][]string, len(features))
	for parent, kids := range features {
		children[parent] = append([]string(nil), kids...)
		for _, kid := range kids {
			parents[kid] = parent
		}
	}

	d.mu.Lock()
	d.parents = parents
	d.children = children
	d.mu.Unlock()
}

// UserByLogin finds a user by login.
func (d *Directory) UserByLogin(login string) (User, error) {
	rows := d.store.Filter(Users, func(e domain.Entity) bool { return e.String("userid") == login })
	if len(rows) == 0 {
		return User{}, store.NotFound(Users, login)
	}
	return toUser(rows[0]), nil
}

// User finds a user by id.
func (d *Directory) User(id string) (User, error) {
	e, ok := d.store.Get(Users, id)
	if !ok {
		return User{}, store.NotFound(Users, id)
	}
	return toUser(e), nil
}

// Group finds a group by id.
func (d *Directory) Group(id string) (Group, error) {
	e, ok := d.store.Get(Groups, id)
	if !ok {
		return Group{}, store.NotFound(Groups, id)
	}
	return toGroup(e), nil
}

// GroupByRef finds a group by id or description.
func (d *Directory) GroupByRef(ref string) (Group, error) {
	if g, err := d.Group(ref); err == nil {
		return g, nil
	}
	rows := d.store.Filter(Groups, func(e domain.Entity) bool { return e.String("description") == ref })
	if len(rows) == 0 {
		return Group{}, store.NotFound(Groups, ref)
	}
	return toGroup(rows[0]), nil
}

// Role finds a role by id.
func (d *Directory) Role(id string) (Role, error) {
	e, ok := d.store.Get(Roles, id)
	if !ok {
		return Role{}, store.NotFound(Roles, id)
	}
	return toRole(e), nil
}

// Tenant finds a tenant by id.
func (d *Directory) Tenant(id string) (Tenant, error) {
	e, ok := d.store.Get(Tenants, id)
	if !ok {
		return Tenant{}, store.NotFound(Tenants, id)
	}
	return toTenant(e), nil
}

// RoleAllows reports whether the role grants identifier directly or through an
// ancestor in the feature tree.
func (d *Directory) RoleAllows(roleID, identifier string) bool {
	role, err := d.Role(roleID)
	if err != nil {
		return false
	}
	return d.Grants(role.Features, identifier)
}

// Grants reports whether the held features cover identifier.
func (d *Directory) Grants(held []string, identifier string) bool {
	if len(held) == 0 {
		return false
	}
	if slices.Contains(held, FeatureEverything) {
		return true
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	seen := make(map[string]bool)
	for f := identifier; f != "" && !seen[f]; f = d.parents[f] {
		if slices.Contains(held, f) {
			return true
		}
		seen[f] = true
	}
	return false
}

// FeatureExists reports whether identifier is part of the feature tree.
func (d *Directory) FeatureExists(identifier string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if _, ok := d.children[identifier]; ok {
		return true
	}
	_, ok := d.parents[identifier]
	return ok
}

// Features returns every identifier in the tree, sorted.
func (d *Directory) Features() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	set := make(map[string]bool, len(d.parents)+len(d.children))
	for k := range d.children {
		set[k] = true
	}
	for k := range d.parents {
		set[k] = true
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// FeatureParent returns the parent identifier, or "" for roots.
func (d *Directory) FeatureParent(identifier string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.parents[identifier]
}

// IsStrictDescendant reports whether tenantID sits strictly below ancestorID.
func (d *Directory) IsStrictDescendant(tenantID, ancestorID string) bool {
	seen := make(map[string]bool)
	current := tenantID
	for !seen[current] {
		seen[current] = true
		t, err := d.Tenant(current)
		if err != nil || t.ParentID == "" {
			return false
		}
		if t.ParentID == ancestorID {
			return true
		}
		current = t.ParentID
	}
	return false
}

// IsRootTenant reports whether the tenant has no parent.
func (d *Directory) IsRootTenant(id string) bool {
	t, err := d.Tenant(id)
	return err == nil && t.ParentID == ""
}

func toUser(e domain.Entity) User {
	return User{
		ID:             e.ID,
		Login:          e.String("userid"),
		Name:           e.String("name"),
		Email:          e.String("email"),
		PasswordDigest: e.String("password_digest"),
		GroupIDs:       StringList(e.Attributes["group_ids"]),
		CurrentGroupID: e.String("current_group_id"),
	}
}

func toGroup(e domain.Entity) Group {
	return Group{
		ID:          e.ID,
		Description: e.String("description"),
		RoleID:      e.String("role_id"),
		TenantID:    e.String("tenant_id"),
	}
}

func toRole(e domain.Entity) Role {
	readOnly, _ := e.Attributes["read_only"].(bool)
	return Role{
		ID:       e.ID,
		Name:     e.String("name"),
		ReadOnly: readOnly,
		Features: StringList(e.Attributes["features"]),
	}
}

func toTenant(e domain.Entity) Tenant {
	return Tenant{ID: e.ID, Name: e.String("name"), ParentID: e.String("parent_id")}
}

// StringList converts a JSON or YAML list attribute into a string slice.
func StringList(v any) []string {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := domain.Stringify(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
