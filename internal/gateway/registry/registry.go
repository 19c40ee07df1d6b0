// Package registry holds the immutable table of collections served by the gateway.
//
// A Registry is built once at startup from YAML and passed explicitly to the
// components that need it. It is never mutated after construction, so tests can
// build isolated registries freely.
package registry

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	validation "github.com/jellydator/validation"
	"gopkg.in/yaml.v3"

	apperrors "github.com/allisson/resourcegateway/internal/errors"
	"github.com/allisson/resourcegateway/internal/gateway/domain"
	customValidation "github.com/allisson/resourcegateway/internal/validation"
)

//go:embed api.yaml
var defaultAPI []byte

// Registry maps collection names to descriptors.
type Registry struct {
	name        string
	version     string
	collections map[string]*Descriptor
	order       []string
}

type document struct {
	Name        string       `yaml:"name"`
	Version     string       `yaml:"version"`
	Collections []Descriptor `yaml:"collections"`
}

// Default loads the embedded collection table.
func Default() (*Registry, error) {
	return Load(bytes.NewReader(defaultAPI))
}

// LoadFile loads a collection table from a YAML file.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open registry file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

// Load decodes and validates a collection table.
func Load(r io.Reader) (*Registry, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode registry: %w", err)
	}
	return New(doc.Name, doc.Version, doc.Collections...)
}

// New validates descriptors and builds a Registry.
func New(name, version string, descriptors ...Descriptor) (*Registry, error) {
	reg := &Registry{
		name:        name,
		version:     version,
		collections: make(map[string]*Descriptor, len(descriptors)),
	}

	for i := range descriptors {
		d := descriptors[i]
		if d.Name == "" {
			return nil, fmt.Errorf("collection #%d has no name", i+1)
		}
		if err := validation.Validate(d.Name, customValidation.Identifier); err != nil {
			return nil, fmt.Errorf("collection name %q %w", d.Name, err)
		}
		if _, dup := reg.collections[d.Name]; dup {
			return nil, fmt.Errorf("duplicate collection %q", d.Name)
		}
		if len(d.Identifiers) == 0 {
			d.Identifiers = []string{"id"}
		}
		if d.EntityType == "" {
			d.EntityType = d.Name
		}
		if err := normalizeActions(&d); err != nil {
			return nil, err
		}
		reg.collections[d.Name] = &d
		reg.order = append(reg.order, d.Name)
	}

	for _, name := range reg.order {
		for _, sub := range reg.collections[name].Subcollections {
			if _, ok := reg.collections[sub]; !ok {
				return nil, fmt.Errorf("collection %q declares unknown subcollection %q", name, sub)
			}
		}
	}

	return reg, nil
}

func normalizeActions(d *Descriptor) error {
	normalized := make(map[string][]ActionSpec, len(d.Actions))
	for scope, declared := range d.Actions {
		s := domain.Scope(scope)
		if !s.Valid() {
			return fmt.Errorf("collection %q declares actions for unknown scope %q", d.Name, scope)
		}
		actions := make([]ActionSpec, len(declared))
		copy(actions, declared)
		seen := make(map[string]bool, len(actions))
		for i := range actions {
			a := &actions[i]
			if a.Name == "" {
				return fmt.Errorf("collection %q has an unnamed %s action", d.Name, scope)
			}
			if err := validation.Validate(a.Name, customValidation.Identifier); err != nil {
				return fmt.Errorf("collection %q %s action %q %w", d.Name, scope, a.Name, err)
			}
			if seen[a.Name] {
				return fmt.Errorf("collection %q declares %s action %q twice", d.Name, scope, a.Name)
			}
			seen[a.Name] = true
			if len(a.Identifiers) == 0 {
				return fmt.Errorf("collection %q %s action %q has no identifiers", d.Name, scope, a.Name)
			}
			verbs := a.Verbs
			if len(verbs) == 0 {
				verbs = defaultVerbs(s, a.Name)
			}
			a.Verbs = make([]string, len(verbs))
			for j, v := range verbs {
				a.Verbs[j] = strings.ToLower(v)
			}
		}
		normalized[scope] = actions
	}
	d.Actions = normalized
	return nil
}

func defaultVerbs(scope domain.Scope, action string) []string {
	switch action {
	case domain.ActionRead:
		return []string{"get"}
	case domain.ActionEdit:
		if scope.Single() {
			return []string{"post", "put", "patch"}
		}
	case domain.ActionDelete:
		if scope.Single() {
			return []string{"post", "delete"}
		}
	}
	return []string{"post"}
}

// Name returns the API name advertised by the entry point.
func (r *Registry) Name() string { return r.name }

// Version returns the API version advertised by the entry point.
func (r *Registry) Version() string { return r.version }

// Lookup returns the descriptor of a top-level collection.
func (r *Registry) Lookup(name string) (*Descriptor, error) {
	d, ok := r.collections[name]
	if !ok || d.SubcollectionOnly {
		return nil, apperrors.Errorf(apperrors.ErrNotFound, "Unsupported collection %s specified", name)
	}
	return d, nil
}

// Subcollection returns the descriptor of a subcollection declared by parent.
func (r *Registry) Subcollection(parent *Descriptor, name string) (*Descriptor, error) {
	d, ok := r.collections[name]
	if !ok || !parent.HasSubcollection(name) {
		return nil, apperrors.Errorf(
			apperrors.ErrNotFound,
			"Unsupported subcollection %s specified for %s",
			name,
			parent.Name,
		)
	}
	return d, nil
}

// Get returns any descriptor by name, including subcollection-only ones.
func (r *Registry) Get(name string) (*Descriptor, bool) {
	d, ok := r.collections[name]
	return d, ok
}

// Collections returns every descriptor in declaration order.
func (r *Registry) Collections() []*Descriptor {
	out := make([]*Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.collections[name])
	}
	return out
}
