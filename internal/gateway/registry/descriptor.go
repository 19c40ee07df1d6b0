package registry

import (
	"slices"
	"strings"

	"github.com/allisson/resourcegateway/internal/gateway/domain"
)

// ActionSpec declares one action of a collection at one scope.
type ActionSpec struct {
	Name string `yaml:"name"`
	// Verbs lists the lowercase HTTP methods the action may be invoked with.
	Verbs []string `yaml:"verbs"`
	// Identifiers is the OR-set of feature identifiers that grant the action.
	Identifiers []string `yaml:"identifiers"`
}

// AllowsVerb reports whether the action accepts the HTTP method.
func (a ActionSpec) AllowsVerb(verb string) bool {
	return slices.Contains(a.Verbs, strings.ToLower(verb))
}

// Ownership restricts visibility to the principal stored in Attribute unless the
// principal holds one of the Bypass features.
type Ownership struct {
	Attribute string   `yaml:"attribute"`
	Bypass    []string `yaml:"bypass"`
}

// Descriptor describes one collection.
type Descriptor struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// EntityType is the base capability type of the collection's entities.
	EntityType string `yaml:"entity_type"`
	// Identifiers lists the identifying attributes, primary id first.
	Identifiers []string `yaml:"identifiers"`
	// Editable is the allow-list of attributes accepted by create and edit.
	Editable []string `yaml:"editable"`
	// Exclusive groups attributes of which at most one may be supplied.
	Exclusive [][]string `yaml:"exclusive"`
	// Hidden attributes are never rendered.
	Hidden            []string                `yaml:"hidden"`
	Ownership         *Ownership              `yaml:"ownership"`
	SubcollectionOnly bool                    `yaml:"subcollection_only"`
	Subcollections    []string                `yaml:"subcollections"`
	Actions           map[string][]ActionSpec `yaml:"actions"`
}

// Action returns the named action declared at scope.
func (d *Descriptor) Action(scope domain.Scope, name string) (ActionSpec, bool) {
	for _, a := range d.Actions[string(scope)] {
		if a.Name == name {
			return a, true
		}
	}
	return ActionSpec{}, false
}

// ActionsAt returns the actions declared at scope in declaration order.
func (d *Descriptor) ActionsAt(scope domain.Scope) []ActionSpec {
	return d.Actions[string(scope)]
}

// HasSubcollection reports whether name is declared as a subcollection.
func (d *Descriptor) HasSubcollection(name string) bool {
	return slices.Contains(d.Subcollections, name)
}

// IsEditable reports whether attr is on the allow-list.
func (d *Descriptor) IsEditable(attr string) bool {
	return slices.Contains(d.Editable, attr)
}

// IsHidden reports whether attr must be left out of rendered output.
func (d *Descriptor) IsHidden(attr string) bool {
	return slices.Contains(d.Hidden, attr)
}

// AlternateIdentifiers returns the identifying attributes other than id.
func (d *Descriptor) AlternateIdentifiers() []string {
	out := make([]string, 0, len(d.Identifiers))
	for _, id := range d.Identifiers {
		if id != "id" {
			out = append(out, id)
		}
	}
	return out
}

// ExclusiveGroup returns the exclusive group containing attr, if any.
func (d *Descriptor) ExclusiveGroup(attr string) []string {
	for _, group := range d.Exclusive {
		if slices.Contains(group, attr) {
			return group
		}
	}
	return nil
}
