package domain

import (
	"fmt"
	"strings"
)

// Entity is one resource of a collection. Type selects the capability set used to
// execute actions against it.
type Entity struct {
	ID         string
	Type       string
	Attributes map[string]any
}

// Get returns the named attribute. "id" and "type" resolve to the entity fields.
func (e Entity) Get(name string) (any, bool) {
	switch name {
	case "id":
		return e.ID, true
	case "type":
		if e.Type == "" {
			break
		}
		return e.Type, true
	}
	v, ok := e.Attributes[name]
	return v, ok
}

// String returns the named attribute formatted as a string, or "" when absent.
func (e Entity) String(name string) string {
	v, ok := e.Get(name)
	if !ok || v == nil {
		return ""
	}
	return Stringify(v)
}

// Clone returns a copy whose attribute map and slice values can be mutated freely.
func (e Entity) Clone() Entity {
	out := Entity{ID: e.ID, Type: e.Type, Attributes: make(map[string]any, len(e.Attributes))}
	for k, v := range e.Attributes {
		out.Attributes[k] = cloneValue(v)
	}
	return out
}

// Fields returns the flat attribute view of the entity, including id and type.
func (e Entity) Fields() map[string]any {
	out := make(map[string]any, len(e.Attributes)+2)
	for k, v := range e.Attributes {
		out[k] = cloneValue(v)
	}
	out["id"] = e.ID
	if e.Type != "" {
		out["type"] = e.Type
	}
	return out
}

// Label describes the entity in result messages, e.g. "zone id: 1 name: 'default'".
func (e Entity) Label(kind string) string {
	if name := e.String("name"); name != "" {
		return fmt.Sprintf("%s id: %s name: '%s'", kind, e.ID, name)
	}
	return fmt.Sprintf("%s id: %s", kind, e.ID)
}

// Stringify renders scalar attribute values the way they appear in hrefs and filters.
func Stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// Href joins a base URL and path segments into a resource href.
func Href(base string, segments ...string) string {
	return strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}
