// Package seed loads the YAML fixture that populates the in-memory collection
// backends and the directory (users, groups, roles, tenants, feature tree).
package seed

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultFixture []byte

// Record is one seeded entity. "id" and "type" are lifted out of the attribute map.
type Record map[string]any

// Fixture is the decoded seed document.
type Fixture struct {
	// Features maps a feature identifier to its direct children.
	Features map[string][]string `yaml:"features"`
	// Collections maps a collection name to its records.
	Collections map[string][]Record `yaml:"collections"`
}

// Default decodes the embedded fixture.
func Default() (*Fixture, error) {
	return Load(bytes.NewReader(defaultFixture))
}

// LoadFile decodes a fixture file.
func LoadFile(path string) (*Fixture, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

// Load decodes a fixture and checks record ids are present and unique per collection.
func Load(r io.Reader) (*Fixture, error) {
	var f Fixture
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode seed: %w", err)
	}

	for _, name := range f.CollectionNames() {
		seen := make(map[string]bool, len(f.Collections[name]))
		for i, rec := range f.Collections[name] {
			id := rec.ID()
			if id == "" {
				return nil, fmt.Errorf("seed collection %q record #%d has no id", name, i+1)
			}
			if seen[id] {
				return nil, fmt.Errorf("seed collection %q has duplicate id %q", name, id)
			}
			seen[id] = true
		}
	}

	return &f, nil
}

// CollectionNames returns the seeded collection names sorted.
func (f *Fixture) CollectionNames() []string {
	names := make([]string, 0, len(f.Collections))
	for name := range f.Collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ID returns the record id as a string. Numeric ids are accepted.
func (r Record) ID() string {
	return scalar(r["id"])
}

// Type returns the record's concrete type, or "".
func (r Record) Type() string {
	return scalar(r["type"])
}

// Attributes returns the record without id and type, with nested YAML values
// converted to JSON-compatible types.
func (r Record) Attributes() map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		if k == "id" || k == "type" {
			continue
		}
		out[k] = normalize(v)
	}
	return out
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// normalize converts yaml.v3 decoded values into the shapes encoding/json produces,
// so seeded and API-created entities look alike.
func normalize(v any) any {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = normalize(t[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	default:
		return v
	}
}
