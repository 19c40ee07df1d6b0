// Package store is the in-memory entity store behind the sample collection backends
// and the directory. Every read returns a copy, so callers never share state with
// the store.
package store

import (
	"sort"
	"strconv"
	"sync"

	apperrors "github.com/allisson/resourcegateway/internal/errors"
	"github.com/allisson/resourcegateway/internal/gateway/domain"
	"github.com/allisson/resourcegateway/internal/seed"
)

// Store holds entities per collection.
type Store struct {
	mu   sync.RWMutex
	data map[string]map[string]domain.Entity
	next map[string]int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		data: make(map[string]map[string]domain.Entity),
		next: make(map[string]int),
	}
}

// FromFixture creates a store populated with every seeded collection.
func FromFixture(f *seed.Fixture) *Store {
	s := New()
	for _, name := range f.CollectionNames() {
		for _, rec := range f.Collections[name] {
			s.put(name, domain.Entity{ID: rec.ID(), Type: rec.Type(), Attributes: rec.Attributes()})
		}
	}
	return s
}

func (s *Store) put(collection string, e domain.Entity) {
	if e.Attributes == nil {
		e.Attributes = map[string]any{}
	}
	rows, ok := s.data[collection]
	if !ok {
		rows = make(map[string]domain.Entity)
		s.data[collection] = rows
	}
	rows[e.ID] = e.Clone()
	if n, err := strconv.Atoi(e.ID); err == nil && n >= s.next[collection] {
		s.next[collection] = n + 1
	}
}

// Get returns a copy of one entity.
func (s *Store) Get(collection, id string) (domain.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[collection][id]
	if !ok {
		return domain.Entity{}, false
	}
	return e.Clone(), true
}

// List returns copies of every entity in a collection ordered by id.
func (s *Store) List(collection string) []domain.Entity {
	return s.Filter(collection, nil)
}

// Filter returns copies of the entities accepted by match, ordered by id. A nil
// match accepts everything.
func (s *Store) Filter(collection string, match func(domain.Entity) bool) []domain.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.data[collection]
	out := make([]domain.Entity, 0, len(rows))
	for _, e := range rows {
		if match == nil || match(e) {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out
}

// Insert stores a new entity, assigning the next numeric id when e.ID is empty.
func (s *Store) Insert(collection string, e domain.Entity) (domain.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		n := s.next[collection]
		if n == 0 {
			n = 1
		}
		e.ID = strconv.Itoa(n)
	}
	if _, exists := s.data[collection][e.ID]; exists {
		return domain.Entity{}, apperrors.Errorf(apperrors.ErrConflict, "%s %s already exists", collection, e.ID)
	}
	s.put(collection, e)
	return s.data[collection][e.ID].Clone(), nil
}

// Update applies fn to a copy of the entity and stores the result when fn succeeds.
func (s *Store) Update(collection, id string, fn func(*domain.Entity) error) (domain.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.data[collection][id]
	if !ok {
		return domain.Entity{}, notFound(collection, id)
	}
	next := current.Clone()
	if err := fn(&next); err != nil {
		return domain.Entity{}, err
	}
	next.ID = id
	s.data[collection][id] = next.Clone()
	return next, nil
}

// Delete removes an entity and reports whether it existed.
func (s *Store) Delete(collection, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[collection][id]; !ok {
		return false
	}
	delete(s.data[collection], id)
	return true
}

// Count returns the number of entities in a collection.
func (s *Store) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data[collection])
}

func notFound(collection, id string) error {
	return apperrors.Errorf(apperrors.ErrNotFound, "Couldn't find %s with 'id'=%s", collection, id)
}

// NotFound builds the standard missing-resource error.
func NotFound(collection, id string) error {
	return notFound(collection, id)
}

func lessID(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return na < nb
	}
	if errA == nil {
		return true
	}
	if errB == nil {
		return false
	}
	return a < b
}
