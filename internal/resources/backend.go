package resources

import (
	"context"
	"slices"

	"github.com/allisson/resourcegateway/internal/directory"
	"github.com/allisson/resourcegateway/internal/gateway/domain"
	"github.com/allisson/resourcegateway/internal/store"
	taskUsecase "github.com/allisson/resourcegateway/internal/task/usecase"
)

// StoreBackend serves one collection of the entity store. Rows of a subcollection
// are scoped to their parent through ParentAttribute.
type StoreBackend struct {
	Store           *store.Store
	Collection      string
	ParentAttribute string
}

// List returns the rows of the collection, or of the parent when nested.
func (b StoreBackend) List(_ context.Context, parent *domain.Entity) ([]domain.Entity, error) {
	if parent == nil || b.ParentAttribute == "" {
		return b.Store.List(b.Collection), nil
	}
	return b.Store.Filter(b.Collection, func(e domain.Entity) bool {
		return e.String(b.ParentAttribute) == parent.ID
	}), nil
}

// Get returns one row. A row belonging to another parent is not found.
func (b StoreBackend) Get(_ context.Context, parent *domain.Entity, id string) (domain.Entity, error) {
	e, ok := b.Store.Get(b.Collection, id)
	if !ok || (parent != nil && b.ParentAttribute != "" && e.String(b.ParentAttribute) != parent.ID) {
		return domain.Entity{}, store.NotFound(b.Collection, id)
	}
	return e, nil
}

// FeatureBackend serves the features subcollection of roles. Features are
// addressed by their identifier. Listing returns the features a role holds while
// Get and Addressable reach any feature of the tree, so a feature can be assigned
// by id, href or identifier.
type FeatureBackend struct {
	Directory *directory.Directory
}

func featureEntity(d *directory.Directory, identifier string) domain.Entity {
	attrs := map[string]any{"identifier": identifier, "name": identifier}
	if parent := d.FeatureParent(identifier); parent != "" {
		attrs["parent_identifier"] = parent
	}
	return domain.Entity{ID: identifier, Type: "feature", Attributes: attrs}
}

func (b FeatureBackend) List(_ context.Context, parent *domain.Entity) ([]domain.Entity, error) {
	var identifiers []string
	if parent == nil {
		identifiers = b.Directory.Features()
	} else {
		role, err := b.Directory.Role(parent.ID)
		if err != nil {
			return nil, err
		}
		identifiers = role.Features
	}

	out := make([]domain.Entity, 0, len(identifiers))
	for _, identifier := range identifiers {
		out = append(out, featureEntity(b.Directory, identifier))
	}
	return out, nil
}

func (b FeatureBackend) Addressable(ctx context.Context, _ *domain.Entity) ([]domain.Entity, error) {
	return b.List(ctx, nil)
}

func (b FeatureBackend) Get(_ context.Context, _ *domain.Entity, id string) (domain.Entity, error) {
	if !b.Directory.FeatureExists(id) {
		return domain.Entity{}, store.NotFound(Features, id)
	}
	return featureEntity(b.Directory, id), nil
}

// TaskBackend serves the tasks collection from the task delegator.
type TaskBackend struct {
	Tasks taskUsecase.TaskUseCase
}

func (b TaskBackend) List(ctx context.Context, _ *domain.Entity) ([]domain.Entity, error) {
	tasks, err := b.Tasks.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Entity, len(tasks))
	for i, task := range tasks {
		out[i] = task.Entity()
	}
	return out, nil
}

func (b TaskBackend) Get(ctx context.Context, _ *domain.Entity, id string) (domain.Entity, error) {
	task, err := b.Tasks.Get(ctx, id)
	if err != nil {
		return domain.Entity{}, err
	}
	return task.Entity(), nil
}

// holds reports whether a role entity lists identifier.
func holds(role domain.Entity, identifier string) bool {
	return slices.Contains(directory.StringList(role.Attributes["features"]), identifier)
}
