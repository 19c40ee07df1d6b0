package resources

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/allisson/resourcegateway/internal/gateway/domain"
	"github.com/allisson/resourcegateway/internal/store"
	taskDomain "github.com/allisson/resourcegateway/internal/task/domain"
	taskUsecase "github.com/allisson/resourcegateway/internal/task/usecase"
)

// RunnerRegistry is implemented by the task worker.
type RunnerRegistry interface {
	RegisterRunner(operation string, runner taskUsecase.Runner)
}

type runners struct {
	store  *store.Store
	logger *slog.Logger
	now    func() time.Time
}

// RegisterRunners binds the operations delegated by the sample collections to
// runners that apply them to s.
func RegisterRunners(registry RunnerRegistry, s *store.Store, logger *slog.Logger) {
	r := &runners{store: s, logger: logger, now: time.Now}
	registry.RegisterRunner(OpProviderRefresh, taskUsecase.RunnerFunc(r.refreshProvider))
	registry.RegisterRunner(OpProviderDelete, taskUsecase.RunnerFunc(r.deleteProvider))
	registry.RegisterRunner(OpVMStart, taskUsecase.RunnerFunc(r.powerRunner("on", "Started")))
	registry.RegisterRunner(OpVMStop, taskUsecase.RunnerFunc(r.powerRunner("off", "Stopped")))
	registry.RegisterRunner(OpSnapshotCreate, taskUsecase.RunnerFunc(r.createSnapshot))
	registry.RegisterRunner(OpSnapshotDelete, taskUsecase.RunnerFunc(r.deleteSnapshot))
}

func payloadString(task *taskDomain.Task, name string) (string, error) {
	v := domain.Stringify(task.Payload[name])
	if v == "" {
		return "", fmt.Errorf("task %s payload is missing %s", task.ID, name)
	}
	return v, nil
}

func (r *runners) refreshProvider(_ context.Context, task *taskDomain.Task) (string, error) {
	providerID, err := payloadString(task, "provider_id")
	if err != nil {
		return "", err
	}
	manager := domain.Stringify(task.Payload["manager"])
	refreshedOn := r.now().UTC().Format(time.RFC3339)

	_, err = r.store.Update(Providers, providerID, func(e *domain.Entity) error {
		e.Attributes["last_refresh_date"] = refreshedOn
		return nil
	})
	if err != nil {
		return "", err
	}
	r.logger.Info("provider refreshed",
		slog.String("provider_id", providerID),
		slog.String("manager", manager),
	)
	return fmt.Sprintf("Refreshed %s of provider %s", manager, providerID), nil
}

func (r *runners) deleteProvider(_ context.Context, task *taskDomain.Task) (string, error) {
	providerID, err := payloadString(task, "provider_id")
	if err != nil {
		return "", err
	}
	if !r.store.Delete(Providers, providerID) {
		return "", store.NotFound(Providers, providerID)
	}
	return fmt.Sprintf("Deleted provider %s", providerID), nil
}

func (r *runners) powerRunner(state, verb string) taskUsecase.RunnerFunc {
	return func(_ context.Context, task *taskDomain.Task) (string, error) {
		vmID, err := payloadString(task, "vm_id")
		if err != nil {
			return "", err
		}
		_, err = r.store.Update(Vms, vmID, func(e *domain.Entity) error {
			e.Attributes["power_state"] = state
			return nil
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s vm %s", verb, vmID), nil
	}
}

func (r *runners) createSnapshot(_ context.Context, task *taskDomain.Task) (string, error) {
	vmID, err := payloadString(task, "vm_id")
	if err != nil {
		return "", err
	}
	if _, ok := r.store.Get(Vms, vmID); !ok {
		return "", store.NotFound(Vms, vmID)
	}

	attrs := map[string]any{"vm_id": vmID, "created_on": r.now().UTC().Format(time.RFC3339)}
	for _, name := range []string{"name", "description", "memory"} {
		if v, ok := task.Payload[name]; ok {
			attrs[name] = v
		}
	}
	snapshot, err := r.store.Insert(Snapshots, domain.Entity{Type: "snapshot", Attributes: attrs})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Created snapshot %s for vm %s", snapshot.ID, vmID), nil
}

func (r *runners) deleteSnapshot(_ context.Context, task *taskDomain.Task) (string, error) {
	snapshotID, err := payloadString(task, "snapshot_id")
	if err != nil {
		return "", err
	}
	if !r.store.Delete(Snapshots, snapshotID) {
		return "", store.NotFound(Snapshots, snapshotID)
	}
	return fmt.Sprintf("Deleted snapshot %s", snapshotID), nil
}
