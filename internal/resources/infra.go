package resources

import (
	"context"
	"fmt"
	"slices"
	"time"

	validation "github.com/jellydator/validation"

	"github.com/allisson/resourcegateway/internal/directory"
	"github.com/allisson/resourcegateway/internal/gateway/domain"
	"github.com/allisson/resourcegateway/internal/gateway/executor"
	taskDomain "github.com/allisson/resourcegateway/internal/task/domain"
	customValidation "github.com/allisson/resourcegateway/internal/validation"
)

// Operations executed by the task worker.
const (
	OpProviderRefresh = "provider.refresh"
	OpProviderDelete  = "provider.delete"
	OpVMStart         = "vm.start"
	OpVMStop          = "vm.stop"
	OpSnapshotCreate  = "vm.snapshot_create"
	OpSnapshotDelete  = "vm.snapshot_delete"
)

const (
	defaultZoneName     = "default"
	serverStatusStarted = "started"
)

// Concrete entity types with their own capabilities.
const (
	TypeProviderVMware    = "provider_vmware"
	TypeProviderOpenStack = "provider_openstack"
	TypeProviderTower     = "provider_ansible_tower"
	TypeVMVMware          = "vm_vmware"
	TypeVMOpenStack       = "vm_openstack"
)

var providerTypes = []string{TypeProviderVMware, TypeProviderOpenStack, TypeProviderTower}

type infra struct {
	deps      Deps
	zones     crud
	servers   crud
	providers crud
	vms       crud
	snapshots crud
}

func registerInfrastructure(exec *executor.Executor, caps *executor.Capabilities, deps Deps) {
	i := &infra{
		deps:      deps,
		zones:     crud{store: deps.Store, collection: Zones, kind: "zone", entityType: "zone"},
		servers:   crud{store: deps.Store, collection: Servers, kind: "server", entityType: "server"},
		providers: crud{store: deps.Store, collection: Providers, kind: "provider", entityType: "provider"},
		vms:       crud{store: deps.Store, collection: Vms, kind: "vm", entityType: "vm"},
		snapshots: crud{
			store: deps.Store, collection: Snapshots, kind: "snapshot", entityType: "snapshot", parentAttribute: "vm_id",
		},
	}
	for _, c := range []crud{i.zones, i.servers, i.providers, i.vms, i.snapshots} {
		exec.RegisterBackend(c.collection, c.backend())
	}

	i.zones.register(caps, domain.ActionDelete)
	caps.Register("zone", domain.ActionDelete, i.deleteZone)

	i.servers.register(caps, domain.ActionCreate, domain.ActionDelete)
	caps.Register("server", domain.ActionDelete, i.deleteServer)

	i.providers.register(caps, domain.ActionCreate, domain.ActionDelete)
	caps.Register("provider", domain.ActionCreate, i.createProvider)
	caps.Register("provider", domain.ActionDelete, i.deleteProvider)
	caps.Register(TypeProviderVMware, "refresh", i.refreshProvider)
	caps.Register(TypeProviderOpenStack, "refresh", i.refreshProvider)

	i.vms.register(caps, domain.ActionCreate, domain.ActionDelete)
	caps.Register("vm", "start", i.startVM)
	caps.Register("vm", "stop", i.stopVM)
	caps.Register("vm", "retire", i.retireVM)
	caps.Register(TypeVMVMware, "suspend", i.suspendVM)

	caps.Register("snapshot", domain.ActionQuery, i.snapshots.query)
	caps.Register("snapshot", domain.ActionCreate, i.createSnapshot)
	caps.Register("snapshot", domain.ActionDelete, i.deleteSnapshot)
}

func (i *infra) deleteZone(ctx context.Context, call *executor.Call) (domain.ActionResult, error) {
	if call.Entity.String("name") == defaultZoneName {
		return domain.Failure(call.Href, "Cannot delete the default zone"), nil
	}
	servers := i.deps.Store.Filter(Servers, func(s domain.Entity) bool {
		return s.String("zone_id") == call.Entity.ID
	})
	if len(servers) > 0 {
		return domain.Failure(call.Href, fmt.Sprintf("Zone %s has servers and cannot be deleted", call.Entity.ID)), nil
	}
	return i.zones.delete(ctx, call)
}

func (i *infra) deleteServer(ctx context.Context, call *executor.Call) (domain.ActionResult, error) {
	if call.Entity.String("status") == serverStatusStarted {
		return domain.Failure(call.Href, "Cannot delete a started server"), nil
	}
	return i.servers.delete(ctx, call)
}

type providerInput struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

func (p providerInput) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Type, validation.Required, customValidation.OneOf(providerTypes...)),
		validation.Field(&p.Name, validation.Required, customValidation.NotBlank),
	)
}

func (i *infra) createProvider(ctx context.Context, call *executor.Call) (domain.ActionResult, error) {
	in := providerInput{Type: call.String("type"), Name: call.String("name")}
	if err := in.Validate(); err != nil {
		return domain.ActionResult{}, customValidation.WrapValidationError(err)
	}
	if zoneID := call.String("zone_id"); zoneID != "" {
		if _, ok := i.deps.Store.Get(Zones, zoneID); !ok {
			return domain.ActionResult{}, badRequest("Invalid zone %s specified", zoneID)
		}
	}
	return i.providers.create(ctx, call)
}

func (i *infra) refreshProvider(ctx context.Context, call *executor.Call) (domain.ActionResult, error) {
	managers := directory.StringList(call.Entity.Attributes["managers"])
	if len(managers) == 0 {
		return domain.Failure(call.Href, fmt.Sprintf("Provider %s must supply a manager resource", call.Entity.ID)), nil
	}

	label := call.Entity.Label("provider")
	spec := taskDomain.Spec{
		Name:       "Refreshing " + label,
		Collection: Providers,
		ResourceID: call.Entity.ID,
	}
	for _, manager := range managers {
		spec.Children = append(spec.Children, taskDomain.Spec{
			Name:      fmt.Sprintf("Refreshing %s of %s", manager, label),
			Operation: OpProviderRefresh,
			Payload:   map[string]any{"provider_id": call.Entity.ID, "manager": manager},
		})
	}
	return delegate(ctx, i.deps.Tasks, call, spec, "Refreshing "+label)
}

func (i *infra) deleteProvider(ctx context.Context, call *executor.Call) (domain.ActionResult, error) {
	label := call.Entity.Label("provider")
	spec := taskDomain.Spec{
		Name:       "Deleting " + label,
		Operation:  OpProviderDelete,
		Collection: Providers,
		ResourceID: call.Entity.ID,
		Payload:    map[string]any{"provider_id": call.Entity.ID},
	}
	return delegate(ctx, i.deps.Tasks, call, spec, "Deleting "+label)
}

func poweredOn(vm domain.Entity) bool {
	return vm.String("power_state") == "on"
}

func (i *infra) powerTask(ctx context.Context, call *executor.Call, verb, operation string) (domain.ActionResult, error) {
	label := call.Entity.Label("vm")
	spec := taskDomain.Spec{
		Name:       verb + " " + label,
		Operation:  operation,
		Collection: Vms,
		ResourceID: call.Entity.ID,
		Payload:    map[string]any{"vm_id": call.Entity.ID},
	}
	return delegate(ctx, i.deps.Tasks, call, spec, verb+" "+label)
}

func (i *infra) startVM(ctx context.Context, call *executor.Call) (domain.ActionResult, error) {
	if poweredOn(*call.Entity) {
		return domain.Failure(call.Href, call.Entity.Label("vm")+" is powered on"), nil
	}
	return i.powerTask(ctx, call, "Starting", OpVMStart)
}

func (i *infra) stopVM(ctx context.Context, call *executor.Call) (domain.ActionResult, error) {
	if !poweredOn(*call.Entity) {
		return domain.Failure(call.Href, call.Entity.Label("vm")+" is not powered on"), nil
	}
	return i.powerTask(ctx, call, "Stopping", OpVMStop)
}

func (i *infra) suspendVM(_ context.Context, call *executor.Call) (domain.ActionResult, error) {
	if !poweredOn(*call.Entity) {
		return domain.Failure(call.Href, call.Entity.Label("vm")+" is not powered on"), nil
	}
	if _, err := i.deps.Store.Update(Vms, call.Entity.ID, func(e *domain.Entity) error {
		e.Attributes["power_state"] = "suspended"
		return nil
	}); err != nil {
		return domain.ActionResult{}, err
	}
	return domain.Succeeded(call.Href, "Suspending "+call.Entity.Label("vm")), nil
}

func (i *infra) retireVM(_ context.Context, call *executor.Call) (domain.ActionResult, error) {
	retiresOn := call.String("date")
	message := "Retiring " + call.Entity.Label("vm")
	if retiresOn == "" {
		retiresOn = time.Now().UTC().Format(time.DateOnly)
	} else {
		if _, err := time.Parse(time.DateOnly, retiresOn); err != nil {
			return domain.ActionResult{}, badRequest("Invalid retirement date %s specified", retiresOn)
		}
		message = fmt.Sprintf("Retiring %s on %s", call.Entity.Label("vm"), retiresOn)
	}
	if _, err := i.deps.Store.Update(Vms, call.Entity.ID, func(e *domain.Entity) error {
		e.Attributes["retires_on"] = retiresOn
		e.Attributes["retirement_requester"] = principalLogin(call)
		return nil
	}); err != nil {
		return domain.ActionResult{}, err
	}
	return domain.Succeeded(call.Href, message), nil
}

// Vm types that support snapshot creation and deletion.
var (
	snapshotCreateTypes = []string{TypeVMVMware, TypeVMOpenStack}
	snapshotDeleteTypes = []string{TypeVMVMware}
)

func (i *infra) createSnapshot(ctx context.Context, call *executor.Call) (domain.ActionResult, error) {
	if call.Parent == nil || !slices.Contains(snapshotCreateTypes, call.Parent.Type) {
		return domain.ActionResult{}, unsupported()
	}
	name := call.String("name")
	err := validation.Validate(name, validation.Required, customValidation.NotBlank)
	if err != nil {
		return domain.ActionResult{}, customValidation.WrapValidationError(fmt.Errorf("name: %w", err))
	}

	vm := call.Parent
	payload := map[string]any{"vm_id": vm.ID, "name": name}
	if d := call.String("description"); d != "" {
		payload["description"] = d
	}
	if memory, ok := call.Payload["memory"].(bool); ok {
		payload["memory"] = memory
	}
	spec := taskDomain.Spec{
		Name:       fmt.Sprintf("Creating snapshot %s for %s", name, vm.Label("vm")),
		Operation:  OpSnapshotCreate,
		Collection: Vms,
		ResourceID: vm.ID,
		Payload:    payload,
	}
	return delegate(ctx, i.deps.Tasks, call, spec, spec.Name)
}

func (i *infra) deleteSnapshot(ctx context.Context, call *executor.Call) (domain.ActionResult, error) {
	vm := call.Parent
	if vm == nil {
		parent, ok := i.deps.Store.Get(Vms, call.Entity.String("vm_id"))
		if !ok {
			return domain.ActionResult{}, badRequest("Snapshot %s has no vm", call.Entity.ID)
		}
		vm = &parent
	}
	if !slices.Contains(snapshotDeleteTypes, vm.Type) {
		return domain.ActionResult{}, unsupported()
	}

	label := call.Entity.Label("snapshot")
	spec := taskDomain.Spec{
		Name:       "Deleting " + label,
		Operation:  OpSnapshotDelete,
		Collection: Vms,
		ResourceID: vm.ID,
		Payload:    map[string]any{"vm_id": vm.ID, "snapshot_id": call.Entity.ID},
	}
	return delegate(ctx, i.deps.Tasks, call, spec, "Deleting "+label)
}

func principalLogin(call *executor.Call) string {
	if call.Principal == nil {
		return ""
	}
	return call.Principal.Login
}
