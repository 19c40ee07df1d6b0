package resources

import (
	"context"
	"fmt"
	"slices"
	"strings"

	validation "github.com/jellydator/validation"

	"github.com/allisson/resourcegateway/internal/directory"
	apperrors "github.com/allisson/resourcegateway/internal/errors"
	"github.com/allisson/resourcegateway/internal/gateway/domain"
	"github.com/allisson/resourcegateway/internal/gateway/executor"
	customValidation "github.com/allisson/resourcegateway/internal/validation"
)

// FeatureManageQuotas allows managing the quotas of descendant tenants.
const FeatureManageQuotas = "rbac_tenant_manage_quotas"

// Quota names accepted on tenant quotas.
var quotaNames = []string{
	"cpu_allocated",
	"mem_allocated",
	"storage_allocated",
	"vms_allocated",
	"templates_allocated",
}

var passwordPolicy = customValidation.PasswordStrength{MinLength: 8}

type rbac struct {
	deps    Deps
	users   crud
	groups  crud
	roles   crud
	tenants crud
	quotas  crud
}

func registerDirectory(exec *executor.Executor, caps *executor.Capabilities, deps Deps) {
	r := &rbac{
		deps:    deps,
		users:   crud{store: deps.Store, collection: directory.Users, kind: "user", entityType: "user"},
		groups:  crud{store: deps.Store, collection: directory.Groups, kind: "group", entityType: "group"},
		roles:   crud{store: deps.Store, collection: directory.Roles, kind: "role", entityType: "role"},
		tenants: crud{store: deps.Store, collection: directory.Tenants, kind: "tenant", entityType: "tenant"},
		quotas: crud{
			store: deps.Store, collection: Quotas, kind: "quota", entityType: "quota", parentAttribute: "tenant_id",
		},
	}

	for _, c := range []crud{r.users, r.groups, r.roles, r.tenants, r.quotas} {
		exec.RegisterBackend(c.collection, c.backend())
	}
	exec.RegisterBackend(Features, FeatureBackend{Directory: deps.Directory})

	r.users.register(caps, domain.ActionCreate, domain.ActionEdit, domain.ActionDelete)
	caps.Register("user", domain.ActionCreate, r.createUser)
	caps.Register("user", domain.ActionEdit, r.editUser)
	caps.Register("user", domain.ActionDelete, r.deleteUser)

	r.groups.register(caps, domain.ActionCreate, domain.ActionEdit, domain.ActionDelete)
	caps.Register("group", domain.ActionCreate, r.createGroup)
	caps.Register("group", domain.ActionEdit, r.editGroup)
	caps.Register("group", domain.ActionDelete, r.deleteGroup)

	r.roles.register(caps, domain.ActionCreate, domain.ActionEdit, domain.ActionDelete)
	caps.Register("role", domain.ActionCreate, r.createRole)
	caps.Register("role", domain.ActionEdit, r.editRole)
	caps.Register("role", domain.ActionDelete, r.deleteRole)
	caps.Register("role", "assign", r.assignRoleFeatures)
	caps.Register("role", "unassign", r.unassignRoleFeatures)
	caps.Register("feature", "assign", r.assignFeature)
	caps.Register("feature", "unassign", r.unassignFeature)

	r.tenants.register(caps, domain.ActionCreate, domain.ActionEdit, domain.ActionDelete)
	caps.Register("tenant", domain.ActionCreate, r.createTenant)
	caps.Register("tenant", domain.ActionEdit, r.editTenant)
	caps.Register("tenant", domain.ActionDelete, r.deleteTenant)

	r.quotas.register(caps, domain.ActionCreate, domain.ActionEdit)
	caps.Register("quota", domain.ActionCreate, r.createQuota)
	caps.Register("quota", domain.ActionEdit, r.editQuota)
	exec.RegisterGuard(Quotas, r.quotaGuard)
}

type userInput struct {
	Login    string   `json:"userid"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	GroupIDs []string `json:"group_ids"`
}

func (u userInput) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.Login, validation.Required, customValidation.NoWhitespace),
		validation.Field(&u.Name, validation.Required, customValidation.NotBlank),
		validation.Field(&u.Email, customValidation.Email),
		validation.Field(&u.Password, validation.Required, passwordPolicy),
		validation.Field(&u.GroupIDs, validation.Required),
	)
}

func (r *rbac) checkGroups(ids []string) error {
	for _, id := range ids {
		if _, err := r.deps.Directory.Group(id); err != nil {
			return badRequest("Invalid group %s specified", id)
		}
	}
	return nil
}

func (r *rbac) hashPassword(attrs map[string]any) error {
	plain, ok := attrs["password"].(string)
	if !ok {
		return nil
	}
	if err := validation.Validate(plain, validation.Required, passwordPolicy); err != nil {
		return customValidation.WrapValidationError(fmt.Errorf("password: %w", err))
	}
	digest, err := r.deps.Hasher.HashSecret(plain)
	if err != nil {
		return apperrors.Wrap(err, "failed to hash password")
	}
	delete(attrs, "password")
	attrs["password_digest"] = digest
	return nil
}

func (r *rbac) createUser(_ context.Context, call *executor.Call) (domain.ActionResult, error) {
	in := userInput{
		Login:    call.String("userid"),
		Name:     call.String("name"),
		Email:    call.String("email"),
		Password: call.String("password"),
		GroupIDs: directory.StringList(call.Payload["group_ids"]),
	}
	if err := in.Validate(); err != nil {
		return domain.ActionResult{}, customValidation.WrapValidationError(err)
	}
	if err := r.checkGroups(in.GroupIDs); err != nil {
		return domain.ActionResult{}, err
	}
	if _, err := r.deps.Directory.UserByLogin(in.Login); err == nil {
		return domain.ActionResult{}, apperrors.Errorf(apperrors.ErrConflict, "User %s already exists", in.Login)
	}

	attrs := clonePayload(call.Payload)
	attrs["group_ids"] = in.GroupIDs
	if call.String("current_group_id") == "" {
		attrs["current_group_id"] = in.GroupIDs[0]
	}
	if err := r.hashPassword(attrs); err != nil {
		return domain.ActionResult{}, err
	}

	entity, err := r.users.insert(call, attrs)
	if err != nil {
		return domain.ActionResult{}, err
	}
	return resourceResult(call, entity), nil
}

func (r *rbac) editUser(_ context.Context, call *executor.Call) (domain.ActionResult, error) {
	attrs := clonePayload(call.Payload)
	if raw, ok := attrs["group_ids"]; ok {
		groups := directory.StringList(raw)
		if len(groups) == 0 {
			return domain.ActionResult{}, badRequest("A user must belong to at least one group")
		}
		if err := r.checkGroups(groups); err != nil {
			return domain.ActionResult{}, err
		}
		attrs["group_ids"] = groups
	}
	if err := r.hashPassword(attrs); err != nil {
		return domain.ActionResult{}, err
	}

	entity, err := r.users.update(call, attrs)
	if err != nil {
		return domain.ActionResult{}, err
	}
	return resourceResult(call, entity), nil
}

func (r *rbac) deleteUser(ctx context.Context, call *executor.Call) (domain.ActionResult, error) {
	if call.Principal != nil && call.Entity.ID == call.Principal.UserID {
		return domain.Failure(call.Href, "Cannot delete user of current request"), nil
	}
	return r.users.delete(ctx, call)
}

func (r *rbac) checkGroupRefs(attrs map[string]any) error {
	if id := stringAttr(attrs, "role_id"); id != "" {
		if _, err := r.deps.Directory.Role(id); err != nil {
			return badRequest("Invalid role %s specified", id)
		}
	}
	if id := stringAttr(attrs, "tenant_id"); id != "" {
		if _, err := r.deps.Directory.Tenant(id); err != nil {
			return badRequest("Invalid tenant %s specified", id)
		}
	}
	return nil
}

func (r *rbac) createGroup(ctx context.Context, call *executor.Call) (domain.ActionResult, error) {
	err := validation.Validate(call.String("description"), validation.Required, customValidation.NotBlank)
	if err != nil {
		return domain.ActionResult{}, customValidation.WrapValidationError(fmt.Errorf("description: %w", err))
	}
	if err := r.checkGroupRefs(call.Payload); err != nil {
		return domain.ActionResult{}, err
	}
	if call.String("tenant_id") == "" && call.Principal != nil {
		call.Payload["tenant_id"] = call.Principal.TenantID
	}
	return r.groups.create(ctx, call)
}

func (r *rbac) editGroup(ctx context.Context, call *executor.Call) (domain.ActionResult, error) {
	if err := r.checkGroupRefs(call.Payload); err != nil {
		return domain.ActionResult{}, err
	}
	return r.groups.edit(ctx, call)
}

func (r *rbac) deleteGroup(ctx context.Context, call *executor.Call) (domain.ActionResult, error) {
	if call.Principal != nil && call.Entity.ID == call.Principal.GroupID {
		return domain.Failure(call.Href, "Cannot delete the group of the current request"), nil
	}
	return r.groups.delete(ctx, call)
}

// featureIdentifiers reads "identifier" or "features" from a role payload.
// Features may be identifiers or {"identifier": ...} objects.
func featureIdentifiers(payload map[string]any) []string {
	var out []string
	if id, ok := payload["identifier"].(string); ok && id != "" {
		out = append(out, id)
	}
	if list, ok := payload["features"].([]any); ok {
		for _, item := range list {
			switch v := item.(type) {
			case string:
				out = append(out, v)
			case map[string]any:
				if id, ok := v["identifier"].(string); ok {
					out = append(out, id)
				}
			}
		}
	}
	return out
}

func (r *rbac) checkFeatures(identifiers []string) error {
	var invalid []string
	for _, id := range identifiers {
		if !r.deps.Directory.FeatureExists(id) {
			invalid = append(invalid, id)
		}
	}
	if len(invalid) > 0 {
		return badRequest("Invalid product feature identifier(s) specified: %s", strings.Join(invalid, ", "))
	}
	return nil
}

func readOnly(role domain.Entity) bool {
	v, _ := role.Attributes["read_only"].(bool)
	return v
}

func (r *rbac) createRole(ctx context.Context, call *executor.Call) (domain.ActionResult, error) {
	err := validation.Validate(call.String("name"), validation.Required, customValidation.NotBlank)
	if err != nil {
		return domain.ActionResult{}, customValidation.WrapValidationError(fmt.Errorf("name: %w", err))
	}
	features := featureIdentifiers(call.Payload)
	if err := r.checkFeatures(features); err != nil {
		return domain.ActionResult{}, err
	}
	call.Payload["features"] = features
	call.Payload["read_only"] = false
	return r.roles.create(ctx, call)
}

func (r *rbac) editRole(ctx context.Context, call *executor.Call) (domain.ActionResult, error) {
	if readOnly(*call.Entity) {
		return domain.Failure(call.Href, "Cannot edit a read-only role"), nil
	}
	if _, ok := call.Payload["features"]; ok {
		features := featureIdentifiers(call.Payload)
		if err := r.checkFeatures(features); err != nil {
			return domain.ActionResult{}, err
		}
		call.Payload["features"] = features
	}
	return r.roles.edit(ctx, call)
}

func (r *rbac) deleteRole(ctx context.Context, call *executor.Call) (domain.ActionResult, error) {
	if readOnly(*call.Entity) {
		return domain.Failure(call.Href, "Cannot delete a read-only role"), nil
	}
	inUse := r.deps.Store.Filter(directory.Groups, func(g domain.Entity) bool {
		return g.String("role_id") == call.Entity.ID
	})
	if len(inUse) > 0 {
		return domain.Failure(call.Href, fmt.Sprintf("Role %s is in use by a group and cannot be deleted", call.Entity.ID)), nil
	}
	return r.roles.delete(ctx, call)
}

// setFeatures adds or removes identifiers on a role.
func (r *rbac) setFeatures(roleID string, identifiers []string, add bool) (domain.Entity, error) {
	return r.deps.Store.Update(directory.Roles, roleID, func(e *domain.Entity) error {
		current := directory.StringList(e.Attributes["features"])
		for _, id := range identifiers {
			has := slices.Contains(current, id)
			switch {
			case add && !has:
				current = append(current, id)
			case !add && has:
				current = slices.DeleteFunc(current, func(f string) bool { return f == id })
			}
		}
		e.Attributes["features"] = current
		return nil
	})
}

func (r *rbac) changeRoleFeatures(call *executor.Call, add bool) (domain.ActionResult, error) {
	identifiers := featureIdentifiers(call.Payload)
	if len(identifiers) == 0 {
		return domain.ActionResult{}, badRequest("Must specify a feature identifier or features to %s", call.Action())
	}
	if err := r.checkFeatures(identifiers); err != nil {
		return domain.ActionResult{}, err
	}
	if readOnly(*call.Entity) {
		return domain.Failure(call.Href, "Cannot edit a read-only role"), nil
	}
	role, err := r.setFeatures(call.Entity.ID, identifiers, add)
	if err != nil {
		return domain.ActionResult{}, err
	}
	return resourceResult(call, role), nil
}

func (r *rbac) assignRoleFeatures(_ context.Context, call *executor.Call) (domain.ActionResult, error) {
	return r.changeRoleFeatures(call, true)
}

func (r *rbac) unassignRoleFeatures(_ context.Context, call *executor.Call) (domain.ActionResult, error) {
	return r.changeRoleFeatures(call, false)
}

func (r *rbac) changeFeature(call *executor.Call, add bool) (domain.ActionResult, error) {
	role := *call.Parent
	if readOnly(role) {
		return domain.Failure(call.Href, "Cannot edit a read-only role"), nil
	}
	identifier := call.Entity.ID
	if !add && !holds(role, identifier) {
		return domain.Failure(call.Href, fmt.Sprintf("Role %s does not hold product feature %s", role.ID, identifier)), nil
	}
	if _, err := r.setFeatures(role.ID, []string{identifier}, add); err != nil {
		return domain.ActionResult{}, err
	}

	verb := "Assigned"
	if !add {
		verb = "Unassigned"
	}
	return domain.Succeeded(call.Href, fmt.Sprintf("%s product feature %s to %s", verb, identifier, role.Label("role"))), nil
}

func (r *rbac) assignFeature(_ context.Context, call *executor.Call) (domain.ActionResult, error) {
	return r.changeFeature(call, true)
}

func (r *rbac) unassignFeature(_ context.Context, call *executor.Call) (domain.ActionResult, error) {
	return r.changeFeature(call, false)
}

func (r *rbac) createTenant(ctx context.Context, call *executor.Call) (domain.ActionResult, error) {
	err := validation.Validate(call.String("name"), validation.Required, customValidation.NotBlank)
	if err != nil {
		return domain.ActionResult{}, customValidation.WrapValidationError(fmt.Errorf("name: %w", err))
	}
	parentID := call.String("parent_id")
	if parentID == "" && call.Principal != nil {
		parentID = call.Principal.TenantID
	}
	if _, err := r.deps.Directory.Tenant(parentID); err != nil {
		return domain.ActionResult{}, badRequest("Invalid parent tenant %s specified", parentID)
	}
	call.Payload["parent_id"] = parentID
	if _, ok := call.Payload["divisible"]; !ok {
		call.Payload["divisible"] = true
	}
	return r.tenants.create(ctx, call)
}

func (r *rbac) editTenant(ctx context.Context, call *executor.Call) (domain.ActionResult, error) {
	if raw, ok := call.Payload["parent_id"]; ok {
		parentID := domain.Stringify(raw)
		if r.deps.Directory.IsRootTenant(call.Entity.ID) {
			return domain.Failure(call.Href, "Cannot change the parent of the root tenant"), nil
		}
		if _, err := r.deps.Directory.Tenant(parentID); err != nil {
			return domain.ActionResult{}, badRequest("Invalid parent tenant %s specified", parentID)
		}
		if parentID == call.Entity.ID || r.deps.Directory.IsStrictDescendant(parentID, call.Entity.ID) {
			return domain.ActionResult{}, badRequest("Tenant %s cannot be moved below itself", call.Entity.ID)
		}
	}
	return r.tenants.edit(ctx, call)
}

func (r *rbac) deleteTenant(ctx context.Context, call *executor.Call) (domain.ActionResult, error) {
	if r.deps.Directory.IsRootTenant(call.Entity.ID) {
		return domain.Failure(call.Href, "Cannot delete the root tenant"), nil
	}
	children := r.deps.Store.Filter(directory.Tenants, func(t domain.Entity) bool {
		return t.String("parent_id") == call.Entity.ID
	})
	if len(children) > 0 {
		return domain.Failure(call.Href, fmt.Sprintf("Tenant %s has child tenants and cannot be deleted", call.Entity.ID)), nil
	}
	return r.tenants.delete(ctx, call)
}

// quotaGuard lets a principal manage quotas only of tenants strictly below its own.
func (r *rbac) quotaGuard(_ context.Context, call *executor.Call) error {
	p := call.Principal
	tenantID := call.Request.ResourceID
	if p != nil && r.deps.Authorizer.Permits(p, FeatureManageQuotas) &&
		r.deps.Directory.IsStrictDescendant(tenantID, p.TenantID) {
		return nil
	}
	return apperrors.Errorf(
		apperrors.ErrForbidden,
		"Use of the %s action on quotas of tenant %s is forbidden",
		call.Action(),
		tenantID,
	)
}

type quotaInput struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func (q quotaInput) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Name, validation.Required, customValidation.OneOf(quotaNames...)),
		validation.Field(&q.Value, validation.Min(0.0)),
	)
}

func (r *rbac) createQuota(ctx context.Context, call *executor.Call) (domain.ActionResult, error) {
	value, ok := number(call.Payload["value"])
	if !ok {
		return domain.ActionResult{}, badRequest("Must specify a numeric quota value")
	}
	in := quotaInput{Name: call.String("name"), Value: value}
	if err := in.Validate(); err != nil {
		return domain.ActionResult{}, customValidation.WrapValidationError(err)
	}

	existing := r.deps.Store.Filter(Quotas, func(q domain.Entity) bool {
		return q.String("tenant_id") == call.Parent.ID && q.String("name") == in.Name
	})
	if len(existing) > 0 {
		return domain.ActionResult{}, apperrors.Errorf(
			apperrors.ErrConflict,
			"Quota %s already exists for tenant %s",
			in.Name,
			call.Parent.ID,
		)
	}
	return r.quotas.create(ctx, call)
}

func (r *rbac) editQuota(ctx context.Context, call *executor.Call) (domain.ActionResult, error) {
	if raw, ok := call.Payload["value"]; ok {
		value, ok := number(raw)
		if !ok || value < 0 {
			return domain.ActionResult{}, badRequest("Must specify a numeric quota value")
		}
	}
	if name, ok := call.Payload["name"]; ok && !slices.Contains(quotaNames, domain.Stringify(name)) {
		return domain.ActionResult{}, badRequest("Invalid quota name %s specified", domain.Stringify(name))
	}
	return r.quotas.edit(ctx, call)
}

func clonePayload(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	return out
}

func stringAttr(attrs map[string]any, name string) string {
	v, ok := attrs[name]
	if !ok || v == nil {
		return ""
	}
	return domain.Stringify(v)
}
