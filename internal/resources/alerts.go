package resources

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	"github.com/allisson/resourcegateway/internal/gateway/domain"
	"github.com/allisson/resourcegateway/internal/gateway/executor"
	customValidation "github.com/allisson/resourcegateway/internal/validation"
)

var alertSeverities = []string{"info", "warning", "error"}

type alerts struct {
	crud
}

func registerAlerts(exec *executor.Executor, caps *executor.Capabilities, deps Deps) {
	a := alerts{crud{
		store: deps.Store, collection: AlertDefinitions, kind: "alert definition", entityType: "alert_definition",
	}}
	exec.RegisterBackend(AlertDefinitions, a.backend())

	a.register(caps, domain.ActionCreate)
	caps.Register("alert_definition", domain.ActionCreate, a.createAlert)
}

type alertInput struct {
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

func (a alertInput) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Description, validation.Required, customValidation.NotBlank),
		validation.Field(&a.Severity, customValidation.OneOf(alertSeverities...)),
	)
}

func (a alerts) createAlert(_ context.Context, call *executor.Call) (domain.ActionResult, error) {
	in := alertInput{Description: call.String("description"), Severity: call.String("severity")}
	if err := in.Validate(); err != nil {
		return domain.ActionResult{}, customValidation.WrapValidationError(err)
	}
	_, miq := call.Payload["miq_expression"]
	_, hash := call.Payload["hash_expression"]
	if miq == hash {
		return domain.ActionResult{}, badRequest("Must specify one of miq_expression, hash_expression")
	}

	attrs := clonePayload(call.Payload)
	attrs["guid"] = uuid.New().String()
	if _, ok := attrs["enabled"]; !ok {
		attrs["enabled"] = true
	}
	entity, err := a.insert(call, attrs)
	if err != nil {
		return domain.ActionResult{}, fmt.Errorf("failed to create alert definition: %w", err)
	}
	return resourceResult(call, entity), nil
}
