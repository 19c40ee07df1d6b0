package resources

import (
	"context"
	"fmt"
	"time"

	validation "github.com/jellydator/validation"

	"github.com/allisson/resourcegateway/internal/gateway/domain"
	"github.com/allisson/resourcegateway/internal/gateway/executor"
	customValidation "github.com/allisson/resourcegateway/internal/validation"
)

// Request approval and request states.
const (
	ApprovalPending  = "pending_approval"
	ApprovalApproved = "approved"
	ApprovalDenied   = "denied"

	RequestPending   = "pending"
	RequestActive    = "active"
	RequestFinished  = "finished"
	RequestCancelled = "cancelled"
)

// Request types.
const (
	TypeRequestProvision  = "request_provision"
	TypeRequestService    = "request_service"
	TypeRequestAutomation = "request_automation"
)

var requestTypes = []string{TypeRequestProvision, TypeRequestService, TypeRequestAutomation}

type requests struct {
	crud
}

func registerRequests(exec *executor.Executor, caps *executor.Capabilities, deps Deps) {
	r := requests{crud{store: deps.Store, collection: Requests, kind: "request", entityType: "request"}}
	exec.RegisterBackend(Requests, r.backend())

	r.register(caps, domain.ActionCreate, domain.ActionDelete)
	caps.Register("request", domain.ActionCreate, r.createRequest)
	caps.Register("request", "approve", r.approve)
	caps.Register("request", "deny", r.deny)
	caps.Register(TypeRequestService, "cancel", r.cancel)
	caps.Register(TypeRequestAutomation, "cancel", r.cancel)
}

func (r requests) createRequest(_ context.Context, call *executor.Call) (domain.ActionResult, error) {
	requestType := call.String("type")
	if requestType == "" {
		requestType = TypeRequestProvision
	}
	err := validation.Validate(requestType, customValidation.OneOf(requestTypes...))
	if err != nil {
		return domain.ActionResult{}, customValidation.WrapValidationError(fmt.Errorf("type: %w", err))
	}
	err = validation.Validate(call.String("description"), validation.Required, customValidation.NotBlank)
	if err != nil {
		return domain.ActionResult{}, customValidation.WrapValidationError(fmt.Errorf("description: %w", err))
	}

	attrs := clonePayload(call.Payload)
	attrs["type"] = requestType
	attrs["approval_state"] = ApprovalPending
	attrs["request_state"] = RequestPending
	attrs["created_on"] = time.Now().UTC().Format(time.RFC3339)
	if call.Principal != nil {
		attrs["requester_id"] = call.Principal.UserID
	}

	entity, err := r.insert(call, attrs)
	if err != nil {
		return domain.ActionResult{}, err
	}
	return resourceResult(call, entity), nil
}

// decide records an approval decision on a pending request.
func (r requests) decide(call *executor.Call, approval, verb string) (domain.ActionResult, error) {
	reason := call.String("reason")
	if err := validation.Validate(reason, validation.Required, customValidation.NotBlank); err != nil {
		return domain.ActionResult{}, badRequest("Must specify a reason for %s a request", verb)
	}
	if call.Entity.String("approval_state") != ApprovalPending {
		return domain.Failure(
			call.Href,
			fmt.Sprintf("Request %s is %s and cannot be changed", call.Entity.ID, call.Entity.String("approval_state")),
		), nil
	}

	requestState := RequestActive
	if approval == ApprovalDenied {
		requestState = RequestFinished
	}
	_, err := r.store.Update(Requests, call.Entity.ID, func(e *domain.Entity) error {
		e.Attributes["approval_state"] = approval
		e.Attributes["request_state"] = requestState
		e.Attributes["reason"] = reason
		e.Attributes["approver"] = principalLogin(call)
		return nil
	})
	if err != nil {
		return domain.ActionResult{}, err
	}
	return domain.Succeeded(call.Href, fmt.Sprintf("Request %s %s", call.Entity.ID, approval)), nil
}

func (r requests) approve(_ context.Context, call *executor.Call) (domain.ActionResult, error) {
	return r.decide(call, ApprovalApproved, "approving")
}

func (r requests) deny(_ context.Context, call *executor.Call) (domain.ActionResult, error) {
	return r.decide(call, ApprovalDenied, "denying")
}

func (r requests) cancel(_ context.Context, call *executor.Call) (domain.ActionResult, error) {
	switch call.Entity.String("request_state") {
	case RequestFinished, RequestCancelled:
		return domain.Failure(
			call.Href,
			fmt.Sprintf("Request %s is already %s", call.Entity.ID, call.Entity.String("request_state")),
		), nil
	}
	_, err := r.store.Update(Requests, call.Entity.ID, func(e *domain.Entity) error {
		e.Attributes["request_state"] = RequestCancelled
		return nil
	})
	if err != nil {
		return domain.ActionResult{}, err
	}
	return domain.Succeeded(call.Href, fmt.Sprintf("Request %s cancelled", call.Entity.ID)), nil
}
