// Package dispatch normalizes inbound HTTP calls into action requests.
//
// Normalize is the only entry point. It resolves the collection (and subcollection)
// through the registry, picks the action from the verb and body, validates the
// action against the descriptor and splits bulk bodies into per-item targets.
// Request-level problems are returned as errors; problems with a single bulk entry
// are attached to that entry's Target.Err so sibling entries still run.
package dispatch

import (
	"bytes"
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	apperrors "github.com/allisson/resourcegateway/internal/errors"
	"github.com/allisson/resourcegateway/internal/gateway/domain"
	"github.com/allisson/resourcegateway/internal/gateway/registry"
)

// Reserved body keys.
const (
	keyAction    = "action"
	keyResources = "resources"
	keyResource  = "resource"
	keyID        = "id"
	keyHref      = "href"
)

// Input is one raw HTTP call.
type Input struct {
	Verb          string
	BaseURL       string
	Collection    string
	ResourceID    string
	Subcollection string
	SubresourceID string
	Body          []byte
}

// Normalized is the outcome of Normalize.
type Normalized struct {
	Request *domain.ActionRequest
	// Descriptor is the subject collection: the subcollection for nested scopes.
	Descriptor *registry.Descriptor
	// Parent is the parent collection for nested scopes.
	Parent *registry.Descriptor
	Spec   registry.ActionSpec
}

// Normalize turns verb + path + body into an ActionRequest.
func Normalize(reg *registry.Registry, in Input) (*Normalized, error) {
	top, err := reg.Lookup(in.Collection)
	if err != nil {
		return nil, err
	}

	n := &Normalized{Descriptor: top}
	req := &domain.ActionRequest{
		Verb:          strings.ToUpper(in.Verb),
		BaseURL:       in.BaseURL,
		Collection:    in.Collection,
		ResourceID:    in.ResourceID,
		Subcollection: in.Subcollection,
		SubresourceID: in.SubresourceID,
	}
	n.Request = req

	switch {
	case in.Subcollection != "":
		if in.ResourceID == "" {
			return nil, apperrors.Errorf(apperrors.ErrBadRequest, "Missing %s resource id", in.Collection)
		}
		sub, err := reg.Subcollection(top, in.Subcollection)
		if err != nil {
			return nil, err
		}
		n.Parent = top
		n.Descriptor = sub
		req.Scope = domain.ScopeSubcollection
		if in.SubresourceID != "" {
			req.Scope = domain.ScopeSubresource
		}
	case in.ResourceID != "":
		req.Scope = domain.ScopeResource
	default:
		req.Scope = domain.ScopeCollection
	}

	switch req.Verb {
	case http.MethodGet:
		req.Action = domain.ActionRead
		if id := singleID(req); id != "" {
			req.Targets = []domain.Target{{ID: id}}
		}
	case http.MethodDelete:
		if !req.Scope.Single() {
			return nil, unsupportedVerb(req)
		}
		req.Action = domain.ActionDelete
		req.Targets = []domain.Target{{ID: singleID(req)}}
	case http.MethodPut:
		if err := normalizePut(n, in.Body); err != nil {
			return nil, err
		}
	case http.MethodPatch:
		if err := normalizePatch(n, in.Body); err != nil {
			return nil, err
		}
	case http.MethodPost:
		if err := normalizePost(n, in.Body); err != nil {
			return nil, err
		}
	default:
		return nil, unsupportedVerb(req)
	}

	spec, ok := n.Descriptor.Action(req.Scope, req.Action)
	if !ok || !spec.AllowsVerb(req.Verb) {
		return nil, apperrors.Errorf(
			apperrors.ErrBadRequest,
			"Unsupported Action %s for the %s resource specified",
			req.Action,
			n.Descriptor.Name,
		)
	}
	n.Spec = spec

	return n, nil
}

func normalizePut(n *Normalized, body []byte) error {
	req := n.Request
	if !req.Scope.Single() {
		return unsupportedVerb(req)
	}
	obj, err := decodeObject(body)
	if err != nil {
		return err
	}
	payload := stripReserved(obj)
	if err := checkEditable(n.Descriptor, payload); err != nil {
		return err
	}
	req.Action = domain.ActionEdit
	req.Payload = payload
	req.Targets = []domain.Target{{ID: singleID(req), Payload: payload}}
	return nil
}

type patchOp struct {
	Action string `json:"action"`
	Path   string `json:"path"`
	Value  any    `json:"value"`
}

// normalizePatch folds an array of {action, path, value} operations into an edit
// payload. remove sets the attribute to null.
func normalizePatch(n *Normalized, body []byte) error {
	req := n.Request
	if !req.Scope.Single() {
		return unsupportedVerb(req)
	}

	var ops []patchOp
	if err := strictDecode(body, &ops); err != nil {
		return apperrors.Errorf(apperrors.ErrBadRequest, "Invalid PATCH body, expected an array of operations")
	}

	payload := make(map[string]any, len(ops))
	for _, op := range ops {
		attr := strings.TrimPrefix(op.Path, "/")
		if attr == "" {
			return apperrors.Errorf(apperrors.ErrBadRequest, "Missing path for %s operation", op.Action)
		}
		switch op.Action {
		case "edit", "add":
			payload[attr] = op.Value
		case "remove":
			payload[attr] = nil
		default:
			return apperrors.Errorf(apperrors.ErrBadRequest, "Unsupported PATCH action %s specified", op.Action)
		}
	}
	if err := checkEditable(n.Descriptor, payload); err != nil {
		return err
	}

	req.Action = domain.ActionEdit
	req.Payload = payload
	req.Targets = []domain.Target{{ID: singleID(req), Payload: payload}}
	return nil
}

func normalizePost(n *Normalized, body []byte) error {
	req := n.Request
	obj, err := decodeObject(body)
	if err != nil {
		return err
	}

	action, err := actionName(obj)
	if err != nil {
		return err
	}
	if action == "" {
		action = domain.ActionCreate
		if req.Scope.Single() {
			action = domain.ActionEdit
		}
	}
	req.Action = action

	if raw, ok := obj[keyResources]; ok {
		if req.Scope.Single() {
			return apperrors.Errorf(apperrors.ErrBadRequest, "Resources are not supported on a single %s", n.Descriptor.Name)
		}
		entries, ok := raw.([]any)
		if !ok {
			return apperrors.Errorf(apperrors.ErrBadRequest, "Invalid resources specified, must be an array")
		}
		req.Bulk = true
		req.Payload = stripReserved(obj)
		req.Targets = make([]domain.Target, len(entries))
		for i, entry := range entries {
			req.Targets[i] = bulkTarget(n, entry)
		}
		return nil
	}

	payload := stripReserved(obj)
	if inner, ok := obj[keyResource].(map[string]any); ok {
		payload = inner
	}
	req.Payload = payload

	if req.Scope.Single() {
		if action == domain.ActionEdit {
			edit := withoutIdentity(payload)
			if err := checkEditable(n.Descriptor, edit); err != nil {
				return err
			}
			payload = edit
		}
		req.Targets = []domain.Target{{ID: singleID(req), Payload: payload}}
		return nil
	}

	if action == domain.ActionCreate {
		if err := createTarget(n.Descriptor, payload); err != nil {
			return err
		}
		req.Targets = []domain.Target{{Payload: payload}}
		return nil
	}

	// A collection action addressing one resource through id or href in the body.
	if stringValue(payload[keyID]) == "" && stringValue(payload[keyHref]) == "" {
		return apperrors.Errorf(
			apperrors.ErrBadRequest,
			"No %s resources specified for the %s action",
			n.Descriptor.Name,
			action,
		)
	}
	target := identify(n, payload)
	if target.Err != nil {
		return target.Err
	}
	req.Targets = []domain.Target{target}
	return nil
}

func bulkTarget(n *Normalized, entry any) domain.Target {
	obj, ok := entry.(map[string]any)
	if !ok {
		return domain.Target{
			Err: apperrors.Errorf(apperrors.ErrBadRequest, "Invalid %s resource specified, must be an object", n.Descriptor.Name),
		}
	}

	if n.Request.Action == domain.ActionCreate {
		if err := createTarget(n.Descriptor, obj); err != nil {
			return domain.Target{Payload: obj, Err: err}
		}
		return domain.Target{Payload: obj}
	}
	return identify(n, obj)
}

// identify builds a target for an existing resource. id wins over href, and both
// win over alternate identifying attributes. An href pointing at a different id
// than the one given is rejected.
func identify(n *Normalized, obj map[string]any) domain.Target {
	t := domain.Target{}
	id := stringValue(obj[keyID])
	href := stringValue(obj[keyHref])

	if href != "" {
		parsed, err := registry.ParseHref(href)
		if err != nil {
			t.Err = err
			return t
		}
		hrefID := parsed.ID
		if n.Request.Scope.Nested() {
			hrefID = parsed.SubID
		}
		if id != "" && hrefID != "" && hrefID != id {
			t.Err = apperrors.Errorf(
				apperrors.ErrBadRequest,
				"Conflicting id %s and href %s specified for %s",
				id,
				href,
				n.Descriptor.Name,
			)
			return t
		}
	}

	switch {
	case id != "":
		t.ID = id
	case href != "":
		t.Href = href
	default:
		attrs := make(map[string]any, len(obj))
		for k, v := range obj {
			attrs[k] = v
		}
		if len(attrs) > 0 {
			t.Attributes = attrs
		}
	}

	payload := withoutIdentity(obj)
	if n.Request.Action == domain.ActionEdit {
		if err := checkEditable(n.Descriptor, payload); err != nil {
			t.Err = err
		}
	}
	t.Payload = payload
	return t
}

func createTarget(desc *registry.Descriptor, payload map[string]any) error {
	if _, ok := payload[keyID]; ok {
		return errIdentityOnCreate(desc)
	}
	if _, ok := payload[keyHref]; ok {
		return errIdentityOnCreate(desc)
	}
	return checkEditable(desc, payload)
}

func errIdentityOnCreate(desc *registry.Descriptor) error {
	return apperrors.Errorf(
		apperrors.ErrBadRequest,
		"Resource id or href should not be specified for creating a new %s",
		desc.Name,
	)
}

// checkEditable rejects attributes outside the descriptor's allow-list.
func checkEditable(desc *registry.Descriptor, payload map[string]any) error {
	var invalid []string
	for attr := range payload {
		if !desc.IsEditable(attr) {
			invalid = append(invalid, attr)
		}
	}
	if len(invalid) == 0 {
		return nil
	}
	slices.Sort(invalid)
	return apperrors.Errorf(apperrors.ErrBadRequest, "Invalid attribute(s) specified: %s", strings.Join(invalid, ", "))
}

func actionName(obj map[string]any) (string, error) {
	raw, ok := obj[keyAction]
	if !ok || raw == nil {
		return "", nil
	}
	name, ok := raw.(string)
	if !ok {
		return "", apperrors.Errorf(apperrors.ErrBadRequest, "Invalid action specified, must be a string")
	}
	return name, nil
}

func decodeObject(body []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return map[string]any{}, nil
	}
	var obj map[string]any
	if err := strictDecode(body, &obj); err != nil || obj == nil {
		return nil, apperrors.Errorf(apperrors.ErrBadRequest, "Invalid request body, expected a JSON object")
	}
	return obj, nil
}

func strictDecode(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return apperrors.New("trailing data after JSON body")
	}
	return nil
}

func stripReserved(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		if k == keyAction || k == keyResources {
			continue
		}
		out[k] = v
	}
	return out
}

func withoutIdentity(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		if k == keyID || k == keyHref {
			continue
		}
		out[k] = v
	}
	return out
}

func singleID(req *domain.ActionRequest) string {
	if req.Scope == domain.ScopeSubresource {
		return req.SubresourceID
	}
	if req.Scope == domain.ScopeResource {
		return req.ResourceID
	}
	return ""
}

func stringValue(v any) string {
	if v == nil {
		return ""
	}
	return domain.Stringify(v)
}

func unsupportedVerb(req *domain.ActionRequest) error {
	return apperrors.Errorf(
		apperrors.ErrBadRequest,
		"Unsupported HTTP verb %s for the %s %s",
		req.Verb,
		req.Subject(),
		req.Scope,
	)
}
