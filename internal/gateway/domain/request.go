package domain

// Well-known action names.
const (
	ActionRead   = "read"
	ActionCreate = "create"
	ActionEdit   = "edit"
	ActionDelete = "delete"
	ActionQuery  = "query"
)

// Target addresses one item of an action request. Exactly one of ID, Href or
// Attributes identifies an existing resource; creates carry none of them. Err holds
// a validation failure found while normalizing the item, which the executor reports
// in place of running it.
type Target struct {
	ID         string
	Href       string
	Attributes map[string]any
	Payload    map[string]any
	Err        error
}

// Identified reports whether the target names an existing resource.
func (t Target) Identified() bool {
	return t.ID != "" || t.Href != "" || len(t.Attributes) > 0
}

// ActionRequest is the normalized form of one inbound HTTP call.
type ActionRequest struct {
	Verb          string
	BaseURL       string
	Collection    string
	ResourceID    string
	Subcollection string
	SubresourceID string
	Scope         Scope
	Action        string
	Targets       []Target
	Payload       map[string]any
	Bulk          bool
}

// Subject returns the collection the action operates on: the subcollection when
// nested, otherwise the collection.
func (r *ActionRequest) Subject() string {
	if r.Scope.Nested() {
		return r.Subcollection
	}
	return r.Collection
}

// Parent returns the parent collection for nested scopes, otherwise "".
func (r *ActionRequest) Parent() string {
	if r.Scope.Nested() {
		return r.Collection
	}
	return ""
}

// SubjectHref builds the href of a resource in the subject collection.
func (r *ActionRequest) SubjectHref(id string) string {
	if r.Scope.Nested() {
		return Href(r.BaseURL, r.Collection, r.ResourceID, r.Subcollection, id)
	}
	return Href(r.BaseURL, r.Collection, id)
}

// CollectionHref builds the href of the subject collection itself.
func (r *ActionRequest) CollectionHref() string {
	if r.Scope.Nested() {
		return Href(r.BaseURL, r.Collection, r.ResourceID, r.Subcollection)
	}
	return Href(r.BaseURL, r.Collection)
}
