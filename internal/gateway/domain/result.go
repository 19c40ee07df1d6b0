package domain

import "encoding/json"

// TaskRef points at a delegated task.
type TaskRef struct {
	ID   string `json:"id"`
	Href string `json:"href"`
}

// ActionResult is the outcome of one item. A result carrying Resource renders as
// that resource; any other result renders as a status object.
type ActionResult struct {
	Success  bool
	Message  string
	Href     string
	TaskID   string
	TaskHref string
	Tasks    []TaskRef
	Resource map[string]any
}

// Succeeded builds a successful status result.
func Succeeded(href, message string) ActionResult {
	return ActionResult{Success: true, Href: href, Message: message}
}

// Failure builds a failed status result.
func Failure(href, message string) ActionResult {
	return ActionResult{Success: false, Href: href, Message: message}
}

// WithTask attaches a delegated task to the result.
func (r ActionResult) WithTask(ref TaskRef) ActionResult {
	r.TaskID = ref.ID
	r.TaskHref = ref.Href
	return r
}

type statusJSON struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
	Href     string    `json:"href,omitempty"`
	TaskID   string    `json:"task_id,omitempty"`
	TaskHref string    `json:"task_href,omitempty"`
	Tasks    []TaskRef `json:"tasks,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (r ActionResult) MarshalJSON() ([]byte, error) {
	if r.Resource != nil && r.Success {
		out := make(map[string]any, len(r.Resource)+1)
		for k, v := range r.Resource {
			out[k] = v
		}
		if r.Href != "" {
			out["href"] = r.Href
		}
		return json.Marshal(out)
	}
	return json.Marshal(statusJSON{
		Success:  r.Success,
		Message:  r.Message,
		Href:     r.Href,
		TaskID:   r.TaskID,
		TaskHref: r.TaskHref,
		Tasks:    r.Tasks,
	})
}
