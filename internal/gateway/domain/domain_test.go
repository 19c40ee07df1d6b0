package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntity(t *testing.T) {
	e := Entity{
		ID:         "7",
		Type:       "vm_vmware",
		Attributes: map[string]any{"name": "web", "cpus": float64(2), "tags": []string{"a"}},
	}

	t.Run("get resolves id and type", func(t *testing.T) {
		v, ok := e.Get("id")
		assert.True(t, ok)
		assert.Equal(t, "7", v)
		v, ok = e.Get("type")
		assert.True(t, ok)
		assert.Equal(t, "vm_vmware", v)
		_, ok = e.Get("missing")
		assert.False(t, ok)
	})

	t.Run("string formats numbers", func(t *testing.T) {
		assert.Equal(t, "2", e.String("cpus"))
		assert.Equal(t, "", e.String("missing"))
	})

	t.Run("clone is independent", func(t *testing.T) {
		c := e.Clone()
		c.Attributes["name"] = "db"
		c.Attributes["tags"].([]string)[0] = "b"
		assert.Equal(t, "web", e.Attributes["name"])
		assert.Equal(t, []string{"a"}, e.Attributes["tags"])
	})

	t.Run("fields include id and type", func(t *testing.T) {
		f := e.Fields()
		assert.Equal(t, "7", f["id"])
		assert.Equal(t, "vm_vmware", f["type"])
		assert.Equal(t, "web", f["name"])
	})

	t.Run("label", func(t *testing.T) {
		assert.Equal(t, "Vm id: 7 name: 'web'", e.Label("Vm"))
		assert.Equal(t, "Task id: 1", Entity{ID: "1"}.Label("Task"))
	})
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "3", Stringify(float64(3)))
	assert.Equal(t, "3.5", Stringify(3.5))
	assert.Equal(t, "true", Stringify(true))
	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "x", Stringify("x"))
}

func TestScope(t *testing.T) {
	assert.True(t, ScopeResource.Single())
	assert.True(t, ScopeSubresource.Single())
	assert.False(t, ScopeCollection.Single())
	assert.True(t, ScopeSubcollection.Nested())
	assert.False(t, ScopeResource.Nested())
	assert.False(t, Scope("global").Valid())
}

func TestActionRequestHrefs(t *testing.T) {
	top := &ActionRequest{BaseURL: "http://localhost/api/", Collection: "zones", Scope: ScopeCollection}
	assert.Equal(t, "zones", top.Subject())
	assert.Equal(t, "", top.Parent())
	assert.Equal(t, "http://localhost/api/zones/3", top.SubjectHref("3"))
	assert.Equal(t, "http://localhost/api/zones", top.CollectionHref())

	nested := &ActionRequest{
		BaseURL:       "http://localhost/api",
		Collection:    "vms",
		ResourceID:    "1",
		Subcollection: "snapshots",
		Scope:         ScopeSubcollection,
	}
	assert.Equal(t, "snapshots", nested.Subject())
	assert.Equal(t, "vms", nested.Parent())
	assert.Equal(t, "http://localhost/api/vms/1/snapshots/9", nested.SubjectHref("9"))
	assert.Equal(t, "http://localhost/api/vms/1/snapshots", nested.CollectionHref())
}

func TestActionResultJSON(t *testing.T) {
	tests := []struct {
		name   string
		result ActionResult
		want   string
	}{
		{
			name:   "status",
			result: Succeeded("http://h/api/zones/1", "Deleting zone id: 1"),
			want:   `{"success":true,"message":"Deleting zone id: 1","href":"http://h/api/zones/1"}`,
		},
		{
			name:   "failure without href",
			result: Failure("", "Feature not available/supported"),
			want:   `{"success":false,"message":"Feature not available/supported"}`,
		},
		{
			name: "task reference",
			result: Succeeded("http://h/api/vms/1", "Starting").
				WithTask(TaskRef{ID: "t1", Href: "http://h/api/tasks/t1"}),
			want: `{"success":true,"message":"Starting","href":"http://h/api/vms/1",` +
				`"task_id":"t1","task_href":"http://h/api/tasks/t1"}`,
		},
		{
			name: "resource",
			result: ActionResult{
				Success:  true,
				Href:     "http://h/api/zones/2",
				Resource: map[string]any{"id": "2", "name": "east"},
			},
			want: `{"href":"http://h/api/zones/2","id":"2","name":"east"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := json.Marshal(tt.result)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(body))
		})
	}
}
