package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/resourcegateway/internal/errors"
	"github.com/allisson/resourcegateway/internal/gateway/domain"
	"github.com/allisson/resourcegateway/internal/gateway/registry"
)

const baseURL = "http://localhost:3000/api"

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.Default()
	require.NoError(t, err)
	return reg
}

func TestNormalize_Routing(t *testing.T) {
	reg := testRegistry(t)

	tests := []struct {
		name       string
		in         Input
		wantScope  domain.Scope
		wantAction string
		wantIDs    []string
		wantBulk   bool
	}{
		{
			name:       "get collection",
			in:         Input{Verb: "GET", Collection: "zones"},
			wantScope:  domain.ScopeCollection,
			wantAction: "read",
		},
		{
			name:       "get resource",
			in:         Input{Verb: "GET", Collection: "zones", ResourceID: "1"},
			wantScope:  domain.ScopeResource,
			wantAction: "read",
			wantIDs:    []string{"1"},
		},
		{
			name:       "post without action on collection creates",
			in:         Input{Verb: "POST", Collection: "zones", Body: []byte(`{"name":"east"}`)},
			wantScope:  domain.ScopeCollection,
			wantAction: "create",
			wantIDs:    []string{""},
		},
		{
			name:       "post without action on resource edits",
			in:         Input{Verb: "POST", Collection: "zones", ResourceID: "2", Body: []byte(`{"description":"d"}`)},
			wantScope:  domain.ScopeResource,
			wantAction: "edit",
			wantIDs:    []string{"2"},
		},
		{
			name:       "post named action",
			in:         Input{Verb: "POST", Collection: "vms", ResourceID: "3", Body: []byte(`{"action":"start"}`)},
			wantScope:  domain.ScopeResource,
			wantAction: "start",
			wantIDs:    []string{"3"},
		},
		{
			name:       "delete verb",
			in:         Input{Verb: "DELETE", Collection: "zones", ResourceID: "2"},
			wantScope:  domain.ScopeResource,
			wantAction: "delete",
			wantIDs:    []string{"2"},
		},
		{
			name:       "put edits",
			in:         Input{Verb: "PUT", Collection: "zones", ResourceID: "2", Body: []byte(`{"name":"west"}`)},
			wantScope:  domain.ScopeResource,
			wantAction: "edit",
			wantIDs:    []string{"2"},
		},
		{
			name: "subcollection create",
			in: Input{
				Verb:          "POST",
				Collection:    "vms",
				ResourceID:    "1",
				Subcollection: "snapshots",
				Body:          []byte(`{"name":"snap"}`),
			},
			wantScope:  domain.ScopeSubcollection,
			wantAction: "create",
			wantIDs:    []string{""},
		},
		{
			name: "subresource delete",
			in: Input{
				Verb:          "DELETE",
				Collection:    "vms",
				ResourceID:    "1",
				Subcollection: "snapshots",
				SubresourceID: "7",
			},
			wantScope:  domain.ScopeSubresource,
			wantAction: "delete",
			wantIDs:    []string{"7"},
		},
		{
			name: "bulk delete",
			in: Input{
				Verb:       "POST",
				Collection: "zones",
				Body:       []byte(`{"action":"delete","resources":[{"id":"2"},{"href":"` + baseURL + `/zones/3"}]}`),
			},
			wantScope:  domain.ScopeCollection,
			wantAction: "delete",
			wantIDs:    []string{"2", ""},
			wantBulk:   true,
		},
		{
			name: "collection action addressing one resource",
			in: Input{
				Verb:       "POST",
				Collection: "vms",
				Body:       []byte(`{"action":"stop","id":"4"}`),
			},
			wantScope:  domain.ScopeCollection,
			wantAction: "stop",
			wantIDs:    []string{"4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.BaseURL = baseURL
			n, err := Normalize(reg, tt.in)
			require.NoError(t, err)

			req := n.Request
			assert.Equal(t, tt.wantScope, req.Scope)
			assert.Equal(t, tt.wantAction, req.Action)
			assert.Equal(t, tt.wantBulk, req.Bulk)
			assert.Equal(t, tt.wantAction, n.Spec.Name)

			ids := make([]string, len(req.Targets))
			for i, target := range req.Targets {
				ids[i] = target.ID
			}
			if tt.wantIDs == nil {
				assert.Empty(t, ids)
			} else {
				assert.Equal(t, tt.wantIDs, ids)
			}
		})
	}
}

func TestNormalize_Descriptors(t *testing.T) {
	reg := testRegistry(t)

	n, err := Normalize(reg, Input{Verb: "GET", Collection: "vms", ResourceID: "1", Subcollection: "snapshots"})
	require.NoError(t, err)
	assert.Equal(t, "snapshots", n.Descriptor.Name)
	require.NotNil(t, n.Parent)
	assert.Equal(t, "vms", n.Parent.Name)

	n, err = Normalize(reg, Input{Verb: "GET", Collection: "vms"})
	require.NoError(t, err)
	assert.Equal(t, "vms", n.Descriptor.Name)
	assert.Nil(t, n.Parent)
}

func TestNormalize_RequestErrors(t *testing.T) {
	reg := testRegistry(t)

	tests := []struct {
		name     string
		in       Input
		kind     error
		wantText string
	}{
		{
			name:     "unknown collection",
			in:       Input{Verb: "GET", Collection: "widgets"},
			kind:     apperrors.ErrNotFound,
			wantText: "Unsupported collection widgets specified",
		},
		{
			name:     "subcollection only collection at top level",
			in:       Input{Verb: "GET", Collection: "snapshots"},
			kind:     apperrors.ErrNotFound,
			wantText: "Unsupported collection snapshots specified",
		},
		{
			name:     "undeclared subcollection",
			in:       Input{Verb: "GET", Collection: "zones", ResourceID: "1", Subcollection: "snapshots"},
			kind:     apperrors.ErrNotFound,
			wantText: "Unsupported subcollection snapshots specified for zones",
		},
		{
			name:     "id on create",
			in:       Input{Verb: "POST", Collection: "zones", Body: []byte(`{"id":"9","name":"x"}`)},
			kind:     apperrors.ErrBadRequest,
			wantText: "Resource id or href should not be specified for creating a new zones",
		},
		{
			name:     "href on create",
			in:       Input{Verb: "POST", Collection: "zones", Body: []byte(`{"href":"zones/9"}`)},
			kind:     apperrors.ErrBadRequest,
			wantText: "Resource id or href should not be specified for creating a new zones",
		},
		{
			name:     "attributes outside allow list",
			in:       Input{Verb: "POST", Collection: "zones", ResourceID: "1", Body: []byte(`{"name":"a","foo":1,"bar":2}`)},
			kind:     apperrors.ErrBadRequest,
			wantText: "Invalid attribute(s) specified: bar, foo",
		},
		{
			name:     "unknown action",
			in:       Input{Verb: "POST", Collection: "zones", ResourceID: "1", Body: []byte(`{"action":"explode"}`)},
			kind:     apperrors.ErrBadRequest,
			wantText: "Unsupported Action explode for the zones resource specified",
		},
		{
			name:     "verb not allowed for action",
			in:       Input{Verb: "PUT", Collection: "notifications", ResourceID: "1", Body: []byte(`{}`)},
			kind:     apperrors.ErrBadRequest,
			wantText: "Unsupported Action edit for the notifications resource specified",
		},
		{
			name: "delete verb on collection",
			in:   Input{Verb: "DELETE", Collection: "zones"},
			kind: apperrors.ErrBadRequest,
		},
		{
			name:     "invalid json",
			in:       Input{Verb: "POST", Collection: "zones", Body: []byte(`{"name":`)},
			kind:     apperrors.ErrBadRequest,
			wantText: "Invalid request body, expected a JSON object",
		},
		{
			name:     "non object body",
			in:       Input{Verb: "POST", Collection: "zones", Body: []byte(`[1,2]`)},
			kind:     apperrors.ErrBadRequest,
			wantText: "Invalid request body, expected a JSON object",
		},
		{
			name:     "resources not an array",
			in:       Input{Verb: "POST", Collection: "zones", Body: []byte(`{"action":"delete","resources":{"id":1}}`)},
			kind:     apperrors.ErrBadRequest,
			wantText: "Invalid resources specified, must be an array",
		},
		{
			name:     "collection action without target",
			in:       Input{Verb: "POST", Collection: "vms", Body: []byte(`{"action":"start"}`)},
			kind:     apperrors.ErrBadRequest,
			wantText: "No vms resources specified for the start action",
		},
		{
			name:     "non string action",
			in:       Input{Verb: "POST", Collection: "vms", Body: []byte(`{"action":5}`)},
			kind:     apperrors.ErrBadRequest,
			wantText: "Invalid action specified, must be a string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.BaseURL = baseURL
			_, err := Normalize(reg, tt.in)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, tt.kind), "unexpected kind: %v", err)
			if tt.wantText != "" {
				assert.Equal(t, tt.wantText, apperrors.Message(err))
			}
		})
	}
}

func TestNormalize_BulkItemErrors(t *testing.T) {
	reg := testRegistry(t)

	t.Run("create entries are validated independently", func(t *testing.T) {
		n, err := Normalize(reg, Input{
			Verb:       "POST",
			BaseURL:    baseURL,
			Collection: "zones",
			Body: []byte(`{"action":"create","resources":[` +
				`{"name":"a"},{"id":"5","name":"b"},{"name":"c","bogus":true},"oops"]}`),
		})
		require.NoError(t, err)
		require.Len(t, n.Request.Targets, 4)

		assert.NoError(t, n.Request.Targets[0].Err)
		assert.Equal(t, "a", n.Request.Targets[0].Payload["name"])
		assert.Equal(t,
			"Resource id or href should not be specified for creating a new zones",
			apperrors.Message(n.Request.Targets[1].Err))
		assert.Equal(t, "Invalid attribute(s) specified: bogus", apperrors.Message(n.Request.Targets[2].Err))
		assert.True(t, apperrors.Is(n.Request.Targets[3].Err, apperrors.ErrBadRequest))
	})

	t.Run("edit entries keep identity out of the payload", func(t *testing.T) {
		n, err := Normalize(reg, Input{
			Verb:       "POST",
			BaseURL:    baseURL,
			Collection: "zones",
			Body:       []byte(`{"action":"edit","resources":[{"id":"2","description":"d"},{"id":"3","nope":1}]}`),
		})
		require.NoError(t, err)

		first := n.Request.Targets[0]
		assert.Equal(t, "2", first.ID)
		assert.Equal(t, map[string]any{"description": "d"}, first.Payload)
		assert.NoError(t, first.Err)
		assert.Equal(t, "Invalid attribute(s) specified: nope", apperrors.Message(n.Request.Targets[1].Err))
	})

	t.Run("query by alternate identifiers", func(t *testing.T) {
		n, err := Normalize(reg, Input{
			Verb:       "POST",
			BaseURL:    baseURL,
			Collection: "vms",
			Body:       []byte(`{"action":"query","resources":[{"guid":"abc"},{"id":"1","href":"vms/1"}]}`),
		})
		require.NoError(t, err)

		assert.Equal(t, map[string]any{"guid": "abc"}, n.Request.Targets[0].Attributes)
		assert.Equal(t, "1", n.Request.Targets[1].ID)
		assert.Empty(t, n.Request.Targets[1].Href)
	})

	t.Run("conflicting id and href", func(t *testing.T) {
		n, err := Normalize(reg, Input{
			Verb:       "POST",
			BaseURL:    baseURL,
			Collection: "vms",
			Body:       []byte(`{"action":"query","resources":[{"id":"1","href":"vms/2"}]}`),
		})
		require.NoError(t, err)
		assert.True(t, apperrors.Is(n.Request.Targets[0].Err, apperrors.ErrBadRequest))
	})

	t.Run("shared payload is kept", func(t *testing.T) {
		n, err := Normalize(reg, Input{
			Verb:       "POST",
			BaseURL:    baseURL,
			Collection: "requests",
			Body:       []byte(`{"action":"approve","reason":"ok","resources":[{"id":"1"}]}`),
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"reason": "ok"}, n.Request.Payload)
	})
}

func TestNormalize_Patch(t *testing.T) {
	reg := testRegistry(t)

	t.Run("operations fold into payload", func(t *testing.T) {
		n, err := Normalize(reg, Input{
			Verb:       "PATCH",
			BaseURL:    baseURL,
			Collection: "alert_definitions",
			ResourceID: "1",
			Body: []byte(`[` +
				`{"action":"edit","path":"description","value":"new"},` +
				`{"action":"add","path":"/severity","value":"error"},` +
				`{"action":"remove","path":"miq_expression"}]`),
		})
		require.NoError(t, err)
		assert.Equal(t, "edit", n.Request.Action)
		assert.Equal(t, map[string]any{
			"description":    "new",
			"severity":       "error",
			"miq_expression": nil,
		}, n.Request.Targets[0].Payload)
	})

	t.Run("object body is rejected", func(t *testing.T) {
		_, err := Normalize(reg, Input{
			Verb:       "PATCH",
			Collection: "zones",
			ResourceID: "1",
			Body:       []byte(`{"name":"x"}`),
		})
		assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
	})

	t.Run("unknown operation", func(t *testing.T) {
		_, err := Normalize(reg, Input{
			Verb:       "PATCH",
			Collection: "zones",
			ResourceID: "1",
			Body:       []byte(`[{"action":"move","path":"name"}]`),
		})
		assert.Equal(t, "Unsupported PATCH action move specified", apperrors.Message(err))
	})
}

func TestNormalize_CreateResourceWrapper(t *testing.T) {
	reg := testRegistry(t)

	n, err := Normalize(reg, Input{
		Verb:       "POST",
		BaseURL:    baseURL,
		Collection: "zones",
		Body:       []byte(`{"action":"create","resource":{"name":"east"}}`),
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "east"}, n.Request.Targets[0].Payload)
}
