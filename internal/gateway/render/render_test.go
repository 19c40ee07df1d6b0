package render

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authzDomain "github.com/allisson/resourcegateway/internal/authz/domain"
	"github.com/allisson/resourcegateway/internal/authz/usecase/mocks"
	"github.com/allisson/resourcegateway/internal/gateway/dispatch"
	"github.com/allisson/resourcegateway/internal/gateway/domain"
	"github.com/allisson/resourcegateway/internal/gateway/executor"
	"github.com/allisson/resourcegateway/internal/gateway/registry"
	identityDomain "github.com/allisson/resourcegateway/internal/identity/domain"
)

const baseURL = "http://localhost/api"

var principal = &identityDomain.Principal{
	UserID:     "4",
	Login:      "jdoe",
	Name:       "John Doe",
	GroupName:  "EvmGroup-operator",
	RoleName:   "EvmRole-operator",
	TenantName: "My Company",
}

func setup(t *testing.T, in dispatch.Input) (*Renderer, *mocks.MockAuthorizer, *dispatch.Normalized) {
	t.Helper()
	reg, err := registry.Default()
	require.NoError(t, err)

	in.BaseURL = baseURL
	n, err := dispatch.Normalize(reg, in)
	require.NoError(t, err)

	authz := &mocks.MockAuthorizer{}
	return New(reg, authz), authz, n
}

func allowOnly(authz *mocks.MockAuthorizer, actions ...string) {
	allowed := make(map[string]bool, len(actions))
	for _, a := range actions {
		allowed[a] = true
	}
	authz.On("Allowed", principal, mock.MatchedBy(func(c authzDomain.Check) bool {
		return allowed[c.Action]
	})).Return(true)
	authz.On("Allowed", principal, mock.MatchedBy(func(c authzDomain.Check) bool {
		return !allowed[c.Action]
	})).Return(false)
}

func TestRenderer_List(t *testing.T) {
	r, authz, n := setup(t, dispatch.Input{Verb: "GET", Collection: "zones"})
	allowOnly(authz, "query", "create")

	listing := &executor.Listing{Descriptor: n.Descriptor, Total: 4, Entities: zones()}

	t.Run("hrefs only", func(t *testing.T) {
		q, err := ParseQuery(url.Values{"filter[]": {"name=east%"}, "limit": {"1"}})
		require.NoError(t, err)

		out := r.List(principal, n, listing, q)
		assert.Equal(t, "zones", out.Name)
		assert.Equal(t, 4, out.Count)
		assert.Equal(t, 2, out.Subcount)
		assert.Equal(t, 2, out.Pages)
		assert.Equal(t, []map[string]any{{"href": baseURL + "/zones/2"}}, out.Resources)
		assert.Equal(t, []Action{
			{Name: "query", Method: "post", Href: baseURL + "/zones"},
			{Name: "create", Method: "post", Href: baseURL + "/zones"},
		}, out.Actions)
	})

	t.Run("expanded with attributes", func(t *testing.T) {
		q, err := ParseQuery(url.Values{"expand": {"resources"}, "attributes": {"name"}, "sort_by": {"name"}})
		require.NoError(t, err)

		out := r.List(principal, n, listing, q)
		require.Len(t, out.Resources, 4)
		assert.Equal(t, map[string]any{
			"id":   "1",
			"name": "default",
			"href": baseURL + "/zones/1",
		}, out.Resources[0])
	})
}

func TestRenderer_Resource(t *testing.T) {
	r, authz, n := setup(t, dispatch.Input{Verb: "GET", Collection: "users", ResourceID: "4"})
	allowOnly(authz, "edit")

	user := domain.Entity{ID: "4", Type: "user", Attributes: map[string]any{
		"userid":          "jdoe",
		"password_digest": "secret",
	}}
	out := r.Resource(principal, n, user, Query{})

	assert.Equal(t, "jdoe", out["userid"])
	assert.Equal(t, "user", out["type"])
	assert.Equal(t, baseURL+"/users/4", out["href"])
	assert.NotContains(t, out, "password_digest")
	assert.Equal(t, []Action{
		{Name: "edit", Method: "post", Href: baseURL + "/users/4"},
		{Name: "edit", Method: "put", Href: baseURL + "/users/4"},
		{Name: "edit", Method: "patch", Href: baseURL + "/users/4"},
	}, out["actions"])
}

func TestRenderer_ResourceWithoutActions(t *testing.T) {
	r, authz, n := setup(t, dispatch.Input{Verb: "GET", Collection: "vms", ResourceID: "1", Subcollection: "snapshots", SubresourceID: "5"})
	allowOnly(authz)

	out := r.Resource(principal, n, domain.Entity{ID: "5", Type: "snapshot"}, Query{})
	assert.Equal(t, baseURL+"/vms/1/snapshots/5", out["href"])
	assert.NotContains(t, out, "actions")
}

func TestRenderer_Entrypoint(t *testing.T) {
	r, _, _ := setup(t, dispatch.Input{Verb: "GET", Collection: "zones"})

	out := r.Entrypoint(principal, baseURL)
	assert.Equal(t, "API", out.Name)
	assert.Equal(t, "3.0.0", out.Version)
	assert.Equal(t, Identity{
		UserID: "jdoe",
		Name:   "John Doe",
		Group:  "EvmGroup-operator",
		Role:   "EvmRole-operator",
		Tenant: "My Company",
	}, out.Identity)

	names := make([]string, 0, len(out.Collections))
	for _, c := range out.Collections {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "zones")
	assert.Contains(t, names, "tasks")
	assert.NotContains(t, names, "snapshots")
	assert.NotContains(t, names, "features")
	assert.Contains(t, out.Collections, CollectionRef{Name: "zones", Href: baseURL + "/zones", Description: "Zones"})
}
