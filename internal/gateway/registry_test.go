package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

func descriptorFixture(name string, roles models.RoleSet, write, destructive bool) models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:          name,
		Description:   name,
		InputSchema:   json.RawMessage(`{"type":"object","additionalProperties":false}`),
		RequiredRoles: roles,
		Write:         write,
		Destructive:   destructive,
	}
}

func discoveryServer(t *testing.T, descriptors []models.ToolDescriptor) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tools/discover", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(descriptors)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestDiscoverPopulatesRegistry(t *testing.T) {
	hr := discoveryServer(t, []models.ToolDescriptor{
		descriptorFixture("list_employees", models.RoleSet{models.RoleHRRead}, false, false),
		descriptorFixture("delete_employee", models.RoleSet{models.RoleHRWrite}, true, true),
	})
	finance := discoveryServer(t, []models.ToolDescriptor{
		descriptorFixture("list_invoices", models.RoleSet{models.RoleFinanceRead}, false, false),
	})

	registry := NewToolRegistry()
	err := registry.Discover(context.Background(), http.DefaultClient, []ToolServerEndpoint{
		{Name: "hr", BaseURL: hr.URL},
		{Name: "finance", BaseURL: finance.URL},
	})
	require.NoError(t, err)

	require.Len(t, registry.All(), 3)

	d, baseURL, ok := registry.Lookup("list_employees")
	require.True(t, ok)
	assert.Equal(t, "hr", d.Server, "owning server is stamped during discovery")
	assert.Equal(t, hr.URL, baseURL)

	_, _, ok = registry.Lookup("no_such_tool")
	assert.False(t, ok)
}

func TestDiscoverFailsWhenOneServerUnreachable(t *testing.T) {
	hr := discoveryServer(t, nil)
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(broken.Close)

	registry := NewToolRegistry()
	err := registry.Discover(context.Background(), http.DefaultClient, []ToolServerEndpoint{
		{Name: "hr", BaseURL: hr.URL},
		{Name: "sales", BaseURL: broken.URL},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sales")
}

func registryFixture() *ToolRegistry {
	registry := NewToolRegistry()
	registry.tools = map[string]registeredTool{
		"list_employees":  {ToolDescriptor: withServer(descriptorFixture("list_employees", models.RoleSet{models.RoleHRRead}, false, false), "hr")},
		"delete_employee": {ToolDescriptor: withServer(descriptorFixture("delete_employee", models.RoleSet{models.RoleHRWrite}, true, true), "hr")},
		"list_invoices":   {ToolDescriptor: withServer(descriptorFixture("list_invoices", models.RoleSet{models.RoleFinanceRead}, false, false), "finance")},
	}
	return registry
}

func withServer(d models.ToolDescriptor, server string) models.ToolDescriptor {
	d.Server = server
	return d
}

func TestAllowedForIntersectsRoles(t *testing.T) {
	registry := registryFixture()
	caller := models.CallerContext{UserID: "u-1", Roles: models.RoleSet{models.RoleHRRead}}

	allowed := registry.AllowedFor(caller)
	require.Len(t, allowed, 1)
	assert.Equal(t, "list_employees", allowed[0].Name)
}

func TestAllowedForExecutiveGrantsReadsOnly(t *testing.T) {
	registry := registryFixture()
	caller := models.CallerContext{UserID: "u-1", Roles: models.RoleSet{models.RoleExecutive}}

	allowed := registry.AllowedFor(caller)
	names := make(map[string]bool, len(allowed))
	for _, d := range allowed {
		names[d.Name] = true
	}
	assert.True(t, names["list_employees"])
	assert.True(t, names["list_invoices"])
	assert.False(t, names["delete_employee"], "write tools still require an explicit write role")
}
