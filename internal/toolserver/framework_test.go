package toolserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/envelope"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

// echoTool is a read tool that reflects its arguments back.
type echoTool struct{}

func (echoTool) Descriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        "echo_record",
		Server:      "test",
		Description: "Echo the record id back.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"record_id": {"type": "string"},
				"limit": {"type": "integer", "minimum": 1, "maximum": 50}
			},
			"required": ["record_id"],
			"additionalProperties": false
		}`),
		RequiredRoles: models.RoleSet{models.RoleSupportRead},
	}
}

func (echoTool) Invoke(ctx context.Context, caller models.CallerContext, args json.RawMessage) envelope.ToolResponse {
	return envelope.NewSuccess(args, nil)
}

// dropTool is a destructive tool: Invoke issues a pending envelope and
// Execute records that it ran.
type dropTool struct {
	executed *bool
}

func (d dropTool) Descriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        "drop_record",
		Server:      "test",
		Description: "Delete a record. Requires user confirmation.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {"record_id": {"type": "string"}},
			"required": ["record_id"],
			"additionalProperties": false
		}`),
		RequiredRoles: models.RoleSet{models.RoleSupportWrite},
		Write:         true,
		Destructive:   true,
	}
}

func (d dropTool) Invoke(ctx context.Context, caller models.CallerContext, args json.RawMessage) envelope.ToolResponse {
	data, _ := json.Marshal(map[string]string{"recordId": "r-1", "userId": caller.UserID})
	return envelope.NewPending("conf-1", "Delete record?", data)
}

func (d dropTool) Execute(ctx context.Context, caller models.CallerContext, confirmation json.RawMessage) envelope.ToolResponse {
	var data struct {
		RecordID string `json:"recordId"`
		UserID   string `json:"userId"`
	}
	if err := json.Unmarshal(confirmation, &data); err != nil || data.RecordID == "" {
		return envelope.NewError(envelope.CodeValidationError, "malformed confirmation data")
	}
	if data.UserID != caller.UserID {
		return envelope.NewError(envelope.CodeInvalidContext, "confirmation was issued to a different user")
	}
	*d.executed = true
	return envelope.NewSuccess(json.RawMessage(`{"status":"deleted"}`), nil)
}

func newTestFrameworkServer(t *testing.T) (*Server, *bool, *httptest.Server) {
	t.Helper()
	executed := false
	srv := New("test", nil)
	srv.Register(echoTool{})
	srv.Register(dropTool{executed: &executed})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return srv, &executed, ts
}

func postTool(t *testing.T, ts *httptest.Server, path string, caller *models.CallerContext, body string) envelope.ToolResponse {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		SetCallerHeaders(req.Header, *caller)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode, "tool servers always answer 200; the envelope is the protocol")
	var out envelope.ToolResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NoError(t, out.Validate())
	return out
}

func supportReader() models.CallerContext {
	return models.CallerContext{
		UserID: "user-1",
		Roles:  models.RoleSet{models.RoleSupportRead},
	}
}

func TestDiscoverListsRegisteredTools(t *testing.T) {
	_, _, ts := newTestFrameworkServer(t)

	resp, err := http.Post(ts.URL+"/tools/discover", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	var descriptors []models.ToolDescriptor
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&descriptors))
	require.Len(t, descriptors, 2)
	assert.Equal(t, "echo_record", descriptors[0].Name)
	assert.Equal(t, "drop_record", descriptors[1].Name)
	assert.True(t, descriptors[1].Destructive)
}

func TestInvokeRequiresCallerContext(t *testing.T) {
	_, _, ts := newTestFrameworkServer(t)

	out := postTool(t, ts, "/tools/echo_record", nil, `{"record_id":"r-1"}`)
	require.Equal(t, envelope.VariantError, out.Variant)
	assert.Equal(t, envelope.CodeInvalidContext, out.Err.Code)
}

func TestInvokeUnknownTool(t *testing.T) {
	_, _, ts := newTestFrameworkServer(t)
	caller := supportReader()

	out := postTool(t, ts, "/tools/no_such_tool", &caller, `{}`)
	require.Equal(t, envelope.VariantError, out.Variant)
	assert.Equal(t, envelope.CodeNotFound, out.Err.Code)
}

func TestInvokeValidatesArguments(t *testing.T) {
	_, _, ts := newTestFrameworkServer(t)
	caller := supportReader()

	t.Run("missing required field", func(t *testing.T) {
		out := postTool(t, ts, "/tools/echo_record", &caller, `{}`)
		require.Equal(t, envelope.VariantError, out.Variant)
		assert.Equal(t, envelope.CodeValidationError, out.Err.Code)
	})

	t.Run("field-qualified message", func(t *testing.T) {
		out := postTool(t, ts, "/tools/echo_record", &caller, `{"record_id":"r-1","limit":999}`)
		require.Equal(t, envelope.VariantError, out.Variant)
		assert.Equal(t, envelope.CodeValidationError, out.Err.Code)
		assert.Contains(t, out.Err.Message, "limit")
	})

	t.Run("unknown property rejected", func(t *testing.T) {
		out := postTool(t, ts, "/tools/echo_record", &caller, `{"record_id":"r-1","bogus":true}`)
		require.Equal(t, envelope.VariantError, out.Variant)
		assert.Equal(t, envelope.CodeValidationError, out.Err.Code)
	})
}

func TestInvokeEnforcesRoles(t *testing.T) {
	_, _, ts := newTestFrameworkServer(t)
	caller := models.CallerContext{UserID: "user-1", Roles: models.RoleSet{models.RoleHRRead}}

	out := postTool(t, ts, "/tools/echo_record", &caller, `{"record_id":"r-1"}`)
	require.Equal(t, envelope.VariantError, out.Variant)
	assert.Equal(t, envelope.CodeInsufficientPerms, out.Err.Code)
}

func TestInvokeSuccess(t *testing.T) {
	_, _, ts := newTestFrameworkServer(t)
	caller := supportReader()

	out := postTool(t, ts, "/tools/echo_record", &caller, `{"record_id":"r-1"}`)
	require.Equal(t, envelope.VariantSuccess, out.Variant)
	assert.JSONEq(t, `{"record_id":"r-1"}`, string(out.Success.Data))
}

func TestDestructiveInvokeReturnsPendingWithoutExecuting(t *testing.T) {
	_, executed, ts := newTestFrameworkServer(t)
	caller := models.CallerContext{UserID: "user-1", Roles: models.RoleSet{models.RoleSupportWrite}}

	out := postTool(t, ts, "/tools/drop_record", &caller, `{"record_id":"r-1"}`)
	require.Equal(t, envelope.VariantPendingConfirmation, out.Variant)
	assert.Equal(t, "conf-1", out.Pending.ConfirmationID)
	assert.False(t, *executed, "first invocation must not mutate")
}

func TestExecuteRunsDestructiveAction(t *testing.T) {
	_, executed, ts := newTestFrameworkServer(t)
	caller := models.CallerContext{UserID: "user-1", Roles: models.RoleSet{models.RoleSupportWrite}}

	out := postTool(t, ts, "/execute", &caller, `{"tool":"drop_record","data":{"recordId":"r-1","userId":"user-1"}}`)
	require.Equal(t, envelope.VariantSuccess, out.Variant)
	assert.True(t, *executed)
}

func TestExecuteReVerifiesOriginator(t *testing.T) {
	_, executed, ts := newTestFrameworkServer(t)
	// right role, but the confirmation was issued to someone else
	caller := models.CallerContext{UserID: "user-2", Roles: models.RoleSet{models.RoleSupportWrite}}

	out := postTool(t, ts, "/execute", &caller, `{"tool":"drop_record","data":{"recordId":"r-1","userId":"user-1"}}`)
	require.Equal(t, envelope.VariantError, out.Variant)
	assert.Equal(t, envelope.CodeInvalidContext, out.Err.Code)
	assert.False(t, *executed, "a mismatched originator must never execute")
}

func TestExecuteRejectsNonExecutableTool(t *testing.T) {
	_, _, ts := newTestFrameworkServer(t)
	caller := supportReader()

	out := postTool(t, ts, "/execute", &caller, `{"tool":"echo_record","data":{}}`)
	require.Equal(t, envelope.VariantError, out.Variant)
	assert.Equal(t, envelope.CodeProtocolViolation, out.Err.Code)
}

func TestExecuteReChecksRoles(t *testing.T) {
	_, executed, ts := newTestFrameworkServer(t)
	caller := supportReader() // read role only

	out := postTool(t, ts, "/execute", &caller, `{"tool":"drop_record","data":{"recordId":"r-1","userId":"user-1"}}`)
	require.Equal(t, envelope.VariantError, out.Variant)
	assert.Equal(t, envelope.CodeInsufficientPerms, out.Err.Code)
	assert.False(t, *executed)
}
