package hr

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/envelope"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

func readCaller(roles ...models.Role) models.CallerContext {
	return models.CallerContext{UserID: "u1", Roles: models.RoleSet(roles)}
}

func seedEmployees(n int, department string) []Employee {
	out := make([]Employee, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Employee{
			ID:         uuidFor(i),
			Name:       "Employee",
			Department: department,
			Title:      "Engineer",
			Email:      "e@example.com",
			HireDate:   time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Salary:     100000,
			GovID:      "000-00-0000",
		})
	}
	return out
}

func uuidFor(i int) string {
	return time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i).Format("20060102") + "-id"
}

func TestListEmployees_Pagination(t *testing.T) {
	store := NewMemoryStore(seedEmployees(59, "Engineering")...)
	tool := &listEmployeesTool{store: store, maxLimit: 50}
	caller := readCaller(models.RoleHRRead)

	resp := tool.Invoke(context.Background(), caller, json.RawMessage(`{"department":"Engineering","limit":50}`))
	require.Equal(t, envelope.VariantSuccess, resp.Variant)
	require.True(t, resp.Success.Pagination.HasMore)
	require.Equal(t, 50, resp.Success.Pagination.ReturnedCount)
	require.NotEmpty(t, resp.Success.Pagination.NextCursor)

	next := tool.Invoke(context.Background(), caller, json.RawMessage(`{"department":"Engineering","limit":50,"cursor":"`+resp.Success.Pagination.NextCursor+`"}`))
	require.Equal(t, envelope.VariantSuccess, next.Variant)
	require.False(t, next.Success.Pagination.HasMore)
	require.Equal(t, 9, next.Success.Pagination.ReturnedCount)
}

func TestListEmployees_RedactsSalaryForReadOnlyCaller(t *testing.T) {
	store := NewMemoryStore(seedEmployees(1, "Engineering")...)
	tool := &listEmployeesTool{store: store, maxLimit: 50}
	caller := readCaller(models.RoleHRRead)

	resp := tool.Invoke(context.Background(), caller, json.RawMessage(`{}`))
	require.Equal(t, envelope.VariantSuccess, resp.Variant)

	var views []map[string]any
	require.NoError(t, json.Unmarshal(resp.Success.Data, &views))
	require.Len(t, views, 1)
	require.Equal(t, "*** (Hidden)", views[0]["salary"])
}

func TestListEmployees_UnmasksForHRWrite(t *testing.T) {
	store := NewMemoryStore(seedEmployees(1, "Engineering")...)
	tool := &listEmployeesTool{store: store, maxLimit: 50}
	caller := readCaller(models.RoleHRWrite)

	resp := tool.Invoke(context.Background(), caller, json.RawMessage(`{}`))
	var views []map[string]any
	require.NoError(t, json.Unmarshal(resp.Success.Data, &views))
	require.EqualValues(t, 100000, views[0]["salary"])
}

func TestDeleteEmployee_RequiresConfirmation(t *testing.T) {
	seed := seedEmployees(1, "Engineering")
	store := NewMemoryStore(seed...)
	tool := &deleteEmployeeTool{store: store}
	caller := readCaller(models.RoleHRWrite)

	resp := tool.Invoke(context.Background(), caller, json.RawMessage(`{"employee_id":"`+seed[0].ID+`"}`))
	require.Equal(t, envelope.VariantPendingConfirmation, resp.Variant)
	require.NotEmpty(t, resp.Pending.ConfirmationID)

	_, err := store.Get(context.Background(), caller.SessionVariables(), seed[0].ID)
	require.NoError(t, err, "employee row must still be present after the pending call")

	exec := tool.Execute(context.Background(), caller, resp.Pending.Data)
	require.Equal(t, envelope.VariantSuccess, exec.Variant)

	_, err = store.Get(context.Background(), caller.SessionVariables(), seed[0].ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteEmployee_ExecuteRejectsForeignOriginator(t *testing.T) {
	seed := seedEmployees(1, "Engineering")
	store := NewMemoryStore(seed...)
	tool := &deleteEmployeeTool{store: store}
	originator := readCaller(models.RoleHRWrite)

	resp := tool.Invoke(context.Background(), originator, json.RawMessage(`{"employee_id":"`+seed[0].ID+`"}`))
	require.Equal(t, envelope.VariantPendingConfirmation, resp.Variant)

	intruder := models.CallerContext{UserID: "u2", Roles: models.RoleSet{models.RoleHRWrite}}
	exec := tool.Execute(context.Background(), intruder, resp.Pending.Data)
	require.Equal(t, envelope.VariantError, exec.Variant)
	require.Equal(t, envelope.CodeInvalidContext, exec.Err.Code)

	_, err := store.Get(context.Background(), originator.SessionVariables(), seed[0].ID)
	require.NoError(t, err, "row must survive a foreign execute attempt")
}

func TestGetEmployee_NotFound(t *testing.T) {
	store := NewMemoryStore()
	tool := &getEmployeeTool{store: store}
	caller := readCaller(models.RoleHRRead)

	resp := tool.Invoke(context.Background(), caller, json.RawMessage(`{"employee_id":"missing"}`))
	require.Equal(t, envelope.VariantError, resp.Variant)
	require.Equal(t, envelope.CodeNotFound, resp.Err.Code)
}
