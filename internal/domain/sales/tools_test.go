package sales

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/envelope"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

func readCaller(roles ...models.Role) models.CallerContext {
	return models.CallerContext{UserID: "u1", Roles: models.RoleSet(roles)}
}

func seedDeals(n int, stage string) []Deal {
	out := make([]Deal, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Deal{
			ID:                idFor(i),
			Name:              fmt.Sprintf("Deal %d", i),
			Company:           "Acme Corp",
			Owner:             "u2",
			Stage:             stage,
			Amount:            5000 + float64(i),
			ContactEmail:      "buyer@acme.test",
			ExpectedCloseDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			CreatedAt:         time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
		})
	}
	return out
}

// idFor produces fixed-width hex-ish ids so lexicographic order tracks
// insertion order, mirroring an ObjectID's monotonic byte ordering.
func idFor(i int) string {
	return fmt.Sprintf("%024x", i+1)
}

func TestListDeals_Pagination(t *testing.T) {
	store := NewMemoryStore(seedDeals(59, "prospecting")...)
	tool := &listDealsTool{store: store, maxLimit: 50}
	caller := readCaller(models.RoleSalesRead)

	resp := tool.Invoke(context.Background(), caller, json.RawMessage(`{"stage":"prospecting","limit":50}`))
	require.Equal(t, envelope.VariantSuccess, resp.Variant)
	require.True(t, resp.Success.Pagination.HasMore)
	require.Equal(t, 50, resp.Success.Pagination.ReturnedCount)
	require.NotEmpty(t, resp.Success.Pagination.NextCursor)

	next := tool.Invoke(context.Background(), caller, json.RawMessage(`{"stage":"prospecting","limit":50,"cursor":"`+resp.Success.Pagination.NextCursor+`"}`))
	require.Equal(t, envelope.VariantSuccess, next.Variant)
	require.False(t, next.Success.Pagination.HasMore)
	require.Equal(t, 9, next.Success.Pagination.ReturnedCount)
}

func TestListDeals_RedactsAmountForReadOnlyCaller(t *testing.T) {
	store := NewMemoryStore(seedDeals(1, "prospecting")...)
	tool := &listDealsTool{store: store, maxLimit: 50}
	caller := readCaller(models.RoleSalesRead)

	resp := tool.Invoke(context.Background(), caller, json.RawMessage(`{}`))
	require.Equal(t, envelope.VariantSuccess, resp.Variant)

	var views []map[string]any
	require.NoError(t, json.Unmarshal(resp.Success.Data, &views))
	require.Len(t, views, 1)
	require.Equal(t, "*** (Hidden)", views[0]["amount"])
	require.Equal(t, "*** (Hidden)", views[0]["contactEmail"])
}

func TestListDeals_UnmasksForSalesWrite(t *testing.T) {
	store := NewMemoryStore(seedDeals(1, "prospecting")...)
	tool := &listDealsTool{store: store, maxLimit: 50}
	caller := readCaller(models.RoleSalesWrite)

	resp := tool.Invoke(context.Background(), caller, json.RawMessage(`{}`))
	var views []map[string]any
	require.NoError(t, json.Unmarshal(resp.Success.Data, &views))
	require.EqualValues(t, 5000, views[0]["amount"])
	require.Equal(t, "buyer@acme.test", views[0]["contactEmail"])
}

func TestCloseDeal_RequiresConfirmation(t *testing.T) {
	seed := seedDeals(1, "negotiation")
	store := NewMemoryStore(seed...)
	tool := &closeDealTool{store: store}
	caller := readCaller(models.RoleSalesWrite)

	resp := tool.Invoke(context.Background(), caller, json.RawMessage(`{"deal_id":"`+seed[0].ID+`","outcome":"won"}`))
	require.Equal(t, envelope.VariantPendingConfirmation, resp.Variant)
	require.NotEmpty(t, resp.Pending.ConfirmationID)

	d, err := store.Get(context.Background(), caller.SessionVariables(), seed[0].ID)
	require.NoError(t, err)
	require.Equal(t, "negotiation", d.Stage, "deal must remain open after the pending call")

	exec := tool.Execute(context.Background(), caller, resp.Pending.Data)
	require.Equal(t, envelope.VariantSuccess, exec.Variant)

	d, err = store.Get(context.Background(), caller.SessionVariables(), seed[0].ID)
	require.NoError(t, err)
	require.Equal(t, "won", d.Stage)
}

func TestCloseDeal_AlreadyClosed(t *testing.T) {
	seed := seedDeals(1, "won")
	store := NewMemoryStore(seed...)
	tool := &closeDealTool{store: store}
	caller := readCaller(models.RoleSalesWrite)

	resp := tool.Invoke(context.Background(), caller, json.RawMessage(`{"deal_id":"`+seed[0].ID+`","outcome":"lost"}`))
	require.Equal(t, envelope.VariantError, resp.Variant)
	require.Equal(t, envelope.CodeValidationError, resp.Err.Code)
}

func TestDeleteDeal_ConfirmThenGone(t *testing.T) {
	seed := seedDeals(1, "prospecting")
	store := NewMemoryStore(seed...)
	tool := &deleteDealTool{store: store}
	caller := readCaller(models.RoleSalesWrite)

	resp := tool.Invoke(context.Background(), caller, json.RawMessage(`{"deal_id":"`+seed[0].ID+`"}`))
	require.Equal(t, envelope.VariantPendingConfirmation, resp.Variant)

	exec := tool.Execute(context.Background(), caller, resp.Pending.Data)
	require.Equal(t, envelope.VariantSuccess, exec.Variant)

	_, err := store.Get(context.Background(), caller.SessionVariables(), seed[0].ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCloseDeal_ExecuteRejectsForeignOriginator(t *testing.T) {
	seed := seedDeals(1, "negotiation")
	store := NewMemoryStore(seed...)
	tool := &closeDealTool{store: store}
	originator := readCaller(models.RoleSalesWrite)

	resp := tool.Invoke(context.Background(), originator, json.RawMessage(`{"deal_id":"`+seed[0].ID+`","outcome":"won"}`))
	require.Equal(t, envelope.VariantPendingConfirmation, resp.Variant)

	intruder := models.CallerContext{UserID: "u2", Roles: models.RoleSet{models.RoleSalesWrite}}
	exec := tool.Execute(context.Background(), intruder, resp.Pending.Data)
	require.Equal(t, envelope.VariantError, exec.Variant)
	require.Equal(t, envelope.CodeInvalidContext, exec.Err.Code)

	d, err := store.Get(context.Background(), originator.SessionVariables(), seed[0].ID)
	require.NoError(t, err)
	require.Equal(t, "negotiation", d.Stage, "deal must survive a foreign execute attempt")
}

func TestGetDeal_NotFound(t *testing.T) {
	store := NewMemoryStore()
	tool := &getDealTool{store: store}
	caller := readCaller(models.RoleSalesRead)

	resp := tool.Invoke(context.Background(), caller, json.RawMessage(`{"deal_id":"missing"}`))
	require.Equal(t, envelope.VariantError, resp.Variant)
	require.Equal(t, envelope.CodeNotFound, resp.Err.Code)
}
