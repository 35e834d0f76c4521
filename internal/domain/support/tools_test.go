package support

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/envelope"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

func writeCaller() models.CallerContext {
	return models.CallerContext{UserID: "u1", Roles: models.RoleSet{models.RoleSupportWrite}}
}

func seedTicket(id, status string) Ticket {
	return Ticket{
		ID:           id,
		Subject:      "Cannot log in",
		Body:         "I keep getting a 500 error",
		Customer:     "Acme Corp",
		Status:       status,
		Priority:     "high",
		ContactEmail: "user@acme.test",
		ContactPhone: "555-0100",
		CreatedAt:    time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestCloseTicket_RequiresConfirmation(t *testing.T) {
	store := NewMemoryStore(seedTicket("t1", "open"))
	tool := &closeTicketTool{store: store}
	caller := writeCaller()

	resp := tool.Invoke(context.Background(), caller, json.RawMessage(`{"ticket_id":"t1"}`))
	require.Equal(t, envelope.VariantPendingConfirmation, resp.Variant)
	require.NotEmpty(t, resp.Pending.ConfirmationID)

	tk, err := store.Get(context.Background(), caller.SessionVariables(), "t1")
	require.NoError(t, err)
	require.Equal(t, "open", tk.Status, "ticket must remain open after the pending call")

	exec := tool.Execute(context.Background(), caller, resp.Pending.Data)
	require.Equal(t, envelope.VariantSuccess, exec.Variant)

	tk, err = store.Get(context.Background(), caller.SessionVariables(), "t1")
	require.NoError(t, err)
	require.Equal(t, "closed", tk.Status)
}

func TestCloseTicket_ExecuteRejectsForeignOriginator(t *testing.T) {
	store := NewMemoryStore(seedTicket("t1", "open"))
	tool := &closeTicketTool{store: store}
	originator := writeCaller()

	resp := tool.Invoke(context.Background(), originator, json.RawMessage(`{"ticket_id":"t1"}`))
	require.Equal(t, envelope.VariantPendingConfirmation, resp.Variant)

	intruder := models.CallerContext{UserID: "u2", Roles: models.RoleSet{models.RoleSupportWrite}}
	exec := tool.Execute(context.Background(), intruder, resp.Pending.Data)
	require.Equal(t, envelope.VariantError, exec.Variant)
	require.Equal(t, envelope.CodeInvalidContext, exec.Err.Code)

	tk, err := store.Get(context.Background(), originator.SessionVariables(), "t1")
	require.NoError(t, err)
	require.Equal(t, "open", tk.Status, "ticket must survive a foreign execute attempt")
}

func TestDeleteTicket_ExecuteRejectsForeignOriginator(t *testing.T) {
	store := NewMemoryStore(seedTicket("t1", "open"))
	tool := &deleteTicketTool{store: store}
	originator := writeCaller()

	resp := tool.Invoke(context.Background(), originator, json.RawMessage(`{"ticket_id":"t1"}`))
	require.Equal(t, envelope.VariantPendingConfirmation, resp.Variant)

	intruder := models.CallerContext{UserID: "u2", Roles: models.RoleSet{models.RoleSupportWrite}}
	exec := tool.Execute(context.Background(), intruder, resp.Pending.Data)
	require.Equal(t, envelope.VariantError, exec.Variant)
	require.Equal(t, envelope.CodeInvalidContext, exec.Err.Code)

	_, err := store.Get(context.Background(), originator.SessionVariables(), "t1")
	require.NoError(t, err, "ticket must survive a foreign execute attempt")
}

func TestDeleteTicket_ConfirmThenGone(t *testing.T) {
	store := NewMemoryStore(seedTicket("t1", "open"))
	tool := &deleteTicketTool{store: store}
	caller := writeCaller()

	resp := tool.Invoke(context.Background(), caller, json.RawMessage(`{"ticket_id":"t1"}`))
	require.Equal(t, envelope.VariantPendingConfirmation, resp.Variant)

	exec := tool.Execute(context.Background(), caller, resp.Pending.Data)
	require.Equal(t, envelope.VariantSuccess, exec.Variant)

	_, err := store.Get(context.Background(), caller.SessionVariables(), "t1")
	require.ErrorIs(t, err, ErrNotFound)
}
