package finance

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/envelope"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/toolserver"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

var unmaskedRoles = models.RoleSet{models.RoleFinanceWrite}

const defaultLimit = 20

type invoiceView struct {
	ID         string                  `json:"id"`
	Customer   string                  `json:"customer"`
	Amount     toolserver.MaskedNumber `json:"amount"`
	Currency   string                  `json:"currency"`
	Status     string                  `json:"status"`
	IssuedAt   string                  `json:"issuedAt"`
	DueAt      string                  `json:"dueAt"`
	VoidReason string                  `json:"voidReason,omitempty"`
}

func toView(inv Invoice, caller models.CallerContext) invoiceView {
	return invoiceView{
		ID:         inv.ID,
		Customer:   inv.Customer,
		Amount:     toolserver.Number(inv.Amount, caller, unmaskedRoles),
		Currency:   inv.Currency,
		Status:     inv.Status,
		IssuedAt:   inv.IssuedAt.Format(time.RFC3339),
		DueAt:      inv.DueAt.Format(time.RFC3339),
		VoidReason: inv.VoidReason,
	}
}

// RegisterAll wires every Finance tool onto server backed by store.
func RegisterAll(server *toolserver.Server, store Store, maxLimit int) {
	server.Register(&listInvoicesTool{store: store, maxLimit: maxLimit})
	server.Register(&getInvoiceTool{store: store})
	server.Register(&voidInvoiceTool{store: store})
}

// --- list_invoices ---

type listInvoicesTool struct {
	store    Store
	maxLimit int
}

type listInvoicesInput struct {
	Status string `json:"status,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Cursor string `json:"cursor,omitempty"`
}

func (t *listInvoicesTool) Descriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        "list_invoices",
		Server:      "finance",
		Description: "List invoices, optionally filtered by status.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"status": {"type": "string", "enum": ["open", "paid", "void"]},
				"limit": {"type": "integer", "minimum": 1, "maximum": 50},
				"cursor": {"type": "string"}
			},
			"additionalProperties": false
		}`),
		RequiredRoles: models.RoleSet{models.RoleFinanceRead},
	}
}

func (t *listInvoicesTool) Invoke(ctx context.Context, caller models.CallerContext, args json.RawMessage) envelope.ToolResponse {
	var in listInvoicesInput
	if len(args) > 0 {
		if err := json.Unmarshal(args, &in); err != nil {
			return envelope.NewError(envelope.CodeValidationError, "malformed arguments")
		}
	}
	limit := envelope.ClampLimit(in.Limit, defaultLimit, t.maxLimit)

	filter := ListFilter{Status: in.Status, Limit: limit}
	if in.Cursor != "" {
		cur, err := envelope.DecodeCursor(in.Cursor)
		if err != nil {
			return envelope.NewError(envelope.CodeInvalidCursor, "cursor is unparseable or stale")
		}
		date, ok1 := cur.String("issuedAt")
		id, ok2 := cur.String("id")
		if !ok1 || !ok2 {
			return envelope.NewError(envelope.CodeInvalidCursor, "cursor is unparseable or stale")
		}
		filter.AfterDate = &date
		filter.AfterID = id
	}

	rows, err := t.store.List(ctx, caller.SessionVariables(), filter)
	if err != nil {
		return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to list invoices", "", err.Error())
	}
	page, err := envelope.BuildPage(rows, limit, func(inv Invoice) map[string]any {
		return map[string]any{"issuedAt": inv.IssuedAt.Format(time.RFC3339), "id": inv.ID}
	})
	if err != nil {
		return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to build page", "", err.Error())
	}

	views := make([]invoiceView, 0, len(page.Items))
	for _, inv := range page.Items {
		views = append(views, toView(inv, caller))
	}
	data, err := json.Marshal(views)
	if err != nil {
		return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to encode response", "", err.Error())
	}

	return envelope.NewSuccess(data, &envelope.Pagination{
		HasMore:       page.HasMore,
		NextCursor:    page.NextCursor,
		ReturnedCount: len(page.Items),
	})
}

// --- get_invoice ---

type getInvoiceTool struct {
	store Store
}

type getInvoiceInput struct {
	InvoiceID string `json:"invoice_id"`
}

func (t *getInvoiceTool) Descriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        "get_invoice",
		Server:      "finance",
		Description: "Fetch a single invoice by id.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"invoice_id": {"type": "string", "format": "uuid"}
			},
			"required": ["invoice_id"],
			"additionalProperties": false
		}`),
		RequiredRoles: models.RoleSet{models.RoleFinanceRead},
	}
}

func (t *getInvoiceTool) Invoke(ctx context.Context, caller models.CallerContext, args json.RawMessage) envelope.ToolResponse {
	var in getInvoiceInput
	if err := json.Unmarshal(args, &in); err != nil {
		return envelope.NewError(envelope.CodeValidationError, "malformed arguments")
	}
	inv, err := t.store.Get(ctx, caller.SessionVariables(), in.InvoiceID)
	if err != nil {
		if err == ErrNotFound {
			return envelope.NewError(envelope.CodeNotFound, "invoice not found")
		}
		return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to fetch invoice", "", err.Error())
	}
	data, err := json.Marshal(toView(inv, caller))
	if err != nil {
		return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to encode response", "", err.Error())
	}
	return envelope.NewSuccess(data, nil)
}

// --- void_invoice (destructive) ---

type voidInvoiceTool struct {
	store Store
}

type voidInvoiceInput struct {
	InvoiceID string `json:"invoice_id"`
	Reason    string `json:"reason,omitempty"`
}

// voidConfirmation always carries the originating caller's user id so
// Execute can re-verify ownership independently of the Gateway.
type voidConfirmation struct {
	InvoiceID string `json:"invoiceId"`
	Reason    string `json:"reason,omitempty"`
	UserID    string `json:"userId"`
}

func (t *voidInvoiceTool) Descriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        "void_invoice",
		Server:      "finance",
		Description: "Void an invoice. Requires user confirmation.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"invoice_id": {"type": "string", "format": "uuid"},
				"reason": {"type": "string", "maxLength": 500}
			},
			"required": ["invoice_id"],
			"additionalProperties": false
		}`),
		RequiredRoles: models.RoleSet{models.RoleFinanceWrite},
		Write:         true,
		Destructive:   true,
	}
}

func (t *voidInvoiceTool) Invoke(ctx context.Context, caller models.CallerContext, args json.RawMessage) envelope.ToolResponse {
	var in voidInvoiceInput
	if err := json.Unmarshal(args, &in); err != nil {
		return envelope.NewError(envelope.CodeValidationError, "malformed arguments")
	}
	inv, err := t.store.Get(ctx, caller.SessionVariables(), in.InvoiceID)
	if err != nil {
		if err == ErrNotFound {
			return envelope.NewError(envelope.CodeNotFound, "invoice not found")
		}
		return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to fetch invoice", "", err.Error())
	}
	if inv.Status == "void" {
		return envelope.NewError(envelope.CodeOperationFailed, "invoice is already void")
	}

	data, _ := json.Marshal(voidConfirmation{InvoiceID: inv.ID, Reason: in.Reason, UserID: caller.UserID})
	return envelope.NewPending(
		uuid.NewString(),
		fmt.Sprintf("Void invoice %s for %s (%s %.2f)?", inv.ID, inv.Customer, inv.Currency, inv.Amount),
		data,
	)
}

func (t *voidInvoiceTool) Execute(ctx context.Context, caller models.CallerContext, confirmation json.RawMessage) envelope.ToolResponse {
	var data voidConfirmation
	if err := json.Unmarshal(confirmation, &data); err != nil || data.InvoiceID == "" {
		return envelope.NewError(envelope.CodeValidationError, "malformed confirmation data")
	}
	if data.UserID != caller.UserID {
		return envelope.NewError(envelope.CodeInvalidContext, "confirmation was issued to a different user")
	}
	if err := t.store.Void(ctx, caller.SessionVariables(), data.InvoiceID, data.Reason); err != nil {
		switch err {
		case ErrNotFound:
			return envelope.NewError(envelope.CodeNotFound, "invoice not found")
		case ErrAlreadyVoid:
			return envelope.NewError(envelope.CodeOperationFailed, "invoice is already void")
		default:
			return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to void invoice", "", err.Error())
		}
	}
	result, _ := json.Marshal(map[string]any{"status": "voided", "invoiceId": data.InvoiceID})
	return envelope.NewSuccess(result, nil)
}
