package support

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

// unmaskedRoles may see ContactEmail and ContactPhone unredacted (on
// top of the executive super-role).
var unmaskedRoles = models.RoleSet{models.RoleSupportWrite}

const defaultLimit = 20

// ticketView is the wire shape for one row of list_tickets /
// search_tickets / get_ticket, with sensitive fields redacted per
// caller role.
type ticketView struct {
	ID           string                  `json:"id"`
	Subject      string                  `json:"subject"`
	Customer     string                  `json:"customer"`
	Status       string                  `json:"status"`
	Priority     string                  `json:"priority"`
	ContactEmail toolserver.MaskedString `json:"contactEmail"`
	ContactPhone toolserver.MaskedString `json:"contactPhone"`
	CreatedAt    string                  `json:"createdAt"`
}

// searchHitView additionally carries the relevance score the index
// assigned the ticket.
type searchHitView struct {
	ticketView
	Score float64 `json:"relevanceScore"`
}

func toView(tk Ticket, caller models.CallerContext) ticketView {
	return ticketView{
		ID:           tk.ID,
		Subject:      tk.Subject,
		Customer:     tk.Customer,
		Status:       tk.Status,
		Priority:     tk.Priority,
		ContactEmail: toolserver.String(tk.ContactEmail, caller, unmaskedRoles),
		ContactPhone: toolserver.String(tk.ContactPhone, caller, unmaskedRoles),
		CreatedAt:    tk.CreatedAt.Format(time.RFC3339),
	}
}

// RegisterAll wires every Support tool onto server backed by store,
// with maxLimit enforcing the pagination.maxLimit configuration.
func RegisterAll(server *toolserver.Server, store Store, maxLimit int) {
	server.Register(&searchTicketsTool{store: store, maxLimit: maxLimit})
	server.Register(&listTicketsTool{store: store, maxLimit: maxLimit})
	server.Register(&getTicketTool{store: store})
	server.Register(&closeTicketTool{store: store})
	server.Register(&deleteTicketTool{store: store})
}

// --- search_tickets ---

type searchTicketsTool struct {
	store    Store
	maxLimit int
}

type searchTicketsInput struct {
	Query  string `json:"query"`
	Status string `json:"status,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Cursor string `json:"cursor,omitempty"`
}

func (t *searchTicketsTool) Descriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        "search_tickets",
		Server:      "support",
		Description: "Full-text search support tickets by subject and body.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "minLength": 1, "maxLength": 200},
				"status": {"type": "string", "enum": ["open", "pending", "closed"]},
				"limit": {"type": "integer", "minimum": 1, "maximum": 50},
				"cursor": {"type": "string"}
			},
			"required": ["query"],
			"additionalProperties": false
		}`),
		RequiredRoles: models.RoleSet{models.RoleSupportRead},
	}
}

func (t *searchTicketsTool) Invoke(ctx context.Context, caller models.CallerContext, args json.RawMessage) envelope.ToolResponse {
	var in searchTicketsInput
	if err := json.Unmarshal(args, &in); err != nil {
		return envelope.NewError(envelope.CodeValidationError, "malformed arguments")
	}
	limit := envelope.ClampLimit(in.Limit, defaultLimit, t.maxLimit)

	filter := SearchFilter{Query: in.Query, Status: in.Status, Limit: limit}
	if in.Cursor != "" {
		cur, err := envelope.DecodeCursor(in.Cursor)
		if err != nil {
			return envelope.NewError(envelope.CodeInvalidCursor, "cursor is unparseable or stale")
		}
		score, ok1 := cur.Float("score")
		id, ok2 := cur.String("id")
		if !ok1 || !ok2 {
			return envelope.NewError(envelope.CodeInvalidCursor, "cursor is unparseable or stale")
		}
		filter.AfterScore = &score
		filter.AfterID = id
	}

	hits, err := t.store.Search(ctx, caller.SessionVariables(), filter)
	if err != nil {
		return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to search tickets", "", err.Error())
	}

	page, err := envelope.BuildPage(hits, limit, func(h SearchHit) map[string]any {
		return map[string]any{"score": h.Score, "id": h.Ticket.ID}
	})
	if err != nil {
		return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to build page", "", err.Error())
	}

	views := make([]searchHitView, 0, len(page.Items))
	for _, h := range page.Items {
		views = append(views, searchHitView{ticketView: toView(h.Ticket, caller), Score: h.Score})
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

// --- list_tickets ---

type listTicketsTool struct {
	store    Store
	maxLimit int
}

type listTicketsInput struct {
	Status string `json:"status,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Cursor string `json:"cursor,omitempty"`
}

func (t *listTicketsTool) Descriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        "list_tickets",
		Server:      "support",
		Description: "List support tickets, optionally filtered by status.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"status": {"type": "string", "enum": ["open", "pending", "closed"]},
				"limit": {"type": "integer", "minimum": 1, "maximum": 50},
				"cursor": {"type": "string"}
			},
			"additionalProperties": false
		}`),
		RequiredRoles: models.RoleSet{models.RoleSupportRead},
	}
}

func (t *listTicketsTool) Invoke(ctx context.Context, caller models.CallerContext, args json.RawMessage) envelope.ToolResponse {
	var in listTicketsInput
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
		date, ok1 := cur.String("createdAt")
		id, ok2 := cur.String("id")
		if !ok1 || !ok2 {
			return envelope.NewError(envelope.CodeInvalidCursor, "cursor is unparseable or stale")
		}
		filter.AfterDate = &date
		filter.AfterID = id
	}

	rows, err := t.store.List(ctx, caller.SessionVariables(), filter)
	if err != nil {
		return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to list tickets", "", err.Error())
	}

	page, err := envelope.BuildPage(rows, limit, func(tk Ticket) map[string]any {
		return map[string]any{"createdAt": tk.CreatedAt.Format(time.RFC3339), "id": tk.ID}
	})
	if err != nil {
		return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to build page", "", err.Error())
	}

	views := make([]ticketView, 0, len(page.Items))
	for _, tk := range page.Items {
		views = append(views, toView(tk, caller))
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

// --- get_ticket ---

type getTicketTool struct {
	store Store
}

type getTicketInput struct {
	TicketID string `json:"ticket_id"`
}

func (t *getTicketTool) Descriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        "get_ticket",
		Server:      "support",
		Description: "Fetch a single support ticket by id.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"ticket_id": {"type": "string"}
			},
			"required": ["ticket_id"],
			"additionalProperties": false
		}`),
		RequiredRoles: models.RoleSet{models.RoleSupportRead},
	}
}

func (t *getTicketTool) Invoke(ctx context.Context, caller models.CallerContext, args json.RawMessage) envelope.ToolResponse {
	var in getTicketInput
	if err := json.Unmarshal(args, &in); err != nil {
		return envelope.NewError(envelope.CodeValidationError, "malformed arguments")
	}
	tk, err := t.store.Get(ctx, caller.SessionVariables(), in.TicketID)
	if err != nil {
		if err == ErrNotFound {
			return envelope.NewError(envelope.CodeNotFound, "ticket not found")
		}
		return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to fetch ticket", "", err.Error())
	}
	data, err := json.Marshal(toView(tk, caller))
	if err != nil {
		return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to encode response", "", err.Error())
	}
	return envelope.NewSuccess(data, nil)
}

// --- close_ticket (destructive) ---

type closeTicketTool struct {
	store Store
}

type closeTicketInput struct {
	TicketID string `json:"ticket_id"`
}

// Confirmation payloads always carry the originating caller's user id
// so Execute can re-verify ownership independently of the Gateway.
type closeConfirmationData struct {
	TicketID string `json:"ticketId"`
	UserID   string `json:"userId"`
}

func (t *closeTicketTool) Descriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        "close_ticket",
		Server:      "support",
		Description: "Close a support ticket, ending its active thread. Requires user confirmation.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"ticket_id": {"type": "string"}
			},
			"required": ["ticket_id"],
			"additionalProperties": false
		}`),
		RequiredRoles: models.RoleSet{models.RoleSupportWrite},
		Write:         true,
		Destructive:   true,
	}
}

func (t *closeTicketTool) Invoke(ctx context.Context, caller models.CallerContext, args json.RawMessage) envelope.ToolResponse {
	var in closeTicketInput
	if err := json.Unmarshal(args, &in); err != nil {
		return envelope.NewError(envelope.CodeValidationError, "malformed arguments")
	}
	tk, err := t.store.Get(ctx, caller.SessionVariables(), in.TicketID)
	if err != nil {
		if err == ErrNotFound {
			return envelope.NewError(envelope.CodeNotFound, "ticket not found")
		}
		return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to fetch ticket", "", err.Error())
	}
	if tk.Status == "closed" {
		return envelope.NewError(envelope.CodeValidationError, "ticket is already closed")
	}

	data, _ := json.Marshal(closeConfirmationData{TicketID: tk.ID, UserID: caller.UserID})
	return envelope.NewPending(
		uuid.NewString(),
		fmt.Sprintf("Close ticket %q for %s? The thread will end.", tk.Subject, tk.Customer),
		data,
	)
}

func (t *closeTicketTool) Execute(ctx context.Context, caller models.CallerContext, confirmation json.RawMessage) envelope.ToolResponse {
	var data closeConfirmationData
	if err := json.Unmarshal(confirmation, &data); err != nil || data.TicketID == "" {
		return envelope.NewError(envelope.CodeValidationError, "malformed confirmation data")
	}
	if data.UserID != caller.UserID {
		return envelope.NewError(envelope.CodeInvalidContext, "confirmation was issued to a different user")
	}
	tk, err := t.store.Close(ctx, caller.SessionVariables(), data.TicketID)
	if err != nil {
		switch err {
		case ErrNotFound:
			return envelope.NewError(envelope.CodeNotFound, "ticket not found")
		case ErrAlreadyClosed:
			return envelope.NewError(envelope.CodeValidationError, "ticket is already closed")
		default:
			return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to close ticket", "", err.Error())
		}
	}
	result, _ := json.Marshal(toView(tk, caller))
	return envelope.NewSuccess(result, nil)
}

// --- delete_ticket (destructive) ---

type deleteTicketTool struct {
	store Store
}

type deleteTicketInput struct {
	TicketID string `json:"ticket_id"`
	Reason   string `json:"reason,omitempty"`
}

type deleteConfirmationData struct {
	TicketID string `json:"ticketId"`
	UserID   string `json:"userId"`
}

func (t *deleteTicketTool) Descriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        "delete_ticket",
		Server:      "support",
		Description: "Permanently delete a support ticket. Requires user confirmation.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"ticket_id": {"type": "string"},
				"reason": {"type": "string", "maxLength": 500}
			},
			"required": ["ticket_id"],
			"additionalProperties": false
		}`),
		RequiredRoles: models.RoleSet{models.RoleSupportWrite},
		Write:         true,
		Destructive:   true,
	}
}

func (t *deleteTicketTool) Invoke(ctx context.Context, caller models.CallerContext, args json.RawMessage) envelope.ToolResponse {
	var in deleteTicketInput
	if err := json.Unmarshal(args, &in); err != nil {
		return envelope.NewError(envelope.CodeValidationError, "malformed arguments")
	}
	tk, err := t.store.Get(ctx, caller.SessionVariables(), in.TicketID)
	if err != nil {
		if err == ErrNotFound {
			return envelope.NewError(envelope.CodeNotFound, "ticket not found")
		}
		return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to fetch ticket", "", err.Error())
	}

	data, _ := json.Marshal(deleteConfirmationData{TicketID: tk.ID, UserID: caller.UserID})
	return envelope.NewPending(
		uuid.NewString(),
		fmt.Sprintf("Delete ticket %q for %s? This cannot be undone.", tk.Subject, tk.Customer),
		data,
	)
}

func (t *deleteTicketTool) Execute(ctx context.Context, caller models.CallerContext, confirmation json.RawMessage) envelope.ToolResponse {
	var data deleteConfirmationData
	if err := json.Unmarshal(confirmation, &data); err != nil || data.TicketID == "" {
		return envelope.NewError(envelope.CodeValidationError, "malformed confirmation data")
	}
	if data.UserID != caller.UserID {
		return envelope.NewError(envelope.CodeInvalidContext, "confirmation was issued to a different user")
	}
	if err := t.store.Delete(ctx, caller.SessionVariables(), data.TicketID); err != nil {
		if err == ErrNotFound {
			return envelope.NewError(envelope.CodeNotFound, "ticket not found")
		}
		return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to delete ticket", "", err.Error())
	}
	result, _ := json.Marshal(map[string]any{"status": "deleted", "ticketId": data.TicketID})
	return envelope.NewSuccess(result, nil)
}
