package sales

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

// unmaskedRoles may see Amount and ContactEmail unredacted (on top of
// the executive super-role).
var unmaskedRoles = models.RoleSet{models.RoleSalesWrite}

const defaultLimit = 20

// dealView is the wire shape for one row of list_deals / get_deal,
// with sensitive fields redacted per caller role.
type dealView struct {
	ID                string                  `json:"id"`
	Name              string                  `json:"name"`
	Company           string                  `json:"company"`
	Owner             string                  `json:"owner"`
	Stage             string                  `json:"stage"`
	Amount            toolserver.MaskedNumber `json:"amount"`
	ContactEmail      toolserver.MaskedString `json:"contactEmail"`
	ExpectedCloseDate string                  `json:"expectedCloseDate"`
}

func toView(d Deal, caller models.CallerContext) dealView {
	return dealView{
		ID:                d.ID,
		Name:              d.Name,
		Company:           d.Company,
		Owner:             d.Owner,
		Stage:             d.Stage,
		Amount:            toolserver.Number(d.Amount, caller, unmaskedRoles),
		ContactEmail:      toolserver.String(d.ContactEmail, caller, unmaskedRoles),
		ExpectedCloseDate: d.ExpectedCloseDate.Format(time.RFC3339),
	}
}

// RegisterAll wires every Sales tool onto server backed by store, with
// maxLimit enforcing the pagination.maxLimit configuration.
func RegisterAll(server *toolserver.Server, store Store, maxLimit int) {
	server.Register(&listDealsTool{store: store, maxLimit: maxLimit})
	server.Register(&getDealTool{store: store})
	server.Register(&closeDealTool{store: store})
	server.Register(&deleteDealTool{store: store})
}

// --- list_deals ---

type listDealsTool struct {
	store    Store
	maxLimit int
}

type listDealsInput struct {
	Stage  string `json:"stage,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Cursor string `json:"cursor,omitempty"`
}

func (t *listDealsTool) Descriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        "list_deals",
		Server:      "sales",
		Description: "List sales pipeline deals, optionally filtered by stage.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"stage": {"type": "string", "enum": ["prospecting", "negotiation", "won", "lost"]},
				"limit": {"type": "integer", "minimum": 1, "maximum": 50},
				"cursor": {"type": "string"}
			},
			"additionalProperties": false
		}`),
		RequiredRoles: models.RoleSet{models.RoleSalesRead},
	}
}

func (t *listDealsTool) Invoke(ctx context.Context, caller models.CallerContext, args json.RawMessage) envelope.ToolResponse {
	var in listDealsInput
	if len(args) > 0 {
		if err := json.Unmarshal(args, &in); err != nil {
			return envelope.NewError(envelope.CodeValidationError, "malformed arguments")
		}
	}
	limit := envelope.ClampLimit(in.Limit, defaultLimit, t.maxLimit)

	filter := ListFilter{Stage: in.Stage, Limit: limit}
	if in.Cursor != "" {
		cur, err := envelope.DecodeCursor(in.Cursor)
		if err != nil {
			return envelope.NewError(envelope.CodeInvalidCursor, "cursor is unparseable or stale")
		}
		id, ok := cur.String("id")
		if !ok {
			return envelope.NewError(envelope.CodeInvalidCursor, "cursor is unparseable or stale")
		}
		filter.BeforeID = id
	}

	rows, err := t.store.List(ctx, caller.SessionVariables(), filter)
	if err != nil {
		return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to list deals", "", err.Error())
	}

	page, err := envelope.BuildPage(rows, limit, func(d Deal) map[string]any {
		return map[string]any{"id": d.ID}
	})
	if err != nil {
		return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to build page", "", err.Error())
	}

	views := make([]dealView, 0, len(page.Items))
	for _, d := range page.Items {
		views = append(views, toView(d, caller))
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

// --- get_deal ---

type getDealTool struct {
	store Store
}

type getDealInput struct {
	DealID string `json:"deal_id"`
}

func (t *getDealTool) Descriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        "get_deal",
		Server:      "sales",
		Description: "Fetch a single sales deal by id.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"deal_id": {"type": "string"}
			},
			"required": ["deal_id"],
			"additionalProperties": false
		}`),
		RequiredRoles: models.RoleSet{models.RoleSalesRead},
	}
}

func (t *getDealTool) Invoke(ctx context.Context, caller models.CallerContext, args json.RawMessage) envelope.ToolResponse {
	var in getDealInput
	if err := json.Unmarshal(args, &in); err != nil {
		return envelope.NewError(envelope.CodeValidationError, "malformed arguments")
	}
	d, err := t.store.Get(ctx, caller.SessionVariables(), in.DealID)
	if err != nil {
		if err == ErrNotFound {
			return envelope.NewError(envelope.CodeNotFound, "deal not found")
		}
		return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to fetch deal", "", err.Error())
	}
	data, err := json.Marshal(toView(d, caller))
	if err != nil {
		return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to encode response", "", err.Error())
	}
	return envelope.NewSuccess(data, nil)
}

// --- close_deal (destructive) ---

type closeDealTool struct {
	store Store
}

type closeDealInput struct {
	DealID  string `json:"deal_id"`
	Outcome string `json:"outcome"`
}

// Confirmation payloads always carry the originating caller's user id
// so Execute can re-verify ownership independently of the Gateway.
type closeConfirmationData struct {
	DealID  string `json:"dealId"`
	Outcome string `json:"outcome"`
	UserID  string `json:"userId"`
}

func (t *closeDealTool) Descriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        "close_deal",
		Server:      "sales",
		Description: "Close a deal as won or lost. Requires user confirmation.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"deal_id": {"type": "string"},
				"outcome": {"type": "string", "enum": ["won", "lost"]}
			},
			"required": ["deal_id", "outcome"],
			"additionalProperties": false
		}`),
		RequiredRoles: models.RoleSet{models.RoleSalesWrite},
		Write:         true,
		Destructive:   true,
	}
}

func (t *closeDealTool) Invoke(ctx context.Context, caller models.CallerContext, args json.RawMessage) envelope.ToolResponse {
	var in closeDealInput
	if err := json.Unmarshal(args, &in); err != nil {
		return envelope.NewError(envelope.CodeValidationError, "malformed arguments")
	}
	d, err := t.store.Get(ctx, caller.SessionVariables(), in.DealID)
	if err != nil {
		if err == ErrNotFound {
			return envelope.NewError(envelope.CodeNotFound, "deal not found")
		}
		return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to fetch deal", "", err.Error())
	}
	if d.Stage == "won" || d.Stage == "lost" {
		return envelope.NewError(envelope.CodeValidationError, "deal is already closed")
	}

	data, _ := json.Marshal(closeConfirmationData{DealID: d.ID, Outcome: in.Outcome, UserID: caller.UserID})
	return envelope.NewPending(
		uuid.NewString(),
		fmt.Sprintf("Mark deal %q (%s) as %s? This cannot be undone.", d.Name, d.Company, in.Outcome),
		data,
	)
}

func (t *closeDealTool) Execute(ctx context.Context, caller models.CallerContext, confirmation json.RawMessage) envelope.ToolResponse {
	var data closeConfirmationData
	if err := json.Unmarshal(confirmation, &data); err != nil || data.DealID == "" {
		return envelope.NewError(envelope.CodeValidationError, "malformed confirmation data")
	}
	if data.UserID != caller.UserID {
		return envelope.NewError(envelope.CodeInvalidContext, "confirmation was issued to a different user")
	}
	d, err := t.store.Close(ctx, caller.SessionVariables(), data.DealID, data.Outcome)
	if err != nil {
		switch err {
		case ErrNotFound:
			return envelope.NewError(envelope.CodeNotFound, "deal not found")
		case ErrAlreadyClosed:
			return envelope.NewError(envelope.CodeValidationError, "deal is already closed")
		default:
			return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to close deal", "", err.Error())
		}
	}
	result, _ := json.Marshal(toView(d, caller))
	return envelope.NewSuccess(result, nil)
}

// --- delete_deal (destructive) ---

type deleteDealTool struct {
	store Store
}

type deleteDealInput struct {
	DealID string `json:"deal_id"`
	Reason string `json:"reason,omitempty"`
}

type deleteConfirmationData struct {
	DealID string `json:"dealId"`
	UserID string `json:"userId"`
}

func (t *deleteDealTool) Descriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        "delete_deal",
		Server:      "sales",
		Description: "Permanently delete a deal record. Requires user confirmation.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"deal_id": {"type": "string"},
				"reason": {"type": "string", "maxLength": 500}
			},
			"required": ["deal_id"],
			"additionalProperties": false
		}`),
		RequiredRoles: models.RoleSet{models.RoleSalesWrite},
		Write:         true,
		Destructive:   true,
	}
}

func (t *deleteDealTool) Invoke(ctx context.Context, caller models.CallerContext, args json.RawMessage) envelope.ToolResponse {
	var in deleteDealInput
	if err := json.Unmarshal(args, &in); err != nil {
		return envelope.NewError(envelope.CodeValidationError, "malformed arguments")
	}
	d, err := t.store.Get(ctx, caller.SessionVariables(), in.DealID)
	if err != nil {
		if err == ErrNotFound {
			return envelope.NewError(envelope.CodeNotFound, "deal not found")
		}
		return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to fetch deal", "", err.Error())
	}

	data, _ := json.Marshal(deleteConfirmationData{DealID: d.ID, UserID: caller.UserID})
	return envelope.NewPending(
		uuid.NewString(),
		fmt.Sprintf("Delete deal %q (%s)? This cannot be undone.", d.Name, d.Company),
		data,
	)
}

func (t *deleteDealTool) Execute(ctx context.Context, caller models.CallerContext, confirmation json.RawMessage) envelope.ToolResponse {
	var data deleteConfirmationData
	if err := json.Unmarshal(confirmation, &data); err != nil || data.DealID == "" {
		return envelope.NewError(envelope.CodeValidationError, "malformed confirmation data")
	}
	if data.UserID != caller.UserID {
		return envelope.NewError(envelope.CodeInvalidContext, "confirmation was issued to a different user")
	}
	if err := t.store.Delete(ctx, caller.SessionVariables(), data.DealID); err != nil {
		if err == ErrNotFound {
			return envelope.NewError(envelope.CodeNotFound, "deal not found")
		}
		return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to delete deal", "", err.Error())
	}
	result, _ := json.Marshal(map[string]any{"status": "deleted", "dealId": data.DealID})
	return envelope.NewSuccess(result, nil)
}
