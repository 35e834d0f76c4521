package hr

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

// unmaskedRoles may see Salary and GovID unredacted (on top of the
// executive super-role, handled by toolserver.CanUnmask).
var unmaskedRoles = models.RoleSet{models.RoleHRWrite}

const defaultLimit = 20

// employeeView is the wire shape for one row of list_employees /
// get_employee, with sensitive fields redacted per caller role.
type employeeView struct {
	ID         string               `json:"id"`
	Name       string               `json:"name"`
	Department string               `json:"department"`
	Title      string               `json:"title"`
	Email      string               `json:"email"`
	HireDate   string               `json:"hireDate"`
	Salary     toolserver.MaskedNumber `json:"salary"`
	GovID      toolserver.MaskedString `json:"govId"`
}

func toView(e Employee, caller models.CallerContext) employeeView {
	return employeeView{
		ID:         e.ID,
		Name:       e.Name,
		Department: e.Department,
		Title:      e.Title,
		Email:      e.Email,
		HireDate:   e.HireDate.Format(time.RFC3339),
		Salary:     toolserver.Number(e.Salary, caller, unmaskedRoles),
		GovID:      toolserver.String(e.GovID, caller, unmaskedRoles),
	}
}

// RegisterAll wires every HR tool onto server backed by store, with
// maxLimit enforcing the pagination.maxLimit configuration.
func RegisterAll(server *toolserver.Server, store Store, maxLimit int) {
	server.Register(&listEmployeesTool{store: store, maxLimit: maxLimit})
	server.Register(&getEmployeeTool{store: store})
	server.Register(&deleteEmployeeTool{store: store})
}

// --- list_employees ---

type listEmployeesTool struct {
	store    Store
	maxLimit int
}

type listEmployeesInput struct {
	Department string `json:"department,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Cursor     string `json:"cursor,omitempty"`
}

func (t *listEmployeesTool) Descriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        "list_employees",
		Server:      "hr",
		Description: "List employees, optionally filtered by department.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"department": {"type": "string"},
				"limit": {"type": "integer", "minimum": 1, "maximum": 50},
				"cursor": {"type": "string"}
			},
			"additionalProperties": false
		}`),
		RequiredRoles: models.RoleSet{models.RoleHRRead},
	}
}

func (t *listEmployeesTool) Invoke(ctx context.Context, caller models.CallerContext, args json.RawMessage) envelope.ToolResponse {
	var in listEmployeesInput
	if len(args) > 0 {
		if err := json.Unmarshal(args, &in); err != nil {
			return envelope.NewError(envelope.CodeValidationError, "malformed arguments")
		}
	}
	limit := envelope.ClampLimit(in.Limit, defaultLimit, t.maxLimit)

	filter := ListFilter{Department: in.Department, Limit: limit}
	if in.Cursor != "" {
		cur, err := envelope.DecodeCursor(in.Cursor)
		if err != nil {
			return envelope.NewError(envelope.CodeInvalidCursor, "cursor is unparseable or stale")
		}
		date, ok1 := cur.String("hireDate")
		id, ok2 := cur.String("id")
		if !ok1 || !ok2 {
			return envelope.NewError(envelope.CodeInvalidCursor, "cursor is unparseable or stale")
		}
		filter.AfterDate = &date
		filter.AfterID = id
	}

	rows, err := t.store.List(ctx, caller.SessionVariables(), filter)
	if err != nil {
		return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to list employees", "", err.Error())
	}

	page, err := envelope.BuildPage(rows, limit, func(e Employee) map[string]any {
		return map[string]any{"hireDate": e.HireDate.Format(time.RFC3339), "id": e.ID}
	})
	if err != nil {
		return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to build page", "", err.Error())
	}

	views := make([]employeeView, 0, len(page.Items))
	for _, e := range page.Items {
		views = append(views, toView(e, caller))
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

// --- get_employee ---

type getEmployeeTool struct {
	store Store
}

type getEmployeeInput struct {
	EmployeeID string `json:"employee_id"`
}

func (t *getEmployeeTool) Descriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        "get_employee",
		Server:      "hr",
		Description: "Fetch a single employee by id.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"employee_id": {"type": "string", "format": "uuid"}
			},
			"required": ["employee_id"],
			"additionalProperties": false
		}`),
		RequiredRoles: models.RoleSet{models.RoleHRRead},
	}
}

func (t *getEmployeeTool) Invoke(ctx context.Context, caller models.CallerContext, args json.RawMessage) envelope.ToolResponse {
	var in getEmployeeInput
	if err := json.Unmarshal(args, &in); err != nil {
		return envelope.NewError(envelope.CodeValidationError, "malformed arguments")
	}
	e, err := t.store.Get(ctx, caller.SessionVariables(), in.EmployeeID)
	if err != nil {
		if err == ErrNotFound {
			return envelope.NewError(envelope.CodeNotFound, "employee not found")
		}
		return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to fetch employee", "", err.Error())
	}
	data, err := json.Marshal(toView(e, caller))
	if err != nil {
		return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to encode response", "", err.Error())
	}
	return envelope.NewSuccess(data, nil)
}

// --- delete_employee (destructive) ---

type deleteEmployeeTool struct {
	store Store
}

type deleteEmployeeInput struct {
	EmployeeID string `json:"employee_id"`
	Reason     string `json:"reason,omitempty"`
}

// confirmationData is the payload carried on the pendingConfirmation
// envelope and later handed back verbatim to Execute. It always
// includes the originating caller's user id so Execute can re-verify
// ownership independently of the Gateway's own /confirm check — the
// /execute endpoint is reachable by anyone holding a valid credential
// for the tool's role.
type confirmationData struct {
	EmployeeID string `json:"employeeId"`
	UserID     string `json:"userId"`
}

func (t *deleteEmployeeTool) Descriptor() models.ToolDescriptor {
	return models.ToolDescriptor{
		Name:        "delete_employee",
		Server:      "hr",
		Description: "Delete an employee record. Requires user confirmation.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"employee_id": {"type": "string", "format": "uuid"},
				"reason": {"type": "string", "maxLength": 500}
			},
			"required": ["employee_id"],
			"additionalProperties": false
		}`),
		RequiredRoles: models.RoleSet{models.RoleHRWrite},
		Write:         true,
		Destructive:   true,
	}
}

func (t *deleteEmployeeTool) Invoke(ctx context.Context, caller models.CallerContext, args json.RawMessage) envelope.ToolResponse {
	var in deleteEmployeeInput
	if err := json.Unmarshal(args, &in); err != nil {
		return envelope.NewError(envelope.CodeValidationError, "malformed arguments")
	}
	e, err := t.store.Get(ctx, caller.SessionVariables(), in.EmployeeID)
	if err != nil {
		if err == ErrNotFound {
			return envelope.NewError(envelope.CodeNotFound, "employee not found")
		}
		return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to fetch employee", "", err.Error())
	}

	data, _ := json.Marshal(confirmationData{EmployeeID: e.ID, UserID: caller.UserID})
	return envelope.NewPending(
		uuid.NewString(),
		fmt.Sprintf("Delete employee %s (%s)? This cannot be undone.", e.Name, e.Department),
		data,
	)
}

func (t *deleteEmployeeTool) Execute(ctx context.Context, caller models.CallerContext, confirmation json.RawMessage) envelope.ToolResponse {
	var data confirmationData
	if err := json.Unmarshal(confirmation, &data); err != nil || data.EmployeeID == "" {
		return envelope.NewError(envelope.CodeValidationError, "malformed confirmation data")
	}
	if data.UserID != caller.UserID {
		return envelope.NewError(envelope.CodeInvalidContext, "confirmation was issued to a different user")
	}
	if err := t.store.Delete(ctx, caller.SessionVariables(), data.EmployeeID); err != nil {
		if err == ErrNotFound {
			return envelope.NewError(envelope.CodeNotFound, "employee not found")
		}
		return envelope.NewErrorDetailed(envelope.CodeDatabaseError, "failed to delete employee", "", err.Error())
	}
	result, _ := json.Marshal(map[string]any{"status": "deleted", "employeeId": data.EmployeeID})
	return envelope.NewSuccess(result, nil)
}
