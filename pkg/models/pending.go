package models

import (
	"encoding/json"
	"time"
)

// PendingAction is the persisted form of a pendingConfirmation
// envelope, held in the external Pending Action Store with a 5-minute
// TTL. It is deleted on approval-execution or deny; otherwise it
// expires silently.
type PendingAction struct {
	ConfirmationID string          `json:"confirmation_id"`
	ActionTag      string          `json:"action_tag"` // e.g. "delete_employee"
	Server         string          `json:"server"`     // owning Tool Server identifier
	OriginatorID   string          `json:"originator_id"`
	CreatedAt      time.Time       `json:"created_at"`
	Payload        json.RawMessage `json:"payload"` // action-specific confirmation data
}
