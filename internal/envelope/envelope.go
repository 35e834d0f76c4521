// Package envelope defines the uniform three-variant response every
// Tool Server returns (success | error | pendingConfirmation), the
// closed error-code vocabulary, and keyset pagination cursors. It is
// imported by both the Gateway and every Tool Server so the contract
// lives in exactly one place.
package envelope

import (
	"encoding/json"
	"fmt"
)

// Variant tags the three possible shapes of a ToolResponse.
type Variant string

const (
	VariantSuccess             Variant = "success"
	VariantError               Variant = "error"
	VariantPendingConfirmation Variant = "pendingConfirmation"
)

// Code is the closed set of stable error codes carried in an Error
// envelope. See the error table in the gateway design docs.
type Code string

const (
	CodeUnauthorized          Code = "UNAUTHORIZED"
	CodeInsufficientPerms     Code = "INSUFFICIENT_PERMISSIONS"
	CodeValidationError       Code = "VALIDATION_ERROR"
	CodeNotFound              Code = "NOT_FOUND"
	CodeInvalidCursor         Code = "INVALID_CURSOR"
	CodeTimeout               Code = "TIMEOUT"
	CodeUpstreamError         Code = "UPSTREAM_ERROR"
	CodeProtocolViolation     Code = "PROTOCOL_VIOLATION"
	CodeConfirmationExpired   Code = "CONFIRMATION_EXPIRED"
	CodeUserMismatch          Code = "USER_MISMATCH"
	CodeRequestTimeout        Code = "REQUEST_TIMEOUT"
	CodeRateLimited           Code = "RATE_LIMITED"
	CodeDatabaseError         Code = "DATABASE_ERROR"
	CodeOperationFailed       Code = "OPERATION_FAILED"
	CodeInvalidContext        Code = "INVALID_CONTEXT"
)

// Pagination carries the metadata a list tool attaches to a success
// payload.
type Pagination struct {
	HasMore       bool   `json:"hasMore"`
	NextCursor    string `json:"nextCursor,omitempty"`
	ReturnedCount int    `json:"returnedCount"`
	TotalEstimate int64  `json:"totalEstimate,omitempty"`
	Hint          string `json:"hint,omitempty"`
}

// Success is the payload of a success-variant ToolResponse.
type Success struct {
	Data       json.RawMessage `json:"data"`
	Pagination *Pagination     `json:"pagination,omitempty"`
}

// Error is the payload of an error-variant ToolResponse. TechnicalDetails
// is logged with the correlation id and must never be forwarded to the
// LLM or the client — callers constructing a client/LLM-facing view of
// an Error must use Public() to enforce that invariant.
type Error struct {
	Code             Code   `json:"code"`
	Message          string `json:"message"`
	SuggestedAction  string `json:"suggestedAction,omitempty"`
	TechnicalDetails string `json:"technicalDetails,omitempty"`
}

// Public returns a copy of e with TechnicalDetails stripped, safe to
// serialize into the LLM stream or hand to the client.
func (e Error) Public() Error {
	e.TechnicalDetails = ""
	return e
}

// PendingConfirmation is the payload of a pendingConfirmation-variant
// ToolResponse. Data always includes the original caller's user id
// (see PendingAction) for the later ownership check at /confirm.
type PendingConfirmation struct {
	ConfirmationID string          `json:"confirmationId"`
	Message        string          `json:"message"`
	Data           json.RawMessage `json:"data,omitempty"`
}

// ToolResponse is the discriminated union every Tool Server returns.
// Exactly one of Success, Err, or Pending is non-nil, matching Variant.
type ToolResponse struct {
	Variant Variant              `json:"variant"`
	Success *Success             `json:"success,omitempty"`
	Err     *Error               `json:"error,omitempty"`
	Pending *PendingConfirmation `json:"pendingConfirmation,omitempty"`
}

// NewSuccess builds a success envelope.
func NewSuccess(data json.RawMessage, pagination *Pagination) ToolResponse {
	return ToolResponse{Variant: VariantSuccess, Success: &Success{Data: data, Pagination: pagination}}
}

// NewError builds an error envelope.
func NewError(code Code, message string) ToolResponse {
	return ToolResponse{Variant: VariantError, Err: &Error{Code: code, Message: message}}
}

// NewErrorDetailed builds an error envelope carrying a suggested action
// and technical details (the latter never leaves the Gateway's logs).
func NewErrorDetailed(code Code, message, suggestedAction, technicalDetails string) ToolResponse {
	return ToolResponse{Variant: VariantError, Err: &Error{
		Code:             code,
		Message:          message,
		SuggestedAction:  suggestedAction,
		TechnicalDetails: technicalDetails,
	}}
}

// NewPending builds a pendingConfirmation envelope.
func NewPending(confirmationID, message string, data json.RawMessage) ToolResponse {
	return ToolResponse{Variant: VariantPendingConfirmation, Pending: &PendingConfirmation{
		ConfirmationID: confirmationID,
		Message:        message,
		Data:           data,
	}}
}

// Validate enforces the envelope invariant: exactly one variant
// payload set, consistent with the Variant tag. A Tool Server response
// that fails this check is itself a protocol violation.
func (r ToolResponse) Validate() error {
	count := 0
	if r.Success != nil {
		count++
	}
	if r.Err != nil {
		count++
	}
	if r.Pending != nil {
		count++
	}
	if count != 1 {
		return fmt.Errorf("envelope: expected exactly one variant payload, got %d", count)
	}
	switch r.Variant {
	case VariantSuccess:
		if r.Success == nil {
			return fmt.Errorf("envelope: variant %q without success payload", r.Variant)
		}
	case VariantError:
		if r.Err == nil {
			return fmt.Errorf("envelope: variant %q without error payload", r.Variant)
		}
	case VariantPendingConfirmation:
		if r.Pending == nil {
			return fmt.Errorf("envelope: variant %q without pending payload", r.Variant)
		}
	default:
		return fmt.Errorf("envelope: unknown variant %q", r.Variant)
	}
	return nil
}

// PublicView strips TechnicalDetails (if any) and returns a copy fit
// for the LLM stream or the client — use this, never the raw envelope,
// on every path that leaves the Gateway's trust boundary.
func (r ToolResponse) PublicView() ToolResponse {
	if r.Err == nil {
		return r
	}
	publicErr := r.Err.Public()
	r.Err = &publicErr
	return r
}
