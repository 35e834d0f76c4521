package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/auth"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/envelope"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/pendingstore"
)

// confirmRequest is the body of POST /confirm/{id}.
type confirmRequest struct {
	Approved bool `json:"approved"`
}

// handleConfirm runs the confirmation-execution sequence:
// fetch the pending action (atomically removing it so a retried or
// racing request can never double-execute), verify the requester
// matches the user who triggered the original tool call, then either
// cancel or execute against the owning Tool Server.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		auth.WriteUnauthorized(w, "missing credentials")
		return
	}

	confirmationID := strings.TrimPrefix(r.URL.Path, "/confirm/")
	if confirmationID == "" {
		http.Error(w, "confirmation id is required", http.StatusBadRequest)
		return
	}

	_, span := s.tracer.Start(r.Context(), "gateway.confirm",
		attribute.String("confirmation_id", confirmationID),
	)
	defer span.End()

	var req confirmRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	action, err := s.pending.Take(r.Context(), confirmationID)
	if err != nil {
		outcome := "not_found"
		if !errors.Is(err, pendingstore.ErrNotFound) && s.logger != nil {
			s.logger.Error("failed to read pending action", "confirmationId", confirmationID, "error", err)
		}
		s.countConfirm(outcome)
		writeJSONEnvelope(w, envelope.NewError(envelope.CodeConfirmationExpired, "confirmation not found or expired"))
		return
	}

	if action.OriginatorID != caller.UserID {
		s.countConfirm("user_mismatch")
		writeJSONEnvelope(w, envelope.NewError(envelope.CodeUserMismatch, "this confirmation was not issued to you"))
		return
	}

	if !req.Approved {
		s.countConfirm("cancelled")
		writeJSONEnvelope(w, envelope.NewSuccess(json.RawMessage(`{"status":"cancelled"}`), nil))
		return
	}

	_, baseURL, ok := s.registry.Lookup(action.ActionTag)
	if !ok {
		s.countConfirm("error")
		writeJSONEnvelope(w, envelope.NewError(envelope.CodeNotFound, "the tool that issued this confirmation is no longer registered"))
		return
	}

	resp := s.toolClient.Execute(r.Context(), baseURL, action.ActionTag, caller, action.Payload)
	s.countConfirm(outcomeLabel(resp))
	writeJSONEnvelope(w, resp.PublicView())
}

func outcomeLabel(resp envelope.ToolResponse) string {
	switch resp.Variant {
	case envelope.VariantSuccess:
		return "executed"
	case envelope.VariantPendingConfirmation:
		return "re_pending"
	default:
		return "error"
	}
}

func (s *Server) countConfirm(outcome string) {
	if s.metrics != nil {
		s.metrics.ConfirmsTotal.WithLabelValues(outcome).Inc()
	}
}

func writeJSONEnvelope(w http.ResponseWriter, resp envelope.ToolResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
