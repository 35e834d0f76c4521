package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/auth"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/envelope"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/llm"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

// maxToolTurns backstops the LLM↔tool-call loop against a misbehaving
// model that never stops requesting tools; the 90s total request
// budget is the primary bound, this is a ceiling on
// iteration count so a fast, looping model can't spin indefinitely
// within that budget.
const maxToolTurns = 50

// queryRequest is the body of POST /query.
type queryRequest struct {
	Query        string                  `json:"query"`
	Conversation []llm.CompletionMessage `json:"conversation,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		auth.WriteUnauthorized(w, "missing credentials")
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	sse, ok := newSSEWriter(w)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout.RequestTotal)
	defer cancel()

	correlationID := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "gateway.query",
		attribute.String("correlation_id", correlationID),
		attribute.String("caller.user_id", caller.UserID),
	)
	defer span.End()

	_ = sse.Event("connected", connectedEvent{CorrelationID: correlationID})

	s.runQueryLoop(ctx, sse, caller, correlationID, req)

	if s.metrics != nil {
		s.metrics.QueryDuration.Observe(time.Since(start).Seconds())
	}
}

func (s *Server) runQueryLoop(ctx context.Context, sse *sseWriter, caller models.CallerContext, correlationID string, req queryRequest) {
	allowed := s.registry.AllowedFor(caller)
	systemPrompt := BuildSystemPrompt(allowed)
	providerTools := llm.ToolsFromDescriptors(allowed)

	messages := append([]llm.CompletionMessage{}, req.Conversation...)
	messages = append(messages, llm.CompletionMessage{Role: "user", Content: req.Query})

	for turn := 0; turn < maxToolTurns; turn++ {
		select {
		case <-ctx.Done():
			s.emitTimeout(sse)
			return
		default:
		}

		chunks, err := s.provider.Complete(ctx, &llm.CompletionRequest{
			Model:    s.cfg.LLM.Model,
			System:   systemPrompt,
			Messages: messages,
			Tools:    providerTools,
		})
		if err != nil {
			_ = sse.Event("error", errorEvent{Code: string(envelope.CodeUpstreamError), Message: "failed to reach the language model"})
			return
		}

		var assistantText string
		var toolCalls []models.ToolCall
		streamErr := false

		for chunk := range chunks {
			if chunk.Error != nil {
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					s.emitTimeout(sse)
				} else {
					_ = sse.Event("error", errorEvent{Code: string(envelope.CodeUpstreamError), Message: "language model stream failed"})
					s.logError(chunk.Error, correlationID)
				}
				streamErr = true
				continue
			}
			if chunk.Text != "" {
				assistantText += chunk.Text
				_ = sse.Event("text", textEvent{Delta: chunk.Text})
			}
			if chunk.ToolCall != nil {
				toolCalls = append(toolCalls, *chunk.ToolCall)
			}
		}
		if streamErr {
			return
		}

		messages = append(messages, llm.CompletionMessage{
			Role:      "assistant",
			Content:   assistantText,
			ToolCalls: toolCalls,
		})

		if len(toolCalls) == 0 {
			_ = sse.Event("done", doneEvent{})
			return
		}

		toolResults, warnings, truncationNotes := s.dispatchToolCalls(ctx, sse, caller, correlationID, toolCalls)
		messages = append(messages, llm.CompletionMessage{Role: "tool", ToolResults: toolResults})
		for _, note := range truncationNotes {
			messages = append(messages, llm.CompletionMessage{Role: "user", Content: note})
		}
		if len(warnings) > 0 {
			_ = sse.Event("warnings", warningsEvent{Items: warnings})
		}

		select {
		case <-ctx.Done():
			s.emitTimeout(sse)
			return
		default:
		}
	}

	_ = sse.Event("error", errorEvent{Code: string(envelope.CodeUpstreamError), Message: "too many tool-call turns"})
}

// dispatchToolCalls invokes each tool call serially in the order the
// LLM emitted it and returns the tool results to feed back into the
// conversation, any partial-failure warnings, and any truncation notes
// to inject. The model sees no result until every call of the turn has
// run; all results of the turn are fed back together on the next turn.
func (s *Server) dispatchToolCalls(ctx context.Context, sse *sseWriter, caller models.CallerContext, correlationID string, calls []models.ToolCall) ([]llm.ToolResult, []warningItem, []string) {
	results := make([]llm.ToolResult, 0, len(calls))
	var warnings []warningItem
	var notes []string

	for _, call := range calls {
		resp, serverName := s.invokeOne(ctx, caller, call)
		publicResp := resp.PublicView()

		_ = sse.Event("tool", toolEvent{Name: call.Name, Envelope: publicResp})

		llmFacing := publicResp
		if publicResp.Variant == envelope.VariantPendingConfirmation {
			s.persistPending(ctx, caller, serverName, call, publicResp, sse)
			// Only the public fields (confirmation id + message) go back
			// to the model; the confirmation data stays server-side.
			llmFacing = envelope.NewPending(publicResp.Pending.ConfirmationID, publicResp.Pending.Message, nil)
		}
		if publicResp.Variant == envelope.VariantSuccess && publicResp.Success.Pagination != nil && publicResp.Success.Pagination.HasMore {
			notes = append(notes, truncationNote(publicResp.Success.Pagination.ReturnedCount, publicResp.Success.Pagination.TotalEstimate))
		}
		if publicResp.Variant == envelope.VariantError {
			switch publicResp.Err.Code {
			case envelope.CodeTimeout, envelope.CodeUpstreamError, envelope.CodeProtocolViolation:
				warnings = append(warnings, warningItem{Server: serverName, Code: string(publicResp.Err.Code), Message: publicResp.Err.Message})
			}
		}

		payload, _ := json.Marshal(llmFacing)
		results = append(results, llm.ToolResult{
			ToolCallID: call.ID,
			Content:    string(payload),
			IsError:    publicResp.Variant == envelope.VariantError,
		})
	}
	return results, warnings, notes
}

// invokeOne applies the allow-list post-filter: regardless of what
// the model claims, a tool-call request
// naming a tool outside the caller's allow-list is rejected here with
// INSUFFICIENT_PERMISSIONS before any network call is made.
func (s *Server) invokeOne(ctx context.Context, caller models.CallerContext, call models.ToolCall) (envelope.ToolResponse, string) {
	descriptor, baseURL, ok := s.registry.Lookup(call.Name)
	if !ok {
		return envelope.NewError(envelope.CodeNotFound, fmt.Sprintf("unknown tool %q", call.Name)), ""
	}
	if !descriptor.AllowsCaller(caller) {
		return envelope.NewError(envelope.CodeInsufficientPerms, fmt.Sprintf("tool %q is not in the caller's allow-list", call.Name)), descriptor.Server
	}

	ctx, span := s.tracer.Start(ctx, "gateway.tool_invoke",
		attribute.String("tool.name", call.Name),
		attribute.String("tool.server", descriptor.Server),
	)
	defer span.End()

	start := time.Now()
	resp := s.toolClient.Invoke(ctx, baseURL, descriptor, caller, call.Input)
	outcome := "success"
	if resp.Variant != envelope.VariantSuccess {
		outcome = string(resp.Variant)
	}
	if s.metrics != nil {
		s.metrics.ToolInvocations.WithLabelValues(call.Name, outcome).Inc()
		s.metrics.ToolLatency.WithLabelValues(call.Name).Observe(time.Since(start).Seconds())
	}
	if s.invLog != nil {
		s.invLog.record(invocationRecord{
			Tool:     call.Name,
			CallerID: caller.UserID,
			Outcome:  outcome,
			Duration: time.Since(start) / time.Millisecond,
			At:       start,
		})
	}
	return resp, descriptor.Server
}

func (s *Server) persistPending(ctx context.Context, caller models.CallerContext, serverName string, call models.ToolCall, resp envelope.ToolResponse, sse *sseWriter) {
	action := models.PendingAction{
		ConfirmationID: resp.Pending.ConfirmationID,
		ActionTag:      call.Name,
		Server:         serverName,
		OriginatorID:   caller.UserID,
		CreatedAt:      time.Now(),
		Payload:        resp.Pending.Data,
	}
	if err := s.pending.Put(ctx, action, s.cfg.Pending.TTL); err != nil && s.logger != nil {
		s.logger.Error("failed to persist pending action", "confirmationId", action.ConfirmationID, "error", err)
	}
	// The client event carries a safe subset only: the confirmation
	// payload itself stays server-side in the Pending Action Store.
	_ = sse.Event("pending", pendingEvent{
		ConfirmationID: resp.Pending.ConfirmationID,
		Message:        resp.Pending.Message,
		Data: map[string]string{
			"tool":   call.Name,
			"server": serverName,
		},
	})
}

func (s *Server) emitTimeout(sse *sseWriter) {
	_ = sse.Event("error", errorEvent{Code: string(envelope.CodeRequestTimeout), Message: "request exceeded its total time budget"})
}

func (s *Server) logError(err error, correlationID string) {
	if s.logger == nil {
		return
	}
	s.logger.Error("query stream error", "correlationId", correlationID, "error", err)
}
