package toolserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/envelope"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

// Tool is one operation a domain Tool Server exposes. Invoke runs the
// full per-invocation flow for non-destructive tools; destructive
// tools build and return a pendingConfirmation envelope from Invoke
// instead of mutating anything.
type Tool interface {
	Descriptor() models.ToolDescriptor
	Invoke(ctx context.Context, caller models.CallerContext, args json.RawMessage) envelope.ToolResponse
}

// Executable is implemented by destructive tools. Execute is the only
// path that performs the mutation described by a previously-issued
// pendingConfirmation, reached by the Gateway via /confirm → /execute.
// It must re-check permissions and re-verify the originating user id
// carried in the confirmation data.
type Executable interface {
	Tool
	Execute(ctx context.Context, caller models.CallerContext, confirmationData json.RawMessage) envelope.ToolResponse
}

// Server is the common HTTP framework every domain Tool Server
// instantiates: a named tool registry plus the discover/invoke/execute/
// health endpoints every instance serves.
type Server struct {
	Name   string
	logger *slog.Logger

	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
	order   []string
}

// New builds an empty Server for the named domain (e.g. "hr").
func New(name string, logger *slog.Logger) *Server {
	return &Server{
		Name:    name,
		logger:  logger,
		tools:   make(map[string]Tool),
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Register compiles t's input schema and adds it to the tool registry.
// Panics on a duplicate name or an uncompilable schema — both are
// startup-time programming errors, not runtime conditions.
func (s *Server) Register(t Tool) {
	d := t.Descriptor()
	if d.Name == "" {
		panic("toolserver: tool descriptor missing name")
	}
	if _, exists := s.tools[d.Name]; exists {
		panic(fmt.Sprintf("toolserver: duplicate tool name %q", d.Name))
	}
	schema, err := jsonschema.CompileString(d.Name+"-input.json", string(d.InputSchema))
	if err != nil {
		panic(fmt.Sprintf("toolserver: compile schema for %q: %v", d.Name, err))
	}
	s.tools[d.Name] = t
	s.schemas[d.Name] = schema
	s.order = append(s.order, d.Name)
}

// Descriptors returns every registered tool's descriptor in
// registration order, the shape the discovery endpoint returns.
func (s *Server) Descriptors() []models.ToolDescriptor {
	out := make([]models.ToolDescriptor, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.tools[name].Descriptor())
	}
	return out
}

// Mux builds the http.Handler exposing the four framework endpoints.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tools/discover", s.handleDiscover)
	mux.HandleFunc("POST /tools/{name}", s.handleInvoke)
	mux.HandleFunc("POST /execute", s.handleExecute)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Descriptors())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "server": s.Name})
}

// handleInvoke checks caller context, argument schema, and roles
// before delegating to the tool's Invoke.
func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	tool, ok := s.tools[name]
	if !ok {
		writeEnvelope(w, envelope.NewError(envelope.CodeNotFound, fmt.Sprintf("unknown tool %q", name)))
		return
	}

	caller, err := CallerFromHeaders(r.Header)
	if err != nil {
		writeEnvelope(w, envelope.NewError(envelope.CodeInvalidContext, "missing or inconsistent caller context"))
		return
	}

	body, err := readBody(r)
	if err != nil {
		writeEnvelope(w, envelope.NewError(envelope.CodeValidationError, "malformed request body"))
		return
	}

	descriptor := tool.Descriptor()
	// Roles are checked before argument validation so callers without
	// the role learn nothing about a tool's input shape.
	if !descriptor.AllowsCaller(caller) {
		writeEnvelope(w, envelope.NewError(envelope.CodeInsufficientPerms, fmt.Sprintf("caller lacks a role required by %q", name)))
		return
	}

	if err := s.validate(name, body); err != nil {
		writeEnvelope(w, envelope.NewError(envelope.CodeValidationError, err.Error()))
		return
	}

	resp := tool.Invoke(r.Context(), caller, body)
	if err := resp.Validate(); err != nil {
		if s.logger != nil {
			s.logger.Error("tool returned malformed envelope", "tool", name, "error", err)
		}
		writeEnvelope(w, envelope.NewError(envelope.CodeProtocolViolation, "tool returned a malformed response"))
		return
	}
	writeEnvelope(w, resp)
}

// executeRequest is the body of POST /execute: the confirmation data
// persisted with the pendingConfirmation envelope, keyed to the tool
// whose destructive action it authorizes.
type executeRequest struct {
	Tool string          `json:"tool"`
	Data json.RawMessage `json:"data"`
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	caller, err := CallerFromHeaders(r.Header)
	if err != nil {
		writeEnvelope(w, envelope.NewError(envelope.CodeInvalidContext, "missing or inconsistent caller context"))
		return
	}

	body, err := readBody(r)
	if err != nil {
		writeEnvelope(w, envelope.NewError(envelope.CodeValidationError, "malformed request body"))
		return
	}
	var req executeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeEnvelope(w, envelope.NewError(envelope.CodeValidationError, "malformed execute request"))
		return
	}

	tool, ok := s.tools[req.Tool]
	if !ok {
		writeEnvelope(w, envelope.NewError(envelope.CodeNotFound, fmt.Sprintf("unknown tool %q", req.Tool)))
		return
	}
	executable, ok := tool.(Executable)
	if !ok {
		writeEnvelope(w, envelope.NewError(envelope.CodeProtocolViolation, fmt.Sprintf("tool %q is not executable", req.Tool)))
		return
	}

	descriptor := tool.Descriptor()
	if !descriptor.AllowsCaller(caller) {
		writeEnvelope(w, envelope.NewError(envelope.CodeInsufficientPerms, fmt.Sprintf("caller lacks a role required by %q", req.Tool)))
		return
	}

	resp := executable.Execute(r.Context(), caller, req.Data)
	if err := resp.Validate(); err != nil {
		if s.logger != nil {
			s.logger.Error("tool execute returned malformed envelope", "tool", req.Tool, "error", err)
		}
		writeEnvelope(w, envelope.NewError(envelope.CodeProtocolViolation, "tool returned a malformed response"))
		return
	}
	writeEnvelope(w, resp)
}

func (s *Server) validate(name string, body []byte) error {
	schema, ok := s.schemas[name]
	if !ok {
		return nil
	}
	var v any
	if len(body) == 0 {
		v = map[string]any{}
	} else if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%s", formatValidationError(err))
	}
	return nil
}

// formatValidationError renders a field-qualified message. jsonschema's
// *ValidationError already carries the failing instance path in its
// default Error() rendering (e.g. "at '/employee_id': ..."); this just
// strips the leading noise so the message reads as a single sentence.
func formatValidationError(err error) string {
	msg := err.Error()
	if verr, ok := err.(*jsonschema.ValidationError); ok && len(verr.Causes) > 0 {
		leaf := verr.Causes[0]
		for len(leaf.Causes) > 0 {
			leaf = leaf.Causes[0]
		}
		msg = strings.TrimPrefix(leaf.InstanceLocation, "/") + ": " + leaf.Message
	}
	return msg
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(r.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeEnvelope always writes HTTP 200: the tool-response envelope is
// the protocol, and a non-2xx status from a Tool Server is itself a
// PROTOCOL_VIOLATION for the Gateway to detect.
func writeEnvelope(w http.ResponseWriter, resp envelope.ToolResponse) {
	writeJSON(w, http.StatusOK, resp)
}
