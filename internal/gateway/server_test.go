package gateway

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/auth"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/config"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/llm"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/pendingstore"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

// scriptedProvider replays a fixed sequence of turns: each call to
// Complete consumes the next chunk list. It records every request so
// tests can inspect what the loop fed back to the model.
type scriptedProvider struct {
	turns    [][]*llm.CompletionChunk
	requests []*llm.CompletionRequest
}

func (p *scriptedProvider) Complete(ctx context.Context, req *llm.CompletionRequest) (<-chan *llm.CompletionChunk, error) {
	p.requests = append(p.requests, req)
	var turn []*llm.CompletionChunk
	if n := len(p.requests) - 1; n < len(p.turns) {
		turn = p.turns[n]
	}
	ch := make(chan *llm.CompletionChunk, len(turn)+1)
	for _, c := range turn {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func (p *scriptedProvider) Name() string        { return "scripted" }
func (p *scriptedProvider) Models() []llm.Model { return nil }
func (p *scriptedProvider) SupportsTools() bool { return true }

func testConfig() *config.Config {
	return &config.Config{
		Timeout: config.TimeoutConfig{
			ToolRead:     time.Second,
			ToolWrite:    2 * time.Second,
			RequestTotal: 10 * time.Second,
		},
		Pending:    config.PendingConfig{TTL: 5 * time.Minute},
		Pagination: config.PaginationConfig{MaxLimit: 50},
		LLM:        config.LLMConfig{Model: "test-model"},
	}
}

func newTestGateway(t *testing.T, provider llm.Provider) (*Server, *pendingstore.MemoryStore) {
	t.Helper()
	pending := pendingstore.NewMemoryStore()
	s := New(Deps{
		Config:   testConfig(),
		Provider: provider,
		Pending:  pending,
	})
	return s, pending
}

// registerTool installs a tool directly into the registry, pointing it
// at baseURL (usually an httptest server standing in for the domain
// Tool Server).
func registerTool(s *Server, d models.ToolDescriptor, baseURL string) {
	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()
	s.registry.tools[d.Name] = registeredTool{ToolDescriptor: d, baseURL: baseURL}
}

// sseEvent is one parsed event from a recorded /query stream.
type sseEvent struct {
	Name string
	Data string
}

func parseSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	for _, block := range strings.Split(body, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		var ev sseEvent
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.Name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				ev.Data = strings.TrimPrefix(line, "data: ")
			}
		}
		require.NotEmpty(t, ev.Name, "malformed SSE block: %q", block)
		events = append(events, ev)
	}
	return events
}

func eventNames(events []sseEvent) []string {
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.Name
	}
	return names
}

func findEvent(events []sseEvent, name string) (sseEvent, bool) {
	for _, e := range events {
		if e.Name == name {
			return e, true
		}
	}
	return sseEvent{}, false
}

func decodeEventData(t *testing.T, ev sseEvent, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(ev.Data), v))
}

func recordQuery(t *testing.T, s *Server, caller models.CallerContext, query string) []sseEvent {
	t.Helper()
	req := httptest.NewRequest("POST", "/query", strings.NewReader(`{"query":`+jsonString(query)+`}`))
	req = req.WithContext(auth.WithCaller(req.Context(), caller))
	rec := httptest.NewRecorder()

	s.handleQuery(rec, req)

	require.Equal(t, 200, rec.Code)
	return parseSSE(t, rec.Body.String())
}

func jsonString(s string) string {
	out, _ := json.Marshal(s)
	return string(out)
}
