// Package llm defines the streaming chat-with-tools contract the
// Gateway drives and the provider implementations backing it.
package llm

import (
	"context"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

// Provider is a streaming chat-completions backend: it accepts a
// list of tool schemas, emits tool-call requests
// inline with text, and supports re-injection of tool results into an
// ongoing stream. Any provider matching this shape is substitutable.
//
// Implementations must be safe for concurrent use; the Gateway may run
// many simultaneous streaming queries against the same Provider.
type Provider interface {
	// Complete opens a streaming completion for req. The returned
	// channel is closed after a chunk with Done set to true or an
	// error chunk is delivered. Canceling ctx aborts the underlying
	// stream and closes the channel.
	Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error)

	// Name identifies the provider for logging and configuration.
	Name() string

	// Models lists the models this provider can serve.
	Models() []Model

	// SupportsTools reports whether the provider can advertise tool
	// schemas and accept tool-call turns.
	SupportsTools() bool
}

// CompletionRequest is one turn of the query loop: the running
// conversation, the caller's current tool allow-list, and the system
// prompt synthesized for this query (allow-list, injection guards,
// pagination instructions).
type CompletionRequest struct {
	Model     string              `json:"model"`
	System    string              `json:"system,omitempty"`
	Messages  []CompletionMessage `json:"messages"`
	Tools     []Tool              `json:"tools,omitempty"`
	MaxTokens int                 `json:"max_tokens,omitempty"`
}

// CompletionMessage is one turn of the conversation. Role is "user",
// "assistant", or "tool".
type CompletionMessage struct {
	Role        string            `json:"role"`
	Content     string            `json:"content,omitempty"`
	ToolCalls   []models.ToolCall `json:"tool_calls,omitempty"`
	ToolResults []ToolResult      `json:"tool_results,omitempty"`
}

// ToolResult carries a Tool Server envelope back into the
// conversation, keyed to the ToolCall it answers.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// CompletionChunk is one increment of a streaming response: either
// partial text, a complete tool-call request, the terminal usage
// summary, or an error that ends the stream.
type CompletionChunk struct {
	Text         string           `json:"text,omitempty"`
	ToolCall     *models.ToolCall `json:"tool_call,omitempty"`
	Done         bool             `json:"done,omitempty"`
	Error        error            `json:"-"`
	InputTokens  int              `json:"input_tokens,omitempty"`
	OutputTokens int              `json:"output_tokens,omitempty"`
}

// Model describes one model a provider can serve.
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContextSize int    `json:"context_size"`
}

// Tool is the schema the provider advertises to the model for one
// allowed tool, derived from a models.ToolDescriptor.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema []byte `json:"input_schema"`
}

// ToolsFromDescriptors converts the caller's allowed tool set into the
// provider-neutral Tool schema shape.
func ToolsFromDescriptors(descriptors []models.ToolDescriptor) []Tool {
	tools := make([]Tool, 0, len(descriptors))
	for _, d := range descriptors {
		tools = append(tools, Tool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: []byte(d.InputSchema),
		})
	}
	return tools
}
