// Package gateway implements the system's single front door:
// credential verification, tool discovery and allow-listing, the
// streaming LLM↔tool-call loop, and the pending-confirmation protocol.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

// registeredTool pairs a ToolDescriptor with the base URL of the Tool
// Server that owns it, so invocation can be dispatched without a
// second lookup.
type registeredTool struct {
	models.ToolDescriptor
	baseURL string
}

// ToolRegistry holds every tool discovered from the configured Tool
// Servers at startup. New tools are picked up by restarting the
// Gateway and re-running Discover; there is no mid-flight re-discovery.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]registeredTool
}

// NewToolRegistry builds an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]registeredTool)}
}

// Discover polls every configured Tool Server's discovery endpoint and
// replaces the registry's contents atomically. A single unreachable
// Tool Server fails the whole discovery pass — the Gateway should not
// start advertising a partial tool set silently.
func (r *ToolRegistry) Discover(ctx context.Context, client *http.Client, servers []ToolServerEndpoint) error {
	next := make(map[string]registeredTool)
	for _, server := range servers {
		descriptors, err := discoverOne(ctx, client, server)
		if err != nil {
			return fmt.Errorf("discover tools from %q: %w", server.Name, err)
		}
		for _, d := range descriptors {
			d.Server = server.Name
			next[d.Name] = registeredTool{ToolDescriptor: d, baseURL: server.BaseURL}
		}
	}
	r.mu.Lock()
	r.tools = next
	r.mu.Unlock()
	return nil
}

// ToolServerEndpoint is the minimal addressing information the
// registry and tool client need about a configured Tool Server.
type ToolServerEndpoint struct {
	Name    string
	BaseURL string
}

func discoverOne(ctx context.Context, client *http.Client, server ToolServerEndpoint) ([]models.ToolDescriptor, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, server.BaseURL+"/tools/discover", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var descriptors []models.ToolDescriptor
	if err := json.NewDecoder(resp.Body).Decode(&descriptors); err != nil {
		return nil, fmt.Errorf("decode discovery response: %w", err)
	}
	return descriptors, nil
}

// All returns every registered tool descriptor.
func (r *ToolRegistry) All() []models.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.ToolDescriptor, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.ToolDescriptor)
	}
	return out
}

// AllowedFor returns the tools caller may invoke.
func (r *ToolRegistry) AllowedFor(caller models.CallerContext) []models.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.ToolDescriptor
	for _, t := range r.tools {
		if t.AllowsCaller(caller) {
			out = append(out, t.ToolDescriptor)
		}
	}
	return out
}

// Lookup returns the registered tool and its base URL by name.
func (r *ToolRegistry) Lookup(name string) (models.ToolDescriptor, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return models.ToolDescriptor{}, "", false
	}
	return t.ToolDescriptor, t.baseURL, true
}
