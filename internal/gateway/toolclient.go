package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/envelope"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/toolserver"
	"github.com/jcornell3/tamshai-enterprise-ai-sub013/pkg/models"
)

// ToolClient invokes a domain Tool Server's /tools/{name} and /execute
// endpoints on the Gateway's behalf, applying the per-call timeout
// budgets and converting transport failures into the uniform error
// envelope so one failing backend never aborts the rest of the query.
type ToolClient struct {
	http         *http.Client
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewToolClient builds a ToolClient with the configured read/write
// timeouts.
func NewToolClient(httpClient *http.Client, readTimeout, writeTimeout time.Duration) *ToolClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ToolClient{http: httpClient, readTimeout: readTimeout, writeTimeout: writeTimeout}
}

// Invoke calls baseURL + /tools/{name} with args as the body, carrying
// caller in headers, bounded by the read or write timeout depending on
// descriptor.Write.
func (c *ToolClient) Invoke(ctx context.Context, baseURL string, descriptor models.ToolDescriptor, caller models.CallerContext, args json.RawMessage) envelope.ToolResponse {
	timeout := c.readTimeout
	if descriptor.Write {
		timeout = c.writeTimeout
	}
	url := baseURL + "/tools/" + descriptor.Name
	return c.call(ctx, timeout, url, caller, args)
}

// executeBody is the wire shape POST /execute expects: the tool name
// and the confirmation data stored with the PendingAction.
type executeBody struct {
	Tool string          `json:"tool"`
	Data json.RawMessage `json:"data"`
}

// Execute calls baseURL + /execute, bounded by the write timeout
// regardless of the original tool's read/write flag — execute is
// always a mutation.
func (c *ToolClient) Execute(ctx context.Context, baseURL, toolName string, caller models.CallerContext, data json.RawMessage) envelope.ToolResponse {
	body, err := json.Marshal(executeBody{Tool: toolName, Data: data})
	if err != nil {
		return envelope.NewError(envelope.CodeUpstreamError, "failed to build execute request")
	}
	return c.call(ctx, c.writeTimeout, baseURL+"/execute", caller, body)
}

func (c *ToolClient) call(ctx context.Context, timeout time.Duration, url string, caller models.CallerContext, body json.RawMessage) envelope.ToolResponse {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytesReader(body))
	if err != nil {
		return envelope.NewErrorDetailed(envelope.CodeUpstreamError, "failed to build tool request", "", err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	toolserver.SetCallerHeaders(req.Header, caller)

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return envelope.NewError(envelope.CodeTimeout, "tool server did not respond within the allotted time")
		}
		return envelope.NewErrorDetailed(envelope.CodeUpstreamError, "tool server request failed", "", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return envelope.NewErrorDetailed(envelope.CodeProtocolViolation,
			"tool server returned a non-success status",
			"",
			fmt.Sprintf("status=%d url=%s", resp.StatusCode, url))
	}

	var out envelope.ToolResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return envelope.NewErrorDetailed(envelope.CodeProtocolViolation, "tool server returned a malformed envelope", "", err.Error())
	}
	if err := out.Validate(); err != nil {
		return envelope.NewErrorDetailed(envelope.CodeProtocolViolation, "tool server returned a malformed envelope", "", err.Error())
	}
	return out
}
