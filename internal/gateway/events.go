package gateway

import "github.com/jcornell3/tamshai-enterprise-ai-sub013/internal/envelope"

// Event payload shapes, one per client-facing stream event.

type connectedEvent struct {
	CorrelationID string `json:"correlationId"`
}

type textEvent struct {
	Delta string `json:"delta"`
}

type toolEvent struct {
	Name     string                `json:"name"`
	Envelope envelope.ToolResponse `json:"envelope"`
}

type pendingEvent struct {
	ConfirmationID string `json:"confirmationId"`
	Message        string `json:"message"`
	Data           any    `json:"data,omitempty"`
}

type warningItem struct {
	Server  string `json:"server"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type warningsEvent struct {
	Items []warningItem `json:"items"`
}

type errorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type doneEvent struct{}
