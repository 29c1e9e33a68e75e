package transport

import (
	"context"
	"time"

	"am-client/internal/docstore"
)

// ChatOptions carries optional per-call parameters.
type ChatOptions struct {
	SessionID string
	Context   string
}

// ChatSource is one supporting document reported by the backend.
type ChatSource struct {
	Title     string  `json:"title"`
	Snippet   string  `json:"snippet"`
	Relevance float64 `json:"relevance"`
}

// Usage reports token accounting for a chat call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// ChatResponse is the backend's answer to a chat call.
type ChatResponse struct {
	Reply     string       `json:"reply"`
	SessionID string       `json:"session_id"`
	Sources   []ChatSource `json:"sources"`
	Usage     Usage        `json:"usage"`
}

// SystemSettings are server-pushed directives cached by the client.
type SystemSettings struct {
	CacheRetentionHours float64 `json:"cache_retention_hours"`
	MaintenanceMode     bool    `json:"maintenance_mode"`
	MaintenanceMessage  string  `json:"maintenance_message,omitempty"`
	ForceOfflineClients bool    `json:"force_offline_clients"`
}

// Quota reports remaining request budget.
type Quota struct {
	Used  int `json:"used"`
	Limit int `json:"limit"`
}

// StatusResponse is the backend's health/status payload.
type StatusResponse struct {
	Quota          *Quota          `json:"quota,omitempty"`
	SystemSettings *SystemSettings `json:"system_settings,omitempty"`
}

// StreamHandlers receive streaming chat events. Stream failures go to
// OnError, never to the caller as a return value.
type StreamHandlers struct {
	OnToken    func(token string)
	OnSources  func(sources []ChatSource)
	OnComplete func(resp ChatResponse)
	OnError    func(err error)
}

// Transport is the network collaborator the orchestrator degrades around.
type Transport interface {
	Chat(ctx context.Context, message string, opts ChatOptions) (ChatResponse, error)
	ChatStream(ctx context.Context, message string, opts ChatOptions, h StreamHandlers)
	GetGeneralDocs(ctx context.Context, since *time.Time) ([]docstore.ReferenceDocument, error)
	GetStatus(ctx context.Context) (StatusResponse, error)
}
