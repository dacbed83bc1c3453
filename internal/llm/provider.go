package llm

import (
	"context"
)

// Provider abstracts a chat-completion backend (OpenAI-compatible, Anthropic, Ollama).
type Provider interface {
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Name() string
	Models() []string
}

// Gateway routes a request to a configured provider. There is no retry or
// fallback: one attempt per call.
type Gateway interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Provider(name string) (Provider, error)
	DefaultProvider() string
	ListModels() []ModelInfo
}

// Message represents a single chat message.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatRequest is the input for chat completions.
type ChatRequest struct {
	Provider    string    `json:"provider,omitempty"`
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"` // nil leaves the provider default
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// ChatResponse is the output from chat completions.
type ChatResponse struct {
	ID           string  `json:"id"`
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	Content      string  `json:"content"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	LatencyMs    int64   `json:"latency_ms"`
}

// ModelInfo describes an available model.
type ModelInfo struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}
