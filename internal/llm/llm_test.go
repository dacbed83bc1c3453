package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/docextract/internal/config"
)

func testRequest() ChatRequest {
	temperature := 0.5
	return ChatRequest{
		Model: "llama3-70b-8192",
		Messages: []Message{
			{Role: RoleSystem, Content: "only JSON"},
			{Role: RoleUser, Content: "Name: John Doe"},
		},
		Temperature: &temperature,
		MaxTokens:   1024,
	}
}

func TestOpenAIProviderChatCompletion(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"model": "llama3-70b-8192",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"Name\":\"John Doe\"}"}}],
			"usage": {"prompt_tokens": 1000, "completion_tokens": 1000, "total_tokens": 2000}
		}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("test-key", srv.URL)
	resp, err := p.ChatCompletion(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, `{"Name":"John Doe"}`, resp.Content)
	assert.Equal(t, "openai", resp.Provider)
	assert.Equal(t, 2000, resp.TotalTokens)
	assert.InDelta(t, 0.00059+0.00079, resp.CostUSD, 1e-9)

	assert.Equal(t, "llama3-70b-8192", got["model"])
	assert.InDelta(t, 0.5, got["temperature"], 1e-6)
	assert.EqualValues(t, 1024, got["max_tokens"])
	msgs, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
}

func TestOpenAIProviderSendsZeroTemperature(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "{}"}}]}`))
	}))
	defer srv.Close()

	req := testRequest()
	zero := 0.0
	req.Temperature = &zero
	_, err := NewOpenAIProvider("k", srv.URL).ChatCompletion(context.Background(), req)
	require.NoError(t, err)

	require.Contains(t, got, "temperature")
	assert.InDelta(t, 0, got["temperature"], 1e-6)
}

func TestOpenAIProviderUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "Invalid API Key", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	_, err := NewOpenAIProvider("bad", srv.URL).ChatCompletion(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API Key")
}

func TestOllamaProviderChatCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var req ollamaChatReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		require.NotNil(t, req.Options)
		assert.Equal(t, 1024, req.Options.NumPredict)
		require.NotNil(t, req.Options.Temperature)
		assert.InDelta(t, 0.5, *req.Options.Temperature, 1e-9)

		_, _ = w.Write([]byte(`{"message": {"role": "assistant", "content": "hi"}, "done": true, "prompt_eval_count": 3, "eval_count": 2}`))
	}))
	defer srv.Close()

	resp, err := NewOllamaProvider(srv.URL+"/").ChatCompletion(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Content)
	assert.Equal(t, 5, resp.TotalTokens)
}

func TestOllamaProviderSendsZeroTemperature(t *testing.T) {
	var raw map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Options map[string]json.RawMessage `json:"options"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		raw = req.Options
		_, _ = w.Write([]byte(`{"message": {"role": "assistant", "content": "{}"}, "done": true}`))
	}))
	defer srv.Close()

	req := testRequest()
	zero := 0.0
	req.Temperature = &zero
	_, err := NewOllamaProvider(srv.URL).ChatCompletion(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "0", string(raw["temperature"]))
}

func TestOllamaProviderNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL).ChatCompletion(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Contains(t, err.Error(), "model not found")
}

type stubProvider struct {
	name  string
	calls int
}

func (s *stubProvider) Name() string     { return s.name }
func (s *stubProvider) Models() []string { return []string{"m1"} }
func (s *stubProvider) ChatCompletion(_ context.Context, req ChatRequest) (*ChatResponse, error) {
	s.calls++
	return &ChatResponse{Provider: s.name, Model: req.Model}, nil
}

func TestGatewayRouting(t *testing.T) {
	a := &stubProvider{name: "openai"}
	b := &stubProvider{name: "ollama"}
	g := NewGatewayWithProviders("openai", a, b)

	resp, err := g.Chat(context.Background(), ChatRequest{Model: "x"})
	require.NoError(t, err)
	assert.Equal(t, "openai", resp.Provider)

	resp, err = g.Chat(context.Background(), ChatRequest{Provider: "ollama", Model: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ollama", resp.Provider)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)

	_, err = g.Chat(context.Background(), ChatRequest{Provider: "anthropic"})
	assert.Error(t, err)
	assert.Len(t, g.ListModels(), 2)
}

func TestNewGateway(t *testing.T) {
	g, err := NewGateway(config.LLMConfig{Provider: "openai", APIKey: "k"})
	require.NoError(t, err)
	_, err = g.Provider("openai")
	assert.NoError(t, err)
	_, err = g.Provider("ollama")
	assert.Error(t, err)

	g, err = NewGateway(config.LLMConfig{Provider: "ollama", OllamaURL: "http://localhost:11434"})
	require.NoError(t, err)
	assert.Equal(t, "ollama", g.DefaultProvider())
	_, err = g.Provider("ollama")
	assert.NoError(t, err)

	_, err = NewGateway(config.LLMConfig{Provider: "bogus"})
	assert.Error(t, err)
}

func TestCalculateCost(t *testing.T) {
	assert.InDelta(t, 0.00059, CalculateCost("llama3-70b-8192", 1000, 0), 1e-12)
	assert.Zero(t, CalculateCost("unknown-model", 1000, 1000))
}
