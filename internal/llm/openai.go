package llm

import (
	"context"
	"fmt"
	"math"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider talks to any OpenAI-compatible chat endpoint (OpenAI, Groq, ...).
type OpenAIProvider struct {
	client *openai.Client
}

func NewOpenAIProvider(apiKey, baseURL string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Models() []string {
	return []string{
		"llama3-70b-8192", "llama3-8b-8192", "gpt-4o", "gpt-4o-mini",
	}
}

func (p *OpenAIProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	msgs := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	oReq := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: msgs,
	}
	if req.Temperature != nil {
		oReq.Temperature = float32(*req.Temperature)
		// go-openai drops a zero temperature from the request body
		if oReq.Temperature == 0 {
			oReq.Temperature = math.SmallestNonzeroFloat32
		}
	}
	if req.MaxTokens > 0 {
		oReq.MaxTokens = req.MaxTokens
	}

	resp, err := p.client.CreateChatCompletion(ctx, oReq)
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	return &ChatResponse{
		ID:           resp.ID,
		Provider:     p.Name(),
		Model:        resp.Model,
		Content:      content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
		CostUSD:      CalculateCost(req.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
		LatencyMs:    time.Since(start).Milliseconds(),
	}, nil
}
