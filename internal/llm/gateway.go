package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nikhilbhutani/docextract/internal/config"
)

type gateway struct {
	providers       map[string]Provider
	defaultProvider string
}

// NewGateway registers the configured provider, plus Ollama whenever a URL
// for it is set.
func NewGateway(cfg config.LLMConfig) (Gateway, error) {
	var ps []Provider
	switch cfg.Provider {
	case "openai":
		ps = append(ps, NewOpenAIProvider(cfg.APIKey, cfg.BaseURL))
	case "anthropic":
		ps = append(ps, NewAnthropicProvider(cfg.APIKey, cfg.BaseURL))
	case "ollama":
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
	if cfg.OllamaURL != "" {
		ps = append(ps, NewOllamaProvider(cfg.OllamaURL))
	}
	return NewGatewayWithProviders(cfg.Provider, ps...), nil
}

func NewGatewayWithProviders(defaultProvider string, ps ...Provider) Gateway {
	g := &gateway{
		providers:       make(map[string]Provider, len(ps)),
		defaultProvider: defaultProvider,
	}
	for _, p := range ps {
		g.providers[p.Name()] = p
	}
	return g
}

func (g *gateway) Provider(name string) (Provider, error) {
	p, ok := g.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not configured", name)
	}
	return p, nil
}

func (g *gateway) DefaultProvider() string { return g.defaultProvider }

func (g *gateway) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	providerName := req.Provider
	if providerName == "" {
		providerName = g.defaultProvider
	}

	p, err := g.Provider(providerName)
	if err != nil {
		return nil, err
	}

	resp, err := p.ChatCompletion(ctx, req)
	if err != nil {
		slog.Debug("llm.chat.failed", "provider", providerName, "model", req.Model, "error", err)
		return nil, err
	}
	return resp, nil
}

func (g *gateway) ListModels() []ModelInfo {
	var models []ModelInfo
	for _, p := range g.providers {
		for _, m := range p.Models() {
			models = append(models, ModelInfo{Provider: p.Name(), Model: m})
		}
	}
	return models
}
