// Package structuring asks a chat model to turn OCR text into key/value JSON.
package structuring

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/docextract/internal/apperr"
	"github.com/nikhilbhutani/docextract/internal/config"
	"github.com/nikhilbhutani/docextract/internal/llm"
	"github.com/nikhilbhutani/docextract/internal/models"
	"github.com/nikhilbhutani/docextract/pkg/jsonextract"
	"github.com/nikhilbhutani/docextract/pkg/tokenizer"
)

const systemPrompt = `You are an AI trained to analyze and structure extracted text. You now need to extract key value pairs from the given text and categorize them into a JSON format. The text may contain various symbols, white spaces, and other artifacts due to OCR extraction. Focus on identifying meaningful key-value pairs. Your output should strictly only be in a json format, without any additional text or explanations.`

const userPromptPrefix = `This is my input data, it is extracted from a pdf file which is a form like bank registration form or any other form. I have used ocr to extract the text from the form. Since it's ocr it may have many problems like useless symbols, white spaces and stuff at random locations.`

// Structurer turns raw text into a StructuredResult.
type Structurer interface {
	Structure(ctx context.Context, rawText string) (models.StructuredResult, error)
}

type Client struct {
	gateway     llm.Gateway
	provider    string
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	logger      *slog.Logger
}

func NewClient(gw llm.Gateway, cfg config.LLMConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		gateway:     gw,
		provider:    cfg.Provider,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		logger:      logger,
	}
}

// Messages builds the fixed system/user prompt pair for rawText.
func Messages(rawText string) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: userPromptPrefix + "\n" + rawText},
	}
}

// Structure sends rawText to the model. A reply without a JSON object is
// not an error; it yields the fallback envelope.
func (c *Client) Structure(ctx context.Context, rawText string) (models.StructuredResult, error) {
	reqID := uuid.NewString()
	msgs := Messages(rawText)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.logger.Info("structuring.start",
		"req_id", reqID,
		"provider", c.provider,
		"model", c.model,
		"input_chars", len(rawText),
		"est_prompt_tokens", tokenizer.CountMessages(msgs[0].Content, msgs[1].Content),
	)

	temperature := c.temperature
	resp, err := c.gateway.Chat(ctx, llm.ChatRequest{
		Provider:    c.provider,
		Model:       c.model,
		Messages:    msgs,
		Temperature: &temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		c.logger.Error("structuring.failed", "req_id", reqID, "error", err)
		return models.StructuredResult{}, apperr.New(apperr.KindUpstream, "Failed to process text with AI model", err)
	}

	if obj, ok := jsonextract.Object(resp.Content); ok {
		c.logger.Info("structuring.ok",
			"req_id", reqID,
			"latency_ms", resp.LatencyMs,
			"input_tokens", resp.InputTokens,
			"output_tokens", resp.OutputTokens,
			"cost_usd", resp.CostUSD,
		)
		return models.ObjectResult(obj), nil
	}

	c.logger.Warn("structuring.fallback",
		"req_id", reqID,
		"latency_ms", resp.LatencyMs,
		"reply_chars", len(resp.Content),
	)
	return models.FallbackResult(rawText, resp.Content), nil
}
