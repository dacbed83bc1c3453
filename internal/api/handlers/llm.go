package handlers

import (
	"net/http"

	"github.com/nikhilbhutani/docextract/internal/llm"
)

type LLMHandler struct {
	gateway llm.Gateway
	model   string
}

func NewLLMHandler(gw llm.Gateway, model string) *LLMHandler {
	return &LLMHandler{gateway: gw, model: model}
}

// Models lists the registered providers' models and the one used for structuring.
func (h *LLMHandler) Models(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"provider": h.gateway.DefaultProvider(),
		"model":    h.model,
		"models":   h.gateway.ListModels(),
	})
}
