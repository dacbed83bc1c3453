package handlers

import (
	"context"
	"net/http"
	"sort"
)

// Check reports one dependency's readiness.
type Check func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]Check
}

func NewHealthHandler(checks map[string]Check) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := map[string]string{}
	status := http.StatusOK
	for _, name := range names {
		if err := h.checks[name](r.Context()); err != nil {
			checks[name] = "unhealthy: " + err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks[name] = "ok"
		}
	}

	writeJSON(w, status, map[string]any{"status": statusStr(status), "checks": checks})
}

func statusStr(code int) string {
	if code == http.StatusOK {
		return "ok"
	}
	return "unhealthy"
}
