package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/nikhilbhutani/docextract/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Not found", Details: r.Method + " " + r.URL.Path})
}
