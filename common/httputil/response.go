package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error  string `json:"error"`
	Fields any    `json:"fields,omitempty"`
}

// WriteJSON writes a JSON response with the given status code and data.
// Encoding failures are logged; the status line has already been sent.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorBody{Error: message})
}

// WriteFieldErrors writes a JSON error response carrying per-field details.
func WriteFieldErrors(w http.ResponseWriter, status int, message string, fields any) {
	WriteJSON(w, status, ErrorBody{Error: message, Fields: fields})
}
