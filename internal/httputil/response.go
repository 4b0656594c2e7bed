// Package httputil writes the JSON response envelopes of the webhook API.
package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Envelope statuses on the wire.
const (
	StatusSuccess = "success"
	StatusSkipped = "skipped"
)

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encode JSON response", slog.Any("error", err))
	}
}

// WriteError writes the {"error": message} envelope.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// WriteSuccess writes the success envelope, merging extra data fields beside
// status and message.
func WriteSuccess(w http.ResponseWriter, status int, message string, data map[string]any) {
	body := map[string]any{
		"status":  StatusSuccess,
		"message": message,
	}
	for k, v := range data {
		body[k] = v
	}
	WriteJSON(w, status, body)
}

// WriteSkipped writes the duplicate-suppressed envelope.
func WriteSkipped(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]any{
		"status":  StatusSkipped,
		"message": message,
	})
}

// WriteStatus routes a semantic status code to its envelope shape:
// 200 skipped, 201 success, and the 4xx/5xx family to the error envelope.
// Unknown codes fall back to an error envelope with the original code.
func WriteStatus(w http.ResponseWriter, status int, message string, data map[string]any) {
	switch status {
	case http.StatusOK:
		WriteSkipped(w, status, message)
	case http.StatusCreated:
		WriteSuccess(w, status, message, data)
	case http.StatusBadRequest,
		http.StatusNotFound,
		http.StatusNotAcceptable,
		http.StatusConflict,
		http.StatusInternalServerError:
		WriteError(w, status, message)
	default:
		slog.Warn("unknown semantic status code, writing error envelope",
			slog.Int("status", status))
		WriteError(w, status, message)
	}
}
