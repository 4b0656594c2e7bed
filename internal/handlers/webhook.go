package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/plansink/plansink/internal/httputil"
	"github.com/plansink/plansink/internal/service"
)

// Processor runs the ingestion sequence for one webhook delivery.
type Processor interface {
	Process(ctx context.Context, payload map[string]any) service.Result
	Reject(ctx context.Context, httpStatus int, message string) service.Result
}

// WebhookHandler terminates the inbound webhook HTTP surface.
type WebhookHandler struct {
	processor   Processor
	maxBodySize int64
}

// NewWebhookHandler builds the handler. maxBodySize caps request bodies in
// bytes; zero disables the cap.
func NewWebhookHandler(processor Processor, maxBodySize int64) *WebhookHandler {
	return &WebhookHandler{
		processor:   processor,
		maxBodySize: maxBodySize,
	}
}

// HandleEvent receives one plan-sale webhook delivery.
func (h *WebhookHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		h.write(w, h.processor.Reject(ctx, http.StatusMethodNotAllowed,
			"Method not allowed. Use POST."))
		return
	}

	body := r.Body
	if h.maxBodySize > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	}
	defer body.Close()

	var payload map[string]any
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		h.write(w, h.processor.Reject(ctx, http.StatusBadRequest,
			fmt.Sprintf("Invalid JSON: %v", err)))
		return
	}
	if payload == nil {
		h.write(w, h.processor.Reject(ctx, http.StatusBadRequest,
			"Invalid JSON: empty request body"))
		return
	}

	h.write(w, h.processor.Process(ctx, payload))
}

func (h *WebhookHandler) write(w http.ResponseWriter, res service.Result) {
	switch res.Status {
	case httputil.StatusSuccess:
		httputil.WriteSuccess(w, res.HTTPStatus, res.Message, res.Data)
	case httputil.StatusSkipped:
		httputil.WriteSkipped(w, res.HTTPStatus, res.Message)
	default:
		httputil.WriteError(w, res.HTTPStatus, res.Message)
	}
}

// Health reports liveness.
func (h *WebhookHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready reports readiness to accept deliveries.
func (h *WebhookHandler) Ready(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
