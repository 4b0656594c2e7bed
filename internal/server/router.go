package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plansink/plansink/internal/handlers"
	"github.com/plansink/plansink/internal/middleware"
)

// NewRouter constructs a ServeMux with webhook API routes registered.
func NewRouter(h *handlers.WebhookHandler) http.Handler {
	mux := http.NewServeMux()

	// Webhook endpoint
	mux.HandleFunc("/webhooks/plan-sale", h.HandleEvent)

	// Health endpoints
	mux.HandleFunc("/healthz", h.Health)
	mux.HandleFunc("/readyz", h.Ready)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	return middleware.RequestID(mux)
}
