package handlers

import (
	"net/http"
	"time"

	"github.com/liminara-shop/storefront/internal/platform/httpx"
)

var startTime = time.Now()

// HealthHandlers answers liveness probes for monitoring.
type HealthHandlers struct{}

// NewHealthHandlers constructs the health endpoints.
func NewHealthHandlers() *HealthHandlers {
	return &HealthHandlers{}
}

// Healthz responds with a simple status payload.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    time.Since(startTime).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
