package handlers

import (
	"net/http"
	"time"

	"github.com/libellus/transit/internal/schedule"
)

// HealthHandler reports whether the schedule is loaded
type HealthHandler struct {
	provider *schedule.Provider
}

// NewHealthHandler creates a health handler
func NewHealthHandler(provider *schedule.Provider) *HealthHandler {
	return &HealthHandler{provider: provider}
}

// GetHealth handles GET /health
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	idx := h.provider.Index()
	if idx == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "error",
			"schedule":  "not loaded",
			"timestamp": time.Now().UTC(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"schedule":  idx.Stats(),
		"loadedAt":  h.provider.LoadedAt().UTC(),
		"timezone":  idx.Location().String(),
		"timestamp": time.Now().UTC(),
	})
}
