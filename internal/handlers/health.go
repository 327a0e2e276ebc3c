package handlers

import (
	"net/http"
	"time"
)

// HealthCheck reports the health of the service and its dependencies.
// Storage is load-bearing, so a failed ping degrades the response to 503;
// the dedup cache is advisory and only reported.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	}

	code := http.StatusOK

	if err := h.storage.Health(); err != nil {
		status["status"] = "unhealthy"
		status["storage_status"] = "unhealthy"
		status["storage_error"] = err.Error()
		code = http.StatusServiceUnavailable
	} else {
		status["storage_status"] = "healthy"
	}

	if h.cache != nil {
		if err := h.cache.Health(); err != nil {
			status["cache_status"] = "unhealthy"
		} else {
			status["cache_status"] = "healthy"
		}
	} else {
		status["cache_status"] = "not_configured"
	}

	h.respondJSON(w, code, status)
}
