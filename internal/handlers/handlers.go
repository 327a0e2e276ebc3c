// Package handlers implements the HTTP surface: webhook ingestion, the
// payment event listing, and the health check.
package handlers

import (
	"encoding/json"
	"net/http"

	"payment-webhook-service/internal/common/logging"
	"payment-webhook-service/internal/dedup"
	"payment-webhook-service/internal/signature"
	"payment-webhook-service/internal/storage"
)

// Handlers bundles the dependencies every endpoint needs. The store and
// verifier are constructed once at startup and shared; cache may be nil
// when no Redis address is configured.
type Handlers struct {
	storage      storage.Storage
	cache        *dedup.Cache
	verifier     *signature.Verifier
	maxBodyBytes int64
	logger       logging.Logger
}

// New creates the handler set
func New(store storage.Storage, cache *dedup.Cache, verifier *signature.Verifier, maxBodyBytes int64, logger logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &Handlers{
		storage:      store,
		cache:        cache,
		verifier:     verifier,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
