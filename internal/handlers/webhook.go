package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"payment-webhook-service/internal/common/errors"
	"payment-webhook-service/internal/common/logging"
	"payment-webhook-service/internal/signature"
	"payment-webhook-service/internal/storage"
)

// webhookPayload mirrors the provider's notification envelope. Only the
// four required fields are extracted; the raw body is what gets stored.
type webhookPayload struct {
	Event   string `json:"event"`
	ID      string `json:"id"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleWebhook ingests a provider webhook notification.
//
// The pipeline is strictly ordered: capture the raw body, authenticate the
// signature over those exact bytes, and only then decode JSON and extract
// fields. Duplicate event ids respond 200 without writing, which makes the
// endpoint safe under the provider's at-least-once delivery.
func (h *Handlers) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.WithContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	rawBody, err := signature.PreserveRequestBody(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			h.respondError(w, http.StatusBadRequest, "Request body too large")
			return
		}
		logger.Error("Failed to read request body", err)
		h.respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// Authenticate before spending any work on the payload contents
	if err := h.verifier.Verify(r.Header, rawBody); err != nil {
		message := "Invalid signature"
		if stderrors.Is(err, signature.ErrMissingSignature) {
			message = "Missing signature"
		}
		h.respondError(w, errors.HTTPStatus(err), message)
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	eventType := payload.Event
	eventID := payload.ID
	paymentID := payload.Payload.Payment.Entity.ID

	if eventType == "" || eventID == "" || paymentID == "" {
		h.respondError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	// Advisory dedup pre-checks; the insert's uniqueness constraint is
	// what actually guarantees a single row per event.
	if h.seenBefore(r, eventID) {
		h.respondAlreadyProcessed(w, eventID)
		return
	}

	event := &storage.PaymentEvent{
		EventID:    eventID,
		EventType:  eventType,
		PaymentID:  paymentID,
		Payload:    string(rawBody),
		ReceivedAt: time.Now().UTC(),
	}

	inserted, err := h.storage.InsertEventIfAbsent(ctx, event)
	if err != nil {
		logger.Error("Failed to store event", err,
			logging.String("event_id", eventID),
		)
		h.respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.markSeen(r, eventID)

	if !inserted {
		// Lost a race against a concurrent duplicate delivery
		h.respondAlreadyProcessed(w, eventID)
		return
	}

	logger.Info("Webhook event stored",
		logging.String("event_id", eventID),
		logging.String("event_type", eventType),
		logging.String("payment_id", paymentID),
	)

	h.respondJSON(w, http.StatusOK, map[string]string{
		"message":    "Webhook processed successfully",
		"event_id":   eventID,
		"payment_id": paymentID,
	})
}

func (h *Handlers) respondAlreadyProcessed(w http.ResponseWriter, eventID string) {
	h.respondJSON(w, http.StatusOK, map[string]string{
		"message":  "Event already processed",
		"event_id": eventID,
	})
}

// seenBefore consults the cache first, then the store. Infrastructure
// failures during the pre-check fall through to the insert rather than
// failing the request.
func (h *Handlers) seenBefore(r *http.Request, eventID string) bool {
	ctx := r.Context()

	if h.cache != nil {
		seen, err := h.cache.Seen(ctx, eventID)
		if err != nil {
			h.logger.Warn("Dedup cache check failed",
				logging.Err(err),
				logging.String("event_id", eventID),
			)
		} else if seen {
			return true
		}
	}

	_, err := h.storage.GetEventByID(ctx, eventID)
	if err != nil {
		if !errors.IsType(err, errors.ErrTypeNotFound) {
			h.logger.Warn("Dedup pre-check query failed",
				logging.Err(err),
				logging.String("event_id", eventID),
			)
		}
		return false
	}

	return true
}

func (h *Handlers) markSeen(r *http.Request, eventID string) {
	if h.cache == nil {
		return
	}

	if err := h.cache.Mark(r.Context(), eventID); err != nil {
		h.logger.Warn("Failed to mark event in dedup cache",
			logging.Err(err),
			logging.String("event_id", eventID),
		)
	}
}
