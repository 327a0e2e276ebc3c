package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"payment-webhook-service/internal/common/logging"
	"payment-webhook-service/internal/storage"
)

// receivedAtLayout is RFC 3339 with fixed millisecond precision, matching
// how ingestion stamps events
const receivedAtLayout = "2006-01-02T15:04:05.000Z07:00"

// eventView is the public projection of a stored event. The raw payload
// and internal identifiers are deliberately not exposed.
type eventView struct {
	EventType  string `json:"event_type"`
	ReceivedAt string `json:"received_at"`
}

// HandleListPaymentEvents returns the events recorded for a payment,
// ordered ascending by received_at. Unknown payment ids yield an empty
// list, not an error.
func (h *Handlers) HandleListPaymentEvents(w http.ResponseWriter, r *http.Request) {
	paymentID := mux.Vars(r)["payment_id"]

	events, err := h.storage.ListEventsByPaymentID(r.Context(), paymentID)
	if err != nil {
		h.logger.WithContext(r.Context()).Error("Failed to list payment events", err,
			logging.String("payment_id", paymentID),
		)
		h.respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.respondJSON(w, http.StatusOK, projectEvents(events))
}

func projectEvents(events []*storage.PaymentEvent) []eventView {
	views := make([]eventView, 0, len(events))
	for _, event := range events {
		views = append(views, eventView{
			EventType:  event.EventType,
			ReceivedAt: event.ReceivedAt.UTC().Format(receivedAtLayout),
		})
	}
	return views
}
