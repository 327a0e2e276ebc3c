// Package storage defines the event store contract and its persisted model.
package storage

import (
	"context"
	"time"

	"payment-webhook-service/internal/common/errors"
)

// PaymentEvent is the sole persisted entity: one provider webhook
// notification, stored append-only. The raw payload is kept verbatim for
// audit and replay; ReceivedAt is server-assigned at ingestion time while
// CreatedAt is assigned by the storage layer on insert.
type PaymentEvent struct {
	ID         int64     `json:"-"`
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	PaymentID  string    `json:"payment_id"`
	Payload    string    `json:"-"`
	ReceivedAt time.Time `json:"received_at"`
	CreatedAt  time.Time `json:"-"`
}

// Validate checks the mandatory-field invariant before an insert is attempted
func (e *PaymentEvent) Validate() error {
	if e.EventID == "" {
		return errors.ValidationError("event_id is required")
	}
	if e.EventType == "" {
		return errors.ValidationError("event_type is required")
	}
	if e.PaymentID == "" {
		return errors.ValidationError("payment_id is required")
	}
	if e.Payload == "" {
		return errors.ValidationError("payload is required")
	}
	if e.ReceivedAt.IsZero() {
		return errors.ValidationError("received_at is required")
	}
	return nil
}

// Storage is the event store. Implementations must enforce event_id
// uniqueness at the storage layer so concurrent duplicate deliveries never
// produce two rows for one event.
type Storage interface {
	// InsertEventIfAbsent persists the event and reports whether the insert
	// happened. A false return with nil error means the event_id already
	// existed; that is the expected idempotent outcome, not a failure.
	InsertEventIfAbsent(ctx context.Context, event *PaymentEvent) (bool, error)

	// GetEventByID returns the stored event or a not_found error. Callers
	// use it as an advisory pre-check; the uniqueness constraint is the
	// real dedup guarantee.
	GetEventByID(ctx context.Context, eventID string) (*PaymentEvent, error)

	// ListEventsByPaymentID returns all events for a payment ordered
	// ascending by received_at, or an empty slice when none exist.
	ListEventsByPaymentID(ctx context.Context, paymentID string) ([]*PaymentEvent, error)

	Health() error
	Close() error
}
