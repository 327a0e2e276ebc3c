package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"payment-webhook-service/internal/common/errors"
	"payment-webhook-service/internal/storage"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()

	adapter, err := NewAdapter(&Config{
		DatabasePath: filepath.Join(t.TempDir(), "events.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { adapter.Close() })

	return adapter
}

func testEvent(eventID, paymentID string, receivedAt time.Time) *storage.PaymentEvent {
	return &storage.PaymentEvent{
		EventID:    eventID,
		EventType:  "payment.captured",
		PaymentID:  paymentID,
		Payload:    fmt.Sprintf(`{"event":"payment.captured","id":"%s"}`, eventID),
		ReceivedAt: receivedAt,
	}
}

func TestInsertEventIfAbsent(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()

	t.Run("NewEvent", func(t *testing.T) {
		event := testEvent("evt_1", "pay_1", time.Now().UTC())

		inserted, err := adapter.InsertEventIfAbsent(ctx, event)

		require.NoError(t, err)
		assert.True(t, inserted)
		assert.NotZero(t, event.ID)
	})

	t.Run("DuplicateEventID", func(t *testing.T) {
		event := testEvent("evt_1", "pay_1", time.Now().UTC())

		inserted, err := adapter.InsertEventIfAbsent(ctx, event)

		require.NoError(t, err, "duplicate must not surface as an error")
		assert.False(t, inserted)
	})

	t.Run("DuplicateDoesNotOverwrite", func(t *testing.T) {
		dup := testEvent("evt_1", "pay_other", time.Now().UTC())
		dup.EventType = "payment.failed"

		_, err := adapter.InsertEventIfAbsent(ctx, dup)
		require.NoError(t, err)

		stored, err := adapter.GetEventByID(ctx, "evt_1")
		require.NoError(t, err)
		assert.Equal(t, "payment.captured", stored.EventType)
		assert.Equal(t, "pay_1", stored.PaymentID)
	})

	t.Run("MissingRequiredField", func(t *testing.T) {
		event := testEvent("evt_invalid", "pay_1", time.Now().UTC())
		event.EventType = ""

		_, err := adapter.InsertEventIfAbsent(ctx, event)

		assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
	})
}

func TestInsertEventIfAbsentConcurrent(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan bool, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inserted, err := adapter.InsertEventIfAbsent(ctx, testEvent("evt_race", "pay_race", time.Now().UTC()))
			assert.NoError(t, err)
			results <- inserted
		}()
	}

	wg.Wait()
	close(results)

	wins := 0
	for inserted := range results {
		if inserted {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent insert must win")

	events, err := adapter.ListEventsByPaymentID(ctx, "pay_race")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestGetEventByID(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()

	received := time.Date(2026, 2, 14, 10, 30, 0, 500*int(time.Millisecond), time.UTC)
	_, err := adapter.InsertEventIfAbsent(ctx, testEvent("evt_get", "pay_get", received))
	require.NoError(t, err)

	t.Run("Found", func(t *testing.T) {
		event, err := adapter.GetEventByID(ctx, "evt_get")

		require.NoError(t, err)
		assert.Equal(t, "evt_get", event.EventID)
		assert.Equal(t, "pay_get", event.PaymentID)
		assert.True(t, event.ReceivedAt.Equal(received), "received_at must round-trip")
		assert.NotEmpty(t, event.Payload)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := adapter.GetEventByID(ctx, "evt_missing")

		assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
	})
}

func TestListEventsByPaymentID(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()

	base := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)

	// Inserted out of order on purpose
	for _, e := range []struct {
		id     string
		offset time.Duration
	}{
		{"evt_b", 2 * time.Minute},
		{"evt_c", 10 * time.Minute},
		{"evt_a", 0},
	} {
		_, err := adapter.InsertEventIfAbsent(ctx, testEvent(e.id, "pay_list", base.Add(e.offset)))
		require.NoError(t, err)
	}

	t.Run("OrderedByReceivedAt", func(t *testing.T) {
		events, err := adapter.ListEventsByPaymentID(ctx, "pay_list")

		require.NoError(t, err)
		require.Len(t, events, 3)
		assert.Equal(t, "evt_a", events[0].EventID)
		assert.Equal(t, "evt_b", events[1].EventID)
		assert.Equal(t, "evt_c", events[2].EventID)
		for i := 1; i < len(events); i++ {
			assert.False(t, events[i].ReceivedAt.Before(events[i-1].ReceivedAt))
		}
	})

	t.Run("UnknownPaymentID", func(t *testing.T) {
		events, err := adapter.ListEventsByPaymentID(ctx, "pay_unknown")

		require.NoError(t, err)
		assert.NotNil(t, events)
		assert.Empty(t, events)
	})
}

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")

	first, err := NewAdapter(&Config{DatabasePath: path})
	require.NoError(t, err)

	_, err = first.InsertEventIfAbsent(context.Background(), testEvent("evt_keep", "pay_keep", time.Now().UTC()))
	require.NoError(t, err)
	require.NoError(t, first.Close())

	// Reopening runs the migration again and must preserve existing rows
	second, err := NewAdapter(&Config{DatabasePath: path})
	require.NoError(t, err)
	defer second.Close()

	event, err := second.GetEventByID(context.Background(), "evt_keep")
	require.NoError(t, err)
	assert.Equal(t, "pay_keep", event.PaymentID)
}

func TestHealth(t *testing.T) {
	adapter := newTestAdapter(t)

	assert.NoError(t, adapter.Health())
}
