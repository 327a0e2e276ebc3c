package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"payment-webhook-service/internal/common/errors"
	"payment-webhook-service/internal/storage"
)

type Adapter struct {
	db     *sql.DB
	config *Config
}

// NewAdapter opens the PostgreSQL database via the pgx stdlib driver and
// runs the idempotent migration
func NewAdapter(config *Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid PostgreSQL config: %w", err)
	}

	db, err := sql.Open("pgx", config.GetConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	adapter := &Adapter{
		db:     db,
		config: config,
	}

	if err := adapter.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return adapter, nil
}

func (a *Adapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func (a *Adapter) Health() error {
	return a.db.Ping()
}

func (a *Adapter) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS payment_events (
			id BIGSERIAL PRIMARY KEY,
			event_id TEXT UNIQUE NOT NULL,
			event_type TEXT NOT NULL,
			payment_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			received_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_payment_events_event_id ON payment_events(event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_payment_events_payment_id ON payment_events(payment_id)`,
		`CREATE INDEX IF NOT EXISTS idx_payment_events_received_at ON payment_events(received_at)`,
	}

	for _, query := range queries {
		if _, err := a.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration query: %w", err)
		}
	}

	return nil
}

// InsertEventIfAbsent relies on the UNIQUE constraint on event_id; the
// conflict clause turns concurrent duplicate deliveries into a zero-row
// insert instead of a constraint violation.
func (a *Adapter) InsertEventIfAbsent(ctx context.Context, event *storage.PaymentEvent) (bool, error) {
	if err := event.Validate(); err != nil {
		return false, err
	}

	query := `INSERT INTO payment_events (event_id, event_type, payment_id, payload, received_at)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT (event_id) DO NOTHING
			  RETURNING id`

	err := a.db.QueryRowContext(ctx, query,
		event.EventID, event.EventType, event.PaymentID, event.Payload,
		event.ReceivedAt.UTC()).Scan(&event.ID)
	if err != nil {
		// RETURNING yields no row when the conflict clause suppressed the insert
		if stderrors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, errors.ConnectionError("failed to insert event", err)
	}

	return true, nil
}

func (a *Adapter) GetEventByID(ctx context.Context, eventID string) (*storage.PaymentEvent, error) {
	query := `SELECT id, event_id, event_type, payment_id, payload, received_at, created_at
			  FROM payment_events WHERE event_id = $1`

	event := &storage.PaymentEvent{}
	err := a.db.QueryRowContext(ctx, query, eventID).Scan(
		&event.ID, &event.EventID, &event.EventType, &event.PaymentID,
		&event.Payload, &event.ReceivedAt, &event.CreatedAt)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundError("event")
		}
		return nil, errors.ConnectionError("failed to get event", err)
	}

	return event, nil
}

func (a *Adapter) ListEventsByPaymentID(ctx context.Context, paymentID string) ([]*storage.PaymentEvent, error) {
	query := `SELECT id, event_id, event_type, payment_id, payload, received_at, created_at
			  FROM payment_events WHERE payment_id = $1
			  ORDER BY received_at ASC, id ASC`

	rows, err := a.db.QueryContext(ctx, query, paymentID)
	if err != nil {
		return nil, errors.ConnectionError("failed to list events", err)
	}
	defer rows.Close()

	events := []*storage.PaymentEvent{}
	for rows.Next() {
		event := &storage.PaymentEvent{}
		err := rows.Scan(&event.ID, &event.EventID, &event.EventType, &event.PaymentID,
			&event.Payload, &event.ReceivedAt, &event.CreatedAt)
		if err != nil {
			return nil, errors.InternalError("failed to scan event", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.ConnectionError("failed to list events", err)
	}

	return events, nil
}
