package sqlite

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"payment-webhook-service/internal/common/errors"
	"payment-webhook-service/internal/storage"
)

// timeLayout is a fixed-width RFC 3339 variant (millisecond precision,
// always UTC). Fixed width keeps the TEXT column's lexicographic order
// identical to chronological order, which the listing index relies on.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

type Adapter struct {
	db     *sql.DB
	config *Config
}

// NewAdapter opens the SQLite database and runs the idempotent migration
func NewAdapter(config *Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid SQLite config: %w", err)
	}

	// Busy timeout keeps concurrent writers waiting instead of failing
	// with SQLITE_BUSY when deliveries race.
	db, err := sql.Open("sqlite3", config.DatabasePath+"?_busy_timeout=5000")
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
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id TEXT UNIQUE NOT NULL,
			event_type TEXT NOT NULL,
			payment_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			received_at TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
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

// InsertEventIfAbsent relies on the UNIQUE constraint on event_id: the
// conflict clause makes concurrent duplicate deliveries race safely, with
// exactly one insert winning and the rest observing zero affected rows.
func (a *Adapter) InsertEventIfAbsent(ctx context.Context, event *storage.PaymentEvent) (bool, error) {
	if err := event.Validate(); err != nil {
		return false, err
	}

	query := `INSERT INTO payment_events (event_id, event_type, payment_id, payload, received_at)
			  VALUES (?, ?, ?, ?, ?)
			  ON CONFLICT(event_id) DO NOTHING`

	result, err := a.db.ExecContext(ctx, query,
		event.EventID, event.EventType, event.PaymentID, event.Payload,
		event.ReceivedAt.UTC().Format(timeLayout))
	if err != nil {
		return false, errors.ConnectionError("failed to insert event", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, errors.InternalError("failed to read insert result", err)
	}

	if affected == 0 {
		return false, nil
	}

	if id, err := result.LastInsertId(); err == nil {
		event.ID = id
	}

	return true, nil
}

func (a *Adapter) GetEventByID(ctx context.Context, eventID string) (*storage.PaymentEvent, error) {
	query := `SELECT id, event_id, event_type, payment_id, payload, received_at, created_at
			  FROM payment_events WHERE event_id = ?`

	event, err := scanEvent(a.db.QueryRowContext(ctx, query, eventID))
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
			  FROM payment_events WHERE payment_id = ?
			  ORDER BY received_at ASC, id ASC`

	rows, err := a.db.QueryContext(ctx, query, paymentID)
	if err != nil {
		return nil, errors.ConnectionError("failed to list events", err)
	}
	defer rows.Close()

	events := []*storage.PaymentEvent{}
	for rows.Next() {
		event, err := scanEvent(rows)
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

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*storage.PaymentEvent, error) {
	event := &storage.PaymentEvent{}
	var receivedAt string

	err := row.Scan(&event.ID, &event.EventID, &event.EventType, &event.PaymentID,
		&event.Payload, &receivedAt, &event.CreatedAt)
	if err != nil {
		return nil, err
	}

	event.ReceivedAt, err = time.Parse(timeLayout, receivedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid received_at value %q: %w", receivedAt, err)
	}

	return event, nil
}
