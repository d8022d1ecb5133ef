package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OutboxEntry is an event waiting for delivery.
type OutboxEntry struct {
	ID        uuid.UUID
	Aggregate string
	Type      string
	Payload   json.RawMessage
	CreatedAt time.Time
	// Attempts counts earlier failed deliveries.
	Attempts int
}

// DeliveryHandler emits events to downstream transports.
type DeliveryHandler interface {
	Handle(ctx context.Context, entry OutboxEntry) error
}

type outboxDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// OutboxStore keeps booking events in the same database as the bookings.
type OutboxStore struct {
	db outboxDB
}

func NewOutboxStore(pool *pgxpool.Pool) *OutboxStore {
	if pool == nil {
		panic("events: pgx pool required")
	}
	return &OutboxStore{db: pool}
}

func newOutboxStoreWithDB(db outboxDB) *OutboxStore {
	if db == nil {
		panic("events: db required")
	}
	return &OutboxStore{db: db}
}

// Insert records an event for aggregate, usually a booking id.
func (s *OutboxStore) Insert(ctx context.Context, aggregate string, eventType string, payload any) (uuid.UUID, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("events: marshal %s: %w", eventType, err)
	}
	id := uuid.New()
	if _, err := s.db.Exec(ctx,
		`INSERT INTO outbox (id, aggregate, event_type, payload) VALUES ($1, $2, $3, $4)`,
		id, aggregate, eventType, data,
	); err != nil {
		return uuid.Nil, fmt.Errorf("events: insert outbox: %w", err)
	}
	return id, nil
}

// FetchPending returns undelivered entries that are due, oldest first.
// Entries given up on and entries still backing off are skipped.
func (s *OutboxStore) FetchPending(ctx context.Context, limit int32) ([]OutboxEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, aggregate, event_type, payload, created_at, attempts
		FROM outbox
		WHERE delivered_at IS NULL
		  AND dead_at IS NULL
		  AND (next_attempt_at IS NULL OR next_attempt_at <= now())
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("events: fetch pending: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (OutboxEntry, error) {
		var e OutboxEntry
		var payload []byte
		err := row.Scan(&e.ID, &e.Aggregate, &e.Type, &payload, &e.CreatedAt, &e.Attempts)
		e.Payload = append(json.RawMessage(nil), payload...)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("events: scan outbox: %w", err)
	}
	return entries, nil
}

// MarkDelivered reports false when the entry was already delivered.
func (s *OutboxStore) MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error) {
	ct, err := s.db.Exec(ctx,
		`UPDATE outbox SET delivered_at = now() WHERE id = $1 AND delivered_at IS NULL`, id)
	if err != nil {
		return false, fmt.Errorf("events: mark delivered: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

// MarkFailed records a failed attempt. A zero retryAt parks the entry for good.
func (s *OutboxStore) MarkFailed(ctx context.Context, id uuid.UUID, cause string, retryAt time.Time) error {
	var err error
	if retryAt.IsZero() {
		_, err = s.db.Exec(ctx, `
			UPDATE outbox
			SET attempts = attempts + 1, last_error = $2, dead_at = now()
			WHERE id = $1 AND delivered_at IS NULL
		`, id, cause)
	} else {
		_, err = s.db.Exec(ctx, `
			UPDATE outbox
			SET attempts = attempts + 1, last_error = $2, next_attempt_at = $3
			WHERE id = $1 AND delivered_at IS NULL
		`, id, cause, retryAt)
	}
	if err != nil {
		return fmt.Errorf("events: mark failed: %w", err)
	}
	return nil
}
