package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/romariotrain/streaming-platform/internal/movie/models"
)

// maxErrorLen bounds last_error so a verbose broker error can't bloat rows.
const maxErrorLen = 1024

type OutboxRepo struct {
	db *sqlx.DB
}

// OutboxRecord is one pending movie event. Attempts counts failed publishes.
type OutboxRecord struct {
	ID          int64           `db:"id"`
	EventID     uuid.UUID       `db:"event_id"`
	EventType   string          `db:"event_type"`
	AggregateID uuid.UUID       `db:"aggregate_id"`
	Payload     json.RawMessage `db:"payload"`
	OccurredAt  time.Time       `db:"occurred_at"`
	Attempts    int             `db:"attempts"`
}

// OutboxBacklog describes what is still waiting to be published. Parked
// events gave up after too many attempts and wait for an operator.
type OutboxBacklog struct {
	Pending int
	Parked  int
	Oldest  *time.Time
}

func NewOutboxRepo(db *sqlx.DB) *OutboxRepo {
	return &OutboxRepo{db: db}
}

// Add writes event inside the caller's transaction, so it commits or rolls
// back together with the movie write that produced it.
func (r *OutboxRepo) Add(ctx context.Context, tx *sqlx.Tx, event models.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event.EventType(), err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO outbox (event_id, event_type, aggregate_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5)`,
		event.EventID(), event.EventType(), event.AggregateID(), payload, event.OccurredAt(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox %s: %w", event.EventType(), err)
	}
	return nil
}

// GetPending returns unpublished events in commit order.
func (r *OutboxRepo) GetPending(ctx context.Context, limit int) ([]OutboxRecord, error) {
	var records []OutboxRecord
	err := r.db.SelectContext(ctx, &records, `
		SELECT id, event_id, event_type, aggregate_id, payload, occurred_at, attempts
		FROM outbox
		WHERE processed_at IS NULL AND dead_at IS NULL
		ORDER BY id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending outbox: %w", err)
	}
	return records, nil
}

func (r *OutboxRepo) MarkProcessed(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE outbox SET processed_at = NOW(), last_error = NULL WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark outbox %d processed: %w", id, err)
	}
	return nil
}

// MarkFailed records a failed publish. The event stays pending.
func (r *OutboxRepo) MarkFailed(ctx context.Context, id int64, cause error) error {
	_, err := r.db.ExecContext(ctx, `UPDATE outbox SET attempts = attempts + 1, last_error = $2 WHERE id = $1`,
		id, truncateError(cause))
	if err != nil {
		return fmt.Errorf("mark outbox %d failed: %w", id, err)
	}
	return nil
}

// Park records the last failure and takes the event out of the pending set.
func (r *OutboxRepo) Park(ctx context.Context, id int64, cause error) error {
	_, err := r.db.ExecContext(ctx, `UPDATE outbox SET attempts = attempts + 1, last_error = $2, dead_at = NOW() WHERE id = $1`,
		id, truncateError(cause))
	if err != nil {
		return fmt.Errorf("park outbox %d: %w", id, err)
	}
	return nil
}

// truncateError cuts at a rune boundary; a split rune is invalid UTF-8 and
// postgres rejects it as TEXT.
func truncateError(err error) string {
	msg := err.Error()
	if len(msg) <= maxErrorLen {
		return msg
	}
	cut := maxErrorLen
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}

func (r *OutboxRepo) Backlog(ctx context.Context) (OutboxBacklog, error) {
	var row struct {
		Pending int          `db:"pending"`
		Parked  int          `db:"parked"`
		Oldest  sql.NullTime `db:"oldest"`
	}
	err := r.db.GetContext(ctx, &row, `
		SELECT
			COUNT(*) FILTER (WHERE dead_at IS NULL) AS pending,
			COUNT(*) FILTER (WHERE dead_at IS NOT NULL) AS parked,
			MIN(occurred_at) FILTER (WHERE dead_at IS NULL) AS oldest
		FROM outbox
		WHERE processed_at IS NULL`)
	if err != nil {
		return OutboxBacklog{}, fmt.Errorf("outbox backlog: %w", err)
	}

	b := OutboxBacklog{Pending: row.Pending, Parked: row.Parked}
	if row.Oldest.Valid {
		b.Oldest = &row.Oldest.Time
	}
	return b, nil
}

// Purge deletes events published before the cutoff.
func (r *OutboxRepo) Purge(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM outbox WHERE processed_at IS NOT NULL AND processed_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge outbox: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge outbox: %w", err)
	}
	return n, nil
}
