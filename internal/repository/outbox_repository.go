package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdesk-kit/servicedesk/internal/events"
)

// OutboxRow is a durable "event to notify" record drained by the worker.
type OutboxRow struct {
	ID            int64
	EventID       string
	Payload       events.Event
	Attempts      int
	NextAttemptAt time.Time
	DispatchedAt  *time.Time
	CreatedAt     time.Time
}

// OutboxRepository persists workflow events pending notification dispatch.
type OutboxRepository interface {
	Enqueue(ctx context.Context, event events.Event) error
	ListDue(ctx context.Context, now time.Time, maxAttempts, limit int) ([]OutboxRow, error)
	MarkDispatched(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, nextAttemptAt time.Time) error
}

type outboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository builds repository.
func NewOutboxRepository(pool *pgxpool.Pool) OutboxRepository {
	return &outboxRepository{pool: pool}
}

func (r *outboxRepository) Enqueue(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO notification_outbox (event_id, payload, next_attempt_at)
        VALUES ($1,$2,NOW())`
	_, err = r.pool.Exec(ctx, query, event.ID, payload)
	return err
}

func (r *outboxRepository) ListDue(ctx context.Context, now time.Time, maxAttempts, limit int) ([]OutboxRow, error) {
	const query = `
        SELECT id, event_id, payload, attempts, next_attempt_at, dispatched_at, created_at
        FROM notification_outbox
        WHERE dispatched_at IS NULL AND attempts < $1 AND next_attempt_at <= $2
        ORDER BY next_attempt_at ASC LIMIT $3`
	rows, err := r.pool.Query(ctx, query, maxAttempts, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []OutboxRow
	for rows.Next() {
		var row OutboxRow
		var payload []byte
		if err := rows.Scan(
			&row.ID,
			&row.EventID,
			&payload,
			&row.Attempts,
			&row.NextAttemptAt,
			&row.DispatchedAt,
			&row.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &row.Payload); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *outboxRepository) MarkDispatched(ctx context.Context, id int64) error {
	const query = `UPDATE notification_outbox SET dispatched_at=NOW() WHERE id=$1`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id int64, nextAttemptAt time.Time) error {
	const query = `
        UPDATE notification_outbox SET attempts=attempts+1, next_attempt_at=$1 WHERE id=$2`
	_, err := r.pool.Exec(ctx, query, nextAttemptAt, id)
	return err
}
