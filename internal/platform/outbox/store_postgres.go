package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	txcontext "zac/pkg/platform/tx"
)

// PostgresStore keeps the outbox in the outbox table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, msgs ...Message) error {
	q := txcontext.QuerierFrom(ctx, s.db)
	for _, m := range msgs {
		_, err := q.ExecContext(ctx, `
			INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, m.ID, m.AggregateType, m.AggregateID, m.EventType, []byte(m.Payload), m.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert outbox entry: %w", err)
		}
	}
	return nil
}

// ProcessBatch locks up to limit pending rows with SKIP LOCKED so concurrent
// workers take disjoint batches.
func (s *PostgresStore) ProcessBatch(ctx context.Context, limit int, fn func(ctx context.Context, msgs []Message) error) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin outbox batch: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at
		FROM outbox
		WHERE processed_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return 0, fmt.Errorf("select pending outbox entries: %w", err)
	}
	var batch []Message
	for rows.Next() {
		var m Message
		var payload []byte
		if err := rows.Scan(&m.ID, &m.AggregateType, &m.AggregateID, &m.EventType, &payload, &m.CreatedAt); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan outbox entry: %w", err)
		}
		m.Payload = payload
		batch = append(batch, m)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("iterate outbox entries: %w", err)
	}
	rows.Close()
	if len(batch) == 0 {
		return 0, nil
	}

	if err := fn(ctx, batch); err != nil {
		return 0, err
	}

	now := time.Now()
	for _, m := range batch {
		if _, err := tx.ExecContext(ctx, `UPDATE outbox SET processed_at = $2 WHERE id = $1`, m.ID, now); err != nil {
			return 0, fmt.Errorf("mark outbox entry processed: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit outbox batch: %w", err)
	}
	return len(batch), nil
}
