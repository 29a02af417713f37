package feedback

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSink is the reference Sink adapter: one row per feedback event in
// a "feedback" collection/table. Shaped like
// internal/checkpoint.PostgresStore's pool-owned, single-table, idempotent
// upsert shape.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink wraps an already-connected pool. Callers own the pool's
// lifecycle, typically shared with internal/checkpoint and internal/budget.
func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

const createFeedbackTableSQL = `
CREATE TABLE IF NOT EXISTS feedback (
	id TEXT PRIMARY KEY,
	record JSONB NOT NULL,
	repo_owner TEXT NOT NULL,
	repo_name TEXT NOT NULL,
	pr_number INT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// EnsureSchema creates the feedback table if it doesn't already exist.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, createFeedbackTableSQL)
	if err != nil {
		return fmt.Errorf("feedback: ensure schema: %w", err)
	}
	return nil
}

// Record implements Sink by upserting rec keyed by its id.
func (s *PostgresSink) Record(ctx context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("feedback: marshal %q: %w", rec.ID, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO feedback (id, record, repo_owner, repo_name, pr_number, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE SET record = EXCLUDED.record
	`, rec.ID, data, rec.RepoOwner, rec.RepoName, rec.PRNumber)
	if err != nil {
		return fmt.Errorf("feedback: record %q: %w", rec.ID, err)
	}
	return nil
}

// MemorySink is an in-process Sink used by tests and by the CLI's local
// modes, where no Postgres connection is configured.
type MemorySink struct {
	Records []Record
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink { return &MemorySink{} }

// Record implements Sink.
func (m *MemorySink) Record(_ context.Context, rec Record) error {
	m.Records = append(m.Records, rec)
	return nil
}
