package checkpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/corvid-review/corvid/internal/workflow"
)

// Store is the checkpoint persistence capability: save a workflow run's
// state keyed by review id, and load it back on resume. workflow.Engine
// only ever calls Save (via the Checkpointer adapter below); Load is used by
// the service's resume-on-restart path.
type Store interface {
	Save(ctx context.Context, ws *workflow.WorkflowState) error
	Load(ctx context.Context, reviewID string) (*workflow.WorkflowState, error)
}

// PostgresStore is the reference CheckpointStore adapter: one row per
// review id in a "checkpoints" table, the full Record as JSONB, upserted on
// every save. The service wiring uses it when a database URL is configured
// (one pool-backed Store per process, shared by the workflow engine's
// checkpointer and the review job's resume path) and MemoryStore otherwise.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an already-connected pool. Callers own the pool's
// lifecycle (internal/feedback and internal/budget's Postgres adapters
// typically share the same pool).
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS checkpoints (
	id TEXT PRIMARY KEY,
	record JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// EnsureSchema creates the checkpoints table if it doesn't already exist.
// Corvid has no migration runner; a single idempotent DDL statement run at
// startup is sufficient for this table's shape.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, createTableSQL)
	if err != nil {
		return fmt.Errorf("checkpoint: ensure schema: %w", err)
	}
	return nil
}

// Save upserts ws's Record by review id.
func (s *PostgresStore) Save(ctx context.Context, ws *workflow.WorkflowState) error {
	rec, err := Encode(ws)
	if err != nil {
		return fmt.Errorf("checkpoint: save %q: %w", ws.ID, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO checkpoints (id, record, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET record = EXCLUDED.record, updated_at = now()
	`, ws.ID, rec)
	if err != nil {
		return fmt.Errorf("checkpoint: save %q: %w", ws.ID, err)
	}
	return nil
}

// Load fetches and decodes the Record saved for reviewID. Returns an error
// wrapping pgx.ErrNoRows when no checkpoint exists, so callers can treat
// "no checkpoint" as "start fresh at ingest_pr".
func (s *PostgresStore) Load(ctx context.Context, reviewID string) (*workflow.WorkflowState, error) {
	var rec Record
	err := s.pool.QueryRow(ctx, `SELECT record FROM checkpoints WHERE id = $1`, reviewID).Scan(&rec)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("checkpoint: %q: %w", reviewID, pgx.ErrNoRows)
		}
		return nil, fmt.Errorf("checkpoint: load %q: %w", reviewID, err)
	}
	ws, err := Decode(&rec)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: load %q: %w", reviewID, err)
	}
	return ws, nil
}

// Checkpointer adapts a Store onto workflow.Checkpointer's narrow, no
// context Save(state) signature, using ctx as the background context for
// every write. Engines that need per-call cancellation should instead call
// Store.Save directly from a custom post-step hook; WithCheckpointing(
// NewCheckpointer(store, ctx)) covers the common case of a long-lived
// process-wide context.
type Checkpointer struct {
	store Store
	ctx   context.Context
}

// NewCheckpointer returns a workflow.Checkpointer backed by store, using ctx
// for every Save call issued by the engine.
func NewCheckpointer(store Store, ctx context.Context) *Checkpointer {
	return &Checkpointer{store: store, ctx: ctx}
}

// Save implements workflow.Checkpointer.
func (c *Checkpointer) Save(ws *workflow.WorkflowState) error {
	return c.store.Save(c.ctx, ws)
}
