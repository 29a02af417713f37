package budget

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger is the reference Ledger adapter: one row per cost entry in
// a "costs" table. Follows internal/checkpoint's pool-owned, single-table
// shape; shares its pool with
// internal/checkpoint.PostgresStore and internal/feedback.PostgresSink in a
// typical deployment.
//
// Every spend query here converts its own error to (0, nil) at the
// boundary -- spend queries fail open to zero, so the Enforcer itself never
// sees a ledger error. Record and EnsureSchema return their errors.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

// NewPostgresLedger wraps an already-connected pool.
func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool}
}

const createCostsTableSQL = `
CREATE TABLE IF NOT EXISTS costs (
	id BIGSERIAL PRIMARY KEY,
	ts TIMESTAMPTZ NOT NULL,
	cost_usd DOUBLE PRECISION NOT NULL,
	repo TEXT,
	pr_number INT,
	component TEXT
)`

// EnsureSchema creates the costs table if it doesn't already exist.
func (l *PostgresLedger) EnsureSchema(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, createCostsTableSQL)
	if err != nil {
		return fmt.Errorf("budget: ensure schema: %w", err)
	}
	return nil
}

// Record inserts one cost ledger entry.
func (l *PostgresLedger) Record(ctx context.Context, entry Entry) error {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := l.pool.Exec(ctx, `
		INSERT INTO costs (ts, cost_usd, repo, pr_number, component)
		VALUES ($1, $2, $3, $4, $5)
	`, ts, entry.CostUSD, entry.Repo, entry.PRNumber, entry.Component)
	if err != nil {
		return fmt.Errorf("budget: record entry: %w", err)
	}
	return nil
}

// SpendToday sums cost_usd for entries timestamped in the current UTC day,
// optionally filtered to repo. A query error fails open to (0, nil).
func (l *PostgresLedger) SpendToday(ctx context.Context, repo string) (float64, error) {
	dayStart := time.Now().UTC().Truncate(24 * time.Hour)
	return l.sumSince(ctx, dayStart, repo, 0)
}

// SpendThisMonth sums cost_usd for entries timestamped in the current UTC
// calendar month.
func (l *PostgresLedger) SpendThisMonth(ctx context.Context) (float64, error) {
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return l.sumSince(ctx, monthStart, "", 0)
}

// SpendOnPR sums cost_usd for entries attributed to repo+prNumber, with no
// time-window restriction (a PR's lifetime spend).
func (l *PostgresLedger) SpendOnPR(ctx context.Context, repo string, prNumber int) (float64, error) {
	var spent float64
	err := l.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(cost_usd), 0) FROM costs WHERE repo = $1 AND pr_number = $2
	`, repo, prNumber).Scan(&spent)
	if err != nil {
		return 0, nil
	}
	return spent, nil
}

func (l *PostgresLedger) sumSince(ctx context.Context, since time.Time, repo string, prNumber int) (float64, error) {
	var (
		spent float64
		err   error
	)
	if repo != "" {
		err = l.pool.QueryRow(ctx, `
			SELECT COALESCE(SUM(cost_usd), 0) FROM costs WHERE ts >= $1 AND repo = $2
		`, since, repo).Scan(&spent)
	} else {
		err = l.pool.QueryRow(ctx, `
			SELECT COALESCE(SUM(cost_usd), 0) FROM costs WHERE ts >= $1
		`, since).Scan(&spent)
	}
	if err != nil {
		return 0, nil
	}
	return spent, nil
}
