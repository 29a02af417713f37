package budget

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeLedger struct {
	today, month, pr float64
	err              error
}

func (f *fakeLedger) SpendToday(ctx context.Context, repo string) (float64, error) {
	return f.today, f.err
}
func (f *fakeLedger) SpendThisMonth(ctx context.Context) (float64, error) { return f.month, f.err }
func (f *fakeLedger) SpendOnPR(ctx context.Context, repo string, pr int) (float64, error) {
	return f.pr, f.err
}
func (f *fakeLedger) Record(ctx context.Context, entry Entry) error { return f.err }

func TestCheckDailyBudget_WarningNotExceeded(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.DailyBudgetUSD = 50.0
	e := NewEnforcer(cfg, &fakeLedger{today: 49.50})

	status := e.CheckDailyBudget(context.Background(), "")
	assert.True(t, status.Warning)
	assert.False(t, status.Exceeded)
	assert.True(t, status.CanProceed)
}

func TestCheckPRBudget_ProjectedExceedsLimit(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.PerPRBudgetUSD = 5.0
	e := NewEnforcer(cfg, &fakeLedger{pr: 4.50})

	status := e.CheckPRBudget(context.Background(), "owner/repo", 1, 1.00)
	assert.True(t, status.Exceeded)
	assert.False(t, status.CanProceed)
}

func TestZeroLimitAlwaysExceeded(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.DailyBudgetUSD = 0
	e := NewEnforcer(cfg, &fakeLedger{today: 0})

	status := e.CheckDailyBudget(context.Background(), "")
	assert.Zero(t, status.Percentage)
	assert.True(t, status.Exceeded)
	assert.False(t, status.CanProceed)
}

func TestLedgerErrorFailsOpenToZero(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	e := NewEnforcer(cfg, &fakeLedger{today: 999, err: errors.New("boom")})

	status := e.CheckDailyBudget(context.Background(), "")
	assert.Zero(t, status.Spent)
	assert.False(t, status.Exceeded)
}

func TestNilLedgerNeverBlocks(t *testing.T) {
	t.Parallel()

	e := NewEnforcer(DefaultConfig(), nil)
	assert.True(t, e.CanReviewPR(context.Background(), "owner/repo", 1, 0))
}

func TestRepoDailyBudgetOverride(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.DailyBudgetUSD = 50.0
	cfg.RepoDailyBudgets = map[string]float64{"owner/repo": 10.0}
	e := NewEnforcer(cfg, &fakeLedger{today: 11.0})

	status := e.CheckDailyBudget(context.Background(), "owner/repo")
	assert.Equal(t, 10.0, status.Limit)
	assert.True(t, status.Exceeded)
}

func TestPercentageFormula(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.MonthlyBudgetUSD = 200.0
	e := NewEnforcer(cfg, &fakeLedger{month: 50.0})

	status := e.CheckMonthlyBudget(context.Background())
	assert.InDelta(t, 25.0, status.Percentage, 0.001)
}
