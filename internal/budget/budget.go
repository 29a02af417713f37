// Package budget implements the daily/monthly/per-PR/per-repo cost gates
// that decide whether a review is admitted. Two corner cases are load
// bearing: a zero limit is always "over", and ledger failures fail open to
// zero spend so the enforcer never blocks a review on its own plumbing.
package budget

import (
	"context"
	"time"
)

// Config holds the enforcer's configured limits.
type Config struct {
	DailyBudgetUSD    float64
	PerPRBudgetUSD    float64
	MonthlyBudgetUSD  float64
	WarningThreshold  float64
	RepoDailyBudgets  map[string]float64
}

// DefaultConfig returns the stock budget limits.
func DefaultConfig() Config {
	return Config{
		DailyBudgetUSD:   50.0,
		PerPRBudgetUSD:   5.0,
		MonthlyBudgetUSD: 1000.0,
		WarningThreshold: 0.8,
		RepoDailyBudgets: map[string]float64{},
	}
}

// Status is the result of a single budget check.
type Status struct {
	BudgetType  string  `json:"budget_type"`
	Limit       float64 `json:"limit"`
	Spent       float64 `json:"spent"`
	Remaining   float64 `json:"remaining"`
	Percentage  float64 `json:"percentage"`
	Exceeded    bool    `json:"exceeded"`
	Warning     bool    `json:"warning"`
	CanProceed  bool    `json:"can_proceed"`
}

func buildStatus(budgetType string, spent, limit, warningThreshold float64) Status {
	var percentage float64
	if limit > 0 {
		percentage = 100 * spent / limit
	}
	// Corner case: a zero (or negative) limit is always "over," including
	// zero spend — an explicit guardrail, not a bug.
	exceeded := spent >= limit

	return Status{
		BudgetType: budgetType,
		Limit:      limit,
		Spent:      spent,
		Remaining:  limit - spent,
		Percentage: percentage,
		Exceeded:   exceeded,
		Warning:    percentage/100 >= warningThreshold,
		CanProceed: !exceeded,
	}
}

// Ledger is the persistence capability the enforcer reads spend from. A
// failing query MUST return (0, nil) to the enforcer — never propagate —
// per the "fail open to zero" contract; concrete adapters are responsible
// for converting their own errors at this boundary.
type Ledger interface {
	SpendToday(ctx context.Context, repo string) (float64, error)
	SpendThisMonth(ctx context.Context) (float64, error)
	SpendOnPR(ctx context.Context, repo string, prNumber int) (float64, error)
	Record(ctx context.Context, entry Entry) error
}

// Entry is one cost ledger record.
type Entry struct {
	Timestamp time.Time
	CostUSD   float64
	Repo      string
	PRNumber  int
	Component string
}

// Enforcer checks spend against Config limits using a Ledger.
type Enforcer struct {
	config Config
	ledger Ledger
}

// NewEnforcer builds an Enforcer. A nil ledger is valid; every check then
// behaves as if spend is always zero (useful in tests and dry runs).
func NewEnforcer(config Config, ledger Ledger) *Enforcer {
	if config.RepoDailyBudgets == nil {
		config.RepoDailyBudgets = map[string]float64{}
	}
	return &Enforcer{config: config, ledger: ledger}
}

func (e *Enforcer) spend(ctx context.Context, fn func(context.Context) (float64, error)) float64 {
	if e.ledger == nil {
		return 0
	}
	spent, err := fn(ctx)
	if err != nil {
		return 0
	}
	return spent
}

// CheckDailyBudget reports the daily spend status, optionally scoped to repo
// (which may override the default daily budget via RepoDailyBudgets).
func (e *Enforcer) CheckDailyBudget(ctx context.Context, repo string) Status {
	spent := e.spend(ctx, func(ctx context.Context) (float64, error) {
		if e.ledger == nil {
			return 0, nil
		}
		return e.ledger.SpendToday(ctx, repo)
	})

	limit := e.config.DailyBudgetUSD
	if repo != "" {
		if override, ok := e.config.RepoDailyBudgets[repo]; ok {
			limit = override
		}
	}

	return buildStatus("daily", spent, limit, e.config.WarningThreshold)
}

// CheckMonthlyBudget reports the current calendar month's spend status.
func (e *Enforcer) CheckMonthlyBudget(ctx context.Context) Status {
	spent := e.spend(ctx, func(ctx context.Context) (float64, error) {
		if e.ledger == nil {
			return 0, nil
		}
		return e.ledger.SpendThisMonth(ctx)
	})
	return buildStatus("monthly", spent, e.config.MonthlyBudgetUSD, e.config.WarningThreshold)
}

// CheckPRBudget reports whether current + estimatedCost would meet or
// exceed the per-PR budget.
func (e *Enforcer) CheckPRBudget(ctx context.Context, repo string, prNumber int, estimatedCost float64) Status {
	current := e.spend(ctx, func(ctx context.Context) (float64, error) {
		if e.ledger == nil {
			return 0, nil
		}
		return e.ledger.SpendOnPR(ctx, repo, prNumber)
	})

	projected := current + estimatedCost
	return buildStatus("per_pr", projected, e.config.PerPRBudgetUSD, e.config.WarningThreshold)
}

// CanReviewPR is the logical AND of the daily, monthly, and per-PR checks'
// CanProceed.
func (e *Enforcer) CanReviewPR(ctx context.Context, repo string, prNumber int, estimatedCost float64) bool {
	daily := e.CheckDailyBudget(ctx, repo)
	monthly := e.CheckMonthlyBudget(ctx)
	perPR := e.CheckPRBudget(ctx, repo, prNumber, estimatedCost)
	return daily.CanProceed && monthly.CanProceed && perPR.CanProceed
}

// Record persists a cost ledger entry. A nil ledger silently drops the
// record (useful in tests), matching the enforcer's read-path fail-open
// posture rather than failing a review because of a write-path outage.
func (e *Enforcer) Record(ctx context.Context, entry Entry) error {
	if e.ledger == nil {
		return nil
	}
	return e.ledger.Record(ctx, entry)
}
