package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
)

// ErrWizardCancelled is returned when the user cancels the interactive
// setup wizard (either by pressing Ctrl+C or declining the confirmation).
var ErrWizardCancelled = errors.New("wizard cancelled by user")

// wizardWidth is the fixed form width used by the wizard. 80 columns covers
// the minimum terminal requirement.
const wizardWidth = 80

// initAnswers carries the wizard's collected settings; renderConfigTOML
// turns them into the scaffolded corvid.toml. Secrets are never collected
// here: the wizard only reminds the user which environment variables to
// export afterwards.
type initAnswers struct {
	Provider    string
	BrokerAddr  string
	WorkerCount string
	DailyUSD    string
	PerPRUSD    string
	MonthlyUSD  string
	Analyzers   []string
}

func defaultInitAnswers() initAnswers {
	return initAnswers{
		Provider:    "github",
		BrokerAddr:  "localhost:6379",
		WorkerCount: "10",
		DailyUSD:    "50.0",
		PerPRUSD:    "5.0",
		MonthlyUSD:  "1000.0",
		Analyzers:   []string{"security", "style", "logic", "pattern"},
	}
}

// runInitWizard displays the interactive setup wizard and returns the
// collected answers.
//
// The wizard is split into three pages:
//  1. Provider & broker — VCS provider, Redis address, worker count
//  2. Budgets           — daily / per-PR / monthly limits
//  3. Analyzers + confirmation
//
// Returns ErrWizardCancelled if the user presses Ctrl+C or declines the
// confirmation on the final page.
func runInitWizard() (initAnswers, error) {
	a := defaultInitAnswers()

	if err := runProviderPage(&a); err != nil {
		return a, mapWizardErr(err)
	}
	if err := runBudgetPage(&a); err != nil {
		return a, mapWizardErr(err)
	}

	confirmed := false
	if err := runAnalyzerConfirmPage(&a, &confirmed); err != nil {
		return a, mapWizardErr(err)
	}
	if !confirmed {
		return a, ErrWizardCancelled
	}

	return a, nil
}

// runProviderPage runs the first wizard page: VCS provider, broker address,
// and worker pool size.
func runProviderPage(a *initAnswers) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which VCS provider sends your webhooks?").
				Description("The matching /webhooks endpoint is enabled; others stay mounted but unconfigured.").
				Options(
					huh.NewOption("GitHub", "github"),
					huh.NewOption("GitLab", "gitlab"),
					huh.NewOption("Bitbucket", "bitbucket"),
				).
				Value(&a.Provider),
			huh.NewInput().
				Title("Redis broker address:").
				Description("host:port of the Redis instance backing the review queue.").
				Value(&a.BrokerAddr),
			huh.NewInput().
				Title("Worker pool size (1-100):").
				Description("Maximum number of reviews processed concurrently per worker process.").
				Value(&a.WorkerCount).
				Validate(validateWorkerCount),
		),
	).
		WithTheme(huh.ThemeCharm()).
		WithWidth(wizardWidth).
		Run()
}

// runBudgetPage collects the three cost limits.
func runBudgetPage(a *initAnswers) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Daily budget (USD):").
				Description("Reviews are refused once the day's model spend reaches this limit. 0 blocks all reviews.").
				Value(&a.DailyUSD).
				Validate(validateBudget),
			huh.NewInput().
				Title("Per-PR budget (USD):").
				Value(&a.PerPRUSD).
				Validate(validateBudget),
			huh.NewInput().
				Title("Monthly budget (USD):").
				Value(&a.MonthlyUSD).
				Validate(validateBudget),
		),
	).
		WithTheme(huh.ThemeCharm()).
		WithWidth(wizardWidth).
		Run()
}

// runAnalyzerConfirmPage selects the enabled analyzer set and confirms the
// write.
func runAnalyzerConfirmPage(a *initAnswers, confirmed *bool) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Enabled analyzers:").
				Description("Use space to toggle. The four standard analyzers are enabled by default.").
				Options(
					huh.NewOption("Security (priority 1)", "security").Selected(containsString(a.Analyzers, "security")),
					huh.NewOption("Logic (priority 2)", "logic").Selected(containsString(a.Analyzers, "logic")),
					huh.NewOption("Pattern (priority 3)", "pattern").Selected(containsString(a.Analyzers, "pattern")),
					huh.NewOption("Style (priority 5)", "style").Selected(containsString(a.Analyzers, "style")),
					huh.NewOption("Complexity (optional)", "complexity"),
				).
				Value(&a.Analyzers),
			huh.NewConfirm().
				Title("Write corvid.toml with these settings?").
				Affirmative("Write it").
				Negative("Cancel").
				Value(confirmed),
		),
	).
		WithTheme(huh.ThemeCharm()).
		WithWidth(wizardWidth).
		Run()
}

// mapWizardErr converts huh's abort sentinel into ErrWizardCancelled and
// wraps everything else.
func mapWizardErr(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrWizardCancelled
	}
	return fmt.Errorf("wizard: %w", err)
}

// validateWorkerCount validates that a string represents an integer in
// [1, 100].
func validateWorkerCount(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return errors.New("must be a number")
	}
	if n < 1 || n > 100 {
		return errors.New("must be between 1 and 100")
	}
	return nil
}

// validateBudget validates that a string represents a non-negative dollar
// amount.
func validateBudget(s string) error {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return errors.New("must be a number")
	}
	if f < 0 {
		return errors.New("must not be negative")
	}
	return nil
}

// containsString reports whether slice contains the given target string.
func containsString(slice []string, target string) bool {
	for _, s := range slice {
		if s == target {
			return true
		}
	}
	return false
}

// renderConfigTOML renders the scaffolded corvid.toml from the wizard's
// answers, mirroring defaultConfigTOML's shape and comments. Validation on
// the wizard inputs has already run, so numeric parses here cannot fail;
// a zero value would only mean the validator was bypassed, and zero is a
// safe (maximally restrictive) budget anyway.
func renderConfigTOML(a initAnswers) string {
	workerCount, _ := strconv.Atoi(a.WorkerCount)
	if workerCount < 1 {
		workerCount = 10
	}
	daily, _ := strconv.ParseFloat(a.DailyUSD, 64)
	perPR, _ := strconv.ParseFloat(a.PerPRUSD, 64)
	monthly, _ := strconv.ParseFloat(a.MonthlyUSD, 64)

	analyzers := a.Analyzers
	if len(analyzers) == 0 {
		analyzers = []string{"security", "style", "logic", "pattern"}
	}
	quoted := make([]string, len(analyzers))
	for i, name := range analyzers {
		quoted[i] = strconv.Quote(name)
	}

	return fmt.Sprintf(`# Corvid configuration. Secrets (webhook signing secrets, model API key,
# provider token, database URL) are never stored here -- set them as
# environment variables instead (see "corvid init" output).

[server]
addr = ":8080"
metrics_addr = ":9090"
shutdown_timeout = "15s"

[webhook]
enabled_providers = [%q]

[broker]
addr = %q
stream = "corvid:reviews"
dlq_stream = "corvid:reviews:dlq"
consumer_group = "corvid-workers"
worker_count = %d
max_retries = 3

[provider]
base_url = ""

[budget]
daily_usd = %.1f
per_pr_usd = %.1f
monthly_usd = %.1f
warning_threshold = 0.8

[review]
max_suggestions = 30
severity_threshold = "suggestion"
enable_analyzers = [%s]
max_files_per_review = 50
max_tokens_per_review = 100000
min_priority_for_inclusion = "MEDIUM"
chunk_size = 5000
exclude_globs = []
`,
		a.Provider,
		a.BrokerAddr,
		workerCount,
		daily,
		perPR,
		monthly,
		strings.Join(quoted, ", "),
	)
}
