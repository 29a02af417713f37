package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// ValidationSeverity indicates whether a validation issue is an error or warning.
type ValidationSeverity string

const (
	// SeverityError indicates a fatal validation issue; the configuration is unusable.
	SeverityError ValidationSeverity = "error"
	// SeverityWarning indicates an informational validation issue; the configuration works
	// but may have problems.
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationIssue represents a single validation finding.
type ValidationIssue struct {
	Severity ValidationSeverity
	Field    string // dotted path, e.g., "server.addr"
	Message  string
}

// ValidationResult holds all validation findings.
type ValidationResult struct {
	Issues []ValidationIssue
}

// HasErrors returns true if any issue has error severity.
func (vr *ValidationResult) HasErrors() bool {
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasWarnings returns true if any issue has warning severity.
func (vr *ValidationResult) HasWarnings() bool {
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// Errors returns only error-severity issues.
func (vr *ValidationResult) Errors() []ValidationIssue {
	var errs []ValidationIssue
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityError {
			errs = append(errs, issue)
		}
	}
	return errs
}

// Warnings returns only warning-severity issues.
func (vr *ValidationResult) Warnings() []ValidationIssue {
	var warns []ValidationIssue
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityWarning {
			warns = append(warns, issue)
		}
	}
	return warns
}

var validSeverityThresholds = map[string]bool{
	"error": true, "warning": true, "suggestion": true, "note": true,
}

var validPriorities = map[string]bool{
	"SKIP": true, "LOW": true, "MEDIUM": true, "HIGH": true, "CRITICAL": true,
}

var knownProviders = map[string]bool{
	"github": true, "gitlab": true, "bitbucket": true,
}

// Validate checks the configuration for correctness and completeness.
// Configuration problems are reported as errors and are fatal
// at startup; everything else is an advisory warning.
func Validate(cfg *Config, meta *toml.MetaData) *ValidationResult {
	vr := &ValidationResult{}

	if cfg == nil {
		addError(vr, "", "configuration is nil")
		return vr
	}

	validateServer(vr, &cfg.Server)
	validateWebhook(vr, &cfg.Webhook)
	validateBroker(vr, &cfg.Broker)
	validateBudget(vr, &cfg.Budget)
	validateReview(vr, &cfg.Review)
	validateDatabase(vr, &cfg.Database)
	validateUnknownKeys(vr, meta)

	return vr
}

func validateServer(vr *ValidationResult, s *ServerConfig) {
	if s.Addr == "" {
		addError(vr, "server.addr", "must not be empty")
	}
}

func validateWebhook(vr *ValidationResult, w *WebhookConfig) {
	if len(w.EnabledProviders) == 0 {
		addWarning(vr, "webhook.enabled_providers", "no provider endpoints enabled; no webhook will be reachable")
	}
	for _, p := range w.EnabledProviders {
		if !knownProviders[p] {
			addError(vr, "webhook.enabled_providers", fmt.Sprintf("unknown provider %q", p))
			continue
		}
		var secret string
		switch p {
		case "github":
			secret = w.GitHubSecret
		case "gitlab":
			secret = w.GitLabSecret
		case "bitbucket":
			secret = w.BitbucketSecret
		}
		if secret == "" {
			addWarning(vr, "webhook."+p+"_secret",
				"no signing secret configured; signature verification is bypassed for this provider (explicit opt-out)")
		}
	}
}

func validateBroker(vr *ValidationResult, b *BrokerConfig) {
	if b.Addr == "" {
		addError(vr, "broker.addr", "must not be empty")
	}
	if b.Stream == "" {
		addError(vr, "broker.stream", "must not be empty")
	}
	if b.WorkerCount <= 0 {
		addError(vr, "broker.worker_count", "must be positive")
	}
	if b.MaxRetries <= 0 {
		addError(vr, "broker.max_retries", "must be positive")
	}
}

func validateBudget(vr *ValidationResult, b *BudgetConfig) {
	if b.DailyUSD < 0 || b.PerPRUSD < 0 || b.MonthlyUSD < 0 {
		addError(vr, "budget", "limits must not be negative")
	}
	if b.DailyUSD == 0 {
		addWarning(vr, "budget.daily_usd", "a zero daily budget blocks every review (a zero limit is always exceeded)")
	}
	if b.WarningThreshold <= 0 || b.WarningThreshold > 1 {
		addError(vr, "budget.warning_threshold", "must be in (0, 1]")
	}
}

func validateReview(vr *ValidationResult, r *ReviewConfig) {
	if r.MaxSuggestions <= 0 {
		addError(vr, "review.max_suggestions", "must be positive")
	}
	if !validSeverityThresholds[r.SeverityThreshold] {
		addError(vr, "review.severity_threshold",
			fmt.Sprintf("unrecognized severity %q; must be one of: error, warning, suggestion, note", r.SeverityThreshold))
	}
	if !validPriorities[r.MinPriorityForInclusion] {
		addError(vr, "review.min_priority_for_inclusion",
			fmt.Sprintf("unrecognized priority %q; must be one of: SKIP, LOW, MEDIUM, HIGH, CRITICAL", r.MinPriorityForInclusion))
	}
	if r.ChunkSize <= 0 {
		addError(vr, "review.chunk_size", "must be positive")
	}
	if r.MaxFilesPerReview <= 0 {
		addError(vr, "review.max_files_per_review", "must be positive")
	}
	if r.MaxTokensPerReview <= 0 {
		addError(vr, "review.max_tokens_per_review", "must be positive")
	}
	for _, glob := range r.ExcludeGlobs {
		if glob == "" {
			addError(vr, "review.exclude_globs", "must not contain empty patterns")
		}
	}
}

func validateDatabase(vr *ValidationResult, d *DatabaseConfig) {
	if d.URL == "" {
		addWarning(vr, "database.url",
			"CORVID_DATABASE_URL is not set; checkpoints, cost ledger, and feedback run in-memory and do not survive a restart")
	}
}

// validateUnknownKeys checks for TOML keys that did not map to any config struct field.
func validateUnknownKeys(vr *ValidationResult, meta *toml.MetaData) {
	if meta == nil {
		return
	}

	for _, key := range meta.Undecoded() {
		path := strings.Join(key, ".")
		addWarning(vr, path, "unknown configuration key")
	}
}

// addError appends an error-severity issue to the validation result.
func addError(vr *ValidationResult, field, message string) {
	vr.Issues = append(vr.Issues, ValidationIssue{
		Severity: SeverityError,
		Field:    field,
		Message:  message,
	})
}

// addWarning appends a warning-severity issue to the validation result.
func addWarning(vr *ValidationResult, field, message string) {
	vr.Issues = append(vr.Issues, ValidationIssue{
		Severity: SeverityWarning,
		Field:    field,
		Message:  message,
	})
}
