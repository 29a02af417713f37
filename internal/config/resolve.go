package config

import (
	"os"
	"strconv"
)

// ConfigSource identifies where a configuration value came from.
type ConfigSource string

const (
	// SourceDefault indicates the value came from built-in defaults.
	SourceDefault ConfigSource = "default"
	// SourceFile indicates the value came from the corvid.toml config file.
	SourceFile ConfigSource = "file"
	// SourceEnv indicates the value came from an environment variable.
	SourceEnv ConfigSource = "env"
	// SourceCLI indicates the value came from a CLI flag.
	SourceCLI ConfigSource = "cli"
)

// ResolvedConfig holds the fully-resolved configuration with source tracking.
// The Config field contains the merged values; Sources tracks where each came from.
type ResolvedConfig struct {
	Config  *Config
	Sources map[string]ConfigSource // key is dotted path, e.g., "server.addr"
	Path    string                  // path to the config file used (empty if none)
}

// CLIOverrides captures flag values that can override configuration.
// Nil/zero values mean "not set" (do not override).
type CLIOverrides struct {
	ServerAddr  *string
	WorkerCount *int
	DailyUSD    *float64
}

// EnvFunc is a function that looks up environment variables.
// Default implementation is os.LookupEnv. Injected for testability.
type EnvFunc func(key string) (string, bool)

// Resolve merges configuration from all sources in priority order:
// CLI flags > environment variables > config file > defaults.
//
// Secrets (webhook signing secrets, the model API key, the provider token)
// are sourced exclusively from the environment at this layer; they never
// appear in the TOML file or a CLI flag. The variable names themselves are
// deployment configuration, so the precedence chain stays uniform with
// every other field.
func Resolve(defaults *Config, fileConfig *Config, envFn EnvFunc, overrides *CLIOverrides) *ResolvedConfig {
	rc := &ResolvedConfig{
		Config:  &Config{},
		Sources: make(map[string]ConfigSource),
	}

	if defaults == nil {
		defaults = &Config{}
	}
	if envFn == nil {
		envFn = os.LookupEnv
	}
	if overrides == nil {
		overrides = &CLIOverrides{}
	}

	// Layer 1: defaults.
	*rc.Config = *defaults
	for _, path := range []string{
		"server.addr", "server.metrics_addr", "server.shutdown_timeout",
		"webhook.enabled_providers",
		"broker.addr", "broker.stream", "broker.dlq_stream", "broker.consumer_group",
		"broker.worker_count", "broker.max_retries",
		"provider.base_url",
		"budget.daily_usd", "budget.per_pr_usd", "budget.monthly_usd", "budget.warning_threshold",
		"review.max_suggestions", "review.severity_threshold", "review.max_files_per_review",
		"review.max_tokens_per_review", "review.min_priority_for_inclusion", "review.chunk_size",
	} {
		rc.Sources[path] = SourceDefault
	}

	// Layer 2: file config overrides non-zero fields.
	if fileConfig != nil {
		mergeFileConfig(rc, fileConfig)
	}

	// Layer 3: environment.
	resolveFromEnv(rc, envFn)

	// Layer 4: CLI overrides.
	resolveFromCLI(rc, overrides)

	return rc
}

func mergeFileConfig(rc *ResolvedConfig, f *Config) {
	c := rc.Config

	if f.Server.Addr != "" {
		c.Server.Addr = f.Server.Addr
		rc.Sources["server.addr"] = SourceFile
	}
	if f.Server.MetricsAddr != "" {
		c.Server.MetricsAddr = f.Server.MetricsAddr
		rc.Sources["server.metrics_addr"] = SourceFile
	}
	if f.Server.ShutdownTimeout != "" {
		c.Server.ShutdownTimeout = f.Server.ShutdownTimeout
		rc.Sources["server.shutdown_timeout"] = SourceFile
	}
	if len(f.Webhook.EnabledProviders) > 0 {
		c.Webhook.EnabledProviders = f.Webhook.EnabledProviders
		rc.Sources["webhook.enabled_providers"] = SourceFile
	}
	if f.Broker.Addr != "" {
		c.Broker.Addr = f.Broker.Addr
		rc.Sources["broker.addr"] = SourceFile
	}
	if f.Broker.Stream != "" {
		c.Broker.Stream = f.Broker.Stream
		rc.Sources["broker.stream"] = SourceFile
	}
	if f.Broker.DLQStream != "" {
		c.Broker.DLQStream = f.Broker.DLQStream
		rc.Sources["broker.dlq_stream"] = SourceFile
	}
	if f.Broker.ConsumerGroup != "" {
		c.Broker.ConsumerGroup = f.Broker.ConsumerGroup
		rc.Sources["broker.consumer_group"] = SourceFile
	}
	if f.Broker.WorkerCount != 0 {
		c.Broker.WorkerCount = f.Broker.WorkerCount
		rc.Sources["broker.worker_count"] = SourceFile
	}
	if f.Broker.MaxRetries != 0 {
		c.Broker.MaxRetries = f.Broker.MaxRetries
		rc.Sources["broker.max_retries"] = SourceFile
	}
	if f.Provider.BaseURL != "" {
		c.Provider.BaseURL = f.Provider.BaseURL
		rc.Sources["provider.base_url"] = SourceFile
	}
	if f.Budget.DailyUSD != 0 {
		c.Budget.DailyUSD = f.Budget.DailyUSD
		rc.Sources["budget.daily_usd"] = SourceFile
	}
	if f.Budget.PerPRUSD != 0 {
		c.Budget.PerPRUSD = f.Budget.PerPRUSD
		rc.Sources["budget.per_pr_usd"] = SourceFile
	}
	if f.Budget.MonthlyUSD != 0 {
		c.Budget.MonthlyUSD = f.Budget.MonthlyUSD
		rc.Sources["budget.monthly_usd"] = SourceFile
	}
	if f.Budget.WarningThreshold != 0 {
		c.Budget.WarningThreshold = f.Budget.WarningThreshold
		rc.Sources["budget.warning_threshold"] = SourceFile
	}
	if len(f.Budget.RepoDailyUSD) > 0 {
		if c.Budget.RepoDailyUSD == nil {
			c.Budget.RepoDailyUSD = map[string]float64{}
		}
		for k, v := range f.Budget.RepoDailyUSD {
			c.Budget.RepoDailyUSD[k] = v
		}
	}
	if f.Review.MaxSuggestions != 0 {
		c.Review.MaxSuggestions = f.Review.MaxSuggestions
		rc.Sources["review.max_suggestions"] = SourceFile
	}
	if f.Review.SeverityThreshold != "" {
		c.Review.SeverityThreshold = f.Review.SeverityThreshold
		rc.Sources["review.severity_threshold"] = SourceFile
	}
	if len(f.Review.EnableAnalyzers) > 0 {
		c.Review.EnableAnalyzers = f.Review.EnableAnalyzers
	}
	if f.Review.MaxFilesPerReview != 0 {
		c.Review.MaxFilesPerReview = f.Review.MaxFilesPerReview
		rc.Sources["review.max_files_per_review"] = SourceFile
	}
	if f.Review.MaxTokensPerReview != 0 {
		c.Review.MaxTokensPerReview = f.Review.MaxTokensPerReview
		rc.Sources["review.max_tokens_per_review"] = SourceFile
	}
	if f.Review.MinPriorityForInclusion != "" {
		c.Review.MinPriorityForInclusion = f.Review.MinPriorityForInclusion
		rc.Sources["review.min_priority_for_inclusion"] = SourceFile
	}
	if f.Review.ChunkSize != 0 {
		c.Review.ChunkSize = f.Review.ChunkSize
		rc.Sources["review.chunk_size"] = SourceFile
	}
	if len(f.Review.ExcludeGlobs) > 0 {
		c.Review.ExcludeGlobs = f.Review.ExcludeGlobs
	}
}

// resolveFromEnv layers environment variables over the file/defaults layer.
// Secret fields are *exclusively* sourced here; there is no file or CLI path
// for them.
//
//	CORVID_WEBHOOK_GITHUB_SECRET    -> webhook.GitHubSecret
//	CORVID_WEBHOOK_GITLAB_SECRET    -> webhook.GitLabSecret
//	CORVID_WEBHOOK_BITBUCKET_SECRET -> webhook.BitbucketSecret
//	CORVID_MODEL_API_KEY            -> model.APIKey
//	CORVID_PROVIDER_TOKEN           -> provider.Token
//	CORVID_SERVER_ADDR              -> server.addr
//	CORVID_BROKER_ADDR              -> broker.addr
//	CORVID_BROKER_WORKER_COUNT      -> broker.worker_count
//	CORVID_BUDGET_DAILY_USD         -> budget.daily_usd
func resolveFromEnv(rc *ResolvedConfig, envFn EnvFunc) {
	c := rc.Config

	if v, ok := envFn("CORVID_WEBHOOK_GITHUB_SECRET"); ok {
		c.Webhook.GitHubSecret = v
	}
	if v, ok := envFn("CORVID_WEBHOOK_GITLAB_SECRET"); ok {
		c.Webhook.GitLabSecret = v
	}
	if v, ok := envFn("CORVID_WEBHOOK_BITBUCKET_SECRET"); ok {
		c.Webhook.BitbucketSecret = v
	}
	if v, ok := envFn("CORVID_MODEL_API_KEY"); ok {
		c.Model.APIKey = v
	}
	if v, ok := envFn("CORVID_PROVIDER_TOKEN"); ok {
		c.Provider.Token = v
	}
	if v, ok := envFn("CORVID_DATABASE_URL"); ok {
		c.Database.URL = v
	}
	if v, ok := envFn("CORVID_SERVER_ADDR"); ok {
		c.Server.Addr = v
		rc.Sources["server.addr"] = SourceEnv
	}
	if v, ok := envFn("CORVID_BROKER_ADDR"); ok {
		c.Broker.Addr = v
		rc.Sources["broker.addr"] = SourceEnv
	}
	if v, ok := envFn("CORVID_BROKER_WORKER_COUNT"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Broker.WorkerCount = n
			rc.Sources["broker.worker_count"] = SourceEnv
		}
	}
	if v, ok := envFn("CORVID_BUDGET_DAILY_USD"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Budget.DailyUSD = f
			rc.Sources["budget.daily_usd"] = SourceEnv
		}
	}
}

func resolveFromCLI(rc *ResolvedConfig, overrides *CLIOverrides) {
	c := rc.Config

	if overrides.ServerAddr != nil {
		c.Server.Addr = *overrides.ServerAddr
		rc.Sources["server.addr"] = SourceCLI
	}
	if overrides.WorkerCount != nil {
		c.Broker.WorkerCount = *overrides.WorkerCount
		rc.Sources["broker.worker_count"] = SourceCLI
	}
	if overrides.DailyUSD != nil {
		c.Budget.DailyUSD = *overrides.DailyUSD
		rc.Sources["budget.daily_usd"] = SourceCLI
	}
}
