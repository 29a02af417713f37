// Package config loads and resolves Corvid's service configuration: a
// Config struct of section
// structs, a NewDefaults() baseline, a four-layer Load/Resolve precedence
// chain (defaults < file < environment < CLI flags), and a Validate() pass
// that separates fatal errors from advisory warnings. Secrets (webhook
// signing secrets, model API keys, broker/database credentials) are never
// stored in the TOML file itself; they are read from environment variables
// and interpolated into the resolved config at Resolve time.
package config

// Config is the top-level configuration structure mapping to corvid.toml.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Webhook  WebhookConfig  `toml:"webhook"`
	Broker   BrokerConfig   `toml:"broker"`
	Model    ModelConfig    `toml:"model"`
	Provider ProviderConfig `toml:"provider"`
	Budget   BudgetConfig   `toml:"budget"`
	Review   ReviewConfig   `toml:"review"`
	Database DatabaseConfig `toml:"database"`
}

// ServerConfig maps to the [server] section: the webhook HTTP listener.
type ServerConfig struct {
	Addr            string `toml:"addr"`
	MetricsAddr     string `toml:"metrics_addr"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

// WebhookConfig maps to the [webhook] section: per-provider signing secrets
// and which provider endpoints are mounted. Secret fields are always sourced
// from environment variables (CORVID_WEBHOOK_GITHUB_SECRET, etc.) at
// Resolve time; an empty secret is an explicit opt-out of signature
// verification for that provider.
type WebhookConfig struct {
	GitHubSecret    string   `toml:"-"`
	GitLabSecret    string   `toml:"-"`
	BitbucketSecret string   `toml:"-"`
	EnabledProviders []string `toml:"enabled_providers"`
}

// BrokerConfig maps to the [broker] section: the MessageBroker reference
// adapter (Redis Streams) and the job runtime's worker pool shape.
type BrokerConfig struct {
	Addr            string `toml:"addr"`
	Stream          string `toml:"stream"`
	DLQStream       string `toml:"dlq_stream"`
	ConsumerGroup   string `toml:"consumer_group"`
	WorkerCount     int    `toml:"worker_count"`
	MaxRetries      int    `toml:"max_retries"`
}

// ModelConfig maps to the [model] section: the ModelClient reference
// adapter (Anthropic) connection shape. APIKey is always sourced from
// CORVID_MODEL_API_KEY.
type ModelConfig struct {
	APIKey string `toml:"-"`
}

// ProviderConfig maps to the [provider] section: the ProviderAdapter
// reference adapter (GitHub) connection shape. Token is always sourced
// from CORVID_PROVIDER_TOKEN.
type ProviderConfig struct {
	Token   string `toml:"-"`
	BaseURL string `toml:"base_url"`
}

// BudgetConfig maps to the [budget] section, mirroring budget.Config.
type BudgetConfig struct {
	DailyUSD         float64            `toml:"daily_usd"`
	PerPRUSD         float64            `toml:"per_pr_usd"`
	MonthlyUSD       float64            `toml:"monthly_usd"`
	WarningThreshold float64            `toml:"warning_threshold"`
	RepoDailyUSD     map[string]float64 `toml:"repo_daily_usd"`
}

// DatabaseConfig maps to the [database] section: the connection string
// shared by the Postgres reference adapters for CheckpointStore, CostLedger,
// and FeedbackSink. URL is always sourced from CORVID_DATABASE_URL; an empty
// URL means those three capabilities run against their in-memory fakes
// instead (the posture `corvid review` and the test suite use).
type DatabaseConfig struct {
	URL string `toml:"-"`
}

// ReviewConfig maps to the [review] section: effective review defaults and
// the optimizer's admission knobs.
type ReviewConfig struct {
	MaxSuggestions         int      `toml:"max_suggestions"`
	SeverityThreshold      string   `toml:"severity_threshold"`
	EnableAnalyzers        []string `toml:"enable_analyzers"`
	MaxFilesPerReview      int      `toml:"max_files_per_review"`
	MaxTokensPerReview     int      `toml:"max_tokens_per_review"`
	MinPriorityForInclusion string  `toml:"min_priority_for_inclusion"`
	ChunkSize              int      `toml:"chunk_size"`
	ExcludeGlobs           []string `toml:"exclude_globs"`
}
