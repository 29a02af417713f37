package config

// NewDefaults returns a Config populated with Corvid's built-in defaults.
func NewDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			MetricsAddr:     ":9090",
			ShutdownTimeout: "15s",
		},
		Webhook: WebhookConfig{
			EnabledProviders: []string{"github"},
		},
		Broker: BrokerConfig{
			Addr:          "localhost:6379",
			Stream:        "corvid:reviews",
			DLQStream:     "corvid:reviews:dlq",
			ConsumerGroup: "corvid-workers",
			WorkerCount:   10,
			MaxRetries:    3,
		},
		Model: ModelConfig{},
		Provider: ProviderConfig{
			BaseURL: "",
		},
		Budget: BudgetConfig{
			DailyUSD:         50.0,
			PerPRUSD:         5.0,
			MonthlyUSD:       1000.0,
			WarningThreshold: 0.8,
			RepoDailyUSD:     map[string]float64{},
		},
		Review: ReviewConfig{
			MaxSuggestions:          30,
			SeverityThreshold:       "suggestion",
			EnableAnalyzers:         []string{"security", "style", "logic", "pattern"},
			MaxFilesPerReview:       50,
			MaxTokensPerReview:      100000,
			MinPriorityForInclusion: "MEDIUM",
			ChunkSize:               5000,
			ExcludeGlobs:            []string{},
		},
	}
}
