package config

import "testing"

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) EnvFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestResolveDefaultsOnly(t *testing.T) {
	rc := Resolve(NewDefaults(), nil, noEnv, nil)

	if rc.Config.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want :8080", rc.Config.Server.Addr)
	}
	if rc.Sources["server.addr"] != SourceDefault {
		t.Errorf("Sources[server.addr] = %v, want SourceDefault", rc.Sources["server.addr"])
	}
	if rc.Config.Budget.DailyUSD != 50.0 {
		t.Errorf("Budget.DailyUSD = %v, want 50.0", rc.Config.Budget.DailyUSD)
	}
}

func TestResolveFileOverridesDefaults(t *testing.T) {
	file := &Config{
		Server: ServerConfig{Addr: ":7000"},
		Budget: BudgetConfig{DailyUSD: 25},
	}
	rc := Resolve(NewDefaults(), file, noEnv, nil)

	if rc.Config.Server.Addr != ":7000" {
		t.Errorf("Server.Addr = %q, want :7000", rc.Config.Server.Addr)
	}
	if rc.Sources["server.addr"] != SourceFile {
		t.Errorf("Sources[server.addr] = %v, want SourceFile", rc.Sources["server.addr"])
	}
	if rc.Config.Budget.DailyUSD != 25 {
		t.Errorf("Budget.DailyUSD = %v, want 25", rc.Config.Budget.DailyUSD)
	}
	// Untouched fields still carry defaults.
	if rc.Config.Broker.WorkerCount != 10 {
		t.Errorf("Broker.WorkerCount = %d, want 10 (default)", rc.Config.Broker.WorkerCount)
	}
}

func TestResolveEnvOverridesFile(t *testing.T) {
	file := &Config{Server: ServerConfig{Addr: ":7000"}}
	env := envMap(map[string]string{
		"CORVID_SERVER_ADDR": ":6000",
	})
	rc := Resolve(NewDefaults(), file, env, nil)

	if rc.Config.Server.Addr != ":6000" {
		t.Errorf("Server.Addr = %q, want :6000", rc.Config.Server.Addr)
	}
	if rc.Sources["server.addr"] != SourceEnv {
		t.Errorf("Sources[server.addr] = %v, want SourceEnv", rc.Sources["server.addr"])
	}
}

func TestResolveSecretsOnlyFromEnv(t *testing.T) {
	env := envMap(map[string]string{
		"CORVID_WEBHOOK_GITHUB_SECRET": "s3cr3t",
		"CORVID_MODEL_API_KEY":         "sk-ant-xxx",
		"CORVID_PROVIDER_TOKEN":        "ghp_xxx",
		"CORVID_DATABASE_URL":          "postgres://corvid@localhost/corvid",
	})
	rc := Resolve(NewDefaults(), nil, env, nil)

	if rc.Config.Webhook.GitHubSecret != "s3cr3t" {
		t.Errorf("Webhook.GitHubSecret = %q, want s3cr3t", rc.Config.Webhook.GitHubSecret)
	}
	if rc.Config.Model.APIKey != "sk-ant-xxx" {
		t.Errorf("Model.APIKey = %q, want sk-ant-xxx", rc.Config.Model.APIKey)
	}
	if rc.Config.Provider.Token != "ghp_xxx" {
		t.Errorf("Provider.Token = %q, want ghp_xxx", rc.Config.Provider.Token)
	}
	if rc.Config.Database.URL != "postgres://corvid@localhost/corvid" {
		t.Errorf("Database.URL = %q, want postgres://corvid@localhost/corvid", rc.Config.Database.URL)
	}
}

func TestResolveNoDatabaseURLLeavesItEmpty(t *testing.T) {
	rc := Resolve(NewDefaults(), nil, noEnv, nil)
	if rc.Config.Database.URL != "" {
		t.Errorf("Database.URL = %q, want empty when CORVID_DATABASE_URL unset", rc.Config.Database.URL)
	}
}

func TestResolveCLIOverridesEverything(t *testing.T) {
	file := &Config{Server: ServerConfig{Addr: ":7000"}}
	env := envMap(map[string]string{"CORVID_SERVER_ADDR": ":6000"})
	addr := ":5000"
	workers := 20
	daily := 99.5
	rc := Resolve(NewDefaults(), file, env, &CLIOverrides{
		ServerAddr:  &addr,
		WorkerCount: &workers,
		DailyUSD:    &daily,
	})

	if rc.Config.Server.Addr != ":5000" {
		t.Errorf("Server.Addr = %q, want :5000", rc.Config.Server.Addr)
	}
	if rc.Sources["server.addr"] != SourceCLI {
		t.Errorf("Sources[server.addr] = %v, want SourceCLI", rc.Sources["server.addr"])
	}
	if rc.Config.Broker.WorkerCount != 20 {
		t.Errorf("Broker.WorkerCount = %d, want 20", rc.Config.Broker.WorkerCount)
	}
	if rc.Config.Budget.DailyUSD != 99.5 {
		t.Errorf("Budget.DailyUSD = %v, want 99.5", rc.Config.Budget.DailyUSD)
	}
}

func TestResolveInvalidEnvNumbersIgnored(t *testing.T) {
	env := envMap(map[string]string{
		"CORVID_BROKER_WORKER_COUNT": "not-a-number",
		"CORVID_BUDGET_DAILY_USD":    "also-not-a-number",
	})
	rc := Resolve(NewDefaults(), nil, env, nil)

	if rc.Config.Broker.WorkerCount != 10 {
		t.Errorf("Broker.WorkerCount = %d, want 10 (default preserved)", rc.Config.Broker.WorkerCount)
	}
	if rc.Config.Budget.DailyUSD != 50.0 {
		t.Errorf("Budget.DailyUSD = %v, want 50.0 (default preserved)", rc.Config.Budget.DailyUSD)
	}
}

func TestResolveNilArgumentsDoNotPanic(t *testing.T) {
	rc := Resolve(nil, nil, nil, nil)
	if rc.Config == nil {
		t.Fatal("Resolve with all nils returned nil Config")
	}
}

func TestResolveRepoDailyUSDMerges(t *testing.T) {
	defaults := NewDefaults()
	file := &Config{
		Budget: BudgetConfig{
			RepoDailyUSD: map[string]float64{"acme/widgets": 12.5},
		},
	}
	rc := Resolve(defaults, file, noEnv, nil)

	if rc.Config.Budget.RepoDailyUSD["acme/widgets"] != 12.5 {
		t.Errorf("RepoDailyUSD[acme/widgets] = %v, want 12.5", rc.Config.Budget.RepoDailyUSD["acme/widgets"])
	}
}
