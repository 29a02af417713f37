package config

import (
	"os"
	"path/filepath"
	"testing"
)

func BenchmarkNewDefaults(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = NewDefaults()
	}
}

func BenchmarkResolve(b *testing.B) {
	defaults := NewDefaults()
	file := &Config{Server: ServerConfig{Addr: ":9000"}}
	env := envMap(map[string]string{"CORVID_BROKER_ADDR": "redis:6379"})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Resolve(defaults, file, env, nil)
	}
}

func BenchmarkValidate(b *testing.B) {
	cfg := NewDefaults()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Validate(cfg, nil)
	}
}

func BenchmarkLoadFromFile(b *testing.B) {
	dir := b.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	content := `
[server]
addr = ":8080"

[broker]
addr = "localhost:6379"
stream = "corvid:reviews"
worker_count = 10
max_retries = 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := LoadFromFile(path); err != nil {
			b.Fatal(err)
		}
	}
}
