package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database:
  dsn: "file:test.db"
server:
  addr: ":9090"
client:
  max_attempts: 5
  base_delay_ms: 250
  backoff_multiplier: 1.5
  ceiling_tokens: 4000
provider:
  endpoint: "https://gateway.example.com/v1/complete"
  api_key: "secret"
pricing:
  gpt-4o-mini:
    input_per_million: 0.15
    output_per_million: 0.60
`
	if errWrite := os.WriteFile(path, []byte(content), 0o600); errWrite != nil {
		t.Fatalf("write config: %v", errWrite)
	}

	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.Database.DSN != "file:test.db" {
		t.Fatalf("DSN = %q", cfg.Database.DSN)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Client.MaxAttempts != 5 {
		t.Fatalf("MaxAttempts = %d", cfg.Client.MaxAttempts)
	}
	if got := cfg.Client.BaseDelay(); got != 250*time.Millisecond {
		t.Fatalf("BaseDelay = %s", got)
	}
	if rate, ok := cfg.Pricing["gpt-4o-mini"]; !ok || rate.OutputPerMillion != 0.60 {
		t.Fatalf("pricing not parsed: %+v", cfg.Pricing)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if errWrite := os.WriteFile(path, []byte(`database: {dsn: "file:test.db"}`), 0o600); errWrite != nil {
		t.Fatalf("write config: %v", errWrite)
	}

	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.Server.Addr != ":8317" {
		t.Fatalf("default Addr = %q", cfg.Server.Addr)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("default Level = %q", cfg.Logging.Level)
	}
}

func TestResolveConfigPath(t *testing.T) {
	if got := ResolveConfigPath("  "); got != DefaultConfigPath {
		t.Fatalf("blank path should resolve to the default, got %q", got)
	}
	if got := ResolveConfigPath("/etc/aibridge.yaml"); got != "/etc/aibridge.yaml" {
		t.Fatalf("explicit path changed: %q", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, errLoad := Load(filepath.Join(t.TempDir(), "absent.yaml")); errLoad == nil {
		t.Fatalf("expected an error for a missing file")
	}
}
