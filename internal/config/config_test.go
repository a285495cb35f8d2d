package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Limits.Concurrency != 50 {
		t.Errorf("Concurrency = %d, want 50", cfg.Limits.Concurrency)
	}
	if cfg.Limits.TreeCap != 100 {
		t.Errorf("TreeCap = %d, want 100", cfg.Limits.TreeCap)
	}
	if cfg.Limits.OverviewSampleCap != 100 {
		t.Errorf("OverviewSampleCap = %d, want 100", cfg.Limits.OverviewSampleCap)
	}
	if cfg.Model.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.Model.MaxAttempts)
	}
	if cfg.Model.RetryBaseDelay != 300*time.Millisecond {
		t.Errorf("RetryBaseDelay = %v, want 300ms", cfg.Model.RetryBaseDelay)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Limits.Concurrency != 50 {
		t.Errorf("Concurrency = %d, want default 50", cfg.Limits.Concurrency)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mq-mcp.toml")
	content := `root = "/srv/docs"

[limits]
concurrency = 8
tree_cap = 25

[model]
name = "gemini-2.5-pro"
retry_base_delay = "500ms"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Root != "/srv/docs" {
		t.Errorf("Root = %q, want /srv/docs", cfg.Root)
	}
	if cfg.Limits.Concurrency != 8 {
		t.Errorf("Concurrency = %d, want 8", cfg.Limits.Concurrency)
	}
	if cfg.Limits.TreeCap != 25 {
		t.Errorf("TreeCap = %d, want 25", cfg.Limits.TreeCap)
	}
	// Unset keys keep defaults
	if cfg.Limits.OverviewSampleCap != 100 {
		t.Errorf("OverviewSampleCap = %d, want default 100", cfg.Limits.OverviewSampleCap)
	}
	if cfg.Model.Name != "gemini-2.5-pro" {
		t.Errorf("Model.Name = %q, want gemini-2.5-pro", cfg.Model.Name)
	}
	if cfg.Model.RetryBaseDelay != 500*time.Millisecond {
		t.Errorf("RetryBaseDelay = %v, want 500ms", cfg.Model.RetryBaseDelay)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MQMCP_ROOT", "/env/root")
	t.Setenv("MQMCP_LIMITS_CONCURRENCY", "3")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Root != "/env/root" {
		t.Errorf("Root = %q, want /env/root", cfg.Root)
	}
	if cfg.Limits.Concurrency != 3 {
		t.Errorf("Concurrency = %d, want 3", cfg.Limits.Concurrency)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty root", func(c *Config) { c.Root = "" }},
		{"zero concurrency", func(c *Config) { c.Limits.Concurrency = 0 }},
		{"zero tree cap", func(c *Config) { c.Limits.TreeCap = 0 }},
		{"zero sample cap", func(c *Config) { c.Limits.OverviewSampleCap = 0 }},
		{"zero attempts", func(c *Config) { c.Model.MaxAttempts = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate should fail")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mq-mcp.toml")

	cfg := DefaultConfig()
	cfg.Root = "/srv/docs"
	cfg.Limits.Concurrency = 10
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Root != "/srv/docs" {
		t.Errorf("Root = %q, want /srv/docs", loaded.Root)
	}
	if loaded.Limits.Concurrency != 10 {
		t.Errorf("Concurrency = %d, want 10", loaded.Limits.Concurrency)
	}
}
