package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Storage.Backend != "bolt" {
		t.Errorf("expected Backend=bolt, got %s", cfg.Storage.Backend)
	}
	if cfg.Retrieve.TopK != 3 {
		t.Errorf("expected TopK=3, got %d", cfg.Retrieve.TopK)
	}
	if cfg.Generation.MaxLength != 256 {
		t.Errorf("expected MaxLength=256, got %d", cfg.Generation.MaxLength)
	}
	if cfg.History.SummaryLimit != 10 {
		t.Errorf("expected SummaryLimit=10, got %d", cfg.History.SummaryLimit)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "minirag.yaml")

	content := `
storage:
  backend: sqlite
embedding:
  dimension: 64
retrieve:
  top_k: 5
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("expected Backend=sqlite, got %s", cfg.Storage.Backend)
	}
	if cfg.Embedding.Dimension != 64 {
		t.Errorf("expected Dimension=64, got %d", cfg.Embedding.Dimension)
	}
	if cfg.Retrieve.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Retrieve.TopK)
	}
	// Unset keys keep their defaults.
	if cfg.Embedding.Provider != "hashing" {
		t.Errorf("expected Provider=hashing, got %s", cfg.Embedding.Provider)
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, ".minirag"), 0755); err != nil {
		t.Fatal(err)
	}

	content := `
history:
  summary_limit: 4
`
	if err := os.WriteFile(filepath.Join(tmpDir, ".minirag", "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.History.SummaryLimit != 4 {
		t.Errorf("expected SummaryLimit=4, got %d", cfg.History.SummaryLimit)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("EMBED_MODEL", "text-embedding-3-large")
	t.Setenv("GEN_MODEL", "gpt-4o-mini")
	t.Setenv("MINIRAG_DB", "/tmp/other.db")
	t.Setenv("BOT_LOG", "")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	if cfg.Embedding.Model != "text-embedding-3-large" {
		t.Errorf("expected embedding model override, got %s", cfg.Embedding.Model)
	}
	if cfg.Generation.Model != "gpt-4o-mini" {
		t.Errorf("expected generation model override, got %s", cfg.Generation.Model)
	}
	if cfg.Storage.Path != "/tmp/other.db" {
		t.Errorf("expected storage path override, got %s", cfg.Storage.Path)
	}
	if cfg.Logging.File != "bot.log" {
		t.Errorf("empty BOT_LOG should keep the default, got %s", cfg.Logging.File)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Storage.Backend = "redis" }},
		{"unknown embedder", func(c *Config) { c.Embedding.Provider = "voyage" }},
		{"unknown generator", func(c *Config) { c.Generation.Provider = "flan" }},
		{"zero dimension", func(c *Config) { c.Embedding.Dimension = 0 }},
		{"zero top k", func(c *Config) { c.Retrieve.TopK = 0 }},
		{"negative cache", func(c *Config) { c.Cache.MemoryEntries = -1 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestResolvePath(t *testing.T) {
	if got := ResolvePath("/srv/bot", "data/embeddings.db"); got != filepath.Join("/srv/bot", "data", "embeddings.db") {
		t.Errorf("unexpected relative resolution: %s", got)
	}
	if got := ResolvePath("/srv/bot", "/var/db.sqlite"); got != "/var/db.sqlite" {
		t.Errorf("absolute path should be unchanged, got %s", got)
	}
	if got := ResolvePath("/srv/bot", ":memory:"); got != ":memory:" {
		t.Errorf(":memory: should be unchanged, got %s", got)
	}
}
