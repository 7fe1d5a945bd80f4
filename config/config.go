package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for minirag.
type Config struct {
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Retrieve   RetrieveConfig   `yaml:"retrieve"`
	Cache      CacheConfig      `yaml:"cache"`
	Ingest     IngestConfig     `yaml:"ingest"`
	History    HistoryConfig    `yaml:"history"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Backend string `yaml:"backend"` // "bolt", "sqlite", "memory"
	Path    string `yaml:"path"`    // relative paths resolve against the root dir
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`    // "hashing", "openai", "ollama"
	Model       string `yaml:"model"`       // e.g., "text-embedding-3-small"
	APIKeyEnv   string `yaml:"api_key_env"` // Environment variable for API key
	BaseURL     string `yaml:"base_url"`
	Dimension   int    `yaml:"dimension"`
	BatchSize   int    `yaml:"batch_size"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	Normalize   bool   `yaml:"normalize"` // L2-normalize provider vectors
	Stemming    bool   `yaml:"stemming"`  // hashing provider only
}

// GenerationConfig holds text generation provider configuration.
type GenerationConfig struct {
	Provider         string  `yaml:"provider"` // "openai", "ollama"
	Model            string  `yaml:"model"`
	APIKeyEnv        string  `yaml:"api_key_env"`
	BaseURL          string  `yaml:"base_url"`
	MaxLength        int     `yaml:"max_length"`
	SummaryMaxLength int     `yaml:"summary_max_length"`
	Temperature      float32 `yaml:"temperature"`
	TimeoutSecs      int     `yaml:"timeout_secs"`
}

// RetrieveConfig holds retrieval configuration.
type RetrieveConfig struct {
	TopK     int     `yaml:"top_k"`
	MinScore float64 `yaml:"min_score"` // Filter results below this score (0 = disabled)
}

// CacheConfig sizes the in-process layer in front of the persisted query cache.
type CacheConfig struct {
	MemoryEntries int `yaml:"memory_entries"` // 0 disables the in-process layer
}

// IngestConfig controls directory ingestion.
type IngestConfig struct {
	Dir          string   `yaml:"dir"`
	Includes     []string `yaml:"includes"`
	Excludes     []string `yaml:"excludes"`
	ChunkTokens  int      `yaml:"chunk_tokens"` // 0 stores each file as one document
	ChunkOverlap int      `yaml:"chunk_overlap"`
}

// HistoryConfig controls the conversation log.
type HistoryConfig struct {
	SummaryLimit int `yaml:"summary_limit"`
	ShowLimit    int `yaml:"show_limit"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // "text" or "json"
	File       string `yaml:"file"`   // empty disables the log file
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: "bolt",
			Path:    filepath.Join("data", "embeddings.db"),
		},
		Embedding: EmbeddingConfig{
			Provider:    "hashing",
			Model:       "hashing-v1",
			APIKeyEnv:   "OPENAI_API_KEY",
			Dimension:   384,
			BatchSize:   100,
			TimeoutSecs: 60,
			Normalize:   true,
			Stemming:    true,
		},
		Generation: GenerationConfig{
			Provider:         "ollama",
			Model:            "llama3.2",
			APIKeyEnv:        "OPENAI_API_KEY",
			BaseURL:          "http://localhost:11434/v1",
			MaxLength:        256,
			SummaryMaxLength: 100,
			Temperature:      0,
			TimeoutSecs:      120,
		},
		Retrieve: RetrieveConfig{
			TopK: 3,
		},
		Cache: CacheConfig{
			MemoryEntries: 1024,
		},
		Ingest: IngestConfig{
			Dir:      filepath.Join("data", "docs"),
			Includes: []string{"**/*.txt", "**/*.md"},
			Excludes: []string{"**/.git/**", "**/node_modules/**"},
		},
		History: HistoryConfig{
			SummaryLimit: 10,
			ShowLimit:    20,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			File:       "bot.log",
			MaxSizeMB:  5,
			MaxBackups: 3,
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for minirag.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "minirag.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".minirag", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// ApplyEnv overrides settings from the environment variables the bot has
// always honored.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("EMBED_MODEL"); v != "" {
		c.Embedding.Model = v
	}
	if v := os.Getenv("GEN_MODEL"); v != "" {
		c.Generation.Model = v
	}
	if v := os.Getenv("MINIRAG_DB"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("BOT_LOG"); v != "" {
		c.Logging.File = v
	}
}

// Validate rejects unknown backends and providers and impossible sizes.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "bolt", "sqlite", "memory":
	default:
		return fmt.Errorf("unsupported storage backend: %s", c.Storage.Backend)
	}
	switch c.Embedding.Provider {
	case "hashing", "openai", "ollama":
	default:
		return fmt.Errorf("unsupported embedding provider: %s", c.Embedding.Provider)
	}
	switch c.Generation.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unsupported generation provider: %s", c.Generation.Provider)
	}
	if c.Embedding.Provider == "hashing" && c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if c.Retrieve.TopK < 1 {
		return fmt.Errorf("retrieve.top_k must be >= 1, got %d", c.Retrieve.TopK)
	}
	if c.Cache.MemoryEntries < 0 {
		return fmt.Errorf("cache.memory_entries must not be negative, got %d", c.Cache.MemoryEntries)
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ResolvePath makes p absolute against dir unless it already is.
func ResolvePath(dir, p string) string {
	if p == "" || p == ":memory:" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
