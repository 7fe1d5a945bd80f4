package embedding

import (
	"fmt"
	"time"

	"minirag/config"
	"minirag/internal/adapter/analyzer"
	"minirag/internal/port"
)

// New builds the embedder selected by cfg.Provider.
func New(cfg config.EmbeddingConfig) (port.Embedder, error) {
	opts := OpenAIOptions{
		BaseURL:   cfg.BaseURL,
		Dimension: cfg.Dimension,
		BatchSize: cfg.BatchSize,
		Timeout:   time.Duration(cfg.TimeoutSecs) * time.Second,
		Normalize: cfg.Normalize,
	}

	switch cfg.Provider {
	case "hashing", "":
		if cfg.Dimension <= 0 {
			return nil, fmt.Errorf("hashing embedder needs a positive dimension, got %d", cfg.Dimension)
		}
		return NewHashingEmbedder(analyzer.NewTokenizer(cfg.Stemming), cfg.Dimension, cfg.Model), nil
	case "openai":
		// The configured dimension belongs to the local embedder; remote
		// models report their own.
		opts.Dimension = 0
		return NewOpenAIEmbedder(cfg.APIKeyEnv, cfg.Model, opts)
	case "ollama":
		opts.Dimension = 0
		return NewOllamaEmbedder(cfg.Model, opts), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}
