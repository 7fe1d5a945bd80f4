package embedding

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/sashabaranov/go-openai"
	"minirag/internal/port"
)

// OpenAIEmbedder calls any OpenAI-compatible /embeddings endpoint, which
// covers OpenAI itself and Ollama's /v1 API.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	dimension int
	batchSize int
	normalize bool
}

var _ port.Embedder = (*OpenAIEmbedder)(nil)

// OpenAIOptions tunes an OpenAIEmbedder. Zero values pick defaults.
type OpenAIOptions struct {
	BaseURL   string
	Dimension int
	BatchSize int
	Timeout   time.Duration
	Normalize bool
}

func NewOpenAIEmbedder(apiKeyEnv, model string, opts OpenAIOptions) (*OpenAIEmbedder, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}
	if opts.Dimension == 0 {
		opts.Dimension = knownDimension(model, 1536)
	}
	return newOpenAICompatible(apiKey, model, opts), nil
}

func NewOllamaEmbedder(model string, opts OpenAIOptions) *OpenAIEmbedder {
	if opts.BaseURL == "" {
		opts.BaseURL = "http://localhost:11434/v1"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.Dimension == 0 {
		opts.Dimension = knownDimension(model, 768)
	}
	return newOpenAICompatible("ollama", model, opts)
}

func newOpenAICompatible(apiKey, model string, opts OpenAIOptions) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}

	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(cfg),
		model:     openai.EmbeddingModel(model),
		dimension: opts.Dimension,
		batchSize: opts.BatchSize,
		normalize: opts.Normalize,
	}
}

func knownDimension(model string, fallback int) int {
	switch model {
	case "text-embedding-3-small", "text-embedding-ada-002":
		return 1536
	case "text-embedding-3-large":
		return 3072
	case "nomic-embed-text":
		return 768
	case "mxbai-embed-large":
		return 1024
	case "all-minilm":
		return 384
	}
	return fallback
}

// Embed returns one vector per text, in input order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := i + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := e.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
	}

	return all, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(embeddings) {
			return nil, fmt.Errorf("embedding response index %d out of range", data.Index)
		}
		embeddings[data.Index] = data.Embedding
	}
	for i, emb := range embeddings {
		if len(emb) == 0 {
			return nil, fmt.Errorf("embedding response missing vector %d of %d", i, len(texts))
		}
		if e.normalize {
			normalize(emb)
		}
	}

	return embeddings, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return string(e.model)
}

// normalize scales v to unit length in place. Zero vectors are left as is.
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}
