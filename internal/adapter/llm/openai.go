package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"minirag/config"
	"minirag/internal/port"
)

// ChatGenerator produces text with an OpenAI-compatible chat completion
// endpoint. Each prompt is sent as a single user message.
type ChatGenerator struct {
	client      *openai.Client
	model       string
	temperature float32
}

var _ port.Generator = (*ChatGenerator)(nil)

// New builds the generator selected by cfg.Provider.
func New(cfg config.GenerationConfig) (*ChatGenerator, error) {
	var apiKey string
	switch cfg.Provider {
	case "openai":
		apiKey = os.Getenv(cfg.APIKeyEnv)
		if apiKey == "" {
			return nil, fmt.Errorf("API key not found in environment variable: %s", cfg.APIKeyEnv)
		}
	case "ollama":
		apiKey = "ollama"
		if cfg.BaseURL == "" {
			cfg.BaseURL = "http://localhost:11434/v1"
		}
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", cfg.Provider)
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	return &ChatGenerator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

// Generate returns the model's reply to prompt, capped at maxLength tokens.
func (g *ChatGenerator) Generate(ctx context.Context, prompt string, maxLength int) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   maxLength,
		Temperature: g.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("generation returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (g *ChatGenerator) ModelName() string {
	return g.model
}
