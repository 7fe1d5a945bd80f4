package port

import "context"

// Generator represents a language model for text generation.
type Generator interface {
	// Generate produces a completion for prompt, limited to maxLength tokens.
	Generate(ctx context.Context, prompt string, maxLength int) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
