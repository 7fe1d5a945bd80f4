package port

// Tokenizer splits text into normalized terms.
type Tokenizer interface {
	Tokenize(text string) []string

	// CountTokens approximates the LLM token count of text.
	CountTokens(text string) int
}
