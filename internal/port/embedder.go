package port

import "context"

// Embedder generates vector embeddings for text.
//
// Implementations must return unit-normalized vectors: the retriever scores
// with a raw dot product and relies on that to equal cosine similarity.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text, all of Dimension() length.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}
