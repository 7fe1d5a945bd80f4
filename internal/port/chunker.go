package port

// Chunker splits a long text into passages that are embedded separately.
type Chunker interface {
	Chunk(content string) []string
}
