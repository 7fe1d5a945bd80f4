package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"minirag/internal/port"
)

// HashingEmbedder maps texts into a fixed-size vector space by hashing their
// terms into signed buckets, then scales the result to unit length. Output is
// deterministic across processes. Texts sharing terms get positive
// similarity; it captures no semantics beyond that.
type HashingEmbedder struct {
	tokenizer port.Tokenizer
	dimension int
	model     string
}

var _ port.Embedder = (*HashingEmbedder)(nil)

func NewHashingEmbedder(tokenizer port.Tokenizer, dimension int, model string) *HashingEmbedder {
	if model == "" {
		model = "hashing-v1"
	}
	return &HashingEmbedder{
		tokenizer: tokenizer,
		dimension: dimension,
		model:     model,
	}
}

func (e *HashingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embedOne(text)
	}
	return out, nil
}

func (e *HashingEmbedder) embedOne(text string) []float32 {
	acc := make([]float64, e.dimension)
	for _, term := range e.tokenizer.Tokenize(text) {
		h := fnv.New64a()
		h.Write([]byte(term))
		sum := h.Sum64()
		bucket := sum % uint64(e.dimension)
		if sum>>63 == 1 {
			acc[bucket]--
		} else {
			acc[bucket]++
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	vec := make([]float32, e.dimension)
	if norm == 0 {
		// No usable terms: the zero vector scores 0 against everything.
		return vec
	}
	norm = math.Sqrt(norm)
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}

func (e *HashingEmbedder) Dimension() int {
	return e.dimension
}

func (e *HashingEmbedder) ModelName() string {
	return e.model
}
