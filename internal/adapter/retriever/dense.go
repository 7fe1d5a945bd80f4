package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"minirag/internal/domain"
	"minirag/internal/port"
)

// DenseRetriever ranks documents by the dot product between the query
// embedding and each stored embedding.
//
// Query embeddings are looked up in the cache by the raw query string and
// computed only on a miss. The document matrix lives in a Snapshot that is
// replaced wholesale by Rebuild; concurrent Retrieve calls keep reading the
// snapshot they loaded. Scores equal cosine similarity only when the embedder
// returns unit vectors, which port.Embedder requires.
type DenseRetriever struct {
	docs     port.DocumentStore
	cache    port.QueryCache
	embedder port.Embedder
	minScore float64
	logger   *slog.Logger

	snapshot  atomic.Pointer[Snapshot]
	rebuildMu sync.Mutex
}

var _ port.Retriever = (*DenseRetriever)(nil)

// Option configures a DenseRetriever.
type Option func(*DenseRetriever)

// WithMinScore drops hits scoring below min after ranking.
func WithMinScore(min float64) Option {
	return func(r *DenseRetriever) { r.minScore = min }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *DenseRetriever) { r.logger = logger }
}

// NewDenseRetriever starts with an empty snapshot; call Rebuild to load the
// store.
func NewDenseRetriever(docs port.DocumentStore, cache port.QueryCache, embedder port.Embedder, opts ...Option) *DenseRetriever {
	r := &DenseRetriever{
		docs:     docs,
		cache:    cache,
		embedder: embedder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "retriever")
	r.snapshot.Store(&Snapshot{})
	return r
}

// Rebuild reloads every document and installs a fresh snapshot. On error the
// previous snapshot stays in place. Rebuilds are serialized, so a slower
// older build can never overwrite a newer one.
func (r *DenseRetriever) Rebuild(ctx context.Context) error {
	r.rebuildMu.Lock()
	defer r.rebuildMu.Unlock()

	docs, err := r.docs.LoadDocuments(ctx)
	if err != nil {
		return err
	}
	snap, err := BuildSnapshot(docs)
	if err != nil {
		r.logger.Error("index rebuild failed", "error", err)
		return err
	}
	r.snapshot.Store(snap)
	r.logger.Info("index rebuilt", "docs", snap.Len(), "dim", snap.Dim)
	return nil
}

// Snapshot returns the snapshot currently used for retrieval.
func (r *DenseRetriever) Snapshot() *Snapshot {
	return r.snapshot.Load()
}

// Retrieve returns up to k hits ordered by descending score. Equal scores
// keep index order, which is ascending document id.
func (r *DenseRetriever) Retrieve(ctx context.Context, query string, k int) ([]domain.Hit, error) {
	if k < 1 {
		return nil, fmt.Errorf("k must be >= 1, got %d: %w", k, domain.ErrInvalidArgument)
	}

	q, err := r.queryEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}

	snap := r.snapshot.Load()
	if snap.Len() == 0 {
		return []domain.Hit{}, nil
	}
	if len(q) != snap.Dim {
		return nil, &domain.DimensionMismatchError{Expected: snap.Dim, Got: len(q)}
	}

	scores := snap.Scores(q)
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	if k < len(order) {
		order = order[:k]
	}

	hits := make([]domain.Hit, 0, len(order))
	for _, i := range order {
		if r.minScore > 0 && scores[i] < r.minScore {
			break
		}
		hits = append(hits, domain.Hit{
			DocID: snap.IDs[i],
			Title: snap.Titles[i],
			Text:  snap.Texts[i],
			Score: scores[i],
		})
	}
	return hits, nil
}

func (r *DenseRetriever) queryEmbedding(ctx context.Context, query string) ([]float32, error) {
	if emb, ok, err := r.cache.GetEmbedding(ctx, query); err != nil {
		return nil, domain.NewStorageError("cache get", err)
	} else if ok {
		return emb, nil
	}

	vecs, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, &domain.EmbeddingError{Err: err}
	}
	if len(vecs) != 1 {
		return nil, &domain.EmbeddingError{Err: fmt.Errorf("expected 1 vector, got %d", len(vecs))}
	}
	if len(vecs[0]) == 0 {
		return nil, &domain.EmbeddingError{Err: fmt.Errorf("provider returned an empty vector")}
	}

	if err := r.cache.SetEmbedding(ctx, query, vecs[0]); err != nil {
		return nil, domain.NewStorageError("cache set", err)
	}
	r.logger.Debug("query embedded", "model", r.embedder.ModelName())
	return vecs[0], nil
}
