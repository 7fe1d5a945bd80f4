package retriever

import (
	"context"
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"

	"minirag/internal/adapter/analyzer"
	"minirag/internal/adapter/embedding"
	"minirag/internal/adapter/memstore"
	"minirag/internal/domain"
)

// countingEmbedder returns a fixed vector per text and counts calls.
type countingEmbedder struct {
	vectors map[string][]float32
	calls   int
	err     error
	extra   bool
}

func (e *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, e.vectors[t])
	}
	if e.extra {
		out = append(out, []float32{0, 0})
	}
	return out, nil
}

func (e *countingEmbedder) Dimension() int    { return 2 }
func (e *countingEmbedder) ModelName() string { return "counting" }

func unit(x, y float64) []float32 {
	n := math.Hypot(x, y)
	return []float32{float32(x / n), float32(y / n)}
}

func seed(t *testing.T, s *memstore.MemoryStore, docs ...[]float32) {
	t.Helper()
	for i, emb := range docs {
		if _, err := s.SaveDocument(context.Background(), string(rune('A'+i)), "text", emb); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDenseRetriever_RanksByDotProduct(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewMemoryStore()
	seed(t, s, unit(1, 0), unit(0, 1), unit(1, 1))

	emb := &countingEmbedder{vectors: map[string][]float32{"q": unit(1, 0.2)}}
	r := NewDenseRetriever(s, s, emb)
	if err := r.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}

	hits, err := r.Retrieve(ctx, "q", 3)
	if err != nil {
		t.Fatal(err)
	}
	got := []string{hits[0].Title, hits[1].Title, hits[2].Title}
	if !reflect.DeepEqual(got, []string{"A", "C", "B"}) {
		t.Errorf("unexpected order %v", got)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("scores not descending: %v", hits)
		}
	}
}

func TestDenseRetriever_KBound(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewMemoryStore()
	seed(t, s, unit(1, 0), unit(0, 1))

	r := NewDenseRetriever(s, s, &countingEmbedder{vectors: map[string][]float32{"q": unit(1, 1)}})
	if err := r.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}

	for k := 1; k <= 4; k++ {
		hits, err := r.Retrieve(ctx, "q", k)
		if err != nil {
			t.Fatal(err)
		}
		want := k
		if want > 2 {
			want = 2
		}
		if len(hits) != want {
			t.Errorf("k=%d: expected %d hits, got %d", k, want, len(hits))
		}
	}

	if _, err := r.Retrieve(ctx, "q", 0); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for k=0, got %v", err)
	}
}

func TestDenseRetriever_TiesKeepIDOrder(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewMemoryStore()
	seed(t, s, unit(0, 1), unit(1, 0), unit(1, 0), unit(1, 0))

	r := NewDenseRetriever(s, s, &countingEmbedder{vectors: map[string][]float32{"q": unit(1, 0)}})
	if err := r.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}

	hits, err := r.Retrieve(ctx, "q", 2)
	if err != nil {
		t.Fatal(err)
	}
	if hits[0].DocID != 2 || hits[1].DocID != 3 {
		t.Errorf("expected ids 2, 3 for tied scores, got %d, %d", hits[0].DocID, hits[1].DocID)
	}
}

func TestDenseRetriever_SelfQueryScoresHighest(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewMemoryStore()
	seed(t, s, unit(0.3, 0.7), unit(0.9, 0.1), unit(-1, 0.5))

	for i, v := range [][]float32{unit(0.3, 0.7), unit(0.9, 0.1), unit(-1, 0.5)} {
		emb := &countingEmbedder{vectors: map[string][]float32{"self": v}}
		r := NewDenseRetriever(s, memstore.NewMemoryStore(), emb)
		if err := r.Rebuild(ctx); err != nil {
			t.Fatal(err)
		}
		hits, err := r.Retrieve(ctx, "self", 1)
		if err != nil {
			t.Fatal(err)
		}
		if hits[0].DocID != int64(i+1) {
			t.Errorf("doc %d: self query ranked %d first", i+1, hits[0].DocID)
		}
		if math.Abs(hits[0].Score-1) > 1e-5 {
			t.Errorf("doc %d: expected self score ~1, got %v", i+1, hits[0].Score)
		}
	}
}

func TestDenseRetriever_CachesQueryEmbedding(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewMemoryStore()
	seed(t, s, unit(1, 0))

	emb := &countingEmbedder{vectors: map[string][]float32{"q": unit(1, 0)}}
	r := NewDenseRetriever(s, s, emb)
	if err := r.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}

	first, err := r.Retrieve(ctx, "q", 1)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Retrieve(ctx, "q", 1)
	if err != nil {
		t.Fatal(err)
	}
	if emb.calls != 1 {
		t.Errorf("expected 1 embedder call, got %d", emb.calls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached result differs: %v vs %v", first, second)
	}
	if _, ok, _ := s.GetEmbedding(ctx, "q"); !ok {
		t.Error("query embedding was not cached")
	}
}

func TestDenseRetriever_EmptyIndex(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewMemoryStore()

	r := NewDenseRetriever(s, s, &countingEmbedder{vectors: map[string][]float32{"q": unit(1, 0)}})
	if err := r.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}

	hits, err := r.Retrieve(ctx, "q", 3)
	if err != nil {
		t.Fatal(err)
	}
	if hits == nil || len(hits) != 0 {
		t.Errorf("expected empty non-nil result, got %#v", hits)
	}
}

func TestDenseRetriever_EmbeddingFailure(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewMemoryStore()
	seed(t, s, unit(1, 0))

	tests := []struct {
		name string
		emb  *countingEmbedder
	}{
		{"provider error", &countingEmbedder{err: errors.New("unreachable")}},
		{"wrong count", &countingEmbedder{vectors: map[string][]float32{"q": unit(1, 0)}, extra: true}},
		{"empty vector", &countingEmbedder{vectors: map[string][]float32{}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cache := memstore.NewMemoryStore()
			r := NewDenseRetriever(s, cache, tc.emb)
			if err := r.Rebuild(ctx); err != nil {
				t.Fatal(err)
			}

			_, err := r.Retrieve(ctx, "q", 1)
			var ee *domain.EmbeddingError
			if !errors.As(err, &ee) {
				t.Fatalf("expected EmbeddingError, got %v", err)
			}
			if n, _ := cache.CountCacheEntries(ctx); n != 0 {
				t.Error("failed embedding must not be cached")
			}
		})
	}
}

func TestDenseRetriever_QueryDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewMemoryStore()
	seed(t, s, unit(1, 0))

	r := NewDenseRetriever(s, s, &countingEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}})
	if err := r.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}

	_, err := r.Retrieve(ctx, "q", 1)
	var dm *domain.DimensionMismatchError
	if !errors.As(err, &dm) {
		t.Fatalf("expected DimensionMismatchError, got %v", err)
	}
	if dm.Expected != 2 || dm.Got != 3 {
		t.Errorf("unexpected mismatch detail %+v", dm)
	}
}

func TestDenseRetriever_RebuildMismatchKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewMemoryStore()
	seed(t, s, unit(1, 0), unit(0, 1))

	r := NewDenseRetriever(s, s, &countingEmbedder{vectors: map[string][]float32{"q": unit(1, 0)}})
	if err := r.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}
	before := r.Snapshot()

	if _, err := s.SaveDocument(ctx, "bad", "text", []float32{1, 0, 0}); err != nil {
		t.Fatal(err)
	}

	err := r.Rebuild(ctx)
	var dm *domain.DimensionMismatchError
	if !errors.As(err, &dm) {
		t.Fatalf("expected DimensionMismatchError, got %v", err)
	}
	if dm.DocID != 3 || dm.Expected != 2 || dm.Got != 3 {
		t.Errorf("unexpected mismatch detail %+v", dm)
	}
	if r.Snapshot() != before {
		t.Error("failed rebuild replaced the snapshot")
	}

	hits, err := r.Retrieve(ctx, "q", 5)
	if err != nil {
		t.Fatalf("prior snapshot should stay queryable: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("expected 2 hits from prior snapshot, got %d", len(hits))
	}
}

func TestDenseRetriever_RebuildIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewMemoryStore()
	seed(t, s, unit(1, 0), unit(0.5, 0.5))

	r := NewDenseRetriever(s, s, &countingEmbedder{})
	if err := r.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}
	first := r.Snapshot()
	if err := r.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, r.Snapshot()) {
		t.Error("rebuild without writes produced a different snapshot")
	}
}

func TestDenseRetriever_MinScore(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewMemoryStore()
	seed(t, s, unit(1, 0), unit(0, 1))

	r := NewDenseRetriever(s, s, &countingEmbedder{vectors: map[string][]float32{"q": unit(1, 0)}}, WithMinScore(0.5))
	if err := r.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}

	hits, err := r.Retrieve(ctx, "q", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Title != "A" {
		t.Errorf("expected only A above threshold, got %v", hits)
	}
}

func TestDenseRetriever_PasswordExample(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewMemoryStore()
	emb := embedding.NewHashingEmbedder(analyzer.NewTokenizer(true), 384, "")

	texts := []string{"How to reset your password", "Pizza recipe"}
	vecs, err := emb.Embed(ctx, texts)
	if err != nil {
		t.Fatal(err)
	}
	s.SaveDocument(ctx, "Doc1", texts[0], vecs[0])
	s.SaveDocument(ctx, "Doc2", texts[1], vecs[1])

	r := NewDenseRetriever(s, s, emb)
	if err := r.Rebuild(ctx); err != nil {
		t.Fatal(err)
	}

	hits, err := r.Retrieve(ctx, "How do I change my password?", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Title != "Doc1" {
		t.Errorf("expected Doc1, got %v", hits)
	}
}

func TestDenseRetriever_ConcurrentRetrieveAndRebuild(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewMemoryStore()
	emb := embedding.NewHashingEmbedder(analyzer.NewTokenizer(false), 32, "")
	r := NewDenseRetriever(s, s, emb)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				hits, err := r.Retrieve(ctx, "shared words", 3)
				if err != nil {
					t.Errorf("Retrieve failed: %v", err)
					return
				}
				if len(hits) > 3 {
					t.Errorf("too many hits: %d", len(hits))
					return
				}
			}
		}()
	}

	for i := 0; i < 20; i++ {
		vecs, err := emb.Embed(ctx, []string{"shared words document"})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.SaveDocument(ctx, "doc", "shared words document", vecs[0]); err != nil {
			t.Fatal(err)
		}
		if err := r.Rebuild(ctx); err != nil {
			t.Fatal(err)
		}
	}
	wg.Wait()

	if r.Snapshot().Len() != 20 {
		t.Errorf("expected 20 indexed docs, got %d", r.Snapshot().Len())
	}
}
