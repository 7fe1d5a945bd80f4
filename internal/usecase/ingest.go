package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"minirag/internal/domain"
	"minirag/internal/port"
)

// Indexer rebuilds the in-memory index from the document store.
type Indexer interface {
	Rebuild(ctx context.Context) error
}

// ProgressFunc reports how many of total documents have been stored.
type ProgressFunc func(done, total int)

// IngestUseCase embeds and stores new documents, then refreshes the index.
type IngestUseCase struct {
	docs      port.DocumentStore
	embedder  port.Embedder
	indexer   Indexer
	walker    port.FileWalker
	reader    port.FileReader
	chunker   port.Chunker // nil stores each file whole
	batchSize int
	logger    *slog.Logger
}

func NewIngestUseCase(
	docs port.DocumentStore,
	embedder port.Embedder,
	indexer Indexer,
	walker port.FileWalker,
	reader port.FileReader,
	chunker port.Chunker,
	batchSize int,
	logger *slog.Logger,
) *IngestUseCase {
	if batchSize <= 0 {
		batchSize = 32
	}
	return &IngestUseCase{
		docs:      docs,
		embedder:  embedder,
		indexer:   indexer,
		walker:    walker,
		reader:    reader,
		chunker:   chunker,
		batchSize: batchSize,
		logger:    logger.With("component", "ingest"),
	}
}

// AddDocuments embeds and saves docs in order, then rebuilds the index once.
// Documents saved before an embedding or storage failure stay saved; the
// index is still rebuilt so that it reflects them. A rebuild failure is
// returned together with the ids that were stored.
func (u *IngestUseCase) AddDocuments(ctx context.Context, docs []domain.NewDocument, progress ProgressFunc) ([]int64, error) {
	ids := make([]int64, 0, len(docs))
	if len(docs) == 0 {
		return ids, nil
	}

	addErr := u.addBatches(ctx, docs, progress, &ids)

	if len(ids) > 0 || addErr == nil {
		if err := u.indexer.Rebuild(ctx); err != nil {
			if addErr != nil {
				return ids, fmt.Errorf("%w (index rebuild also failed: %v)", addErr, err)
			}
			return ids, fmt.Errorf("documents stored but index rebuild failed: %w", err)
		}
	}
	if addErr != nil {
		return ids, addErr
	}

	u.logger.Info("documents added", "count", len(ids))
	return ids, nil
}

func (u *IngestUseCase) addBatches(ctx context.Context, docs []domain.NewDocument, progress ProgressFunc, ids *[]int64) error {
	for start := 0; start < len(docs); start += u.batchSize {
		end := start + u.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		texts := make([]string, len(batch))
		for i, d := range batch {
			texts[i] = d.Text
		}
		vecs, err := u.embedder.Embed(ctx, texts)
		if err != nil {
			return &domain.EmbeddingError{Err: err}
		}
		if len(vecs) != len(batch) {
			return &domain.EmbeddingError{Err: fmt.Errorf("expected %d vectors, got %d", len(batch), len(vecs))}
		}

		for i, d := range batch {
			id, err := u.docs.SaveDocument(ctx, d.Title, d.Text, vecs[i])
			if err != nil {
				return err
			}
			*ids = append(*ids, id)
			u.logger.Debug("document saved", "id", id, "title", d.Title)
			if progress != nil {
				progress(len(*ids), len(docs))
			}
		}
	}
	return nil
}

// IngestResult describes a directory ingest.
type IngestResult struct {
	Added   []string
	Skipped []string // empty files
	IDs     []int64
}

// CollectDir reads the matching files under dir and turns them into new
// documents. Empty files are listed in Skipped. When a chunker is set, long
// files become several documents titled "<file>#<n>".
func (u *IngestUseCase) CollectDir(dir string) ([]domain.NewDocument, *IngestResult, error) {
	files, err := u.walker.Walk(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	result := &IngestResult{}
	var docs []domain.NewDocument
	for _, f := range files {
		content, err := u.reader.ReadFile(f.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", f.RelPath, err)
		}
		text := strings.TrimSpace(content)
		if text == "" {
			result.Skipped = append(result.Skipped, f.RelPath)
			continue
		}

		result.Added = append(result.Added, f.RelPath)
		if u.chunker == nil {
			docs = append(docs, domain.NewDocument{Title: f.RelPath, Text: text})
			continue
		}
		chunks := u.chunker.Chunk(text)
		if len(chunks) == 1 {
			docs = append(docs, domain.NewDocument{Title: f.RelPath, Text: chunks[0]})
			continue
		}
		for i, chunk := range chunks {
			docs = append(docs, domain.NewDocument{
				Title: fmt.Sprintf("%s#%d", f.RelPath, i+1),
				Text:  chunk,
			})
		}
	}
	return docs, result, nil
}

// IngestDir collects the files under dir and adds them as documents.
func (u *IngestUseCase) IngestDir(ctx context.Context, dir string, progress ProgressFunc) (*IngestResult, error) {
	docs, result, err := u.CollectDir(dir)
	if err != nil {
		return nil, err
	}
	for _, name := range result.Skipped {
		u.logger.Warn("skipped empty file", "file", name)
	}

	ids, err := u.AddDocuments(ctx, docs, progress)
	result.IDs = ids
	return result, err
}
