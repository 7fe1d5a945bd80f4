package app

import (
	"context"
	"fmt"
	"log/slog"

	"minirag/config"
	"minirag/internal/adapter/analyzer"
	"minirag/internal/adapter/cache"
	"minirag/internal/adapter/chunker"
	"minirag/internal/adapter/embedding"
	"minirag/internal/adapter/fs"
	"minirag/internal/adapter/llm"
	"minirag/internal/adapter/retriever"
	"minirag/internal/adapter/store"
	"minirag/internal/domain"
	"minirag/internal/port"
	"minirag/internal/usecase"
)

// App owns every long-lived component. Build it once per process with New
// and release it with Close.
type App struct {
	Config    *config.Config
	Store     port.Store
	Cache     *cache.LRUCache
	Embedder  port.Embedder
	Generator port.Generator
	Retriever *retriever.DenseRetriever
	Ingest    *usecase.IngestUseCase
	Answer    *usecase.AnswerUseCase
	Chat      *usecase.ChatUseCase
	Commands  *usecase.Dispatcher
	Logger    *slog.Logger
}

// Options replaces providers, mainly for tests. Nil fields are built from
// the configuration.
type Options struct {
	Store     port.Store
	Embedder  port.Embedder
	Generator port.Generator
}

// New opens storage, reconciles it with the embedding configuration, wires
// the use cases, and loads the index.
func New(ctx context.Context, cfg *config.Config, rootDir string, logger *slog.Logger, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	st := opts.Store
	if st == nil {
		var err error
		st, err = store.Open(cfg.Storage, rootDir)
		if err != nil {
			return nil, err
		}
	}

	a, err := build(ctx, cfg, logger, st, opts)
	if err != nil {
		st.Close()
		return nil, err
	}
	return a, nil
}

func build(ctx context.Context, cfg *config.Config, logger *slog.Logger, st port.Store, opts Options) (*App, error) {
	res, err := store.Prepare(ctx, st, cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare store: %w", err)
	}
	if res.Reason != "" {
		logger.Info("store prepared", "reason", res.Reason, "cache_cleared", res.CacheCleared)
	}

	emb := opts.Embedder
	if emb == nil {
		emb, err = embedding.New(cfg.Embedding)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
	}

	gen := opts.Generator
	if gen == nil {
		gen, err = llm.New(cfg.Generation)
		if err != nil {
			// Retrieval and history still work; only answering needs a model.
			logger.Warn("generator unavailable", "provider", cfg.Generation.Provider, "error", err)
			gen = unavailableGenerator{model: cfg.Generation.Model, err: err}
		}
	}

	lru := cache.NewLRUCache(st, cfg.Cache.MemoryEntries)
	ret := retriever.NewDenseRetriever(st, lru, emb,
		retriever.WithMinScore(cfg.Retrieve.MinScore),
		retriever.WithLogger(logger),
	)

	tok := analyzer.NewTokenizer(cfg.Embedding.Stemming)
	var ch port.Chunker
	if cfg.Ingest.ChunkTokens > 0 {
		ch = chunker.NewLineChunker(cfg.Ingest.ChunkTokens, cfg.Ingest.ChunkOverlap, tok)
	}
	walker := fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes)

	answer := usecase.NewAnswerUseCase(ret, gen, cfg.Retrieve.TopK, cfg.Generation.MaxLength, logger)
	chat := usecase.NewChatUseCase(st, answer, gen, cfg.History.SummaryLimit, cfg.Generation.SummaryMaxLength, logger)

	a := &App{
		Config:    cfg,
		Store:     st,
		Cache:     lru,
		Embedder:  emb,
		Generator: gen,
		Retriever: ret,
		Ingest:    usecase.NewIngestUseCase(st, emb, ret, walker, walker, ch, cfg.Embedding.BatchSize, logger),
		Answer:    answer,
		Chat:      chat,
		Commands:  usecase.NewDispatcher(chat, cfg.History.ShowLimit),
		Logger:    logger,
	}

	if err := ret.Rebuild(ctx); err != nil {
		// The store is still usable for writes and history; retrieval
		// answers from an empty index until the mismatch is resolved.
		logger.Warn("startup index rebuild failed", "error", err)
	}
	return a, nil
}

// Stats reports stored and indexed counts.
func (a *App) Stats(ctx context.Context) (domain.Stats, error) {
	docs, err := a.Store.CountDocuments(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	entries, err := a.Store.CountCacheEntries(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	snap := a.Retriever.Snapshot()
	return domain.Stats{
		Documents:    docs,
		CacheEntries: entries,
		IndexedDocs:  snap.Len(),
		Dimension:    snap.Dim,
	}, nil
}

// ClearCache empties the persisted query cache and its in-memory layer.
func (a *App) ClearCache(ctx context.Context) error {
	if err := a.Store.ClearCache(ctx); err != nil {
		return err
	}
	a.Cache.Purge()
	return nil
}

func (a *App) Close() error {
	return a.Store.Close()
}

type unavailableGenerator struct {
	model string
	err   error
}

func (g unavailableGenerator) Generate(ctx context.Context, prompt string, maxLength int) (string, error) {
	return "", fmt.Errorf("generator unavailable: %w", g.err)
}

func (g unavailableGenerator) ModelName() string { return g.model }
