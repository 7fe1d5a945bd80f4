package port

import (
	"context"

	"minirag/internal/domain"
)

// DocumentStore is the durable, append-only table of embedded documents.
type DocumentStore interface {
	// SaveDocument persists a new document and returns its assigned id.
	// The write is committed before SaveDocument returns.
	SaveDocument(ctx context.Context, title, text string, embedding []float32) (int64, error)

	// LoadDocuments returns every stored document in ascending id order.
	LoadDocuments(ctx context.Context) ([]domain.Document, error)

	CountDocuments(ctx context.Context) (int, error)
}

// QueryCache maps raw query strings to embeddings.
type QueryCache interface {
	// GetEmbedding returns the cached embedding and true, or nil and false
	// when key has never been stored.
	GetEmbedding(ctx context.Context, key string) ([]float32, bool, error)

	// SetEmbedding upserts the embedding for key.
	SetEmbedding(ctx context.Context, key string, embedding []float32) error
}

// HistoryStore is the per-user conversation log.
type HistoryStore interface {
	AppendHistory(ctx context.Context, entry domain.HistoryEntry) error

	// RecentHistory returns up to limit entries for userID, newest first.
	RecentHistory(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error)
}

// Store is a storage backend that provides every persisted table.
type Store interface {
	DocumentStore
	QueryCache
	HistoryStore

	// ClearCache removes every persisted query embedding.
	ClearCache(ctx context.Context) error

	CountCacheEntries(ctx context.Context) (int, error)

	// Meta and SetMeta read and write small bookkeeping values such as the
	// schema version and the embedding fingerprint.
	Meta(ctx context.Context, key string) (string, error)
	SetMeta(ctx context.Context, key, value string) error

	Close() error
}
