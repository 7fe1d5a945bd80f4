package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"

	"minirag/internal/domain"
	"minirag/internal/port"
)

var errEmptyEmbedding = errors.New("empty embedding")

// MemoryStore is a non-durable port.Store for tests and throwaway sessions.
type MemoryStore struct {
	mu      sync.RWMutex
	docs    []domain.Document
	nextID  int64
	cache   map[string][]float32
	history map[string][]domain.HistoryEntry
	meta    map[string]string
}

var _ port.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache:   make(map[string][]float32),
		history: make(map[string][]domain.HistoryEntry),
		meta:    make(map[string]string),
	}
}

func (s *MemoryStore) SaveDocument(ctx context.Context, title, text string, embedding []float32) (int64, error) {
	if len(embedding) == 0 {
		return 0, &domain.StorageError{Op: "save document", Err: errEmptyEmbedding}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.docs = append(s.docs, domain.Document{
		ID:        s.nextID,
		Title:     title,
		Text:      text,
		Embedding: clone(embedding),
		Dim:       len(embedding),
	})
	return s.nextID, nil
}

func (s *MemoryStore) LoadDocuments(ctx context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]domain.Document, len(s.docs))
	for i, d := range s.docs {
		d.Embedding = clone(d.Embedding)
		docs[i] = d
	}
	return docs, nil
}

func (s *MemoryStore) CountDocuments(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

func (s *MemoryStore) GetEmbedding(ctx context.Context, key string) ([]float32, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	emb, ok := s.cache[key]
	if !ok {
		return nil, false, nil
	}
	return clone(emb), true, nil
}

func (s *MemoryStore) SetEmbedding(ctx context.Context, key string, embedding []float32) error {
	if len(embedding) == 0 {
		return &domain.StorageError{Op: "cache set", Err: errEmptyEmbedding}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = clone(embedding)
	return nil
}

func (s *MemoryStore) ClearCache(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string][]float32)
	return nil
}

func (s *MemoryStore) CountCacheEntries(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache), nil
}

func (s *MemoryStore) AppendHistory(ctx context.Context, entry domain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[entry.UserID] = append(s.history[entry.UserID], entry)
	return nil
}

func (s *MemoryStore) RecentHistory(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		return []domain.HistoryEntry{}, nil
	}
	s.mu.RLock()
	all := append([]domain.HistoryEntry(nil), s.history[userID]...)
	s.mu.RUnlock()

	// Stable on insertion order so equal timestamps keep append order.
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.Before(all[j].Timestamp)
	})

	out := make([]domain.HistoryEntry, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (s *MemoryStore) Meta(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta[key], nil
}

func (s *MemoryStore) SetMeta(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta[key] = value
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func clone(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
