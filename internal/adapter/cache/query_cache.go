package cache

import (
	"context"
	"sync"

	"minirag/internal/port"
)

// LRUCache keeps recently used query embeddings in memory in front of a
// persistent port.QueryCache. Writes go through to the backing cache before
// they are remembered locally, so a failed write never leaves a memory-only
// entry behind.
type LRUCache struct {
	mu      sync.Mutex
	backing port.QueryCache
	entries map[string][]float32
	order   []string
	maxSize int

	hits   uint64
	misses uint64
}

var _ port.QueryCache = (*LRUCache)(nil)

// NewLRUCache wraps backing. A maxSize of zero or less disables the memory
// layer and every call goes straight to backing.
func NewLRUCache(backing port.QueryCache, maxSize int) *LRUCache {
	if maxSize < 0 {
		maxSize = 0
	}
	return &LRUCache{
		backing: backing,
		entries: make(map[string][]float32),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
	}
}

func (c *LRUCache) GetEmbedding(ctx context.Context, key string) ([]float32, bool, error) {
	if c.maxSize > 0 {
		c.mu.Lock()
		emb, exists := c.entries[key]
		if exists {
			c.moveToEnd(key)
			c.hits++
			out := clone(emb)
			c.mu.Unlock()
			return out, true, nil
		}
		c.mu.Unlock()
	}

	emb, ok, err := c.backing.GetEmbedding(ctx, key)
	if err != nil || !ok {
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		return nil, false, err
	}

	c.mu.Lock()
	c.hits++
	c.put(key, emb)
	c.mu.Unlock()
	return emb, true, nil
}

func (c *LRUCache) SetEmbedding(ctx context.Context, key string, embedding []float32) error {
	if err := c.backing.SetEmbedding(ctx, key, embedding); err != nil {
		return err
	}
	c.mu.Lock()
	c.put(key, embedding)
	c.mu.Unlock()
	return nil
}

// Purge drops the memory layer. Call it after clearing the backing cache.
func (c *LRUCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string][]float32)
	c.order = c.order[:0]
}

func (c *LRUCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns hit and miss counts since creation. A hit served by the
// backing cache counts as a hit.
func (c *LRUCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// put must be called with mu held.
func (c *LRUCache) put(key string, embedding []float32) {
	if c.maxSize == 0 {
		return
	}
	if _, exists := c.entries[key]; exists {
		c.entries[key] = clone(embedding)
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	c.entries[key] = clone(embedding)
	c.order = append(c.order, key)
}

func (c *LRUCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *LRUCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *LRUCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func clone(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
