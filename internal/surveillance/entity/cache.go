package entity

import (
	"sync"

	"github.com/google/uuid"
)

// EmbeddingDim is the fixed dimensionality of a reference embedding. Rows
// that don't match this length are malformed and are discarded on load.
const EmbeddingDim = 512

// Cache holds the in-memory entityID -> embedding map used for fast batch
// matching. Modeled on nvr.EventEnricher's sync.Map cache: load-once,
// explicit invalidation on writes that change the matching set, no
// background expiry (unlike the enricher's TTL entries, entity rows don't
// go stale on their own — only a write invalidates them).
type Cache struct {
	mu     sync.RWMutex
	loaded bool
	rows   map[uuid.UUID][]float32
}

func NewCache() *Cache {
	return &Cache{rows: make(map[uuid.UUID][]float32)}
}

func (c *Cache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Fill replaces the cache contents and marks it loaded.
func (c *Cache) Fill(rows map[uuid.UUID][]float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = rows
	c.loaded = true
}

// Invalidate clears the cache, forcing the next access to reload from the
// store.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = make(map[uuid.UUID][]float32)
	c.loaded = false
}

func (c *Cache) Put(id uuid.UUID, embedding []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rows == nil {
		c.rows = make(map[uuid.UUID][]float32)
	}
	c.rows[id] = embedding
}

func (c *Cache) Empty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rows) == 0
}

// Snapshot returns parallel slices of entity ids and their embeddings,
// stable for the duration of one matching pass.
func (c *Cache) Snapshot() ([]uuid.UUID, [][]float32) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(c.rows))
	embeddings := make([][]float32, 0, len(c.rows))
	for id, emb := range c.rows {
		ids = append(ids, id)
		embeddings = append(embeddings, emb)
	}
	return ids, embeddings
}
