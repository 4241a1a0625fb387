package embedding

import (
	"container/list"
	"context"
	"sync"
)

// EmbeddingCache is an LRU of vectors keyed by the exact embedded text. Vectors are
// copied in and out so callers may modify what they get back.
type EmbeddingCache struct {
	mu      sync.Mutex
	limit   int
	entries map[string]*list.Element
	order   *list.List
}

type cached struct {
	text   string
	vector []float32
}

// NewEmbeddingCache returns a cache holding at most limit vectors.
// A limit of zero or less disables caching.
func NewEmbeddingCache(limit int) *EmbeddingCache {
	return &EmbeddingCache{
		limit:   limit,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Get returns a copy of the vector cached for text.
func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[text]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return cloneVector(elem.Value.(*cached).vector), true
}

// Set caches a copy of vector for text and drops the least recently used entry once
// the cache is over its limit.
func (c *EmbeddingCache) Set(text string, vector []float32) {
	if c.limit <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[text]; ok {
		elem.Value.(*cached).vector = cloneVector(vector)
		c.order.MoveToFront(elem)
		return
	}
	c.entries[text] = c.order.PushFront(&cached{text: text, vector: cloneVector(vector)})
	for c.order.Len() > c.limit {
		last := c.order.Back()
		c.order.Remove(last)
		delete(c.entries, last.Value.(*cached).text)
	}
}

// Len returns the number of cached vectors.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func cloneVector(v []float32) []float32 {
	return append([]float32(nil), v...)
}

// CachingEmbedder memoizes another Embedder. Repeated queries and re-saved notes with
// unchanged content skip the embedding work.
type CachingEmbedder struct {
	Embedder
	cache *EmbeddingCache
}

// WithCache wraps e in a CachingEmbedder holding up to size vectors. A size of zero or
// less returns e unchanged.
func WithCache(e Embedder, size int) Embedder {
	if size <= 0 {
		return e
	}
	return &CachingEmbedder{Embedder: e, cache: NewEmbeddingCache(size)}
}

// Embed returns the cached vector for text or computes and caches it.
func (c *CachingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return v, nil
	}
	v, err := c.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, v)
	return v, nil
}

// EmbedBatch embeds each text through the cache.
func (c *CachingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, c.Embed)
}
