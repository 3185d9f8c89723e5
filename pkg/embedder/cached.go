package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the default number of cached vectors.
const DefaultCacheSize = 1000

// CachedEmbedder wraps an Embedder with an LRU cache. Repeated queries are
// answered without a provider call.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

// NewCachedEmbedder creates a cached embedder holding up to size vectors.
func NewCachedEmbedder(inner Embedder, size int) *CachedEmbedder {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, _ := lru.New[string, []float32](size)
	return &CachedEmbedder{
		inner: inner,
		cache: cache,
	}
}

// cacheKey covers the task because some providers embed queries and documents differently.
func (c *CachedEmbedder) cacheKey(text string, task TaskType) string {
	sum := sha256.Sum256([]byte(string(task) + "\x00" + c.inner.ModelInfo() + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// EmbedBatch returns cached vectors where possible and embeds the rest in one call.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string, task TaskType) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	var missing []int
	var missingTexts []string

	for i, text := range texts {
		keys[i] = c.cacheKey(text, task)
		if vec, ok := c.cache.Get(keys[i]); ok {
			results[i] = vec
			continue
		}
		missing = append(missing, i)
		missingTexts = append(missingTexts, text)
	}

	if len(missing) == 0 {
		return results, nil
	}

	vecs, err := c.inner.EmbedBatch(ctx, missingTexts, task)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missing) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrBatchMismatch, len(vecs), len(missing))
	}

	for j, i := range missing {
		results[i] = vecs[j]
		c.cache.Add(keys[i], vecs[j])
	}
	return results, nil
}

// Len returns the number of cached vectors
func (c *CachedEmbedder) Len() int {
	return c.cache.Len()
}

// Dimension returns the embedding dimension
func (c *CachedEmbedder) Dimension() int {
	return c.inner.Dimension()
}

// ModelInfo returns model information
func (c *CachedEmbedder) ModelInfo() string {
	return c.inner.ModelInfo()
}
