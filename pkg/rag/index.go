package rag

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// NoThreshold keeps every result regardless of score.
const NoThreshold = -1.0

// Index holds the in-memory vector index for similarity search.
// Chunks and embeddings are aligned by position (chunks[i] ↔ embeddings[i]);
// both only ever grow at the end. It is safe for concurrent use.
type Index struct {
	mu         sync.RWMutex
	chunks     []Chunk
	embeddings [][]float32
	dimension  int // set by the first append
}

// NewIndex creates an empty index
func NewIndex() *Index {
	return &Index{}
}

// Append adds the chunks of one file and their vectors as a single unit.
// IDs continue from the current length. Nothing is modified on error.
func (ix *Index) Append(filename string, texts []string, vectors [][]float32) ([]Chunk, error) {
	if len(texts) != len(vectors) {
		return nil, fmt.Errorf("%w: %d chunks, %d vectors", ErrLengthMismatch, len(texts), len(vectors))
	}
	if len(texts) == 0 {
		return nil, nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	dim := ix.dimension
	if dim == 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dim || dim == 0 {
			return nil, fmt.Errorf("%w: vector %d has %d values, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}

	start := len(ix.chunks)
	added := make([]Chunk, len(texts))
	for i, text := range texts {
		added[i] = Chunk{
			ID:       start + i,
			Text:     text,
			Filename: filename,
		}
	}

	ix.dimension = dim
	ix.chunks = append(ix.chunks, added...)
	ix.embeddings = append(ix.embeddings, vectors...)
	return added, nil
}

// Len returns the number of chunks in the index
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.chunks)
}

// Dimension returns the embedding dimension, or 0 for an empty index
func (ix *Index) Dimension() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dimension
}

// Chunks returns a copy of all chunks in insertion order
func (ix *Index) Chunks() []Chunk {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]Chunk, len(ix.chunks))
	copy(out, ix.chunks)
	return out
}

// CosineSimilarity computes the cosine similarity between two vectors
// Returns a value between -1 and 1, where 1 means identical direction
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Max(-1, math.Min(1, sim))
}

// Search ranks every chunk against the query vector.
// Returns top-k results sorted by similarity score (highest first); equal
// scores keep insertion order. Results scoring below threshold are dropped,
// and topK <= 0 returns every result.
func (ix *Index) Search(query []float32, topK int, threshold float64) ([]SearchResult, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.chunks) == 0 {
		return []SearchResult{}, nil
	}
	if len(query) != ix.dimension {
		return nil, fmt.Errorf("%w: query has %d values, index has %d", ErrDimensionMismatch, len(query), ix.dimension)
	}

	// Compute similarity for all chunks
	scores := make([]float64, len(ix.embeddings))
	order := make([]int, len(ix.embeddings))
	for i, emb := range ix.embeddings {
		scores[i] = CosineSimilarity(query, emb)
		order[i] = i
	}

	// Sort by score descending
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})

	if topK <= 0 || topK > len(order) {
		topK = len(order)
	}

	results := make([]SearchResult, 0, topK)
	for _, idx := range order {
		if len(results) == topK || scores[idx] < threshold {
			break
		}
		c := ix.chunks[idx]
		results = append(results, SearchResult{
			ChunkID:  c.ID,
			Text:     c.Text,
			Filename: c.Filename,
			Score:    scores[idx],
		})
	}

	return results, nil
}

// Neighbors returns chunks of the same file within n positions of the chunk
// with the given ID, including the chunk itself.
func (ix *Index) Neighbors(id, n int) []Chunk {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if id < 0 || id >= len(ix.chunks) {
		return nil
	}
	target := ix.chunks[id]

	start := max(id-n, 0)
	end := min(id+n+1, len(ix.chunks))

	var result []Chunk
	for i := start; i < end; i++ {
		if ix.chunks[i].Filename == target.Filename {
			result = append(result, ix.chunks[i])
		}
	}
	return result
}
