package embedder

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// TaskType tells the provider what the embedding will be used for.
// Some providers compute different vectors for stored documents and queries.
type TaskType string

const (
	// TaskDocument marks texts that are stored in the index
	TaskDocument TaskType = "RETRIEVAL_DOCUMENT"
	// TaskQuery marks search queries
	TaskQuery TaskType = "RETRIEVAL_QUERY"
)

var (
	// ErrEmptyResponse is returned when a provider answers without vectors
	ErrEmptyResponse = errors.New("no embedding data returned")
	// ErrBatchMismatch is returned when a provider returns a different number of vectors than texts
	ErrBatchMismatch = errors.New("embedding count does not match input count")
)

// Embedder interface for generating embeddings
type Embedder interface {
	// EmbedBatch returns one vector per text, in input order.
	// A failure applies to the whole batch.
	EmbedBatch(ctx context.Context, texts []string, task TaskType) ([][]float32, error)
	Dimension() int
	ModelInfo() string
}

// EmbedOne embeds a single text
func EmbedOne(ctx context.Context, e Embedder, text string, task TaskType) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text}, task)
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: got %d vectors for 1 text", ErrBatchMismatch, len(vecs))
	}
	return vecs[0], nil
}

// HashEmbedder is an offline embedder based on hashed word counts.
// It needs no API key and is deterministic, which makes it useful for local
// runs and tests. Texts sharing words get similar vectors.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a hashing embedder with the given dimension
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = 256
	}
	return &HashEmbedder{dim: dimension}
}

// Embed generates an embedding vector from text
func (e *HashEmbedder) Embed(text string) []float32 {
	vec := make([]float32, e.dim)

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%uint32(e.dim)]++
	}

	l2normalize(vec)
	return vec
}

// EmbedBatch generates embeddings for multiple texts
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string, _ TaskType) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = e.Embed(text)
	}
	return embeddings, nil
}

// Dimension returns the embedding dimension
func (e *HashEmbedder) Dimension() int {
	return e.dim
}

// ModelInfo returns model information
func (e *HashEmbedder) ModelInfo() string {
	return fmt.Sprintf("hash-%d", e.dim)
}

// l2normalize normalizes a vector to unit length
func l2normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1.0 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}
