package embedder

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBatchSize is the number of texts sent per embedding request
	DefaultBatchSize = 50

	// DefaultConcurrency is the number of embedding requests in flight
	DefaultConcurrency = 8
)

// Parallel splits large inputs into batches and embeds them concurrently.
type Parallel struct {
	inner       Embedder
	batchSize   int
	concurrency int
}

// NewParallel wraps inner with batching and bounded concurrency.
// Non-positive values fall back to the defaults.
func NewParallel(inner Embedder, batchSize, concurrency int) *Parallel {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Parallel{
		inner:       inner,
		batchSize:   batchSize,
		concurrency: concurrency,
	}
}

// ProgressFunc receives the number of embedded texts out of total after each
// completed batch. It may be called from several goroutines at once.
type ProgressFunc func(done, total int)

// EmbedAll embeds texts in batches and returns the vectors in input order.
// If any batch fails the whole call fails and no vectors are returned.
func (p *Parallel) EmbedAll(ctx context.Context, texts []string, task TaskType) ([][]float32, error) {
	return p.EmbedAllWithProgress(ctx, texts, task, nil)
}

// EmbedAllWithProgress is EmbedAll reporting to progress, which may be nil.
func (p *Parallel) EmbedAllWithProgress(ctx context.Context, texts []string, task TaskType, progress ProgressFunc) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	numBatches := (len(texts) + p.batchSize - 1) / p.batchSize
	// Each batch writes only its own slot
	slots := make([][][]float32, numBatches)
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for k := 0; k < numBatches; k++ {
		start := k * p.batchSize
		end := min(start+p.batchSize, len(texts))
		batch := texts[start:end]

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			vecs, err := p.inner.EmbedBatch(gctx, batch, task)
			if err != nil {
				return fmt.Errorf("embedding batch %d [%d:%d]: %w", k, start, end, err)
			}
			if len(vecs) != len(batch) {
				return fmt.Errorf("%w: batch %d got %d vectors for %d texts", ErrBatchMismatch, k, len(vecs), len(batch))
			}
			slots[k] = vecs

			if progress != nil {
				progress(int(done.Add(int64(len(batch)))), len(texts))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	embeddings := make([][]float32, 0, len(texts))
	for _, vecs := range slots {
		embeddings = append(embeddings, vecs...)
	}
	return embeddings, nil
}

// EmbedBatch implements Embedder so Parallel can be stacked with other wrappers.
func (p *Parallel) EmbedBatch(ctx context.Context, texts []string, task TaskType) ([][]float32, error) {
	return p.EmbedAll(ctx, texts, task)
}

// Dimension returns the embedding dimension
func (p *Parallel) Dimension() int {
	return p.inner.Dimension()
}

// ModelInfo returns model information
func (p *Parallel) ModelInfo() string {
	return p.inner.ModelInfo()
}
