package embedder

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var errBoom = errors.New("boom")

// fakeEmbedder maps each text to a vector derived from its content, records
// calls and tracks how many calls run at once.
type fakeEmbedder struct {
	dim      int
	delay    func(texts []string) time.Duration
	failText string

	calls       atomic.Int64
	inFlight    atomic.Int64
	maxInFlight atomic.Int64

	mu         sync.Mutex
	batchSizes []int
	tasks      []TaskType
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{dim: 4}
}

func fakeVector(text string) []float32 {
	var sum float32
	for _, r := range text {
		sum += float32(r)
	}
	return []float32{float32(len(text)), sum, 1, float32(len(text) % 7)}
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string, task TaskType) ([][]float32, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxInFlight.Load()
		if n <= cur || f.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	f.mu.Lock()
	f.batchSizes = append(f.batchSizes, len(texts))
	f.tasks = append(f.tasks, task)
	f.mu.Unlock()

	if f.delay != nil {
		select {
		case <-time.After(f.delay(texts)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		if f.failText != "" && t == f.failText {
			return nil, errBoom
		}
		out[i] = fakeVector(t)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int    { return f.dim }
func (f *fakeEmbedder) ModelInfo() string { return "fake" }

// flakyEmbedder fails a fixed number of times before delegating.
type flakyEmbedder struct {
	inner    Embedder
	failures int
	calls    atomic.Int64
}

func (f *flakyEmbedder) EmbedBatch(ctx context.Context, texts []string, task TaskType) ([][]float32, error) {
	if int(f.calls.Add(1)) <= f.failures {
		return nil, errBoom
	}
	return f.inner.EmbedBatch(ctx, texts, task)
}

func (f *flakyEmbedder) Dimension() int    { return f.inner.Dimension() }
func (f *flakyEmbedder) ModelInfo() string { return f.inner.ModelInfo() }
