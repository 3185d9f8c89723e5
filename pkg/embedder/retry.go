package embedder

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryConfig configures retry behavior for embedding requests.
type RetryConfig struct {
	MaxRetries   int           // attempts after the first one
	InitialDelay time.Duration // delay before the first retry
	MaxDelay     time.Duration // cap for the backoff
	Multiplier   float64       // backoff growth factor
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   2,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     8 * time.Second,
		Multiplier:   2.0,
	}
}

// RetryEmbedder resubmits a failed batch as a whole with exponential backoff.
// Individual texts are never retried on their own.
type RetryEmbedder struct {
	inner Embedder
	cfg   RetryConfig
}

// NewRetryEmbedder wraps inner with retries
func NewRetryEmbedder(inner Embedder, cfg RetryConfig) *RetryEmbedder {
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	return &RetryEmbedder{inner: inner, cfg: cfg}
}

// EmbedBatch calls the wrapped embedder until it succeeds, retries run out
// or the context is done.
func (r *RetryEmbedder) EmbedBatch(ctx context.Context, texts []string, task TaskType) ([][]float32, error) {
	delay := r.cfg.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		vecs, err := r.inner.EmbedBatch(ctx, texts, task)
		if err == nil {
			return vecs, nil
		}
		lastErr = err

		// Cancellation is not worth retrying
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return nil, err
		}
		if attempt >= r.cfg.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * r.cfg.Multiplier)
		if r.cfg.MaxDelay > 0 && delay > r.cfg.MaxDelay {
			delay = r.cfg.MaxDelay
		}
	}

	if r.cfg.MaxRetries == 0 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("failed after %d retries: %w", r.cfg.MaxRetries, lastErr)
}

// Dimension returns the embedding dimension
func (r *RetryEmbedder) Dimension() int {
	return r.inner.Dimension()
}

// ModelInfo returns model information
func (r *RetryEmbedder) ModelInfo() string {
	return r.inner.ModelInfo()
}
