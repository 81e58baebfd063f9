// ABOUTME: Client-side rate limiting for hosted embedding providers.
// ABOUTME: Waits for a token before each call, honoring context cancellation.
package embeddings

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited delays calls so at most rps requests per second reach inner.
type RateLimited struct {
	inner   Embedder
	limiter *rate.Limiter
}

// NewRateLimited wraps inner. burst <= 0 defaults to 1.
func NewRateLimited(inner Embedder, rps float64, burst int) *RateLimited {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{inner: inner, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Embed implements Embedder.
func (r *RateLimited) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Embed(ctx, texts)
}

// Dimension implements Embedder.
func (r *RateLimited) Dimension() int { return r.inner.Dimension() }

// Model implements Embedder.
func (r *RateLimited) Model() string { return r.inner.Model() }
