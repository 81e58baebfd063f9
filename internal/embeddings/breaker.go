// ABOUTME: Circuit breaker around an embedding provider.
// ABOUTME: After repeated failures, calls fail fast until the provider recovers.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

// Breaker trips after maxFailures consecutive provider errors and rejects
// calls for timeout before letting a probe request through.
type Breaker struct {
	inner Embedder
	cb    *gobreaker.CircuitBreaker
}

// NewBreaker wraps inner with a circuit breaker.
func NewBreaker(inner Embedder, maxFailures uint32, timeout time.Duration) *Breaker {
	if maxFailures == 0 {
		maxFailures = 5
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	settings := gobreaker.Settings{
		Name:        inner.Model(),
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// Caller mistakes and cancellations say nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrEmptyInput) ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, context.DeadlineExceeded)
		},
	}
	return &Breaker{inner: inner, cb: gobreaker.NewCircuitBreaker(settings)}
}

// Embed implements Embedder.
func (b *Breaker) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Embed(ctx, texts)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: breaker (%s): %w", ErrUnavailable, b.cb.Name(), err)
		}
		return nil, err
	}
	return res.([][]float32), nil
}

// State reports the breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Dimension implements Embedder.
func (b *Breaker) Dimension() int { return b.inner.Dimension() }

// Model implements Embedder.
func (b *Breaker) Model() string { return b.inner.Model() }
