// ABOUTME: Test doubles shared by the embeddings package tests.
// ABOUTME: Fixed, failing, counting, and blocking embedders.
package embeddings

import (
	"context"
	"sync"
	"sync/atomic"
)

// fixedEmbedder returns the same vector for every text.
type fixedEmbedder struct {
	vec []float32
	dim int
}

func (e *fixedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = append([]float32(nil), e.vec...)
	}
	return out, nil
}

func (e *fixedEmbedder) Dimension() int { return e.dim }
func (e *fixedEmbedder) Model() string  { return "fixed" }

// failingEmbedder always returns err.
type failingEmbedder struct {
	err   error
	calls atomic.Int32
}

func (e *failingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	return nil, e.err
}

func (e *failingEmbedder) Dimension() int { return 0 }
func (e *failingEmbedder) Model() string  { return "failing" }

// countingEmbedder wraps a HashEmbedder and tracks concurrent and total calls.
type countingEmbedder struct {
	inner   *HashEmbedder
	mu      sync.Mutex
	active  int
	maxSeen int
	calls   int
	block   chan struct{} // when non-nil, each call waits on it
	entered chan struct{} // when non-nil, signalled on entry
}

func newCountingEmbedder(dim int) *countingEmbedder {
	return &countingEmbedder{inner: NewHashEmbedder(dim)}
}

func (e *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.active++
	e.calls++
	if e.active > e.maxSeen {
		e.maxSeen = e.active
	}
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.active--
		e.mu.Unlock()
	}()

	if e.entered != nil {
		e.entered <- struct{}{}
	}
	if e.block != nil {
		select {
		case <-e.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return e.inner.Embed(ctx, texts)
}

func (e *countingEmbedder) Dimension() int { return e.inner.Dimension() }
func (e *countingEmbedder) Model() string  { return "counting" }

func (e *countingEmbedder) stats() (calls, maxSeen int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls, e.maxSeen
}
