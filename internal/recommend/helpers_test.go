// ABOUTME: Test embedders for the recommend package.
// ABOUTME: A failing provider and a call-counting wrapper around the hash embedder.
package recommend

import (
	"context"
	"sync/atomic"

	"github.com/2389-research/bookrec/internal/embeddings"
)

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, embeddings.ErrUnavailable
}

func (failingEmbedder) Dimension() int { return 0 }
func (failingEmbedder) Model() string  { return "failing" }

type countingEmbedder struct {
	inner *embeddings.HashEmbedder
	calls atomic.Int32
}

func (e *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	return e.inner.Embed(ctx, texts)
}

func (e *countingEmbedder) Dimension() int { return e.inner.Dimension() }
func (e *countingEmbedder) Model() string  { return e.inner.Model() }
