// ABOUTME: Embedding interface and shared helpers for text-to-vector providers.
// ABOUTME: Defines error values, batch validation, and the one-time warm-up step.
package embeddings

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned when Embed is called with no texts.
	ErrEmptyInput = errors.New("embeddings: no texts to embed")
	// ErrUnavailable wraps failures of the underlying model or service.
	ErrUnavailable = errors.New("embeddings: provider unavailable")
	// ErrDimension is returned when a provider yields vectors of an unexpected length.
	ErrDimension = errors.New("embeddings: unexpected vector dimension")
	// ErrClosed is returned by wrappers that have been shut down.
	ErrClosed = errors.New("embeddings: provider closed")
)

// Embedder generates vector embeddings from text.
type Embedder interface {
	// Embed returns one vector per text, in input order. Every vector has
	// the same length for a given provider configuration.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the dimensionality of the output vectors, or 0 if
	// it is not known until the first call.
	Dimension() int

	// Model returns the model identifier. Vectors are only comparable when
	// produced by the same model.
	Model() string
}

// Warm runs the provider once so model loading and connection setup happen
// before any query is served. It returns the vector dimension.
func Warm(ctx context.Context, e Embedder) (int, error) {
	vecs, err := e.Embed(ctx, []string{"warm up"})
	if err != nil {
		return 0, fmt.Errorf("warm up %s: %w", e.Model(), err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return 0, fmt.Errorf("warm up %s: %w: empty vector", e.Model(), ErrDimension)
	}
	if d := e.Dimension(); d > 0 && d != len(vecs[0]) {
		return 0, fmt.Errorf("warm up %s: %w: got %d, want %d", e.Model(), ErrDimension, len(vecs[0]), d)
	}
	return len(vecs[0]), nil
}

// checkVectors verifies a provider response: one vector per input, all of
// the same length, matching want when want > 0.
func checkVectors(vecs [][]float32, n, want int) error {
	if len(vecs) != n {
		return fmt.Errorf("%w: got %d vectors for %d texts", ErrUnavailable, len(vecs), n)
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return fmt.Errorf("%w: vector %d is empty", ErrDimension, i)
		}
		if want <= 0 {
			want = len(v)
		}
		if len(v) != want {
			return fmt.Errorf("%w: vector %d has length %d, want %d", ErrDimension, i, len(v), want)
		}
	}
	return nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
