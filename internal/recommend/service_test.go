// ABOUTME: Tests for query validation, embedding, and filtered ranking in Service.
// ABOUTME: Verifies outcome counters and error classification for callers.
package recommend

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389-research/bookrec/internal/catalog"
	"github.com/2389-research/bookrec/internal/embeddings"
	"github.com/2389-research/bookrec/internal/metrics"
)

func readyService(t *testing.T, e embeddings.Embedder, m *metrics.Metrics) *Service {
	t.Helper()
	ix, err := Build(context.Background(), catalog.Builtin(), embeddings.NewHashEmbedder(embeddings.DefaultHashDimension), BuildOptions{Logger: quietLogger()})
	require.NoError(t, err)
	engine := NewEngine()
	require.NoError(t, engine.Load(ix))
	return NewService(e, engine, m, quietLogger())
}

func TestServiceRecommendDefaultLimit(t *testing.T) {
	m := metrics.New()
	s := readyService(t, embeddings.NewHashEmbedder(embeddings.DefaultHashDimension), m)

	recs, err := s.Recommend(context.Background(), Query{Preferences: "I love mystery novels with complex characters and thrilling plots"})
	require.NoError(t, err)
	assert.Len(t, recs, DefaultLimit)
	assert.Equal(t, "The Da Vinci Code", recs[0].Title)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecommendRequests.WithLabelValues(metrics.OutcomeOK)))
}

func TestServiceRecommendWithFilter(t *testing.T) {
	s := readyService(t, embeddings.NewHashEmbedder(embeddings.DefaultHashDimension), nil)

	minRating := 4.7
	recs, err := s.Recommend(context.Background(), Query{
		Preferences: "magical fantasy adventure",
		Limit:       10,
		Filter:      catalog.Filter{MinRating: &minRating},
	})
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, "The Hobbit", recs[0].Title)
	for _, r := range recs {
		assert.GreaterOrEqual(t, r.Rating, 4.7)
	}
}

func TestServiceRecommendValidation(t *testing.T) {
	m := metrics.New()
	s := readyService(t, embeddings.NewHashEmbedder(embeddings.DefaultHashDimension), m)

	_, err := s.Recommend(context.Background(), Query{Preferences: "   "})
	assert.ErrorIs(t, err, ErrEmptyPreferences)

	_, err = s.Recommend(context.Background(), Query{Preferences: "novel", Limit: -2})
	assert.ErrorIs(t, err, ErrInvalidK)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RecommendRequests.WithLabelValues(metrics.OutcomeBadRequest)))
}

func TestServiceRecommendNotReady(t *testing.T) {
	s := NewService(embeddings.NewHashEmbedder(8), NewEngine(), nil, quietLogger())
	_, err := s.Recommend(context.Background(), Query{Preferences: "novel"})
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestServiceRecommendProviderFailure(t *testing.T) {
	m := metrics.New()
	s := readyService(t, failingEmbedder{}, m)

	_, err := s.Recommend(context.Background(), Query{Preferences: "novel"})
	assert.ErrorIs(t, err, embeddings.ErrUnavailable)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecommendRequests.WithLabelValues(metrics.OutcomeProvider)))
}

func TestServiceRecommendDimensionMismatch(t *testing.T) {
	m := metrics.New()
	s := readyService(t, embeddings.NewHashEmbedder(384), m)

	_, err := s.Recommend(context.Background(), Query{Preferences: "novel"})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecommendRequests.WithLabelValues(metrics.OutcomeInternal)))
}
