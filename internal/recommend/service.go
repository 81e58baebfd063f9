// ABOUTME: Recommendation service joining the query embedder and the ranking engine.
// ABOUTME: Validates a query, embeds it once, and ranks the filtered catalog.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/2389-research/bookrec/internal/catalog"
	"github.com/2389-research/bookrec/internal/embeddings"
	"github.com/2389-research/bookrec/internal/metrics"
	"github.com/2389-research/bookrec/internal/models"
)

// DefaultLimit is used when a query does not set Limit.
const DefaultLimit = 5

// ErrEmptyPreferences is returned for a blank preference text.
var ErrEmptyPreferences = errors.New("recommend: preferences are required")

// Query is one recommendation request.
type Query struct {
	Preferences string
	Limit       int
	Filter      catalog.Filter
}

// Service answers recommendation queries.
type Service struct {
	embedder embeddings.Embedder
	engine   *Engine
	metrics  *metrics.Metrics
	logger   *logrus.Logger
}

// NewService creates a service. m may be nil.
func NewService(e embeddings.Embedder, engine *Engine, m *metrics.Metrics, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{embedder: e, engine: engine, metrics: m, logger: logger}
}

// Engine returns the engine the service ranks with.
func (s *Service) Engine() *Engine { return s.engine }

// Recommend returns up to q.Limit catalog items most similar to q.Preferences
// among those accepted by q.Filter.
func (s *Service) Recommend(ctx context.Context, q Query) ([]models.Recommendation, error) {
	recs, outcome, err := s.recommend(ctx, q)
	s.metrics.ObserveRequest(outcome)
	return recs, err
}

func (s *Service) recommend(ctx context.Context, q Query) ([]models.Recommendation, string, error) {
	prefs := strings.TrimSpace(q.Preferences)
	if prefs == "" {
		return nil, metrics.OutcomeBadRequest, ErrEmptyPreferences
	}
	limit := q.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 0 {
		return nil, metrics.OutcomeBadRequest, ErrInvalidK
	}
	if !s.engine.Ready() {
		return nil, metrics.OutcomeInternal, ErrNotReady
	}

	start := time.Now()
	vecs, err := s.embedder.Embed(ctx, []string{prefs})
	s.metrics.ObserveEmbed(s.embedder.Model(), time.Since(start))
	if err != nil {
		entry := s.logger.WithError(err).WithField("model", s.embedder.Model())
		if ctx.Err() != nil {
			entry.Debug("query embedding cancelled")
			return nil, metrics.OutcomeInternal, fmt.Errorf("embed query: %w", err)
		}
		entry.Error("query embedding failed")
		return nil, metrics.OutcomeProvider, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, metrics.OutcomeProvider, fmt.Errorf("embed query: %w: got %d vectors", embeddings.ErrUnavailable, len(vecs))
	}

	var match func(models.Book) bool
	if !q.Filter.Empty() {
		match = q.Filter.Match
	}

	start = time.Now()
	recs, err := s.engine.Rank(vecs[0], limit, match)
	s.metrics.ObserveRank(time.Since(start))
	if err != nil {
		if errors.Is(err, ErrDimensionMismatch) {
			s.logger.WithError(err).Error("query vector does not match index")
		}
		return nil, metrics.OutcomeInternal, err
	}
	return recs, metrics.OutcomeOK, nil
}
