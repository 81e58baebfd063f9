// ABOUTME: Immutable catalog embedding index and the cosine top-K ranking over it.
// ABOUTME: Built once from the catalog, optionally reusing an on-disk snapshot.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/2389-research/bookrec/internal/embeddings"
	"github.com/2389-research/bookrec/internal/models"
)

var (
	// ErrInvalidK is returned when the requested result count is not positive.
	ErrInvalidK = errors.New("recommend: k must be a positive integer")
	// ErrDimensionMismatch signals a query vector from a different provider
	// configuration than the one that built the index.
	ErrDimensionMismatch = errors.New("recommend: query dimension does not match index")
	// ErrEmptyCatalog is returned when building an index with no items.
	ErrEmptyCatalog = errors.New("recommend: catalog has no items")
)

// Index is an immutable snapshot of the catalog and its embedding matrix.
// Rows are index-aligned with items. Safe for concurrent use.
type Index struct {
	id      uuid.UUID
	model   string
	dim     int
	items   []models.Book
	rows    [][]float32
	norms   []float64
	builtAt time.Time
}

// NewIndex assembles an index from precomputed rows. Every row must have the
// same non-zero length and there must be one row per item.
func NewIndex(model string, items []models.Book, rows [][]float32) (*Index, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCatalog
	}
	if len(rows) != len(items) {
		return nil, fmt.Errorf("recommend: %d rows for %d items", len(rows), len(items))
	}
	dim := len(rows[0])
	if dim == 0 {
		return nil, fmt.Errorf("recommend: row 0 is empty")
	}

	ix := &Index{
		id:      uuid.New(),
		model:   model,
		dim:     dim,
		items:   append([]models.Book(nil), items...),
		rows:    make([][]float32, len(rows)),
		norms:   make([]float64, len(rows)),
		builtAt: time.Now(),
	}
	for i, r := range rows {
		if len(r) != dim {
			return nil, fmt.Errorf("recommend: row %d has length %d, want %d", i, len(r), dim)
		}
		ix.rows[i] = append([]float32(nil), r...)
		ix.norms[i] = embeddings.Norm(r)
	}
	return ix, nil
}

// BuildOptions tunes Build.
type BuildOptions struct {
	// SnapshotPath, when set, is read before embedding and written after.
	SnapshotPath string
	Logger       *logrus.Logger
}

// Build embeds every item's text in one batch and returns the index. A
// matching snapshot at opts.SnapshotPath is used instead of calling the
// provider.
func Build(ctx context.Context, items []models.Book, e embeddings.Embedder, opts BuildOptions) (*Index, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCatalog
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	start := time.Now()

	if opts.SnapshotPath != "" {
		rows, ok, err := embeddings.ReadSnapshot(opts.SnapshotPath, e.Model(), items)
		if err != nil {
			logger.WithError(err).WithField("path", opts.SnapshotPath).Warn("failed to read embedding snapshot")
		}
		if ok && (e.Dimension() == 0 || e.Dimension() == len(rows[0])) {
			ix, err := NewIndex(e.Model(), items, rows)
			if err == nil {
				logIndex(logger, ix, "snapshot", time.Since(start))
				return ix, nil
			}
			logger.WithError(err).Warn("ignoring invalid embedding snapshot")
		}
	}

	texts := make([]string, len(items))
	for i, b := range items {
		texts[i] = b.Text()
	}
	rows, err := e.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed catalog: %w", err)
	}
	if len(rows) != len(items) {
		return nil, fmt.Errorf("embed catalog: got %d vectors for %d items", len(rows), len(items))
	}

	ix, err := NewIndex(e.Model(), items, rows)
	if err != nil {
		return nil, err
	}

	if opts.SnapshotPath != "" {
		if err := embeddings.WriteSnapshot(opts.SnapshotPath, ix.model, ix.items, ix.rows); err != nil {
			logger.WithError(err).WithField("path", opts.SnapshotPath).Warn("failed to write embedding snapshot")
		}
	}
	logIndex(logger, ix, "provider", time.Since(start))
	return ix, nil
}

func logIndex(logger *logrus.Logger, ix *Index, source string, took time.Duration) {
	logger.WithFields(logrus.Fields{
		"index_id":  ix.id.String(),
		"items":     len(ix.items),
		"dimension": ix.dim,
		"model":     ix.model,
		"source":    source,
		"took":      took.String(),
	}).Info("catalog index built")
}

// Rank scores every item accepted by match (nil accepts all) against query
// and returns the best k, highest score first. Equal scores keep catalog
// order. Fewer than k results are returned when fewer items match.
func (ix *Index) Rank(query []float32, k int, match func(models.Book) bool) ([]models.Recommendation, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if len(query) != ix.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(query), ix.dim)
	}

	qNorm := embeddings.Norm(query)
	results := make([]models.Recommendation, 0, len(ix.items))
	for i, item := range ix.items {
		if match != nil && !match(item) {
			continue
		}
		var score float64
		if qNorm != 0 && ix.norms[i] != 0 {
			score = embeddings.Dot(query, ix.rows[i]) / (qNorm * ix.norms[i])
		}
		results = append(results, models.Recommendation{Book: item, SimilarityScore: score})
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].SimilarityScore > results[b].SimilarityScore
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// ID identifies this build in logs.
func (ix *Index) ID() uuid.UUID { return ix.id }

// Model returns the embedding model the rows came from.
func (ix *Index) Model() string { return ix.model }

// Dimension returns the row length.
func (ix *Index) Dimension() int { return ix.dim }

// Len returns the number of items.
func (ix *Index) Len() int { return len(ix.items) }

// Items returns a copy of the indexed items in catalog order.
func (ix *Index) Items() []models.Book {
	return append([]models.Book(nil), ix.items...)
}

// BuiltAt returns when the index was assembled.
func (ix *Index) BuiltAt() time.Time { return ix.builtAt }
