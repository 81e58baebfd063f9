// ABOUTME: HTTP tests for the recommendation API using httptest.
// ABOUTME: Covers status mapping, filters, health, rate limiting, and graceful shutdown.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389-research/bookrec/internal/catalog"
	"github.com/2389-research/bookrec/internal/embeddings"
	"github.com/2389-research/bookrec/internal/metrics"
	"github.com/2389-research/bookrec/internal/recommend"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type brokenEmbedder struct{}

func (brokenEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, embeddings.ErrUnavailable
}
func (brokenEmbedder) Dimension() int { return 0 }
func (brokenEmbedder) Model() string  { return "broken" }

type serverOpts struct {
	queryEmbedder embeddings.Embedder
	notReady      bool
	rateLimit     int
}

func newTestServer(t *testing.T, o serverOpts) (*Server, *metrics.Metrics) {
	t.Helper()
	cat, err := catalog.New(catalog.Builtin())
	require.NoError(t, err)

	hash := embeddings.NewHashEmbedder(embeddings.DefaultHashDimension)
	engine := recommend.NewEngine()
	if !o.notReady {
		ix, err := recommend.Build(context.Background(), cat.Items(), hash, recommend.BuildOptions{Logger: quietLogger()})
		require.NoError(t, err)
		require.NoError(t, engine.Load(ix))
	}

	qe := o.queryEmbedder
	if qe == nil {
		qe = hash
	}
	m := metrics.New()
	svc := recommend.NewService(qe, engine, m, quietLogger())
	return NewServer(Options{Catalog: cat, Service: svc, Metrics: m, Logger: quietLogger(), RateLimit: o.rateLimit}), m
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRecommend(t *testing.T) {
	s, _ := newTestServer(t, serverOpts{})
	rec := do(t, s.Handler(), http.MethodPost, "/api/recommend",
		`{"preferences":"I love mystery novels with complex characters and thrilling plots","num_recommendations":3}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	body := decode[recommendResponse](t, rec)
	require.Len(t, body.Recommendations, 3)
	assert.Equal(t, "The Da Vinci Code", body.Recommendations[0].Title)
	assert.Greater(t, body.Recommendations[0].SimilarityScore, body.Recommendations[2].SimilarityScore)
}

func TestRecommendResponseShape(t *testing.T) {
	s, _ := newTestServer(t, serverOpts{})
	rec := do(t, s.Handler(), http.MethodPost, "/api/recommend", `{"preferences":"fantasy"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var raw struct {
		Recommendations []map[string]any `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	require.Len(t, raw.Recommendations, recommend.DefaultLimit)
	for _, key := range []string{"id", "title", "author", "genre", "description", "rating", "year", "similarity_score"} {
		assert.Contains(t, raw.Recommendations[0], key)
	}
}

func TestRecommendWithFilters(t *testing.T) {
	s, _ := newTestServer(t, serverOpts{})
	rec := do(t, s.Handler(), http.MethodPost, "/api/recommend",
		`{"preferences":"I love mystery novels","num_recommendations":10,"genre":"FANTASY","year_range":"1930-1960"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[recommendResponse](t, rec)
	require.Len(t, body.Recommendations, 2)
	for _, r := range body.Recommendations {
		assert.Equal(t, "Fantasy", r.Genre)
		assert.NotEqual(t, "The Da Vinci Code", r.Title)
	}
}

func TestRecommendBadRequests(t *testing.T) {
	s, m := newTestServer(t, serverOpts{})
	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"missing preferences", `{}`, "Preferences are required"},
		{"empty preferences", `{"preferences":""}`, "Preferences are required"},
		{"blank preferences", `{"preferences":"   "}`, "Preferences are required"},
		{"zero count", `{"preferences":"x","num_recommendations":0}`, "num_recommendations must be a positive integer"},
		{"negative count", `{"preferences":"x","num_recommendations":-1}`, "num_recommendations must be a positive integer"},
		{"bad rating", `{"preferences":"x","min_rating":9}`, "min_rating must be between 0 and 5"},
		{"not json", `preferences=x`, "Request body must be a JSON object"},
		{"wrong type", `{"preferences":"x","num_recommendations":"five"}`, "Request body must be a JSON object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s.Handler(), http.MethodPost, "/api/recommend", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, map[string]string{"error": tt.msg}, decode[map[string]string](t, rec))
		})
	}
	// Only the blank-preferences case reaches the service.
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecommendRequests.WithLabelValues(metrics.OutcomeBadRequest)))
}

func TestRecommendCountLargerThanCatalog(t *testing.T) {
	s, _ := newTestServer(t, serverOpts{})
	rec := do(t, s.Handler(), http.MethodPost, "/api/recommend", `{"preferences":"fantasy","num_recommendations":500}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[recommendResponse](t, rec)
	require.Len(t, resp.Recommendations, 10)
	for i := 1; i < len(resp.Recommendations); i++ {
		assert.GreaterOrEqual(t, resp.Recommendations[i-1].SimilarityScore, resp.Recommendations[i].SimilarityScore)
	}
}

func TestRecommendProviderFailure(t *testing.T) {
	s, _ := newTestServer(t, serverOpts{queryEmbedder: brokenEmbedder{}})
	rec := do(t, s.Handler(), http.MethodPost, "/api/recommend", `{"preferences":"anything"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Embedding provider unavailable", decode[map[string]string](t, rec)["error"])
}

func TestRecommendDimensionMismatch(t *testing.T) {
	s, _ := newTestServer(t, serverOpts{queryEmbedder: embeddings.NewHashEmbedder(16)})
	rec := do(t, s.Handler(), http.MethodPost, "/api/recommend", `{"preferences":"anything"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decode[map[string]string](t, rec)["error"])
}

func TestRecommendNotReady(t *testing.T) {
	s, _ := newTestServer(t, serverOpts{notReady: true})
	rec := do(t, s.Handler(), http.MethodPost, "/api/recommend", `{"preferences":"anything"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRecommendRateLimited(t *testing.T) {
	s, _ := newTestServer(t, serverOpts{rateLimit: 2})
	h := s.Handler()
	for i := 0; i < 2; i++ {
		rec := do(t, h, http.MethodPost, "/api/recommend", `{"preferences":"novel"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(t, h, http.MethodPost, "/api/recommend", `{"preferences":"novel"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Listing endpoints are not limited.
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/genres", "").Code)
}

func TestBooks(t *testing.T) {
	s, _ := newTestServer(t, serverOpts{})
	tests := []struct {
		name   string
		target string
		want   []int
	}{
		{"all", "/api/books", []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
		{"genre", "/api/books?genre=fantasy", []int{7, 8, 9}},
		{"min rating", "/api/books?min_rating=4.7", []int{2, 3, 7, 8}},
		{"years", "/api/books?year_range=1949-1951", []int{3, 5, 9}},
		{"combined", "/api/books?genre=Fiction&min_rating=4.5&year_range=1900-1950", []int{1}},
		{"malformed ignored", "/api/books?min_rating=high&year_range=1950", []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
		{"no match", "/api/books?genre=Poetry", []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s.Handler(), http.MethodGet, tt.target, "")
			require.Equal(t, http.StatusOK, rec.Code)
			body := decode[booksResponse](t, rec)
			ids := make([]int, 0, len(body.Books))
			for _, b := range body.Books {
				ids = append(ids, b.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestBooksEmptyIsArray(t *testing.T) {
	s, _ := newTestServer(t, serverOpts{})
	rec := do(t, s.Handler(), http.MethodGet, "/api/books?genre=Poetry", "")
	assert.JSONEq(t, `{"books":[]}`, rec.Body.String())
}

func TestGenres(t *testing.T) {
	s, _ := newTestServer(t, serverOpts{})
	rec := do(t, s.Handler(), http.MethodGet, "/api/genres", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[genresResponse](t, rec)
	assert.Equal(t, []string{"Dystopian Fiction", "Fantasy", "Fiction", "Mystery", "Romance"}, body.Genres)
}

func TestHealth(t *testing.T) {
	ready, _ := newTestServer(t, serverOpts{})
	rec := do(t, ready.Handler(), http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[healthResponse](t, rec)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 10, body.Items)
	assert.Equal(t, "hash-1024", body.Model)

	starting, _ := newTestServer(t, serverOpts{notReady: true})
	rec = do(t, starting.Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestIndexPage(t *testing.T) {
	s, _ := newTestServer(t, serverOpts{})
	rec := do(t, s.Handler(), http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "/api/recommend")
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, serverOpts{})
	h := s.Handler()
	do(t, h, http.MethodPost, "/api/recommend", `{"preferences":"novel"}`)

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `bookrec_recommend_requests_total{outcome="ok"} 1`)
}

func TestRequestIDPropagates(t *testing.T) {
	s, _ := newTestServer(t, serverOpts{})
	req := httptest.NewRequest(http.MethodGet, "/api/genres", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestListenAndServeShutsDown(t *testing.T) {
	s, _ := newTestServer(t, serverOpts{})

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, addr) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + addr + "/healthz")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
