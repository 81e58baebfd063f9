// ABOUTME: HTTP server exposing recommendations, catalog listing, health, and metrics.
// ABOUTME: Routes with chi and shuts down gracefully when its context ends.
package api

import (
	"context"
	"embed"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/2389-research/bookrec/internal/catalog"
	"github.com/2389-research/bookrec/internal/metrics"
	"github.com/2389-research/bookrec/internal/recommend"
)

//go:embed static/index.html
var staticFS embed.FS

const shutdownTimeout = 10 * time.Second

// Options configures a Server.
type Options struct {
	Catalog *catalog.Catalog
	Service *recommend.Service
	Metrics *metrics.Metrics
	Logger  *logrus.Logger
	// RateLimit is the per-IP requests per minute allowed on /api/recommend.
	// Zero disables the limit.
	RateLimit int
}

// Server serves the HTTP API.
type Server struct {
	catalog   *catalog.Catalog
	service   *recommend.Service
	metrics   *metrics.Metrics
	logger    *logrus.Logger
	validate  *validator.Validate
	rateLimit int
}

// NewServer creates a server from opts.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{
		catalog:   opts.Catalog,
		service:   opts.Service,
		metrics:   opts.Metrics,
		logger:    logger,
		validate:  validator.New(),
		rateLimit: opts.RateLimit,
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(accessLog(s.logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/books", s.handleBooks)
		r.Get("/genres", s.handleGenres)

		r.Group(func(r chi.Router) {
			if s.rateLimit > 0 {
				r.Use(httprate.Limit(
					s.rateLimit,
					time.Minute,
					httprate.WithKeyFuncs(httprate.KeyByIP),
					httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
						writeError(w, http.StatusTooManyRequests, "Too many requests, slow down")
					}),
				))
			}
			r.Post("/recommend", s.handleRecommend)
		})
	})

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
