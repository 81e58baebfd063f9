// ABOUTME: HTTP handlers for recommendations, books, genres, health, and the index page.
// ABOUTME: Maps service errors to status codes and sanitized client messages.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/2389-research/bookrec/internal/catalog"
	"github.com/2389-research/bookrec/internal/embeddings"
	"github.com/2389-research/bookrec/internal/models"
	"github.com/2389-research/bookrec/internal/recommend"
)

const maxBodyBytes = 1 << 20

type recommendRequest struct {
	Preferences        string   `json:"preferences" validate:"required"`
	NumRecommendations *int     `json:"num_recommendations" validate:"omitempty,min=1"`
	Genre              string   `json:"genre" validate:"max=100"`
	MinRating          *float64 `json:"min_rating" validate:"omitempty,min=0,max=5"`
	YearRange          string   `json:"year_range"`
}

func (req recommendRequest) query() recommend.Query {
	q := recommend.Query{
		Preferences: req.Preferences,
		Filter: catalog.Filter{
			Genre:     strings.TrimSpace(req.Genre),
			MinRating: req.MinRating,
		},
	}
	if req.NumRecommendations != nil {
		q.Limit = *req.NumRecommendations
	}
	if req.YearRange != "" {
		if yr, ok := catalog.ParseYearRange(req.YearRange); ok {
			q.Filter.Years = &yr
		}
	}
	return q
}

type recommendResponse struct {
	Recommendations []models.Recommendation `json:"recommendations"`
}

type booksResponse struct {
	Books []models.Book `json:"books"`
}

type genresResponse struct {
	Genres []string `json:"genres"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Items   int    `json:"items,omitempty"`
	Model   string `json:"model,omitempty"`
	IndexID string `json:"index_id,omitempty"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Request body must be a JSON object")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	recs, err := s.service.Recommend(r.Context(), req.query())
	if err != nil {
		status, msg := s.classify(r.Context(), err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, recommendResponse{Recommendations: recs})
}

// classify maps a recommendation error to an HTTP status and client message.
func (s *Server) classify(ctx context.Context, err error) (int, string) {
	switch {
	case errors.Is(err, recommend.ErrEmptyPreferences):
		return http.StatusBadRequest, "Preferences are required"
	case errors.Is(err, recommend.ErrInvalidK):
		return http.StatusBadRequest, "num_recommendations must be a positive integer"
	case errors.Is(err, recommend.ErrNotReady):
		return http.StatusServiceUnavailable, "Recommendation engine is not ready"
	case errors.Is(err, recommend.ErrDimensionMismatch):
		return http.StatusInternalServerError, "Internal server error"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Embedding provider timed out"
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		return 499, "Request cancelled"
	case errors.Is(err, embeddings.ErrUnavailable),
		errors.Is(err, embeddings.ErrDimension),
		errors.Is(err, embeddings.ErrClosed):
		return http.StatusBadGateway, "Embedding provider unavailable"
	default:
		s.logger.WithError(err).Error("unexpected recommendation error")
		return http.StatusInternalServerError, "Internal server error"
	}
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.ParseFilter(q.Get("genre"), q.Get("min_rating"), q.Get("year_range"))
	writeJSON(w, http.StatusOK, booksResponse{Books: s.catalog.Filter(f)})
}

func (s *Server) handleGenres(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, genresResponse{Genres: s.catalog.Genres()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ix := s.service.Engine().Index()
	if ix == nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "starting"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Items:   ix.Len(),
		Model:   ix.Model(),
		IndexID: ix.ID().String(),
	})
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request"
	}
	switch verrs[0].Field() {
	case "Preferences":
		return "Preferences are required"
	case "NumRecommendations":
		return "num_recommendations must be a positive integer"
	case "MinRating":
		return "min_rating must be between 0 and 5"
	case "Genre":
		return "genre is too long"
	}
	return "Invalid request"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"Internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
