// ABOUTME: MCP tool implementations for book recommendations and catalog browsing.
// ABOUTME: Registers recommend_books, list_books, and list_genres.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/bookrec/internal/catalog"
	"github.com/2389-research/bookrec/internal/embeddings"
	"github.com/2389-research/bookrec/internal/models"
	"github.com/2389-research/bookrec/internal/recommend"
)

func (s *Server) registerTools() {
	s.mcp.AddTool(&gomcp.Tool{
		Name:        "recommend_books",
		Description: "Recommend books from the catalog that best match a free-text description of reading preferences. Results are ranked by semantic similarity; optional filters narrow the candidates before ranking.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"preferences": {"type": "string", "description": "What the reader enjoys, e.g. 'mystery novels with complex characters'"},
				"limit": {"type": "number", "description": "Maximum number of recommendations (default 5; larger than the catalog returns every match)"},
				"genre": {"type": "string", "description": "Only consider books of this genre (case-insensitive)"},
				"min_rating": {"type": "number", "description": "Only consider books rated at least this high"},
				"year_range": {"type": "string", "description": "Only consider books published in this inclusive range, e.g. '1900-1960'"}
			},
			"required": ["preferences"]
		}`),
	}, s.handleRecommendBooks)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "list_books",
		Description: "List catalog books in catalog order, optionally filtered by genre, minimum rating, and publication years.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"genre": {"type": "string", "description": "Genre to match (case-insensitive)"},
				"min_rating": {"type": "number", "description": "Minimum rating, inclusive"},
				"year_range": {"type": "string", "description": "Inclusive publication year range, e.g. '1940-1960'"}
			}
		}`),
	}, s.handleListBooks)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "list_genres",
		Description: "List the distinct genres present in the catalog.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
	}, s.handleListGenres)
}

type filterArgs struct {
	Genre     string   `json:"genre"`
	MinRating *float64 `json:"min_rating"`
	YearRange string   `json:"year_range"`
}

func (a filterArgs) filter() catalog.Filter {
	f := catalog.Filter{Genre: strings.TrimSpace(a.Genre), MinRating: a.MinRating}
	if a.YearRange != "" {
		if yr, ok := catalog.ParseYearRange(a.YearRange); ok {
			f.Years = &yr
		}
	}
	return f
}

type recommendArgs struct {
	filterArgs
	Preferences string `json:"preferences"`
	Limit       *int   `json:"limit"`
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func (s *Server) handleRecommendBooks(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args recommendArgs
	if err := decodeArgs(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if strings.TrimSpace(args.Preferences) == "" {
		return toolError("preferences is required"), nil
	}
	q := recommend.Query{Preferences: args.Preferences, Filter: args.filter()}
	if args.Limit != nil {
		if *args.Limit <= 0 {
			return toolError("limit must be a positive integer"), nil
		}
		q.Limit = *args.Limit
	}

	recs, err := s.service.Recommend(ctx, q)
	if err != nil {
		switch {
		case errors.Is(err, recommend.ErrNotReady):
			return toolError("recommendation engine is not ready"), nil
		case errors.Is(err, embeddings.ErrUnavailable):
			return toolError("embedding provider unavailable: %v", err), nil
		default:
			return toolError("failed to recommend: %v", err), nil
		}
	}

	if len(recs) == 0 {
		return &gomcp.CallToolResult{
			Content: []gomcp.Content{&gomcp.TextContent{Text: "No books match those filters."}},
		}, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Top %d recommendations:\n\n", len(recs))
	for i, r := range recs {
		fmt.Fprintf(&sb, "%d. %s (similarity %.3f)\n", i+1, formatBook(r.Book), r.SimilarityScore)
		fmt.Fprintf(&sb, "   %s\n", r.Description)
	}

	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: sb.String()}},
	}, nil
}

func (s *Server) handleListBooks(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args filterArgs
	if err := decodeArgs(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}

	books := s.catalog.Filter(args.filter())
	if len(books) == 0 {
		return &gomcp.CallToolResult{
			Content: []gomcp.Content{&gomcp.TextContent{Text: "No books found."}},
		}, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d books:\n\n", len(books))
	for _, b := range books {
		fmt.Fprintf(&sb, "- [%d] %s\n", b.ID, formatBook(b))
	}

	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: sb.String()}},
	}, nil
}

func (s *Server) handleListGenres(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	genres := s.catalog.Genres()
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: strings.Join(genres, "\n")}},
	}, nil
}

func formatBook(b models.Book) string {
	return fmt.Sprintf("%s by %s [%s, %d, rated %.1f]", b.Title, b.Author, b.Genre, b.Year, b.Rating)
}

// toolError creates an error result for MCP tool responses.
func toolError(format string, args ...interface{}) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}
