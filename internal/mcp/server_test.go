// ABOUTME: Tests for MCP server creation and validation.
// ABOUTME: Verifies server requires both the catalog and the recommendation service.
package mcp

import (
	"testing"

	"github.com/2389-research/bookrec/internal/catalog"
	"github.com/2389-research/bookrec/internal/embeddings"
	"github.com/2389-research/bookrec/internal/recommend"
)

func TestNewServerRequiresCatalog(t *testing.T) {
	svc := recommend.NewService(embeddings.NewHashEmbedder(8), recommend.NewEngine(), nil, nil)

	_, err := NewServer(nil, svc)
	if err == nil {
		t.Error("expected error when catalog is nil")
	}
}

func TestNewServerRequiresService(t *testing.T) {
	cat, _ := catalog.New(catalog.Builtin())

	_, err := NewServer(cat, nil)
	if err == nil {
		t.Error("expected error when service is nil")
	}
}

func TestNewServerSuccess(t *testing.T) {
	server := makeServer(t, true)
	if server == nil {
		t.Error("expected non-nil server")
	}
}
