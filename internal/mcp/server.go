// ABOUTME: MCP server initialization and configuration for bookrec.
// ABOUTME: Exposes recommendation and catalog tools to AI agents over stdio.
package mcp

import (
	"context"
	"fmt"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/bookrec/internal/catalog"
	"github.com/2389-research/bookrec/internal/recommend"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

// Server wraps the MCP server with the catalog and recommendation service.
type Server struct {
	mcp     *gomcp.Server
	catalog *catalog.Catalog
	service *recommend.Service
}

// NewServer creates an MCP server with recommendation and catalog tools.
func NewServer(cat *catalog.Catalog, service *recommend.Service) (*Server, error) {
	if cat == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if service == nil {
		return nil, fmt.Errorf("recommendation service is required")
	}

	mcpServer := gomcp.NewServer(
		&gomcp.Implementation{
			Name:    "bookrec",
			Version: Version,
		},
		nil,
	)

	s := &Server{
		mcp:     mcpServer,
		catalog: cat,
		service: service,
	}

	s.registerTools()

	return s, nil
}

// Serve starts the MCP server in stdio mode.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcp.Run(ctx, &gomcp.StdioTransport{})
}
