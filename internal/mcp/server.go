package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/docbase/internal/corpus"
)

// Server wraps the MCP server with dependencies.
type Server struct {
	server  *mcp.Server
	manager *corpus.Manager
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(manager *corpus.Manager) *Server {
	impl := &mcp.Implementation{
		Name:    "docbase-server",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_documents",
		Description: "Search the document collection semantically. Returns the most relevant text chunks with source metadata. Use get_document for full document content.",
	}, makeSearchHandler(manager))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_document",
		Description: "Retrieve the full extracted text of a document by filename.",
	}, makeGetDocumentHandler(manager))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List all documents in the collection with category, size and chunk counts.",
	}, makeListDocumentsHandler(manager))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_categories",
		Description: "List the category taxonomy with per-category document counts.",
	}, makeListCategoriesHandler(manager))

	return &Server{
		server:  server,
		manager: manager,
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
