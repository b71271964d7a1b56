package mcp

import (
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// HTTPHandlerOptions tunes the Streamable HTTP transport.
type HTTPHandlerOptions struct {
	// Stateless drops per-client session tracking. The document tools are
	// all request/response, so stateless serving is safe when session
	// affinity is unavailable (e.g. behind a load balancer).
	Stateless bool
}

// NewHTTPHandler adapts the MCP server to an http.Handler speaking the
// Streamable HTTP transport, for mounting on a mux path such as /mcp. A nil
// opts means stateful defaults.
func NewHTTPHandler(server *Server, opts *HTTPHandlerOptions) http.Handler {
	if opts == nil {
		opts = &HTTPHandlerOptions{}
	}

	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server.MCPServer()
	}, &mcp.StreamableHTTPOptions{
		Stateless: opts.Stateless,
	})
}
