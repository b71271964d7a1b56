// Package retrieval answers similarity queries against the vector store.
package retrieval

import (
	"context"
	"log/slog"

	"github.com/bull/docbase/internal/document"
	"github.com/bull/docbase/internal/embedding"
	"github.com/bull/docbase/internal/storage"
)

// DefaultK is the number of chunks returned when the caller does not ask
// for a specific count.
const DefaultK = 5

// Retriever embeds queries and ranks stored chunks by cosine similarity.
type Retriever struct {
	embedder embedding.Embedder
	store    storage.VectorStore
	logger   *slog.Logger
}

// New creates a retriever.
func New(embedder embedding.Embedder, store storage.VectorStore, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embedder: embedder, store: store, logger: logger}
}

// Retrieve returns up to k chunks most similar to query, best first.
// Retrieval is best-effort: an embedding or store failure degrades to an
// empty result with a logged warning rather than failing the caller, and
// an empty store yields an empty result.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, filter storage.Filter) []document.ScoredChunk {
	if query == "" {
		return []document.ScoredChunk{}
	}
	if k <= 0 {
		k = DefaultK
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Warn("Query embedding failed", "error", err)
		return []document.ScoredChunk{}
	}

	chunks, err := r.store.Query(ctx, embedding, k, filter)
	if err != nil {
		r.logger.Warn("Vector query failed", "error", err)
		return []document.ScoredChunk{}
	}
	if chunks == nil {
		chunks = []document.ScoredChunk{}
	}
	return chunks
}
