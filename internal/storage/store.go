// Package storage persists chunks and serves nearest-neighbor queries.
//
// Two backends implement VectorStore: an embedded SQLite index (default,
// fully local) and Qdrant (remote, gRPC). Both use cosine similarity with
// scores normalized so 1.0 means identical and 0.0 orthogonal.
package storage

import (
	"context"
	"errors"
	"math"

	"github.com/bull/docbase/internal/document"
)

// CollectionName is the single collection all chunks live in.
const CollectionName = "documents"

var (
	// ErrUnavailable indicates the backing store cannot be reached or
	// opened. The ingestion pipeline treats store failures as fatal for
	// the whole batch.
	ErrUnavailable = errors.New("vector store unavailable")

	// ErrDimensionMismatch indicates an embedding's size does not match
	// the collection's configured dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Filter selects chunks by exact match on metadata fields. A nil or empty
// filter matches every chunk.
type Filter map[string]string

// ByDocument selects all chunks belonging to one document.
func ByDocument(id string) Filter {
	return Filter{document.MetaDocumentID: id}
}

// ByFilename selects all chunks from the document with the given filename.
func ByFilename(name string) Filter {
	return Filter{document.MetaFilename: name}
}

// ByCategory selects all chunks whose document carries the given category.
func ByCategory(category string) Filter {
	return Filter{document.MetaCategory: category}
}

// Matches reports whether metadata satisfies every filter condition.
func (f Filter) Matches(metadata map[string]string) bool {
	for k, want := range f {
		if metadata[k] != want {
			return false
		}
	}
	return true
}

// VectorStore is a persistent collection of chunks supporting upsert,
// filtered deletion and cosine nearest-neighbor queries.
//
// Add upserts: re-adding an existing chunk ID replaces it. The store does
// not detect logical duplicates; replace-on-reupload is the ingestion
// pipeline's job.
//
// Stores do not serialize concurrent writers; callers owning a store handle
// must guard destructive operations (Reset, Delete) against concurrent use.
type VectorStore interface {
	Add(ctx context.Context, chunks []document.Chunk) error
	Query(ctx context.Context, embedding []float32, k int, filter Filter) ([]document.ScoredChunk, error)
	Delete(ctx context.Context, filter Filter) error
	Get(ctx context.Context, filter Filter) ([]document.Chunk, error)
	Count(ctx context.Context) (int, error)

	// Reset destroys all persisted chunks. Explicit and irreversible.
	Reset(ctx context.Context) error

	Close() error
}

// CosineSimilarity computes the cosine of the angle between two vectors,
// clamped to [0, 1] so it can be reported directly as a relevance score.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
