// Package embedding maps text to fixed-length vectors for semantic search.
//
// Two backends are provided: Ollama (local inference daemon, the default)
// and OpenAI. Ingestion and retrieval must share one Embedder instance;
// mixing embedding spaces silently ruins similarity ordering without ever
// producing an error.
package embedding

import (
	"context"
	"errors"
)

// ErrEmptyInput is returned when there is nothing to embed. Callers skip or
// filter empty texts instead of crashing the pipeline.
var ErrEmptyInput = errors.New("embedding input is empty")

// Embedder generates embeddings for text.
type Embedder interface {
	// EmbedBatch embeds all texts in one logical operation, batching
	// requests to amortize per-call overhead. The result has one vector
	// per input, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Embed embeds a single text (typically a retrieval query).
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector size produced by the model.
	Dimensions() int

	// ModelName identifies the model, for logging and store validation.
	ModelName() string
}

// knownDimensions maps model names to their vector sizes. Unknown Ollama
// models fall back to 768 (the nomic-embed-text family default).
var knownDimensions = map[string]int{
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

func modelDimensions(model string, fallback int) int {
	if d, ok := knownDimensions[model]; ok {
		return d
	}
	return fallback
}
