package corpus

import (
	"fmt"
	"log/slog"

	"github.com/bull/docbase/internal/config"
	"github.com/bull/docbase/internal/embedding"
	"github.com/bull/docbase/internal/ingest"
	"github.com/bull/docbase/internal/loader"
	"github.com/bull/docbase/internal/registry"
	"github.com/bull/docbase/internal/retrieval"
	"github.com/bull/docbase/internal/splitter"
	"github.com/bull/docbase/internal/storage"
)

// Open builds the full stack from configuration: embedder, vector store,
// registry, pipeline and retriever. The returned manager owns the store and
// registry handles; call Close when done.
func Open(cfg *config.Config, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var embedder embedding.Embedder
	switch cfg.EmbeddingBackend {
	case config.EmbedOllama:
		embedder = embedding.NewOllama(cfg.OllamaHost, cfg.EmbeddingModel)
	case config.EmbedOpenAI:
		openAI, err := embedding.NewOpenAI(cfg.EmbeddingModel)
		if err != nil {
			return nil, err
		}
		embedder = openAI
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", cfg.EmbeddingBackend)
	}

	var store storage.VectorStore
	var err error
	switch cfg.VectorStore {
	case config.StoreSQLite:
		store, err = storage.NewSQLiteStore(cfg.VectorDir(), embedder.Dimensions())
	case config.StoreQdrant:
		store, err = storage.NewQdrantStore(cfg.QdrantHost, cfg.QdrantPort, embedder.Dimensions())
	default:
		err = fmt.Errorf("unknown vector store %q", cfg.VectorStore)
	}
	if err != nil {
		return nil, err
	}

	reg, err := registry.Open(cfg.MetadataDir())
	if err != nil {
		store.Close()
		return nil, err
	}

	split, err := splitter.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		store.Close()
		reg.Close()
		return nil, err
	}

	pipeline := ingest.New(loader.Default(), split, embedder, store, reg, logger, cfg.ProcessTimeout)
	retriever := retrieval.New(embedder, store, logger)

	return New(pipeline, store, reg, retriever, embedder, logger), nil
}

// Close releases the store and registry handles.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	storeErr := m.store.Close()
	regErr := m.registry.Close()
	if storeErr != nil {
		return storeErr
	}
	return regErr
}
