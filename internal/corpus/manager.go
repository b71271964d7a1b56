// Package corpus exposes the document collection as a single concurrent-safe
// facade over the pipeline, vector store, registry and retriever.
//
// The Manager owns all locking. Destructive operations and listing (which
// may repair inconsistencies) take the write lock; retrieval takes the read
// lock so queries run concurrently.
package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bull/docbase/internal/category"
	"github.com/bull/docbase/internal/document"
	"github.com/bull/docbase/internal/embedding"
	"github.com/bull/docbase/internal/ingest"
	"github.com/bull/docbase/internal/registry"
	"github.com/bull/docbase/internal/retrieval"
	"github.com/bull/docbase/internal/storage"
)

// Manager coordinates every operation on the document collection.
type Manager struct {
	mu        sync.RWMutex
	pipeline  *ingest.Pipeline
	store     storage.VectorStore
	registry  *registry.Registry
	retriever *retrieval.Retriever
	embedder  embedding.Embedder
	logger    *slog.Logger
}

// New assembles a manager from already-constructed components.
func New(
	pipeline *ingest.Pipeline,
	store storage.VectorStore,
	reg *registry.Registry,
	retriever *retrieval.Retriever,
	embedder embedding.Embedder,
	logger *slog.Logger,
) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		pipeline:  pipeline,
		store:     store,
		registry:  reg,
		retriever: retriever,
		embedder:  embedder,
		logger:    logger,
	}
}

// ProcessDocument ingests one file.
func (m *Manager) ProcessDocument(ctx context.Context, path string) ingest.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pipeline.Process(ctx, path)
}

// ProcessBatch ingests several files, continuing past per-file failures.
func (m *Manager) ProcessBatch(ctx context.Context, paths []string) ([]ingest.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pipeline.ProcessBatch(ctx, paths)
}

// RelevantChunks returns up to k chunks most similar to query. Safe to call
// concurrently with other reads.
func (m *Manager) RelevantChunks(ctx context.Context, query string, k int, filter storage.Filter) []document.ScoredChunk {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.retriever.Retrieve(ctx, query, k, filter)
}

// ListDocuments returns all registered documents, repairing inconsistencies
// as a side effect: chunks whose document is no longer registered are
// deleted, and registered documents with no chunks in the store are
// dropped.
func (m *Manager) ListDocuments(ctx context.Context) ([]document.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listAndRepair(ctx)
}

func (m *Manager) listAndRepair(ctx context.Context) ([]document.Document, error) {
	docs, err := m.registry.List(ctx)
	if err != nil {
		return nil, err
	}

	chunks, err := m.store.Get(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("reading store for consistency check: %w", err)
	}
	storedIDs := make(map[string]int)
	for _, c := range chunks {
		storedIDs[c.Metadata[document.MetaDocumentID]]++
	}

	registered := make(map[string]bool, len(docs))
	repaired := docs[:0]
	for _, doc := range docs {
		registered[doc.ID] = true
		if storedIDs[doc.ID] == 0 {
			m.logger.Warn("Registered document has no stored chunks, dropping",
				"filename", doc.Filename, "id", doc.ID)
			if err := m.registry.Remove(ctx, doc.ID); err != nil {
				return nil, fmt.Errorf("dropping inconsistent record %s: %w", doc.Filename, err)
			}
			continue
		}
		repaired = append(repaired, doc)
	}

	for id, count := range storedIDs {
		if id == "" || registered[id] {
			continue
		}
		m.logger.Warn("Deleting orphaned chunks with no registered document",
			"document_id", id, "chunks", count)
		if err := m.store.Delete(ctx, storage.ByDocument(id)); err != nil {
			return nil, fmt.Errorf("deleting orphaned chunks for %s: %w", id, err)
		}
	}

	return repaired, nil
}

// DeleteDocument removes a document by filename: chunks first, then the
// registry record and content backup.
func (m *Manager) DeleteDocument(ctx context.Context, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.registry.GetByFilename(ctx, filename)
	if err != nil {
		return err
	}
	if err := m.store.Delete(ctx, storage.ByDocument(doc.ID)); err != nil {
		return fmt.Errorf("deleting chunks for %s: %w", filename, err)
	}
	if err := m.registry.Remove(ctx, doc.ID); err != nil {
		return err
	}
	m.logger.Info("Deleted document", "filename", filename, "id", doc.ID)
	return nil
}

// ClearAll destroys the entire collection: every chunk, every record, every
// content backup.
func (m *Manager) ClearAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Reset(ctx); err != nil {
		return fmt.Errorf("resetting store: %w", err)
	}
	if err := m.registry.Clear(ctx); err != nil {
		return fmt.Errorf("clearing registry: %w", err)
	}
	m.logger.Info("Cleared document collection")
	return nil
}

// CategoryCount pairs a category name with how many documents carry it.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Categories returns every known category with its document count,
// including zero-count categories, in taxonomy order.
func (m *Manager) Categories(ctx context.Context) ([]CategoryCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs, err := m.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, doc := range docs {
		counts[doc.Category]++
	}

	all := category.All()
	out := make([]CategoryCount, 0, len(all))
	for _, name := range all {
		out = append(out, CategoryCount{Name: name, Count: counts[name]})
		delete(counts, name)
	}
	// Categories persisted by older rule sets still show up.
	for name, count := range counts {
		out = append(out, CategoryCount{Name: name, Count: count})
	}
	return out, nil
}

// Document returns the registered record for filename.
func (m *Manager) Document(ctx context.Context, filename string) (document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registry.GetByFilename(ctx, filename)
}

// DocumentContent returns the full extracted text of a registered document
// from its content backup.
func (m *Manager) DocumentContent(ctx context.Context, filename string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, err := m.registry.GetByFilename(ctx, filename)
	if err != nil {
		return "", err
	}
	return m.registry.ReadBackup(doc.ID)
}

// ReclassifyAll re-runs classification for every registered document from
// its content backup, rebuilding chunks so stored metadata stays in sync.
// Returns the number of documents whose category changed.
func (m *Manager) ReclassifyAll(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs, err := m.registry.List(ctx)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, doc := range docs {
		before := doc.Category
		updated, err := m.pipeline.Reprocess(ctx, doc)
		if err != nil {
			m.logger.Warn("Reclassification failed", "filename", doc.Filename, "error", err)
			continue
		}
		if updated.Category != before {
			m.logger.Info("Reclassified document",
				"filename", doc.Filename, "from", before, "to", updated.Category)
			changed++
		}
	}
	return changed, nil
}

// Stats describes the collection for health reporting.
type Stats struct {
	Documents      int    `json:"documents"`
	Chunks         int    `json:"chunks"`
	EmbeddingModel string `json:"embedding_model"`
	Dimensions     int    `json:"dimensions"`
}

// Health checks the store and returns collection statistics.
func (m *Manager) Health(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	chunks, err := m.store.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("counting chunks: %w", err)
	}
	docs, err := m.registry.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Documents:      len(docs),
		Chunks:         chunks,
		EmbeddingModel: m.embedder.ModelName(),
		Dimensions:     m.embedder.Dimensions(),
	}, nil
}
