// Package ingest orchestrates the document pipeline: load, classify, split,
// embed, store, register. The registry write always comes last so a crash
// mid-pipeline leaves at worst unreferenced chunks, never a registered
// document without content.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bull/docbase/internal/category"
	"github.com/bull/docbase/internal/document"
	"github.com/bull/docbase/internal/embedding"
	"github.com/bull/docbase/internal/loader"
	"github.com/bull/docbase/internal/registry"
	"github.com/bull/docbase/internal/splitter"
	"github.com/bull/docbase/internal/storage"
)

// Registrar is the slice of the document registry the pipeline writes to.
// *registry.Registry satisfies it.
type Registrar interface {
	Register(ctx context.Context, doc document.Document) error
	GetByFilename(ctx context.Context, filename string) (document.Document, error)
	Remove(ctx context.Context, id string) error
	SaveBackup(id, content string) (string, error)
	ReadBackup(id string) (string, error)
	RemoveBackup(id string)
}

// Pipeline wires the ingestion stages together.
type Pipeline struct {
	loaders  *loader.Registry
	splitter *splitter.Splitter
	embedder embedding.Embedder
	store    storage.VectorStore
	registry Registrar
	logger   *slog.Logger
	timeout  time.Duration
}

// New creates an ingestion pipeline. timeout bounds the processing of a
// single document; zero means no limit.
func New(
	loaders *loader.Registry,
	split *splitter.Splitter,
	embedder embedding.Embedder,
	store storage.VectorStore,
	reg Registrar,
	logger *slog.Logger,
	timeout time.Duration,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		loaders:  loaders,
		splitter: split,
		embedder: embedder,
		store:    store,
		registry: reg,
		logger:   logger,
		timeout:  timeout,
	}
}

// Process ingests a single file. Re-uploading a filename replaces the
// previous version: its chunks and registry record are removed before the
// new content is stored.
func (p *Pipeline) Process(ctx context.Context, path string) Result {
	filename := filepath.Base(path)
	result := Result{Filename: filename, Status: StatusReceived}

	if !p.loaders.Supported(filename) {
		return p.fail(result, ReasonUnsupportedType,
			fmt.Errorf("unsupported file type %q", loader.Ext(filename)))
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	info, err := os.Stat(path)
	if err != nil {
		return p.fail(result, ReasonLoadError, fmt.Errorf("stat: %w", err))
	}

	content, err := p.loaders.Load(ctx, path, filename)
	if err != nil {
		if errors.Is(err, loader.ErrUnsupported) {
			return p.fail(result, ReasonUnsupportedType, err)
		}
		return p.fail(result, p.reasonFor(ctx, ReasonLoadError), err)
	}
	result.Status = StatusLoaded
	if strings.TrimSpace(content) == "" {
		return p.fail(result, ReasonLoadError,
			fmt.Errorf("no extractable text content"))
	}

	// Replace any previous version of this filename before writing the new
	// one.
	if err := p.removeExisting(ctx, filename); err != nil {
		return p.fail(result, ReasonStoreError, err)
	}

	doc := document.Document{
		ID:        uuid.New().String(),
		Filename:  filename,
		FileSize:  info.Size(),
		FileType:  loader.Ext(filename),
		Category:  category.Classify(filename, content),
		AddedDate: time.Now().UTC(),
	}

	if doc.BackupPath, err = p.registry.SaveBackup(doc.ID, content); err != nil {
		return p.fail(result, ReasonStoreError, err)
	}

	texts := splitter.Compact(p.splitter.Split(content))
	if len(texts) == 0 {
		p.registry.RemoveBackup(doc.ID)
		return p.fail(result, ReasonLoadError,
			fmt.Errorf("no non-empty chunks produced"))
	}
	result.Status = StatusChunked
	p.logger.Debug("Chunked document", "filename", filename, "chunks", len(texts))

	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		p.registry.RemoveBackup(doc.ID)
		return p.fail(result, p.reasonFor(ctx, ReasonEmbeddingError), err)
	}

	doc.ChunkCount = len(texts)
	chunks := make([]document.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = document.Chunk{
			ID:        document.ChunkID(doc.ID, i),
			Text:      text,
			Embedding: embeddings[i],
			Metadata:  document.ChunkMetadata(doc, i, len(texts)),
		}
	}

	if err := p.store.Add(ctx, chunks); err != nil {
		p.registry.RemoveBackup(doc.ID)
		return p.fail(result, p.reasonFor(ctx, ReasonStoreError), err)
	}
	result.Status = StatusStored

	if err := p.registry.Register(ctx, doc); err != nil {
		p.registry.RemoveBackup(doc.ID)
		return p.fail(result, ReasonStoreError, err)
	}
	result.Status = StatusRegistered
	result.Document = doc

	p.logger.Info("Ingested document",
		"filename", filename,
		"category", doc.Category,
		"chunks", doc.ChunkCount,
	)
	return result
}

// ProcessBatch ingests files one at a time. Per-file failures are recorded
// in the results and processing continues; an unreachable store aborts the
// batch.
func (p *Pipeline) ProcessBatch(ctx context.Context, paths []string) ([]Result, error) {
	results := make([]Result, 0, len(paths))
	for _, path := range paths {
		result := p.Process(ctx, path)
		results = append(results, result)
		if result.Err != nil && errors.Is(result.Err, storage.ErrUnavailable) {
			return results, fmt.Errorf("vector store unavailable: %w", result.Err)
		}
	}
	return results, nil
}

// Reprocess rebuilds a registered document's chunks from its content
// backup, keeping its ID and re-running classification. Used when the
// classification rules change.
func (p *Pipeline) Reprocess(ctx context.Context, doc document.Document) (document.Document, error) {
	content, err := p.registry.ReadBackup(doc.ID)
	if err != nil {
		return doc, err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	doc.Category = category.Classify(doc.Filename, content)

	texts := splitter.Compact(p.splitter.Split(content))
	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return doc, fmt.Errorf("embedding %s: %w", doc.Filename, err)
	}

	if err := p.store.Delete(ctx, storage.ByDocument(doc.ID)); err != nil {
		return doc, fmt.Errorf("deleting old chunks for %s: %w", doc.Filename, err)
	}

	doc.ChunkCount = len(texts)
	chunks := make([]document.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = document.Chunk{
			ID:        document.ChunkID(doc.ID, i),
			Text:      text,
			Embedding: embeddings[i],
			Metadata:  document.ChunkMetadata(doc, i, len(texts)),
		}
	}
	if err := p.store.Add(ctx, chunks); err != nil {
		return doc, fmt.Errorf("storing chunks for %s: %w", doc.Filename, err)
	}

	if err := p.registry.Register(ctx, doc); err != nil {
		return doc, fmt.Errorf("updating registry for %s: %w", doc.Filename, err)
	}
	return doc, nil
}

// removeExisting deletes any prior version of filename from the store and
// registry.
func (p *Pipeline) removeExisting(ctx context.Context, filename string) error {
	existing, err := p.registry.GetByFilename(ctx, filename)
	if errors.Is(err, registry.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	p.logger.Info("Replacing existing document", "filename", filename, "id", existing.ID)
	if err := p.store.Delete(ctx, storage.ByDocument(existing.ID)); err != nil {
		return fmt.Errorf("deleting old chunks: %w", err)
	}
	return p.registry.Remove(ctx, existing.ID)
}

// reasonFor maps a context deadline hit to the timeout reason; otherwise
// returns fallback.
func (p *Pipeline) reasonFor(ctx context.Context, fallback Reason) Reason {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ReasonTimeout
	}
	return fallback
}

func (p *Pipeline) fail(result Result, reason Reason, err error) Result {
	result.Status = StatusFailed
	result.Reason = reason
	result.Err = err
	p.logger.Warn("Failed to process document",
		"filename", result.Filename,
		"reason", string(reason),
		"error", err,
	)
	return result
}
