package corpus

import (
	"context"
	"hash/fnv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docbase/internal/category"
	"github.com/bull/docbase/internal/document"
	"github.com/bull/docbase/internal/ingest"
	"github.com/bull/docbase/internal/loader"
	"github.com/bull/docbase/internal/registry"
	"github.com/bull/docbase/internal/retrieval"
	"github.com/bull/docbase/internal/splitter"
	"github.com/bull/docbase/internal/storage"
)

const fakeDims = 8

type fakeEmbedder struct{}

func (f fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		h := fnv.New64a()
		h.Write([]byte(text))
		sum := h.Sum64()
		v := make([]float32, fakeDims)
		for d := 0; d < fakeDims; d++ {
			v[d] = float32((sum>>(8*d))&0xff) + 1
		}
		out[i] = v
	}
	return out, nil
}

func (f fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func (f fakeEmbedder) Dimensions() int   { return fakeDims }
func (f fakeEmbedder) ModelName() string { return "fake" }

type managerEnv struct {
	manager *Manager
	store   storage.VectorStore
	reg     *registry.Registry
	dir     string
}

func newManagerEnv(t *testing.T) *managerEnv {
	t.Helper()

	store, err := storage.NewSQLiteStore(t.TempDir(), fakeDims)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	reg, err := registry.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })

	split, err := splitter.New(200, 40)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	embedder := fakeEmbedder{}
	pipeline := ingest.New(loader.Default(), split, embedder, store, reg, logger, 0)
	retriever := retrieval.New(embedder, store, logger)

	return &managerEnv{
		manager: New(pipeline, store, reg, retriever, embedder, logger),
		store:   store,
		reg:     reg,
		dir:     t.TempDir(),
	}
}

func (e *managerEnv) ingest(t *testing.T, name, content string) document.Document {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	result := e.manager.ProcessDocument(context.Background(), path)
	require.NoError(t, result.Err)
	require.True(t, result.Succeeded())
	return result.Document
}

func TestManager_RelevantChunks(t *testing.T) {
	env := newManagerEnv(t)
	ctx := context.Background()

	env.ingest(t, "apples.txt", "a treatise on apples")
	env.ingest(t, "bolts.txt", "industrial fastener torque tables")

	// The fake embedder maps identical text to identical vectors, so
	// querying with an ingested chunk's exact text must rank it first.
	chunks := env.manager.RelevantChunks(ctx, "a treatise on apples", 2, nil)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "a treatise on apples", chunks[0].Text)
	assert.Equal(t, "apples.txt", chunks[0].Metadata[document.MetaFilename])
	assert.InDelta(t, 1.0, chunks[0].Score, 1e-6)
}

func TestManager_DeleteDocument(t *testing.T) {
	env := newManagerEnv(t)
	ctx := context.Background()

	doc := env.ingest(t, "doomed.txt", strings.Repeat("disposable text here. ", 20))
	env.ingest(t, "keeper.txt", "text that stays")

	require.NoError(t, env.manager.DeleteDocument(ctx, "doomed.txt"))

	docs, err := env.manager.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "keeper.txt", docs[0].Filename)

	chunks, err := env.store.Get(ctx, storage.ByDocument(doc.ID))
	require.NoError(t, err)
	assert.Empty(t, chunks)

	assert.ErrorIs(t, env.manager.DeleteDocument(ctx, "doomed.txt"), registry.ErrNotFound)
}

func TestManager_ClearAll(t *testing.T) {
	env := newManagerEnv(t)
	ctx := context.Background()

	env.ingest(t, "one.txt", "first document")
	env.ingest(t, "two.txt", "second document")

	require.NoError(t, env.manager.ClearAll(ctx))

	docs, err := env.manager.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)

	count, err := env.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

// TestManager_ListDocuments_RepairsOrphans verifies listing deletes chunks
// whose document is not registered and drops records with no chunks.
func TestManager_ListDocuments_RepairsOrphans(t *testing.T) {
	env := newManagerEnv(t)
	ctx := context.Background()

	env.ingest(t, "healthy.txt", "all accounted for")

	// Orphan chunks: present in the store, absent from the registry.
	require.NoError(t, env.store.Add(ctx, []document.Chunk{{
		ID:        "ghost_chunk_0",
		Text:      "orphaned",
		Embedding: make([]float32, fakeDims),
		Metadata:  map[string]string{document.MetaDocumentID: "ghost"},
	}}))

	// Zero-chunk record: registered but nothing in the store.
	require.NoError(t, env.reg.Register(ctx, document.Document{
		ID:       "hollow",
		Filename: "hollow.txt",
		FileType: "txt",
		Category: category.Miscellaneous,
	}))

	docs, err := env.manager.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "healthy.txt", docs[0].Filename)

	orphans, err := env.store.Get(ctx, storage.ByDocument("ghost"))
	require.NoError(t, err)
	assert.Empty(t, orphans)

	_, err = env.reg.Get(ctx, "hollow")
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestManager_Categories(t *testing.T) {
	env := newManagerEnv(t)
	ctx := context.Background()

	env.ingest(t, "quarterly_report.txt", "numbers went up")
	env.ingest(t, "random_notes.txt", "just some thoughts")

	counts, err := env.manager.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, counts, len(category.All()))

	byName := make(map[string]int)
	for _, c := range counts {
		byName[c.Name] = c.Count
	}
	assert.Equal(t, 1, byName["Reports & Analysis"])
	assert.Equal(t, 1, byName[category.Miscellaneous])
	assert.Equal(t, 0, byName["Medical & Healthcare"])
}

func TestManager_DocumentContent(t *testing.T) {
	env := newManagerEnv(t)
	ctx := context.Background()

	env.ingest(t, "notes.txt", "the original extracted text")

	content, err := env.manager.DocumentContent(ctx, "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "the original extracted text", content)

	_, err = env.manager.DocumentContent(ctx, "missing.txt")
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestManager_ReclassifyAll(t *testing.T) {
	env := newManagerEnv(t)
	ctx := context.Background()

	doc := env.ingest(t, "random_notes.txt", "just some thoughts")
	require.Equal(t, category.Miscellaneous, doc.Category)

	// Simulate a stale label left by an older rule set.
	require.NoError(t, env.reg.UpdateCategory(ctx, doc.ID, "Obsolete Category"))

	changed, err := env.manager.ReclassifyAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	updated, err := env.manager.Document(ctx, "random_notes.txt")
	require.NoError(t, err)
	assert.Equal(t, category.Miscellaneous, updated.Category)
}

func TestManager_Health(t *testing.T) {
	env := newManagerEnv(t)
	ctx := context.Background()

	env.ingest(t, "one.txt", "a document")

	stats, err := env.manager.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, 1, stats.Chunks)
	assert.Equal(t, "fake", stats.EmbeddingModel)
	assert.Equal(t, fakeDims, stats.Dimensions)
}
