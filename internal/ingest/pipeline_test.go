package ingest

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docbase/internal/document"
	"github.com/bull/docbase/internal/loader"
	"github.com/bull/docbase/internal/registry"
	"github.com/bull/docbase/internal/splitter"
	"github.com/bull/docbase/internal/storage"
)

const fakeDims = 8

// fakeEmbedder derives a deterministic vector from the text itself, so
// identical text always embeds identically without any external service.
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

type testEnv struct {
	pipeline *Pipeline
	store    storage.VectorStore
	registry *registry.Registry
	dir      string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := storage.NewSQLiteStore(t.TempDir(), fakeDims)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	reg, err := registry.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })

	pipeline := New(loader.Default(), newSplitter(t), fakeEmbedder{}, store, reg, discardLogger(), 0)

	return &testEnv{pipeline: pipeline, store: store, registry: reg, dir: t.TempDir()}
}

func newSplitter(t *testing.T) *splitter.Splitter {
	t.Helper()
	split, err := splitter.New(200, 40)
	require.NoError(t, err)
	return split
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (e *testEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestProcess_Success(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	content := strings.Repeat("The quarterly report covers revenue. ", 20)
	path := env.writeFile(t, "quarterly_report.txt", content)

	result := env.pipeline.Process(ctx, path)
	require.NoError(t, result.Err)
	assert.Equal(t, StatusRegistered, result.Status)
	assert.True(t, result.Succeeded())

	doc := result.Document
	assert.Equal(t, "quarterly_report.txt", doc.Filename)
	assert.Equal(t, "txt", doc.FileType)
	assert.Equal(t, "Reports & Analysis", doc.Category)
	assert.Equal(t, int64(len(content)), doc.FileSize)
	assert.Greater(t, doc.ChunkCount, 1)

	// Registry record matches.
	registered, err := env.registry.GetByFilename(ctx, "quarterly_report.txt")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, registered.ID)

	// Content backup holds the extracted text.
	backup, err := env.registry.ReadBackup(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, content, backup)

	// Chunks carry deterministic IDs and denormalized metadata.
	chunks, err := env.store.Get(ctx, storage.ByDocument(doc.ID))
	require.NoError(t, err)
	require.Len(t, chunks, doc.ChunkCount)
	for i, chunk := range chunks {
		assert.Equal(t, fmt.Sprintf("%s_chunk_%d", doc.ID, i), chunk.ID)
		assert.Equal(t, "quarterly_report.txt", chunk.Metadata[document.MetaFilename])
		assert.Equal(t, "Reports & Analysis", chunk.Metadata[document.MetaCategory])
		assert.Equal(t, fmt.Sprintf("%d", i), chunk.Metadata[document.MetaChunkIndex])
		assert.Equal(t, fmt.Sprintf("%d", doc.ChunkCount), chunk.Metadata[document.MetaTotalCount])
		assert.NotEmpty(t, chunk.Metadata[document.MetaAddedDate])
		assert.Equal(t, doc.BackupPath, chunk.Metadata[document.MetaBackupPath])
	}
}

func TestProcess_UnsupportedType(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "binary.exe", "not a document")

	result := env.pipeline.Process(context.Background(), path)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, ReasonUnsupportedType, result.Reason)
	assert.Error(t, result.Err)
}

func TestProcess_MissingFile(t *testing.T) {
	env := newTestEnv(t)

	result := env.pipeline.Process(context.Background(), filepath.Join(env.dir, "ghost.txt"))
	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, ReasonLoadError, result.Reason)
}

func TestProcess_EmptyFile(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "empty.txt", "   \n\t ")

	result := env.pipeline.Process(context.Background(), path)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, ReasonLoadError, result.Reason)
}

// TestProcess_ReuploadReplaces verifies ingesting the same filename again
// replaces the old version: new document ID, old chunks gone.
func TestProcess_ReuploadReplaces(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	path := env.writeFile(t, "notes.txt", strings.Repeat("version one of the notes. ", 20))
	first := env.pipeline.Process(ctx, path)
	require.True(t, first.Succeeded())

	path = env.writeFile(t, "notes.txt", "version two")
	second := env.pipeline.Process(ctx, path)
	require.True(t, second.Succeeded())
	assert.NotEqual(t, first.Document.ID, second.Document.ID)

	docs, err := env.registry.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, second.Document.ID, docs[0].ID)

	oldChunks, err := env.store.Get(ctx, storage.ByDocument(first.Document.ID))
	require.NoError(t, err)
	assert.Empty(t, oldChunks)

	count, err := env.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.Document.ChunkCount, count)

	// Old content backup is gone too.
	_, err = env.registry.ReadBackup(first.Document.ID)
	assert.Error(t, err)
}

func TestProcessBatch_ContinuesPastFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	good := env.writeFile(t, "good.txt", "perfectly fine content")
	bad := env.writeFile(t, "bad.exe", "nope")

	results, err := env.pipeline.ProcessBatch(ctx, []string{bad, good})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, StatusFailed, results[0].Status)
	assert.True(t, results[1].Succeeded())
}

// unavailableStore rejects every write the way a store with an unreachable
// backend does.
type unavailableStore struct {
	storage.VectorStore
}

func (s unavailableStore) Add(context.Context, []document.Chunk) error {
	return fmt.Errorf("adding chunks: %w", storage.ErrUnavailable)
}

func TestProcessBatch_AbortsWhenStoreUnavailable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pipeline := New(loader.Default(), newSplitter(t), fakeEmbedder{},
		unavailableStore{env.store}, env.registry, discardLogger(), 0)

	first := env.writeFile(t, "first.txt", "some content")
	second := env.writeFile(t, "second.txt", "more content")

	results, err := pipeline.ProcessBatch(ctx, []string{first, second})
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrUnavailable)

	// The batch stops after the first failure; the second file is never
	// attempted.
	require.Len(t, results, 1)
	assert.Equal(t, StatusFailed, results[0].Status)
	assert.Equal(t, ReasonStoreError, results[0].Reason)
}

// stallingEmbedder never answers, standing in for a hung inference call.
type stallingEmbedder struct {
	fakeEmbedder
}

func (stallingEmbedder) EmbedBatch(ctx context.Context, _ []string) ([][]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestProcess_TimeoutFailsWithTimeoutReason(t *testing.T) {
	env := newTestEnv(t)

	pipeline := New(loader.Default(), newSplitter(t), stallingEmbedder{},
		env.store, env.registry, discardLogger(), 20*time.Millisecond)

	path := env.writeFile(t, "slow.txt", "content that never gets embedded")
	result := pipeline.Process(context.Background(), path)

	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, ReasonTimeout, result.Reason)
	assert.ErrorIs(t, result.Err, context.DeadlineExceeded)
}

// failingRegistrar rejects the final registry write while recording which
// backup the pipeline saved.
type failingRegistrar struct {
	*registry.Registry
	savedBackupID string
}

func (f *failingRegistrar) SaveBackup(id, content string) (string, error) {
	f.savedBackupID = id
	return f.Registry.SaveBackup(id, content)
}

func (f *failingRegistrar) Register(context.Context, document.Document) error {
	return fmt.Errorf("registry write rejected")
}

func TestProcess_RegisterFailureRemovesBackup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	reg := &failingRegistrar{Registry: env.registry}
	pipeline := New(loader.Default(), newSplitter(t), fakeEmbedder{},
		env.store, reg, discardLogger(), 0)

	path := env.writeFile(t, "doomed.txt", "content that never registers")
	result := pipeline.Process(ctx, path)

	assert.Equal(t, StatusFailed, result.Status)
	assert.Equal(t, ReasonStoreError, result.Reason)

	// The content backup written earlier in the pipeline is reclaimed.
	require.NotEmpty(t, reg.savedBackupID)
	_, err := env.registry.ReadBackup(reg.savedBackupID)
	assert.ErrorIs(t, err, registry.ErrNotFound)

	docs, err := env.registry.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestReprocess_KeepsDocumentID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	path := env.writeFile(t, "notes.txt", strings.Repeat("some plain notes. ", 30))
	result := env.pipeline.Process(ctx, path)
	require.True(t, result.Succeeded())

	updated, err := env.pipeline.Reprocess(ctx, result.Document)
	require.NoError(t, err)
	assert.Equal(t, result.Document.ID, updated.ID)
	assert.Equal(t, result.Document.ChunkCount, updated.ChunkCount)

	chunks, err := env.store.Get(ctx, storage.ByDocument(updated.ID))
	require.NoError(t, err)
	assert.Len(t, chunks, updated.ChunkCount)
}
