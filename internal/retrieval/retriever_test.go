package retrieval

import (
	"context"
	"errors"
	"hash/fnv"
	"io"
	"log/slog"
	"testing"

	"github.com/bull/docbase/internal/document"
	"github.com/bull/docbase/internal/storage"
)

const fakeDims = 8

type fakeEmbedder struct {
	fail bool
}

func (f fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if f.fail {
		return nil, errors.New("embedding backend down")
	}
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

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedStore(t *testing.T, texts ...string) storage.VectorStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(t.TempDir(), fakeDims)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	embedder := fakeEmbedder{}
	for i, text := range texts {
		embedding, _ := embedder.Embed(context.Background(), text)
		err := store.Add(context.Background(), []document.Chunk{{
			ID:        document.ChunkID("doc", i),
			Text:      text,
			Embedding: embedding,
			Metadata:  map[string]string{document.MetaDocumentID: "doc"},
		}})
		if err != nil {
			t.Fatalf("seeding store: %v", err)
		}
	}
	return store
}

func TestRetrieve_RanksExactMatchFirst(t *testing.T) {
	store := seedStore(t, "the target passage", "unrelated filler text", "more noise")
	r := New(fakeEmbedder{}, store, discard())

	chunks := r.Retrieve(context.Background(), "the target passage", 3, nil)
	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}
	if chunks[0].Text != "the target passage" {
		t.Errorf("Expected exact match first, got %q", chunks[0].Text)
	}
	if chunks[0].Score < chunks[1].Score {
		t.Error("Results not ordered by score")
	}
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	store := seedStore(t, "content")
	r := New(fakeEmbedder{}, store, discard())

	chunks := r.Retrieve(context.Background(), "", 5, nil)
	if len(chunks) != 0 {
		t.Errorf("Expected empty result for empty query, got %d chunks", len(chunks))
	}
}

func TestRetrieve_EmptyStore(t *testing.T) {
	store := seedStore(t)
	r := New(fakeEmbedder{}, store, discard())

	chunks := r.Retrieve(context.Background(), "anything", 5, nil)
	if chunks == nil || len(chunks) != 0 {
		t.Errorf("Expected non-nil empty slice, got %v", chunks)
	}
}

// TestRetrieve_EmbedderFailureDegrades verifies a backend failure yields an
// empty result instead of an error.
func TestRetrieve_EmbedderFailureDegrades(t *testing.T) {
	store := seedStore(t, "content")
	r := New(fakeEmbedder{fail: true}, store, discard())

	chunks := r.Retrieve(context.Background(), "anything", 5, nil)
	if chunks == nil || len(chunks) != 0 {
		t.Errorf("Expected non-nil empty slice on failure, got %v", chunks)
	}
}

func TestRetrieve_DefaultK(t *testing.T) {
	store := seedStore(t, "a", "b", "c", "d", "e", "f", "g")
	r := New(fakeEmbedder{}, store, discard())

	chunks := r.Retrieve(context.Background(), "a", 0, nil)
	if len(chunks) != DefaultK {
		t.Errorf("Expected %d chunks with k=0, got %d", DefaultK, len(chunks))
	}
}
