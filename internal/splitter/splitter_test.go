package splitter

import (
	"strings"
	"testing"
)

func TestNew_Validation(t *testing.T) {
	if _, err := New(0, 0); err == nil {
		t.Error("Expected error for zero chunk size")
	}
	if _, err := New(100, 100); err == nil {
		t.Error("Expected error for overlap equal to chunk size")
	}
	if _, err := New(100, -1); err == nil {
		t.Error("Expected error for negative overlap")
	}
	if _, err := New(100, 20); err != nil {
		t.Errorf("Valid configuration rejected: %v", err)
	}
}

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	s, _ := New(DefaultChunkSize, DefaultOverlap)

	chunks := s.Split("short text")
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "short text" {
		t.Errorf("Chunk altered the input: %q", chunks[0])
	}
}

func TestSplit_EmptyText(t *testing.T) {
	s, _ := New(DefaultChunkSize, DefaultOverlap)
	if chunks := s.Split(""); len(chunks) != 0 {
		t.Errorf("Expected no chunks for empty input, got %d", len(chunks))
	}
}

// TestSplit_ChunkCount verifies a 2500-character document at the default
// 1000/200 settings yields 3 chunks.
func TestSplit_ChunkCount(t *testing.T) {
	text := strings.Repeat("word ", 500) // 2500 chars
	s, _ := New(DefaultChunkSize, DefaultOverlap)

	chunks := s.Split(text)
	if len(chunks) != 3 {
		t.Errorf("Expected 3 chunks, got %d", len(chunks))
	}
}

func TestSplit_SizeBound(t *testing.T) {
	text := strings.Repeat("Lorem ipsum dolor sit amet. ", 200)
	s, _ := New(300, 50)

	for i, chunk := range s.Split(text) {
		if len(chunk) > 300 {
			t.Errorf("Chunk %d exceeds size bound: %d chars", i, len(chunk))
		}
		if chunk == "" {
			t.Errorf("Chunk %d is empty", i)
		}
	}
}

// TestSplit_Coverage verifies no text is lost: every chunk is a substring
// of the input and the chunk windows cover the whole document in order.
func TestSplit_Coverage(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 60)
	s, _ := New(400, 80)

	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}

	// Each chunk starts exactly overlap characters before the previous
	// chunk's end, so reassembling them reproduces the input.
	pos := 0
	for i, chunk := range chunks {
		start := pos
		if i > 0 {
			start = pos - 80
		}
		if start+len(chunk) > len(text) || text[start:start+len(chunk)] != chunk {
			t.Fatalf("Chunk %d does not match input at position %d", i, start)
		}
		pos = start + len(chunk)
	}
	if pos != len(text) {
		t.Errorf("Chunks cover %d of %d characters", pos, len(text))
	}
}

// TestSplit_Overlap verifies consecutive chunks share the configured
// overlap region.
func TestSplit_Overlap(t *testing.T) {
	text := strings.Repeat("abcdefghij", 300) // no natural boundaries
	s, _ := New(1000, 200)

	chunks := s.Split(text)
	for i := 1; i < len(chunks); i++ {
		prevTail := chunks[i-1][len(chunks[i-1])-200:]
		if !strings.HasPrefix(chunks[i], prevTail) {
			t.Errorf("Chunk %d does not start with the previous chunk's tail", i)
		}
	}
}

func TestSplit_PrefersParagraphBoundary(t *testing.T) {
	para := strings.Repeat("x", 600)
	text := para + "\n\n" + para
	s, _ := New(1000, 100)

	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("Expected at least 2 chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], "\n\n") {
		t.Errorf("First chunk should cut after the paragraph break, ends %q",
			chunks[0][len(chunks[0])-5:])
	}
}

func TestCompact(t *testing.T) {
	in := []string{"keep", "   ", "", "\n\t", "also keep"}
	out := Compact(in)
	if len(out) != 2 || out[0] != "keep" || out[1] != "also keep" {
		t.Errorf("Compact returned %v", out)
	}
}
