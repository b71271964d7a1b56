// Package splitter divides document text into overlapping fixed-size chunks.
//
// The splitter is boundary-aware: within each chunk window it prefers cutting
// at a paragraph break, then a sentence break, then a word break, and only
// hard-cuts mid-word when no natural boundary falls inside the window. This
// keeps semantic units intact at chunk edges, which matters for retrieval
// quality.
package splitter

import (
	"fmt"
	"strings"
)

// Defaults matching the ingestion contract.
const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// separators tried in preference order when looking for a cut point.
var separators = []string{"\n\n", "\n", ". ", " "}

// Splitter produces overlapping chunks of at most chunkSize characters.
// It is stateless and safe for concurrent use.
type Splitter struct {
	chunkSize int
	overlap   int
}

// New creates a splitter. overlap must satisfy 0 <= overlap < chunkSize.
func New(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap %d must be in [0, chunk size %d)", overlap, chunkSize)
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}, nil
}

// Split divides text into chunks. Consecutive chunks share the trailing
// overlap region, and the union of all chunk windows covers the input, so
// concatenating chunks minus overlaps reproduces the original text. Every
// chunk is at most chunkSize characters.
func (s *Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= s.chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for {
		end := start + s.chunkSize
		if end >= len(text) {
			chunks = append(chunks, text[start:len(text)])
			break
		}

		end = s.cutPoint(text, start, end)
		chunks = append(chunks, text[start:end])
		start = end - s.overlap
	}
	return chunks
}

// cutPoint picks the best boundary in (minEnd, end]. The lower bound keeps
// chunks from degenerating and guarantees forward progress even with large
// overlaps.
func (s *Splitter) cutPoint(text string, start, end int) int {
	minEnd := start + s.chunkSize/2
	if minEnd <= start+s.overlap {
		minEnd = start + s.overlap + 1
	}

	window := text[minEnd:end]
	for _, sep := range separators {
		if i := strings.LastIndex(window, sep); i >= 0 {
			// Cut after the separator so no text is lost between chunks.
			return minEnd + i + len(sep)
		}
	}
	// No natural boundary inside the window: hard cut.
	return end
}

// Compact drops chunks that are empty or whitespace-only. Embedding
// backends reject empty inputs.
func Compact(chunks []string) []string {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out
}
