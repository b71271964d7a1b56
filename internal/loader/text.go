package loader

import (
	"context"
	"os"
	"strings"
	"unicode/utf8"
)

// Text loads plain-text family files verbatim.
type Text struct{}

// NewText creates the plain text loader.
func NewText() *Text {
	return &Text{}
}

// Extensions returns the plain-text extensions.
func (t *Text) Extensions() []string {
	return []string{"txt", "text", "log", "csv"}
}

// Load reads the whole file. Invalid UTF-8 sequences are replaced so the
// downstream chunker and embedder always see valid text.
func (t *Text) Load(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}
