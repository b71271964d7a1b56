// Package loader extracts plain text from uploaded files. Each format is a
// Loader registered by file extension; the pipeline never needs to know
// which formats exist.
package loader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupported is returned when no loader is registered for a file's
// extension.
var ErrUnsupported = errors.New("unsupported file format")

// Loader extracts the text content of a single file format.
type Loader interface {
	// Extensions returns the lower-cased extensions (without dot) this
	// loader handles.
	Extensions() []string

	// Load reads the file at path and returns its extracted plain text.
	Load(ctx context.Context, path string) (string, error)
}

// Registry dispatches files to loaders by extension.
type Registry struct {
	byExt map[string]Loader
}

// NewRegistry builds a registry from the given loaders. Later loaders win
// when extensions collide.
func NewRegistry(loaders ...Loader) *Registry {
	r := &Registry{byExt: make(map[string]Loader)}
	for _, l := range loaders {
		for _, ext := range l.Extensions() {
			r.byExt[ext] = l
		}
	}
	return r
}

// Default returns a registry with every built-in loader registered.
func Default() *Registry {
	return NewRegistry(
		NewText(),
		NewMarkdown(),
		NewPDF(),
		NewDocx(),
		NewExcel(),
	)
}

// Supported reports whether a loader is registered for the filename's
// extension.
func (r *Registry) Supported(filename string) bool {
	_, ok := r.byExt[Ext(filename)]
	return ok
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	return exts
}

// Load extracts text from the file at path, dispatching on filename's
// extension. Returns ErrUnsupported when no loader matches.
func (r *Registry) Load(ctx context.Context, path, filename string) (string, error) {
	ext := Ext(filename)
	l, ok := r.byExt[ext]
	if !ok {
		return "", fmt.Errorf("%w: .%s", ErrUnsupported, ext)
	}
	return l.Load(ctx, path)
}

// Ext returns the lower-cased extension of filename without the leading dot.
func Ext(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}
