package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// PDF extracts text from PDF files page by page via MuPDF.
type PDF struct{}

// NewPDF creates the PDF loader.
func NewPDF() *PDF {
	return &PDF{}
}

// Extensions returns the PDF extension.
func (p *PDF) Extensions() []string {
	return []string{"pdf"}
}

// Load opens the PDF and concatenates the text of every page. Pages that
// yield no text (scanned images) are skipped rather than failing the whole
// document.
func (p *PDF) Load(ctx context.Context, path string) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	var pages []string
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := doc.Text(i)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) != "" {
			pages = append(pages, text)
		}
	}

	return strings.Join(pages, "\n\n"), nil
}
