package loader

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Docx extracts text from Word documents. A .docx file is a ZIP archive;
// the document body lives in word/document.xml as runs of text grouped
// into paragraphs.
type Docx struct{}

// NewDocx creates the Word document loader.
func NewDocx() *Docx {
	return &Docx{}
}

// Extensions returns the Word extension.
func (d *Docx) Extensions() []string {
	return []string{"docx"}
}

// Load unpacks the archive and flattens the document body into
// newline-separated paragraphs.
func (d *Docx) Load(_ context.Context, path string) (string, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("read docx body: %w", err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read docx body: %w", err)
		}
		return parseBody(content)
	}

	return "", fmt.Errorf("docx archive has no word/document.xml")
}

// bodyXML mirrors the subset of word/document.xml we care about: paragraphs
// containing runs containing text elements.
type bodyXML struct {
	Body struct {
		Paragraphs []struct {
			Runs []struct {
				Text []struct {
					Content string `xml:",chardata"`
				} `xml:"t"`
			} `xml:"r"`
		} `xml:"p"`
	} `xml:"body"`
}

func parseBody(content []byte) (string, error) {
	var doc bodyXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", fmt.Errorf("parse docx body: %w", err)
	}

	var b strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			b.WriteString("\n")
		}
		for _, run := range para.Runs {
			for _, t := range run.Text {
				b.WriteString(t.Content)
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}
