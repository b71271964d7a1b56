package loader

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
)

const docxBody = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`

func writeDocx(t *testing.T, bodyXML string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating fixture: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("creating archive entry: %v", err)
	}
	if _, err := w.Write([]byte(bodyXML)); err != nil {
		t.Fatalf("writing archive entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing archive: %v", err)
	}
	return path
}

func TestDocx_Load(t *testing.T) {
	path := writeDocx(t, docxBody)

	content, err := NewDocx().Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := "First paragraph.\nSecond paragraph."
	if content != want {
		t.Errorf("Expected %q, got %q", want, content)
	}
}

func TestDocx_Load_MissingBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.docx")
	f, _ := os.Create(path)
	zw := zip.NewWriter(f)
	zw.Close()
	f.Close()

	if _, err := NewDocx().Load(context.Background(), path); err == nil {
		t.Error("Expected error for archive without document body")
	}
}

func TestDocx_Load_NotAnArchive(t *testing.T) {
	path := writeFile(t, "fake.docx", "not a zip")

	if _, err := NewDocx().Load(context.Background(), path); err == nil {
		t.Error("Expected error for non-zip file")
	}
}
