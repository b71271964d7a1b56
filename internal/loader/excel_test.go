package loader

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
)

const xlsxSharedStrings = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" count="4" uniqueCount="4">
  <si><t>Name</t></si>
  <si><t>Role</t></si>
  <si><t>Ada</t></si>
  <si><r><t>Gr</t></r><r><t>ace</t></r></si>
</sst>`

const xlsxSheet = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
  <sheetData>
    <row r="1">
      <c r="A1" t="s"><v>0</v></c>
      <c r="B1" t="s"><v>1</v></c>
      <c r="C1" t="inlineStr"><is><t>Years</t></is></c>
    </row>
    <row r="2">
      <c r="A2" t="s"><v>2</v></c>
      <c r="B2" t="inlineStr"><is><t>Engineer</t></is></c>
      <c r="C2"><v>12</v></c>
    </row>
    <row r="3">
      <c r="A3" t="s"><v>3</v></c>
      <c r="C3"><v>40</v></c>
    </row>
  </sheetData>
</worksheet>`

func writeXlsx(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.xlsx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating fixture: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("creating archive entry: %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("writing archive entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing archive: %v", err)
	}
	return path
}

func TestExcel_Load(t *testing.T) {
	path := writeXlsx(t, map[string]string{
		"xl/sharedStrings.xml":     xlsxSharedStrings,
		"xl/worksheets/sheet1.xml": xlsxSheet,
	})

	content, err := NewExcel().Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := "Name:\nAda, Grace\nRole:\nEngineer\nYears:\n12, 40"
	if content != want {
		t.Errorf("Expected %q, got %q", want, content)
	}
}

func TestExcel_Load_NoWorksheets(t *testing.T) {
	path := writeXlsx(t, map[string]string{
		"xl/sharedStrings.xml": xlsxSharedStrings,
	})

	if _, err := NewExcel().Load(context.Background(), path); err == nil {
		t.Error("Expected error for archive without worksheets")
	}
}

func TestExcel_Load_NotAnArchive(t *testing.T) {
	path := writeFile(t, "fake.xlsx", "not a zip")

	if _, err := NewExcel().Load(context.Background(), path); err == nil {
		t.Error("Expected error for non-zip file")
	}
}
