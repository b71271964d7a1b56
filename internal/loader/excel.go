package loader

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Excel extracts text from spreadsheets. Like .docx, an .xlsx file is a ZIP
// archive of XML parts; cell values live in the first worksheet, with string
// cells indirected through a shared-strings table. The first row is treated
// as column headers and each column flattens to "Header:\nv1, v2, ...", so
// tabular data chunks into column-shaped runs of related values.
type Excel struct{}

// NewExcel creates the spreadsheet loader.
func NewExcel() *Excel {
	return &Excel{}
}

// Extensions returns the spreadsheet extension. Legacy binary .xls is not
// supported; only the OOXML format.
func (e *Excel) Extensions() []string {
	return []string{"xlsx"}
}

// Load unpacks the archive and flattens the first worksheet.
func (e *Excel) Load(_ context.Context, path string) (string, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open xlsx: %w", err)
	}
	defer reader.Close()

	var shared []string
	var sheetNames []string
	parts := make(map[string]*zip.File, len(reader.File))
	for _, file := range reader.File {
		parts[file.Name] = file
		if strings.HasPrefix(file.Name, "xl/worksheets/") && strings.HasSuffix(file.Name, ".xml") {
			sheetNames = append(sheetNames, file.Name)
		}
	}
	if len(sheetNames) == 0 {
		return "", fmt.Errorf("xlsx archive has no worksheets")
	}
	sort.Strings(sheetNames)

	if sst, ok := parts["xl/sharedStrings.xml"]; ok {
		if shared, err = parseSharedStrings(sst); err != nil {
			return "", err
		}
	}

	content, err := readZipPart(parts[sheetNames[0]])
	if err != nil {
		return "", err
	}
	return flattenSheet(content, shared)
}

func readZipPart(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file.Name, err)
	}
	return data, nil
}

// sharedStringsXML mirrors xl/sharedStrings.xml: each si is either a single
// text element or a sequence of formatted runs.
type sharedStringsXML struct {
	Items []struct {
		T    string `xml:"t"`
		Runs []struct {
			T string `xml:"t"`
		} `xml:"r"`
	} `xml:"si"`
}

func parseSharedStrings(file *zip.File) ([]string, error) {
	content, err := readZipPart(file)
	if err != nil {
		return nil, err
	}
	var sst sharedStringsXML
	if err := xml.Unmarshal(content, &sst); err != nil {
		return nil, fmt.Errorf("parse shared strings: %w", err)
	}

	out := make([]string, len(sst.Items))
	for i, item := range sst.Items {
		if len(item.Runs) == 0 {
			out[i] = item.T
			continue
		}
		var b strings.Builder
		for _, run := range item.Runs {
			b.WriteString(run.T)
		}
		out[i] = b.String()
	}
	return out, nil
}

// sheetXML mirrors the worksheet subset we care about: rows of cells, each
// with a reference, an optional type and a value.
type sheetXML struct {
	Rows []struct {
		Cells []struct {
			Ref  string `xml:"r,attr"`
			Type string `xml:"t,attr"`
			V    string `xml:"v"`
			Is   struct {
				T string `xml:"t"`
			} `xml:"is"`
		} `xml:"c"`
	} `xml:"sheetData>row"`
}

func flattenSheet(content []byte, shared []string) (string, error) {
	var sheet sheetXML
	if err := xml.Unmarshal(content, &sheet); err != nil {
		return "", fmt.Errorf("parse worksheet: %w", err)
	}

	var grid [][]string
	for _, row := range sheet.Rows {
		cells := make([]string, 0, len(row.Cells))
		for i, cell := range row.Cells {
			var value string
			switch cell.Type {
			case "s":
				idx, err := strconv.Atoi(cell.V)
				if err != nil || idx < 0 || idx >= len(shared) {
					continue
				}
				value = shared[idx]
			case "inlineStr":
				value = cell.Is.T
			default:
				value = cell.V
			}

			col := columnIndex(cell.Ref)
			if col < 0 {
				col = i
			}
			for len(cells) <= col {
				cells = append(cells, "")
			}
			cells[col] = value
		}
		grid = append(grid, cells)
	}
	if len(grid) == 0 {
		return "", nil
	}

	// First row names the columns; remaining rows are data.
	headers := grid[0]
	var sections []string
	for col, header := range headers {
		if strings.TrimSpace(header) == "" {
			continue
		}
		var values []string
		for _, row := range grid[1:] {
			if col < len(row) && strings.TrimSpace(row[col]) != "" {
				values = append(values, row[col])
			}
		}
		sections = append(sections, header+":\n"+strings.Join(values, ", "))
	}
	return strings.Join(sections, "\n"), nil
}

// columnIndex converts a cell reference like "B3" to its zero-based column
// number. Returns -1 when the reference is missing or malformed.
func columnIndex(ref string) int {
	if ref == "" {
		return -1
	}
	col := 0
	seen := false
	for _, r := range ref {
		if r < 'A' || r > 'Z' {
			break
		}
		col = col*26 + int(r-'A') + 1
		seen = true
	}
	if !seen {
		return -1
	}
	return col - 1
}
