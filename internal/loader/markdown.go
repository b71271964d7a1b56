package loader

import (
	"context"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// Markdown loads markdown files section by section. Each H1/H2 section is
// emitted with its header hierarchy ("# Guide > ## Setup") on the first
// line, so chunks cut from the flattened text stay attributable to their
// section when they surface in retrieval results.
type Markdown struct {
	parser goldmark.Markdown
}

// NewMarkdown creates the markdown loader.
func NewMarkdown() *Markdown {
	return &Markdown{
		parser: goldmark.New(
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
		),
	}
}

// Extensions returns the markdown extensions.
func (m *Markdown) Extensions() []string {
	return []string{"md", "markdown"}
}

// Load reads a markdown file and returns its text flattened into
// paragraph-separated sections.
func (m *Markdown) Load(_ context.Context, path string) (string, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return m.flatten(source)
}

// flatten renders the document as plain text with header paths preserved.
func (m *Markdown) flatten(source []byte) (string, error) {
	doc := m.parser.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(2),
		toc.Compact(true),
	)
	if err != nil {
		return "", err
	}

	// No headers: the document is a single unnamed section.
	if len(tree.Items) == 0 {
		return strings.TrimSpace(string(source)), nil
	}

	var sections []string
	m.collectSections(doc, source, tree.Items, nil, &sections)
	return strings.Join(sections, "\n\n"), nil
}

// collectSections walks the TOC tree depth-first, emitting one section per
// heading with its ancestor path prepended.
func (m *Markdown) collectSections(doc ast.Node, source []byte, items toc.Items, ancestors []string, out *[]string) {
	for i, item := range items {
		path := append(ancestors, string(item.Title))
		heading := headingByID(doc, string(item.ID))
		if heading == nil {
			continue
		}

		start := heading.Lines().At(0)
		var end text.Segment
		if i+1 < len(items) {
			if next := headingByID(doc, string(items[i+1].ID)); next != nil {
				end = next.Lines().At(0)
			}
		} else {
			end = nextBoundary(doc, heading, heading.(*ast.Heading).Level)
		}

		body := sliceSource(source, start, end)
		*out = append(*out, headerPath(path)+"\n\n"+body)

		if len(item.Items) > 0 {
			m.collectSections(doc, source, item.Items, path, out)
		}
	}
}

// headerPath renders a heading ancestry as "# A > ## B".
func headerPath(path []string) string {
	parts := make([]string, len(path))
	for i, title := range path {
		parts[i] = strings.Repeat("#", i+1) + " " + title
	}
	return strings.Join(parts, " > ")
}

// headingByID finds the heading node carrying the auto-generated ID.
func headingByID(root ast.Node, id string) ast.Node {
	var found ast.Node
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == ast.KindHeading {
			if attr, ok := n.AttributeString("id"); ok && string(attr.([]byte)) == id {
				found = n
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}

// nextBoundary finds the first heading after current at the same or a higher
// level. A zero segment means the section runs to end of document.
func nextBoundary(root, current ast.Node, level int) text.Segment {
	var boundary ast.Node
	passed := false
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != ast.KindHeading {
			return ast.WalkContinue, nil
		}
		if !passed {
			if n == current {
				passed = true
			}
			return ast.WalkContinue, nil
		}
		if n.(*ast.Heading).Level <= level {
			boundary = n
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if boundary != nil {
		return boundary.Lines().At(0)
	}
	return text.Segment{}
}

// sliceSource extracts the raw text between two line segments.
func sliceSource(source []byte, start, end text.Segment) string {
	if end.Start == 0 && end.Stop == 0 {
		return strings.TrimSpace(string(source[start.Start:]))
	}
	return strings.TrimSpace(string(source[start.Start:end.Start]))
}
