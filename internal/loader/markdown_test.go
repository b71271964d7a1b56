package loader

import (
	"strings"
	"testing"
)

// TestMarkdown_Flatten_BasicHeaders verifies each H1/H2 section appears with
// its header hierarchy prepended.
func TestMarkdown_Flatten_BasicHeaders(t *testing.T) {
	input := `# Getting Started

Introduction text here.

## Installation

Install steps here.

## Configuration

Config details here.
`

	content, err := NewMarkdown().flatten([]byte(input))
	if err != nil {
		t.Fatalf("flatten failed: %v", err)
	}

	for _, want := range []string{
		"# Getting Started",
		"# Getting Started > ## Installation",
		"# Getting Started > ## Configuration",
		"Introduction text here",
		"Install steps here",
		"Config details here",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("Flattened output missing %q", want)
		}
	}
}

// TestMarkdown_Flatten_NestedContent verifies H3 subsections stay inside
// their H2 section rather than splitting it.
func TestMarkdown_Flatten_NestedContent(t *testing.T) {
	input := `# API Reference

Overview of the API.

## Methods

Available methods.

### Details

Some details here.
`

	content, err := NewMarkdown().flatten([]byte(input))
	if err != nil {
		t.Fatalf("flatten failed: %v", err)
	}

	if strings.Contains(content, "## Methods > ### Details") {
		t.Error("H3 should not be a section boundary")
	}
	if !strings.Contains(content, "Some details here") {
		t.Error("H3 content missing from output")
	}
}

// TestMarkdown_Flatten_NoHeaders verifies a headerless document passes
// through as one section.
func TestMarkdown_Flatten_NoHeaders(t *testing.T) {
	input := "This is a document with no headers.\n\nJust plain text content.\n"

	content, err := NewMarkdown().flatten([]byte(input))
	if err != nil {
		t.Fatalf("flatten failed: %v", err)
	}

	if !strings.Contains(content, "This is a document with no headers") {
		t.Error("Content missing from output")
	}
	if strings.Contains(content, ">") {
		t.Errorf("Unexpected header path in headerless document: %q", content)
	}
}

// TestMarkdown_Flatten_MultipleH1s verifies each top-level section keeps its
// own hierarchy.
func TestMarkdown_Flatten_MultipleH1s(t *testing.T) {
	input := `# First Section

First content.

## First Subsection

First subsection content.

# Second Section

Second content.
`

	content, err := NewMarkdown().flatten([]byte(input))
	if err != nil {
		t.Fatalf("flatten failed: %v", err)
	}

	for _, want := range []string{
		"# First Section > ## First Subsection",
		"# Second Section",
		"Second content",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("Flattened output missing %q", want)
		}
	}
	if strings.Contains(content, "# Second Section > ") {
		t.Error("Second H1 should start a fresh hierarchy")
	}
}
