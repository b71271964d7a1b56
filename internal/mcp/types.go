// Package mcp exposes the document collection over the Model Context
// Protocol.
package mcp

import "time"

// SearchInput defines the input parameters for the search_documents tool.
type SearchInput struct {
	// Query is the semantic search query.
	Query string `json:"query" jsonschema:"required,description=The semantic search query for finding relevant document chunks"`
	// MaxResults is the maximum number of chunks to return.
	MaxResults int `json:"max_results,omitempty" jsonschema:"minimum=1,maximum=20,default=5,description=Maximum number of chunks to return"`
	// Category restricts results to documents in one category.
	Category string `json:"category,omitempty" jsonschema:"description=Restrict results to documents in this category"`
	// Filename restricts results to chunks of one document.
	Filename string `json:"filename,omitempty" jsonschema:"description=Restrict results to chunks of this document"`
}

// SearchOutput contains the search results.
type SearchOutput struct {
	// Results is the list of matching chunks, best match first.
	Results []SearchResult `json:"results"`
	// Message provides informational context (e.g., "No matching chunks found").
	Message string `json:"message,omitempty"`
}

// SearchResult represents a single chunk match from semantic search.
type SearchResult struct {
	// Content is the chunk text.
	Content string `json:"content"`
	// Score is the similarity score (0-1, 1 means identical).
	Score float64 `json:"score"`
	// Filename is the source document.
	Filename string `json:"filename"`
	// Category is the source document's category.
	Category string `json:"category"`
	// ChunkIndex is the chunk's position within its document.
	ChunkIndex string `json:"chunk_index"`
}

// GetDocumentInput defines the input parameters for the get_document tool.
type GetDocumentInput struct {
	// Filename is the document to retrieve (e.g., "safety_manual.pdf").
	Filename string `json:"filename" jsonschema:"required,description=The filename of the document to retrieve"`
}

// GetDocumentOutput contains the retrieved document.
type GetDocumentOutput struct {
	// Content is the full extracted text content.
	Content string `json:"content"`
	// Filename is the document's filename.
	Filename string `json:"filename"`
	// Category is the assigned category.
	Category string `json:"category"`
	// AddedDate is when the document was ingested.
	AddedDate time.Time `json:"added_date"`
	// Found indicates whether the document exists.
	Found bool `json:"found"`
}

// ListDocumentsInput defines the input parameters for the list_documents
// tool. This tool takes no parameters.
type ListDocumentsInput struct {
	// No input parameters required
}

// DocumentInfo summarizes one registered document.
type DocumentInfo struct {
	Filename   string    `json:"filename"`
	Category   string    `json:"category"`
	FileType   string    `json:"file_type"`
	FileSize   int64     `json:"file_size"`
	ChunkCount int       `json:"chunk_count"`
	AddedDate  time.Time `json:"added_date"`
}

// ListDocumentsOutput contains all registered documents.
type ListDocumentsOutput struct {
	// Documents lists every registered document.
	Documents []DocumentInfo `json:"documents"`
	// Count is the total number of documents.
	Count int `json:"count"`
}

// ListCategoriesInput defines the input parameters for the list_categories
// tool. This tool takes no parameters.
type ListCategoriesInput struct {
	// No input parameters required
}

// CategoryInfo pairs a category with its document count.
type CategoryInfo struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ListCategoriesOutput contains the category taxonomy with counts.
type ListCategoriesOutput struct {
	Categories []CategoryInfo `json:"categories"`
}
