package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/docbase/internal/corpus"
	"github.com/bull/docbase/internal/document"
	"github.com/bull/docbase/internal/registry"
	"github.com/bull/docbase/internal/storage"
)

// makeSearchHandler creates the search_documents tool handler.
// Embeds the query and returns the most similar chunks with their document
// metadata, optionally filtered by category or filename.
func makeSearchHandler(manager *corpus.Manager) func(
	context.Context, *mcp.CallToolRequest, SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (
		*mcp.CallToolResult, SearchOutput, error,
	) {
		maxResults := input.MaxResults
		if maxResults <= 0 {
			maxResults = 5
		}

		filter := storage.Filter{}
		if input.Category != "" {
			filter[document.MetaCategory] = input.Category
		}
		if input.Filename != "" {
			filter[document.MetaFilename] = input.Filename
		}

		chunks := manager.RelevantChunks(ctx, input.Query, maxResults, filter)

		results := make([]SearchResult, 0, len(chunks))
		for _, chunk := range chunks {
			results = append(results, SearchResult{
				Content:    chunk.Text,
				Score:      chunk.Score,
				Filename:   chunk.Metadata[document.MetaFilename],
				Category:   chunk.Metadata[document.MetaCategory],
				ChunkIndex: chunk.Metadata[document.MetaChunkIndex],
			})
		}

		if len(results) == 0 {
			return nil, SearchOutput{
				Results: []SearchResult{},
				Message: "No matching chunks found. Try broader search terms.",
			}, nil
		}

		return nil, SearchOutput{Results: results}, nil
	}
}

// makeGetDocumentHandler creates the get_document tool handler.
// Returns the full extracted text from the document's content backup.
func makeGetDocumentHandler(manager *corpus.Manager) func(
	context.Context, *mcp.CallToolRequest, GetDocumentInput,
) (*mcp.CallToolResult, GetDocumentOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input GetDocumentInput) (
		*mcp.CallToolResult, GetDocumentOutput, error,
	) {
		doc, err := manager.Document(ctx, input.Filename)
		if err != nil {
			if errors.Is(err, registry.ErrNotFound) {
				return nil, GetDocumentOutput{
					Found:    false,
					Filename: input.Filename,
				}, nil
			}
			return nil, GetDocumentOutput{}, fmt.Errorf("failed to look up document: %w", err)
		}

		content, err := manager.DocumentContent(ctx, input.Filename)
		if err != nil {
			return nil, GetDocumentOutput{}, fmt.Errorf("failed to read document content: %w", err)
		}

		return nil, GetDocumentOutput{
			Content:   content,
			Filename:  doc.Filename,
			Category:  doc.Category,
			AddedDate: doc.AddedDate,
			Found:     true,
		}, nil
	}
}

// makeListDocumentsHandler creates the list_documents tool handler.
func makeListDocumentsHandler(manager *corpus.Manager) func(
	context.Context, *mcp.CallToolRequest, ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListDocumentsInput) (
		*mcp.CallToolResult, ListDocumentsOutput, error,
	) {
		docs, err := manager.ListDocuments(ctx)
		if err != nil {
			return nil, ListDocumentsOutput{}, fmt.Errorf("failed to list documents: %w", err)
		}

		infos := make([]DocumentInfo, 0, len(docs))
		for _, doc := range docs {
			infos = append(infos, DocumentInfo{
				Filename:   doc.Filename,
				Category:   doc.Category,
				FileType:   doc.FileType,
				FileSize:   doc.FileSize,
				ChunkCount: doc.ChunkCount,
				AddedDate:  doc.AddedDate,
			})
		}

		return nil, ListDocumentsOutput{
			Documents: infos,
			Count:     len(infos),
		}, nil
	}
}

// makeListCategoriesHandler creates the list_categories tool handler.
func makeListCategoriesHandler(manager *corpus.Manager) func(
	context.Context, *mcp.CallToolRequest, ListCategoriesInput,
) (*mcp.CallToolResult, ListCategoriesOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListCategoriesInput) (
		*mcp.CallToolResult, ListCategoriesOutput, error,
	) {
		counts, err := manager.Categories(ctx)
		if err != nil {
			return nil, ListCategoriesOutput{}, fmt.Errorf("failed to list categories: %w", err)
		}

		categories := make([]CategoryInfo, 0, len(counts))
		for _, c := range counts {
			categories = append(categories, CategoryInfo{Name: c.Name, Count: c.Count})
		}

		return nil, ListCategoriesOutput{Categories: categories}, nil
	}
}
