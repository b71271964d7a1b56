// Package document defines the core types shared by ingestion, storage and retrieval.
package document

import (
	"fmt"
	"strconv"
	"time"
)

// Metadata keys stored with every chunk. Chunks are fully denormalized so a
// single search hit is citable without joining back to the registry.
const (
	MetaDocumentID = "document_id"
	MetaFilename   = "filename"
	MetaFileSize   = "file_size"
	MetaFileType   = "file_type"
	MetaAddedDate  = "added_date"
	MetaChunkIndex = "chunk_index"
	MetaTotalCount = "total_chunks"
	MetaCategory   = "category"
	MetaBackupPath = "content_backup_path"
)

// Document is the registry record for one ingested file.
// Records are immutable after registration except for Category.
type Document struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	FileSize   int64     `json:"file_size"`
	FileType   string    `json:"file_type"` // lower-cased extension, without dot
	Category   string    `json:"category"`
	AddedDate  time.Time `json:"added_date"`
	BackupPath string    `json:"content_backup_path"`
	ChunkCount int       `json:"chunk_count"`
}

// Chunk is the atomic unit stored in the vector store.
type Chunk struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  map[string]string
}

// ScoredChunk is a retrieval hit. Score is cosine similarity normalized so
// 1.0 means identical and 0.0 orthogonal.
type ScoredChunk struct {
	Text     string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
	Score    float64           `json:"score"`
}

// ChunkID builds the deterministic composite chunk identifier. Re-ingesting
// the same document ID yields the same chunk IDs, so re-insertion upserts
// instead of accumulating duplicates.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", docID, index)
}

// ChunkMetadata builds the denormalized metadata map for chunk number index
// of total.
func ChunkMetadata(doc Document, index, total int) map[string]string {
	return map[string]string{
		MetaDocumentID: doc.ID,
		MetaFilename:   doc.Filename,
		MetaFileSize:   strconv.FormatInt(doc.FileSize, 10),
		MetaFileType:   doc.FileType,
		MetaAddedDate:  doc.AddedDate.UTC().Format(time.RFC3339),
		MetaChunkIndex: strconv.Itoa(index),
		MetaTotalCount: strconv.Itoa(total),
		MetaCategory:   doc.Category,
		MetaBackupPath: doc.BackupPath,
	}
}
