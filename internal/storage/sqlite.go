package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/bull/docbase/internal/document"
)

// SQLiteStore is the default, fully local vector store. Chunks live in a
// single table with embeddings as little-endian float32 blobs; queries rank
// by cosine similarity computed in-process. Re-opening a store at the same
// directory restores every previously added chunk.
type SQLiteStore struct {
	db   *sql.DB
	path string
	dims int
}

// NewSQLiteStore opens (or creates) the collection database under dir.
func NewSQLiteStore(dir string, dimensions int) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("%w: creating vector directory: %v", ErrUnavailable, err)
	}

	dbPath := filepath.Join(dir, CollectionName+".db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrUnavailable, dbPath, err)
	}

	s := &SQLiteStore{db: db, path: dbPath, dims: dimensions}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS chunks (
			id          TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			content     TEXT NOT NULL,
			embedding   BLOB NOT NULL,
			metadata    TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);
	`)
	if err != nil {
		return fmt.Errorf("%w: creating schema: %v", ErrUnavailable, err)
	}
	return nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string { return s.path }

// Add upserts chunks in one transaction.
func (s *SQLiteStore) Add(ctx context.Context, chunks []document.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for i, c := range chunks {
		if s.dims > 0 && len(c.Embedding) != s.dims {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(c.Embedding), s.dims)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, content, embedding, metadata)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			content     = excluded.content,
			embedding   = excluded.embedding,
			metadata    = excluded.metadata
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata for %s: %w", c.ID, err)
		}
		docID := c.Metadata[document.MetaDocumentID]
		if _, err := stmt.ExecContext(ctx, c.ID, docID, c.Text, encodeVector(c.Embedding), string(meta)); err != nil {
			return fmt.Errorf("upserting chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing chunks: %w", err)
	}
	return nil
}

// Query returns the k most similar chunks, highest similarity first. Ties
// break on chunk ID so repeated queries over an unchanged store return
// identical orderings.
func (s *SQLiteStore) Query(ctx context.Context, embedding []float32, k int, filter Filter) ([]document.ScoredChunk, error) {
	if s.dims > 0 && len(embedding) != s.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(embedding), s.dims)
	}
	if k <= 0 {
		return nil, nil
	}

	where, args := filterClause(filter)
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, content, embedding, metadata FROM chunks"+where, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	type scored struct {
		id    string
		chunk document.ScoredChunk
	}
	var hits []scored
	for rows.Next() {
		var id, content, meta string
		var blob []byte
		if err := rows.Scan(&id, &content, &blob, &meta); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		metadata, err := decodeMetadata(meta)
		if err != nil {
			return nil, err
		}
		hits = append(hits, scored{
			id: id,
			chunk: document.ScoredChunk{
				Text:     content,
				Metadata: metadata,
				Score:    CosineSimilarity(embedding, decodeVector(blob)),
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].chunk.Score != hits[j].chunk.Score {
			return hits[i].chunk.Score > hits[j].chunk.Score
		}
		return hits[i].id < hits[j].id
	})
	if len(hits) > k {
		hits = hits[:k]
	}

	out := make([]document.ScoredChunk, len(hits))
	for i, h := range hits {
		out[i] = h.chunk
	}
	return out, nil
}

// Delete removes every chunk matching filter. An empty filter removes all
// chunks.
func (s *SQLiteStore) Delete(ctx context.Context, filter Filter) error {
	where, args := filterClause(filter)
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunks"+where, args...); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// Get enumerates stored chunks matching filter, ordered by chunk ID.
func (s *SQLiteStore) Get(ctx context.Context, filter Filter) ([]document.Chunk, error) {
	where, args := filterClause(filter)
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, content, embedding, metadata FROM chunks"+where+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []document.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var c document.Chunk
		var blob []byte
		var meta string
		if err := rows.Scan(&c.ID, &c.Text, &blob, &meta); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		c.Embedding = decodeVector(blob)
		if c.Metadata, err = decodeMetadata(meta); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// Count returns the number of stored chunks.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Reset drops every chunk and reclaims file space.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("vacuuming store: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// filterClause builds a WHERE clause over JSON metadata fields.
func filterClause(filter Filter) (string, []any) {
	if len(filter) == 0 {
		return "", nil
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		conds = append(conds, "json_extract(metadata, '$.'||?) = ?")
		args = append(args, k, filter[k])
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// encodeVector packs a float32 slice as little-endian bytes.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector unpacks a little-endian float32 blob.
func decodeVector(data []byte) []float32 {
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v
}

func decodeMetadata(raw string) (map[string]string, error) {
	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("unmarshalling metadata: %w", err)
	}
	return m, nil
}
