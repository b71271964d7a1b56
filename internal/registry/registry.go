// Package registry tracks ingested documents in a local SQLite database and
// keeps a plain-text backup of each document's extracted content. The
// registry is the source of truth for "what documents exist"; the vector
// store holds their chunks.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/bull/docbase/internal/document"
)

// ErrNotFound indicates the requested document is not registered.
var ErrNotFound = errors.New("document not found")

// Registry persists document records under a metadata directory.
type Registry struct {
	db         *sql.DB
	contentDir string
}

// Open creates or opens the registry database under dir. Content backups
// live in dir/content.
func Open(dir string) (*Registry, error) {
	contentDir := filepath.Join(dir, "content")
	if err := os.MkdirAll(contentDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating metadata directory: %w", err)
	}

	dbPath := filepath.Join(dir, "registry.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dbPath, err)
	}

	r := &Registry{db: db, contentDir: contentDir}
	if err := r.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Registry) initSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			id          TEXT PRIMARY KEY,
			filename    TEXT NOT NULL UNIQUE,
			file_size   INTEGER NOT NULL,
			file_type   TEXT NOT NULL,
			category    TEXT NOT NULL,
			added_date  TEXT NOT NULL,
			backup_path TEXT NOT NULL,
			chunk_count INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Register inserts or replaces a document record. Registering a filename
// that already exists under a different ID replaces the old record.
func (r *Registry) Register(ctx context.Context, doc document.Document) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO documents (id, filename, file_size, file_type, category, added_date, backup_path, chunk_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			id          = excluded.id,
			file_size   = excluded.file_size,
			file_type   = excluded.file_type,
			category    = excluded.category,
			added_date  = excluded.added_date,
			backup_path = excluded.backup_path,
			chunk_count = excluded.chunk_count
	`, doc.ID, doc.Filename, doc.FileSize, doc.FileType, doc.Category,
		doc.AddedDate.UTC().Format(time.RFC3339), doc.BackupPath, doc.ChunkCount)
	if err != nil {
		return fmt.Errorf("registering %s: %w", doc.Filename, err)
	}
	return nil
}

func scanDocument(row interface{ Scan(...any) error }) (document.Document, error) {
	var doc document.Document
	var added string
	err := row.Scan(&doc.ID, &doc.Filename, &doc.FileSize, &doc.FileType,
		&doc.Category, &added, &doc.BackupPath, &doc.ChunkCount)
	if err != nil {
		return document.Document{}, err
	}
	if doc.AddedDate, err = time.Parse(time.RFC3339, added); err != nil {
		doc.AddedDate = time.Time{}
	}
	return doc, nil
}

const selectColumns = "id, filename, file_size, file_type, category, added_date, backup_path, chunk_count"

// Get returns the document with the given ID.
func (r *Registry) Get(ctx context.Context, id string) (document.Document, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM documents WHERE id = ?", id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return document.Document{}, ErrNotFound
	}
	if err != nil {
		return document.Document{}, fmt.Errorf("getting document %s: %w", id, err)
	}
	return doc, nil
}

// GetByFilename returns the document registered under filename.
func (r *Registry) GetByFilename(ctx context.Context, filename string) (document.Document, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM documents WHERE filename = ?", filename)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return document.Document{}, ErrNotFound
	}
	if err != nil {
		return document.Document{}, fmt.Errorf("getting document %s: %w", filename, err)
	}
	return doc, nil
}

// List returns all registered documents ordered by filename.
func (r *Registry) List(ctx context.Context) ([]document.Document, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM documents ORDER BY filename")
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []document.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// UpdateCategory rewrites the stored category for a document.
func (r *Registry) UpdateCategory(ctx context.Context, id, category string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE documents SET category = ? WHERE id = ?", category, id)
	if err != nil {
		return fmt.Errorf("updating category for %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Remove deletes the record and its content backup.
func (r *Registry) Remove(ctx context.Context, id string) error {
	doc, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id); err != nil {
		return fmt.Errorf("removing document %s: %w", id, err)
	}
	r.RemoveBackup(doc.ID)
	return nil
}

// Clear deletes every record and every content backup.
func (r *Registry) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("clearing documents: %w", err)
	}
	entries, err := os.ReadDir(r.contentDir)
	if err != nil {
		return fmt.Errorf("reading content directory: %w", err)
	}
	for _, entry := range entries {
		os.Remove(filepath.Join(r.contentDir, entry.Name()))
	}
	return nil
}

// BackupPath returns where the content backup for a document ID lives.
func (r *Registry) BackupPath(id string) string {
	return filepath.Join(r.contentDir, id+".txt")
}

// SaveBackup writes the extracted document content to disk and returns the
// backup path.
func (r *Registry) SaveBackup(id, content string) (string, error) {
	path := r.BackupPath(id)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("writing content backup: %w", err)
	}
	return path, nil
}

// ReadBackup returns the extracted content previously saved for a document.
func (r *Registry) ReadBackup(id string) (string, error) {
	data, err := os.ReadFile(r.BackupPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: no content backup for %s", ErrNotFound, id)
		}
		return "", fmt.Errorf("reading content backup: %w", err)
	}
	return string(data), nil
}

// RemoveBackup deletes the content backup if present.
func (r *Registry) RemoveBackup(id string) {
	os.Remove(r.BackupPath(id))
}

// Close closes the database.
func (r *Registry) Close() error {
	return r.db.Close()
}
