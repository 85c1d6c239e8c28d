// Package storage provides the SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/EliasMarine/Backlinker-sub000/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		title TEXT,
		content_hash TEXT,
		analysis TEXT NOT NULL,
		modified_at TIMESTAMP,
		indexed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_modified_at ON documents(modified_at);

	CREATE TABLE IF NOT EXISTS index_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveDocument upserts one analyzed document. The analysis (keywords,
// phrases, entities, term frequencies) is stored as one JSON blob; only the
// columns the index queries on are broken out. Derived state stays out of
// the blob: TF-IDF vectors depend on corpus-wide document frequencies and
// are rebuilt after load, and embeddings live in the binary vector cache.
func (s *SQLiteStorage) SaveDocument(ctx context.Context, doc *models.Document) error {
	analysisJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document analysis: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, title, content_hash, analysis, modified_at, indexed_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			content_hash = excluded.content_hash,
			analysis = excluded.analysis,
			modified_at = excluded.modified_at,
			indexed_at = excluded.indexed_at`,
		doc.ID, doc.Title, doc.ContentHash, string(analysisJSON), doc.ModifiedAt, time.Now(),
	)
	return err
}

// GetDocument returns a document by ID.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var analysisJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT analysis FROM documents WHERE id = ?`, id,
	).Scan(&analysisJSON)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document not found: %s", id)
	}
	if err != nil {
		return nil, err
	}

	var doc models.Document
	if err := json.Unmarshal([]byte(analysisJSON), &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document analysis: %w", err)
	}
	return &doc, nil
}

// DeleteDocument removes a document by ID.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	return err
}

// LoadAll returns every stored document, ordered by id.
func (s *SQLiteStorage) LoadAll(ctx context.Context) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT analysis FROM documents ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		var analysisJSON string
		if err := rows.Scan(&analysisJSON); err != nil {
			return nil, err
		}
		var doc models.Document
		if err := json.Unmarshal([]byte(analysisJSON), &doc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document analysis: %w", err)
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// SaveAll replaces the stored index with docs in a single transaction.
func (s *SQLiteStorage) SaveAll(ctx context.Context, docs []*models.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (id, title, content_hash, analysis, modified_at, indexed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, doc := range docs {
		analysisJSON, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal document analysis: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, doc.ID, doc.Title, doc.ContentHash, string(analysisJSON), doc.ModifiedAt, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CountDocuments returns the total number of stored documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// Version returns the stored index version, or empty when unset.
func (s *SQLiteStorage) Version(ctx context.Context) (string, error) {
	var version string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM index_meta WHERE key = 'version'`,
	).Scan(&version)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return version, err
}

// SetVersion stores the index version.
func (s *SQLiteStorage) SetVersion(ctx context.Context, version string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO index_meta (key, value) VALUES ('version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		version,
	)
	return err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
