package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const defaultBusyTimeout = 5000

// Store wraps the SQLite handle that indexes metadata for stored files.
type Store struct {
	db *sql.DB
}

// FileRecord represents a row in the files table.
type FileRecord struct {
	Name       string
	Size       int64
	MimeType   string
	SHA256     string
	UploadedBy string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewStore initializes the SQLite database at the provided path. Call Close when done.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "chatdrop.db"
	}
	dsn := buildDSN(path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", defaultBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying DB connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func buildDSN(path string) string {
	switch {
	case strings.HasPrefix(path, "sqlite://"):
		path = path[len("sqlite://"):]
	case strings.HasPrefix(path, "file:"), strings.HasPrefix(path, ":memory:"):
		// already in a form sqlite understands
	default:
		path = "file:" + path
	}
	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout=%d", path, separator, defaultBusyTimeout)
}

// Migrate runs the schema creation statements.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS files (
			name TEXT PRIMARY KEY,
			size INTEGER NOT NULL,
			mime_type TEXT NOT NULL DEFAULT '',
			sha256 TEXT NOT NULL DEFAULT '',
			uploaded_by TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, stmt := range statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpsertFile records metadata for a written file. An existing row keeps its
// created_at so an overwrite does not change when the name first appeared.
func (s *Store) UpsertFile(ctx context.Context, record FileRecord) error {
	if record.Name == "" {
		return errors.New("file name is required")
	}
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	updatedAt := record.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files(name, size, mime_type, sha256, uploaded_by, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			size = excluded.size,
			mime_type = excluded.mime_type,
			sha256 = excluded.sha256,
			uploaded_by = excluded.uploaded_by,
			updated_at = excluded.updated_at
	`, record.Name, record.Size, record.MimeType, record.SHA256, record.UploadedBy, createdAt.UTC(), updatedAt.UTC())
	return err
}

// GetFile fetches a record by name. A missing row yields (nil, nil).
func (s *Store) GetFile(ctx context.Context, name string) (*FileRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, size, mime_type, sha256, uploaded_by, created_at, updated_at
		FROM files WHERE name = ?
	`, name)
	var record FileRecord
	if err := row.Scan(&record.Name, &record.Size, &record.MimeType, &record.SHA256, &record.UploadedBy, &record.CreatedAt, &record.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// ListFiles returns every indexed record ordered by name.
func (s *Store) ListFiles(ctx context.Context) ([]FileRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, size, mime_type, sha256, uploaded_by, created_at, updated_at
		FROM files
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []FileRecord
	for rows.Next() {
		var record FileRecord
		if err := rows.Scan(&record.Name, &record.Size, &record.MimeType, &record.SHA256, &record.UploadedBy, &record.CreatedAt, &record.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// DeleteFile removes the record for name. Deleting a missing row is not an error.
func (s *Store) DeleteFile(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE name = ?`, name)
	return err
}
