// Package filestore keeps named binary artifacts in a single directory.
//
// Every operation reads the directory live; nothing is cached in memory.
// Writes replace the target atomically, so concurrent writers to the same
// name resolve as last-writer-wins.
package filestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/samber/lo"

	"chatdrop/internal/storage"
)

const tempPrefix = ".chatdrop-"

var (
	// ErrNotFound is returned when the named file does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrInvalidName is returned for names that are not a single safe path component.
	ErrInvalidName = errors.New("invalid file name")
)

// Entry is the listing view of a stored file.
type Entry struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// File is an open handle on a stored file. Close it when done.
type File struct {
	*os.File
	Info     Entry
	MimeType string
	ModTime  time.Time
}

// Index persists per-file metadata next to the directory.
type Index interface {
	UpsertFile(ctx context.Context, record storage.FileRecord) error
	GetFile(ctx context.Context, name string) (*storage.FileRecord, error)
	ListFiles(ctx context.Context) ([]storage.FileRecord, error)
	DeleteFile(ctx context.Context, name string) error
}

// FileStore handles file operations rooted at baseDir.
type FileStore struct {
	baseDir string
	index   Index
	log     *slog.Logger
}

// New creates the base directory if needed. index may be nil, in which case
// creation times fall back to the file modification time.
func New(baseDir string, index Index, log *slog.Logger) (*FileStore, error) {
	if baseDir == "" {
		return nil, errors.New("base directory is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &FileStore{baseDir: baseDir, index: index, log: log}, nil
}

// Dir returns the root directory of the store.
func (s *FileStore) Dir() string {
	return s.baseDir
}

// ValidateName rejects anything that could resolve outside the store root.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
	case strings.ContainsAny(name, "/\\\x00"):
	case filepath.Base(name) != name, !filepath.IsLocal(name):
	case strings.HasPrefix(name, tempPrefix):
	default:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidName, name)
}

// List returns the current entries ordered by name.
func (s *FileStore) List(ctx context.Context) ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read store directory: %w", err)
	}

	records := s.indexedRecords(ctx)
	entries := make([]Entry, 0, len(dirEntries))
	for _, dirEntry := range dirEntries {
		if !dirEntry.Type().IsRegular() || strings.HasPrefix(dirEntry.Name(), tempPrefix) {
			continue
		}
		info, err := dirEntry.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		var record *storage.FileRecord
		if indexed, ok := records[info.Name()]; ok {
			record = &indexed
		}
		entries = append(entries, entryFor(info, record))
	}
	return entries, nil
}

// Write creates or replaces name with data.
func (s *FileStore) Write(ctx context.Context, name string, data []byte, uploadedBy string) (Entry, error) {
	if err := ValidateName(name); err != nil {
		return Entry{}, err
	}

	tmp, err := os.CreateTemp(s.baseDir, tempPrefix+"*")
	if err != nil {
		return Entry{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return Entry{}, fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return Entry{}, fmt.Errorf("close %s: %w", name, err)
	}
	_, statErr := os.Stat(s.path(name))
	replacing := statErr == nil
	s.indexWrite(ctx, name, data, uploadedBy, replacing)

	if err := os.Rename(tmpPath, s.path(name)); err != nil {
		_ = os.Remove(tmpPath)
		if !replacing {
			s.indexDelete(ctx, name)
		}
		return Entry{}, fmt.Errorf("replace %s: %w", name, err)
	}

	info, err := os.Stat(s.path(name))
	if err != nil {
		return Entry{}, fmt.Errorf("stat %s: %w", name, err)
	}
	return entryFor(info, s.indexedRecord(ctx, name)), nil
}

// Open returns a readable handle for name.
func (s *FileStore) Open(ctx context.Context, name string) (*File, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	file, err := os.Open(s.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		_ = file.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	record := s.indexedRecord(ctx, name)
	mimeType := ""
	if record != nil {
		mimeType = record.MimeType
	}
	if mimeType == "" {
		if detected, err := mimetype.DetectReader(file); err == nil {
			mimeType = detected.String()
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("rewind %s: %w", name, err)
		}
	}

	return &File{
		File:     file,
		Info:     entryFor(info, record),
		MimeType: mimeType,
		ModTime:  info.ModTime(),
	}, nil
}

// Delete removes name from the store.
func (s *FileStore) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := os.Remove(s.path(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("remove %s: %w", name, err)
	}
	s.indexDelete(ctx, name)
	return nil
}

// indexWrite records metadata before the file lands. A name that is not on
// disk yet starts a new lifetime, so any row left from an earlier one is dropped.
func (s *FileStore) indexWrite(ctx context.Context, name string, data []byte, uploadedBy string, replacing bool) {
	if s.index == nil {
		return
	}
	if !replacing {
		s.indexDelete(ctx, name)
	}
	now := time.Now().UTC()
	sum := sha256.Sum256(data)
	record := storage.FileRecord{
		Name:       name,
		Size:       int64(len(data)),
		MimeType:   mimetype.Detect(data).String(),
		SHA256:     hex.EncodeToString(sum[:]),
		UploadedBy: uploadedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.index.UpsertFile(ctx, record); err != nil {
		s.log.Warn("index update failed", "file", name, "error", err)
	}
}

func (s *FileStore) indexDelete(ctx context.Context, name string) {
	if s.index == nil {
		return
	}
	if err := s.index.DeleteFile(ctx, name); err != nil {
		s.log.Warn("index delete failed", "file", name, "error", err)
	}
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.baseDir, name)
}

func (s *FileStore) indexedRecords(ctx context.Context) map[string]storage.FileRecord {
	if s.index == nil {
		return nil
	}
	records, err := s.index.ListFiles(ctx)
	if err != nil {
		s.log.Warn("index listing failed", "error", err)
		return nil
	}
	return lo.KeyBy(records, func(record storage.FileRecord) string {
		return record.Name
	})
}

func (s *FileStore) indexedRecord(ctx context.Context, name string) *storage.FileRecord {
	if s.index == nil {
		return nil
	}
	record, err := s.index.GetFile(ctx, name)
	if err != nil {
		s.log.Warn("index lookup failed", "file", name, "error", err)
		return nil
	}
	return record
}

// entryFor prefers the indexed creation time; the directory only knows mtime.
func entryFor(info fs.FileInfo, record *storage.FileRecord) Entry {
	entry := Entry{
		Name:      info.Name(),
		Size:      info.Size(),
		CreatedAt: info.ModTime().UTC(),
	}
	if record != nil && !record.CreatedAt.IsZero() {
		entry.CreatedAt = record.CreatedAt.UTC()
	}
	return entry
}
