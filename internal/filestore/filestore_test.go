package filestore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chatdrop/internal/storage"
)

func TestWriteListOpenDelete(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := newIndexedStore(t)

	entry, err := store.Write(ctx, "a.txt", []byte("hello"), "Alice")
	req.NoError(err)
	req.Equal("a.txt", entry.Name)
	req.EqualValues(5, entry.Size)

	entries, err := store.List(ctx)
	req.NoError(err)
	req.Len(entries, 1)
	req.Equal("a.txt", entries[0].Name)
	req.EqualValues(5, entries[0].Size)

	file, err := store.Open(ctx, "a.txt")
	req.NoError(err)
	content, err := io.ReadAll(file)
	req.NoError(file.Close())
	req.NoError(err)
	req.Equal("hello", string(content))
	req.Contains(file.MimeType, "text/plain")

	req.NoError(store.Delete(ctx, "a.txt"))
	entries, err = store.List(ctx)
	req.NoError(err)
	req.Empty(entries)
	req.NotNil(entries)
}

func TestOverwriteIsLastWriterWinsAndKeepsCreatedAt(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := newIndexedStore(t)

	first, err := store.Write(ctx, "notes.md", []byte("first version"), "Alice")
	req.NoError(err)
	time.Sleep(10 * time.Millisecond)
	second, err := store.Write(ctx, "notes.md", []byte("v2"), "Bob")
	req.NoError(err)

	req.EqualValues(2, second.Size)
	req.WithinDuration(first.CreatedAt, second.CreatedAt, time.Millisecond)

	entries, err := store.List(ctx)
	req.NoError(err)
	req.Len(entries, 1)
	req.EqualValues(2, entries[0].Size)
}

func TestWriteIgnoresIndexRowOfRemovedFile(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	index := newIndex(t)
	stale := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	req.NoError(index.UpsertFile(ctx, storage.FileRecord{Name: "report.pdf", Size: 3, CreatedAt: stale, UpdatedAt: stale}))

	store, err := New(filepath.Join(t.TempDir(), "uploads"), index, nil)
	req.NoError(err)
	entry, err := store.Write(ctx, "report.pdf", []byte("new"), "Alice")
	req.NoError(err)
	req.WithinDuration(time.Now(), entry.CreatedAt, time.Minute)

	record, err := index.GetFile(ctx, "report.pdf")
	req.NoError(err)
	req.NotNil(record)
	req.Equal("Alice", record.UploadedBy)
	req.WithinDuration(entry.CreatedAt, record.CreatedAt, time.Millisecond)
}

func TestDeleteThenWriteStartsNewCreatedAt(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := newIndexedStore(t)

	first, err := store.Write(ctx, "a.txt", []byte("one"), "")
	req.NoError(err)
	req.NoError(store.Delete(ctx, "a.txt"))
	time.Sleep(10 * time.Millisecond)
	second, err := store.Write(ctx, "a.txt", []byte("two"), "")
	req.NoError(err)
	req.True(second.CreatedAt.After(first.CreatedAt))
}

func TestListIsOrderedAndSkipsDirectoriesAndTempFiles(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := newPlainStore(t)

	for _, name := range []string{"c.bin", "a.bin", "b.bin"} {
		_, err := store.Write(ctx, name, []byte{1, 2, 3}, "")
		req.NoError(err)
	}
	req.NoError(os.Mkdir(filepath.Join(store.Dir(), "nested"), 0o755))
	req.NoError(os.WriteFile(filepath.Join(store.Dir(), tempPrefix+"partial"), []byte("x"), 0o644))

	entries, err := store.List(ctx)
	req.NoError(err)
	req.Len(entries, 3)
	req.Equal([]string{"a.bin", "b.bin", "c.bin"}, []string{entries[0].Name, entries[1].Name, entries[2].Name})
}

func TestListReadsDirectoryLive(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := newIndexedStore(t)

	req.NoError(os.WriteFile(filepath.Join(store.Dir(), "external.txt"), []byte("1234"), 0o644))
	entries, err := store.List(ctx)
	req.NoError(err)
	req.Len(entries, 1)
	req.Equal("external.txt", entries[0].Name)
	req.EqualValues(4, entries[0].Size)
	req.False(entries[0].CreatedAt.IsZero())
}

func TestMissingFiles(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := newPlainStore(t)

	_, err := store.Open(ctx, "ghost.txt")
	req.ErrorIs(err, ErrNotFound)
	req.ErrorIs(store.Delete(ctx, "ghost.txt"), ErrNotFound)
}

func TestRejectsTraversalNames(t *testing.T) {
	ctx := context.Background()
	store := newPlainStore(t)

	names := []string{
		"",
		".",
		"..",
		"../escape.txt",
		"nested/file.txt",
		`..\escape.txt`,
		"/etc/passwd",
		"nul\x00byte",
		tempPrefix + "sneaky",
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			_, err := store.Write(ctx, name, []byte("x"), "")
			req.ErrorIs(err, ErrInvalidName)
			_, err = store.Open(ctx, name)
			req.ErrorIs(err, ErrInvalidName)
			req.ErrorIs(store.Delete(ctx, name), ErrInvalidName)
		})
	}

	_, err := os.Stat(filepath.Join(filepath.Dir(store.Dir()), "escape.txt"))
	require.True(t, errors.Is(err, os.ErrNotExist))
}

func TestValidateNameAcceptsOrdinaryNames(t *testing.T) {
	for _, name := range []string{"a.txt", "report 2024.pdf", "..hidden", "emoji-📎.png", "data.tar.gz"} {
		require.NoError(t, ValidateName(name), name)
	}
}

func newIndex(t *testing.T) *storage.Store {
	t.Helper()
	index, err := storage.NewStore("sqlite://file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	require.NoError(t, index.Migrate(context.Background()))
	return index
}

func newIndexedStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "uploads"), newIndex(t), nil)
	require.NoError(t, err)
	return store
}

func newPlainStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "uploads"), nil, nil)
	require.NoError(t, err)
	return store
}
