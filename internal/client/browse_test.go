package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBrowseDirectoryOrdersDirectoriesFirst(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	req.NoError(os.WriteFile(filepath.Join(dir, "b.txt"), make([]byte, 2048), 0o644))
	req.NoError(os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	req.NoError(os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o644))
	req.NoError(os.Mkdir(filepath.Join(dir, "zdir"), 0o755))

	items, err := browseDirectory(dir)
	req.NoError(err)
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	req.Equal([]string{"..", "zdir", "a.txt", "b.txt"}, names)
	req.Equal("zdir/", items[1].String())
	req.Equal("b.txt  2.0 KiB", items[3].String())

	_, err = browseDirectory(filepath.Join(dir, "missing"))
	req.Error(err)
}
