package client

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// localFile is one row of the /browse listing used to pick uploads.
type localFile struct {
	Name  string
	Path  string
	Size  int64
	IsDir bool
}

// browseDirectory lists path with directories first, skipping hidden entries.
func browseDirectory(path string) ([]localFile, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	items := make([]localFile, 0, len(entries)+1)
	if parent := filepath.Dir(path); parent != path {
		items = append(items, localFile{Name: "..", Path: parent, IsDir: true})
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		item := localFile{
			Name:  entry.Name(),
			Path:  filepath.Join(path, entry.Name()),
			IsDir: entry.IsDir(),
		}
		if !entry.IsDir() {
			if info, err := entry.Info(); err == nil {
				item.Size = info.Size()
			}
		}
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].IsDir != items[j].IsDir {
			return items[i].IsDir
		}
		return items[i].Name < items[j].Name
	})
	return items, nil
}

func (f localFile) String() string {
	if f.IsDir {
		return f.Name + "/"
	}
	return fmt.Sprintf("%s  %s", f.Name, humanize.IBytes(uint64(f.Size)))
}

// defaultBrowsePath starts in the working directory, falling back to home.
func defaultBrowsePath() string {
	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}
