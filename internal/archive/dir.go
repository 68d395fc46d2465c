package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

type dirReader struct {
	path string
}

// OpenDir exposes a loose directory of files as a set archive. Only the top
// level is listed; sets do not nest.
func OpenDir(path string) (Reader, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open set dir %s: %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open set dir %s: not a directory", path)
	}
	return &dirReader{path: path}, nil
}

func (d *dirReader) Path() string { return d.path }

func (d *dirReader) List() ([]Entry, error) {
	dirents, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("list set dir %s: %w", d.path, err)
	}
	entries := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		if de.IsDir() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", de.Name(), err)
		}
		full := filepath.Join(d.path, de.Name())
		entries = append(entries, Entry{
			Name: de.Name(),
			Size: info.Size(),
			open: func() (io.ReadCloser, error) { return os.Open(full) },
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (d *dirReader) Close() error { return nil }
