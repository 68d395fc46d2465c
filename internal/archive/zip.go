package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"sort"

	"github.com/klauspost/compress/flate"
)

type zipReader struct {
	path string
	rc   *zip.ReadCloser
}

// OpenZip opens a zip set archive.
func OpenZip(path string) (Reader, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip %s: %w", path, err)
	}
	rc.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})
	return &zipReader{path: path, rc: rc}, nil
}

func (z *zipReader) Path() string { return z.path }

func (z *zipReader) List() ([]Entry, error) {
	entries := make([]Entry, 0, len(z.rc.File))
	for _, f := range z.rc.File {
		if f.FileInfo().IsDir() {
			continue
		}
		entries = append(entries, Entry{
			Name: f.Name,
			Size: int64(f.UncompressedSize64),
			open: f.Open,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (z *zipReader) Close() error { return z.rc.Close() }
