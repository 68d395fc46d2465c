// Package archive exposes on-disk set archives as a flat name+stream view.
// Zip files and loose directories are the only supported containers; the
// verification engine only ever sees entry names and byte streams.
package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Entry is a single file inside an archive. Open returns a fresh stream each
// call; the verifier reads it exactly once to hash it.
type Entry struct {
	Name string
	Size int64
	open func() (io.ReadCloser, error)
}

// Open returns the entry's byte stream.
func (e Entry) Open() (io.ReadCloser, error) {
	if e.open == nil {
		return nil, fmt.Errorf("entry %q has no stream", e.Name)
	}
	return e.open()
}

// Reader enumerates an archive's current contents.
type Reader interface {
	// Path identifies the archive on disk, for reports.
	Path() string
	// List returns the entries in name order.
	List() ([]Entry, error)
	Close() error
}

// Source pairs a set name with a lazily opened archive, produced by scanning
// a collection directory.
type Source struct {
	SetName string
	Path    string
	Open    func() (Reader, error)
}

// ScanDir enumerates archives in a collection directory. A `name.zip` file or
// a `name/` subdirectory both map to the set called name; anything else is
// returned in extras so the caller can report it as unneeded. A set is backed
// by at most one container: when both forms exist the zip wins and the
// directory is reported as extra.
func ScanDir(dir string) (sources []Source, extras []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read collection dir: %w", err)
	}
	type pick struct {
		idx int
		zip bool
	}
	picked := make(map[string]pick)
	add := func(src Source, isZip bool) {
		prev, ok := picked[src.SetName]
		switch {
		case !ok:
			picked[src.SetName] = pick{idx: len(sources), zip: isZip}
			sources = append(sources, src)
		case isZip && !prev.zip:
			extras = append(extras, sources[prev.idx].Path)
			sources[prev.idx] = src
			picked[src.SetName] = pick{idx: prev.idx, zip: true}
		default:
			extras = append(extras, src.Path)
		}
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		switch {
		case entry.IsDir():
			add(Source{
				SetName: entry.Name(),
				Path:    path,
				Open:    func() (Reader, error) { return OpenDir(path) },
			}, false)
		case isSetArchive(entry.Name()):
			add(Source{
				SetName: strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())),
				Path:    path,
				Open:    func() (Reader, error) { return OpenZip(path) },
			}, true)
		default:
			extras = append(extras, path)
		}
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].SetName < sources[j].SetName })
	sort.Strings(extras)
	return sources, extras, nil
}

// BelongsToSet reports whether a file name is the archive for the given set.
func BelongsToSet(file, set string) bool {
	base := filepath.Base(file)
	if !isSetArchive(base) {
		return false
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) == set
}

func isSetArchive(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".zip")
}
