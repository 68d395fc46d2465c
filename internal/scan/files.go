package scan

import (
	"context"
	"fmt"
	"sort"

	"github.com/nico2sh/romst/internal/archive"
	"github.com/nico2sh/romst/internal/catalog"
	"github.com/nico2sh/romst/internal/hashes"
)

// HashedFile is a supplied archive entry after hashing. Content identity is
// always computed from the bytes, never trusted from the entry name. Entries
// that could not be read keep their name and carry the cause in Err.
type HashedFile struct {
	Name string
	Size int64
	Sum  catalog.Checksum
	Err  string
}

// Readable reports whether the file hashed successfully.
func (f HashedFile) Readable() bool { return f.Err == "" }

// HashArchive hashes every entry of an archive exactly once. Unreadable
// entries are reported in place rather than dropped, so the verifier can
// attach the cause to the affected part.
func HashArchive(ctx context.Context, reader archive.Reader, hash hashes.Func) ([]HashedFile, error) {
	entries, err := reader.List()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", reader.Path(), err)
	}
	files := make([]HashedFile, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		files = append(files, hashEntry(entry, hash))
	}
	return files, nil
}

func hashEntry(entry archive.Entry, hash hashes.Func) HashedFile {
	file := HashedFile{Name: entry.Name, Size: entry.Size}
	stream, err := entry.Open()
	if err != nil {
		file.Err = err.Error()
		return file
	}
	defer stream.Close()
	sum, n, err := hash(stream)
	if err != nil {
		file.Err = err.Error()
		return file
	}
	file.Sum = sum
	if file.Size == 0 {
		file.Size = n
	}
	return file
}

// donorEntry keeps the hashed sum next to the donor so component-level hits
// can be confirmed with Matches.
type donorEntry struct {
	donor Donor
	sum   catalog.Checksum
}

// CollectionView is the read-only answer to "does checksum C physically exist
// somewhere in the user's collection, and where". It is populated once per
// run, each archive hashed exactly once, then shared by every verification
// worker without locking. Donors are indexed under every checksum component,
// so catalog parts declared with only a CRC still find physically present
// content.
type CollectionView struct {
	files    map[string][]HashedFile
	archives map[string]string
	donors   map[string][]donorEntry
}

// NewCollectionView returns an empty view.
func NewCollectionView() *CollectionView {
	return &CollectionView{
		files:    make(map[string][]HashedFile),
		archives: make(map[string]string),
		donors:   make(map[string][]donorEntry),
	}
}

// Add records a hashed archive under its set name. Call only during view
// construction, before verification starts.
func (v *CollectionView) Add(set, archivePath string, files []HashedFile) {
	v.files[set] = files
	v.archives[set] = archivePath
	for _, f := range files {
		if !f.Readable() || f.Sum.IsZero() {
			continue
		}
		entry := donorEntry{donor: Donor{Set: set, Archive: archivePath, Entry: f.Name}, sum: f.Sum}
		if f.Sum.SHA1 != "" {
			key := "sha1:" + f.Sum.SHA1
			v.donors[key] = append(v.donors[key], entry)
		}
		if f.Sum.CRC != "" {
			key := "crc:" + f.Sum.CRC
			v.donors[key] = append(v.donors[key], entry)
		}
	}
}

// FilesOf returns the hashed entries of a set's archive, nil when the
// collection holds no archive for it.
func (v *CollectionView) FilesOf(set string) []HashedFile {
	return v.files[set]
}

// HasSet reports whether the collection holds an archive for the set.
func (v *CollectionView) HasSet(set string) bool {
	_, ok := v.archives[set]
	return ok
}

// ArchiveOf returns the archive path backing a set, empty when absent.
func (v *CollectionView) ArchiveOf(set string) string {
	return v.archives[set]
}

// Donors returns every physical location of content matching the checksum
// outside the given set, in stable order. Partial checksums match on the
// component they carry.
func (v *CollectionView) Donors(sum catalog.Checksum, excludeSet string) []Donor {
	if sum.IsZero() {
		return nil
	}
	var out []Donor
	collect := func(entries []donorEntry, skipFullPairs bool) {
		for _, e := range entries {
			if skipFullPairs && e.sum.SHA1 != "" {
				continue
			}
			if e.donor.Set == excludeSet || !e.sum.Matches(sum) {
				continue
			}
			out = append(out, e.donor)
		}
	}
	if sum.SHA1 != "" {
		collect(v.donors["sha1:"+sum.SHA1], false)
	}
	if sum.CRC != "" {
		// Entries carrying a SHA1 were already considered above when the
		// lookup sum carries one too.
		collect(v.donors["crc:"+sum.CRC], sum.SHA1 != "")
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Set != out[j].Set {
			return out[i].Set < out[j].Set
		}
		return out[i].Entry < out[j].Entry
	})
	return out
}

// FindIn returns the entry name carrying the checksum inside a specific set's
// archive.
func (v *CollectionView) FindIn(sum catalog.Checksum, set string) (string, bool) {
	if sum.IsZero() {
		return "", false
	}
	for _, f := range v.files[set] {
		if f.Readable() && f.Sum.Matches(sum) {
			return f.Name, true
		}
	}
	return "", false
}
