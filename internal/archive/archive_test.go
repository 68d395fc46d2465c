package archive

import (
	"io"
	"path/filepath"
	"sort"
	"testing"

	"github.com/nico2sh/romst/internal/testsupport"
)

func readEntry(t *testing.T, e Entry) string {
	t.Helper()
	rc, err := e.Open()
	if err != nil {
		t.Fatalf("open %s: %v", e.Name, err)
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read %s: %v", e.Name, err)
	}
	return string(body)
}

func TestOpenZipListsEntriesInNameOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "set.zip")
	testsupport.WriteZip(t, path, map[string]string{
		"b.bin": "beta",
		"a.bin": "alpha",
	})

	r, err := OpenZip(path)
	if err != nil {
		t.Fatalf("OpenZip: %v", err)
	}
	defer r.Close()

	entries, err := r.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "a.bin" || entries[1].Name != "b.bin" {
		t.Fatalf("entries = %v, want a.bin then b.bin", entries)
	}
	if got := readEntry(t, entries[0]); got != "alpha" {
		t.Fatalf("a.bin body = %q, want alpha", got)
	}
	if entries[1].Size != int64(len("beta")) {
		t.Fatalf("b.bin size = %d, want %d", entries[1].Size, len("beta"))
	}
}

func TestOpenDirReadsLooseFiles(t *testing.T) {
	dir := t.TempDir()
	set := filepath.Join(dir, "set")
	testsupport.WriteFile(t, filepath.Join(set, "rom.bin"), "alpha")

	r, err := OpenDir(set)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	defer r.Close()

	entries, err := r.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "rom.bin" {
		t.Fatalf("entries = %v, want rom.bin", entries)
	}
	if got := readEntry(t, entries[0]); got != "alpha" {
		t.Fatalf("rom.bin body = %q, want alpha", got)
	}
}

func TestScanDirMapsArchivesToSets(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteZip(t, filepath.Join(dir, "parent.zip"), map[string]string{"rom.bin": "alpha"})
	testsupport.WriteFile(t, filepath.Join(dir, "loose", "rom.bin"), "alpha")
	testsupport.WriteFile(t, filepath.Join(dir, "notes.txt"), "not a set")

	sources, extras, err := ScanDir(dir)
	if err != nil {
		t.Fatalf("ScanDir: %v", err)
	}

	names := make([]string, 0, len(sources))
	for _, src := range sources {
		names = append(names, src.SetName)
	}
	sort.Strings(names)
	if len(names) != 2 || names[0] != "loose" || names[1] != "parent" {
		t.Fatalf("set names = %v, want loose and parent", names)
	}
	if len(extras) != 1 || filepath.Base(extras[0]) != "notes.txt" {
		t.Fatalf("extras = %v, want notes.txt", extras)
	}
}

func TestBelongsToSet(t *testing.T) {
	if !BelongsToSet("parent.zip", "parent") {
		t.Fatal("parent.zip should belong to parent")
	}
	if !BelongsToSet("Parent.ZIP", "Parent") {
		t.Fatal("extension match should ignore case")
	}
	if BelongsToSet("parents.zip", "parent") {
		t.Fatal("parents.zip should not belong to parent")
	}
	if BelongsToSet("parent", "parent") {
		t.Fatal("a bare name without the zip extension is not an archive")
	}
}

func TestScanDirPrefersZipOverDirectory(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "dup", "rom.bin"), "alpha")
	testsupport.WriteZip(t, filepath.Join(dir, "dup.zip"), map[string]string{"rom.bin": "alpha"})

	sources, extras, err := ScanDir(dir)
	if err != nil {
		t.Fatalf("ScanDir: %v", err)
	}
	if len(sources) != 1 || sources[0].SetName != "dup" {
		t.Fatalf("sources = %v, want one source for dup", sources)
	}
	if filepath.Ext(sources[0].Path) != ".zip" {
		t.Fatalf("picked container = %s, want the zip", sources[0].Path)
	}
	if len(extras) != 1 || filepath.Base(extras[0]) != "dup" {
		t.Fatalf("extras = %v, want the shadowed directory", extras)
	}
}
