package scan

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nico2sh/romst/internal/catalog"
	"github.com/nico2sh/romst/internal/catalog/memstore"
	"github.com/nico2sh/romst/internal/romset"
	"github.com/nico2sh/romst/internal/testsupport"
)

func newTestScanner(t *testing.T, store *memstore.Store, opts ScannerOptions) *Scanner {
	t.Helper()
	index, err := romset.BuildIndex(context.Background(), store)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	if opts.Workers == 0 {
		opts.Workers = 2
	}
	return NewScanner(store, index, opts)
}

func TestRunVerifiesCollectionDirectory(t *testing.T) {
	store := fixtureStore(t)
	dir := t.TempDir()
	testsupport.WriteZip(t, filepath.Join(dir, "parent.zip"), map[string]string{
		"rom1.bin": "alpha",
		"rom2.bin": "beta",
	})
	testsupport.WriteZip(t, filepath.Join(dir, "clone.zip"), map[string]string{
		"rom1.bin": "alpha",
		"rom3.bin": "gamma",
	})
	testsupport.WriteFile(t, filepath.Join(dir, "notes.txt"), "not a set")

	scanner := newTestScanner(t, store, ScannerOptions{})
	report, err := scanner.Run(context.Background(), dir, romset.NonMerged)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(report.Sets) != 2 {
		t.Fatalf("len(Sets) = %d, want 2", len(report.Sets))
	}
	if report.Sets[0].Machine != "clone" || report.Sets[1].Machine != "parent" {
		t.Fatalf("sets not sorted by machine: %s, %s", report.Sets[0].Machine, report.Sets[1].Machine)
	}
	for _, set := range report.Sets {
		if set.Status != SetComplete {
			t.Fatalf("set %s = %s, want complete", set.Machine, set.Status)
		}
	}
	if len(report.UnknownFiles) != 1 || filepath.Base(report.UnknownFiles[0]) != "notes.txt" {
		t.Fatalf("UnknownFiles = %v, want notes.txt", report.UnknownFiles)
	}
	if report.SessionID == "" {
		t.Fatal("report carries no session id")
	}
}

func TestRunReportsUnknownArchiveButUsesItAsDonor(t *testing.T) {
	store := fixtureStore(t)
	dir := t.TempDir()
	// Parent archive lacks rom2; a stranger archive holds the content.
	testsupport.WriteZip(t, filepath.Join(dir, "parent.zip"), map[string]string{
		"rom1.bin": "alpha",
	})
	testsupport.WriteZip(t, filepath.Join(dir, "mystery.zip"), map[string]string{
		"whatever.bin": "beta",
	})

	scanner := newTestScanner(t, store, ScannerOptions{})
	report, err := scanner.Run(context.Background(), dir, romset.NonMerged)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(report.Sets) != 1 {
		t.Fatalf("len(Sets) = %d, want 1", len(report.Sets))
	}
	set := report.Sets[0]
	if set.Status != SetFixable {
		t.Fatalf("parent status = %s, want fixable", set.Status)
	}
	part := findPart(t, &set, "rom2.bin")
	if part.Status != StatusFixable || part.FixFrom == nil || part.FixFrom.Set != "mystery" {
		t.Fatalf("rom2.bin = %+v, want fixable from mystery", part)
	}
	if len(report.UnknownFiles) != 1 || filepath.Base(report.UnknownFiles[0]) != "mystery.zip" {
		t.Fatalf("UnknownFiles = %v, want mystery.zip", report.UnknownFiles)
	}
}

func TestRunHandlesLooseDirectorySets(t *testing.T) {
	store := fixtureStore(t)
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "parent", "rom1.bin"), "alpha")
	testsupport.WriteFile(t, filepath.Join(dir, "parent", "rom2.bin"), "beta")

	scanner := newTestScanner(t, store, ScannerOptions{})
	report, err := scanner.Run(context.Background(), dir, romset.NonMerged)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Sets) != 1 || report.Sets[0].Status != SetComplete {
		t.Fatalf("report = %+v, want one complete set", report.Sets)
	}
}

func TestRunCancelledYieldsPartialReport(t *testing.T) {
	store := fixtureStore(t)
	dir := t.TempDir()
	testsupport.WriteZip(t, filepath.Join(dir, "parent.zip"), map[string]string{
		"rom1.bin": "alpha",
		"rom2.bin": "beta",
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scanner := newTestScanner(t, store, ScannerOptions{})
	report, err := scanner.Run(ctx, dir, romset.NonMerged)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if report == nil {
		t.Fatal("cancelled run returned no report")
	}
	if len(report.Sets) > 1 {
		t.Fatalf("partial report holds %d sets, more than the collection", len(report.Sets))
	}
}

func TestRunReportsProgress(t *testing.T) {
	store := fixtureStore(t)
	dir := t.TempDir()
	testsupport.WriteZip(t, filepath.Join(dir, "parent.zip"), map[string]string{
		"rom1.bin": "alpha",
		"rom2.bin": "beta",
	})
	testsupport.WriteZip(t, filepath.Join(dir, "clone.zip"), map[string]string{
		"rom1.bin": "alpha",
		"rom3.bin": "gamma",
	})

	final := map[string]int{}
	scanner := newTestScanner(t, store, ScannerOptions{
		Workers: 1,
		Progress: func(phase string, done, total int) {
			if done == total {
				final[phase] = total
			}
		},
	})
	if _, err := scanner.Run(context.Background(), dir, romset.NonMerged); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if final["hash"] != 2 || final["verify"] != 2 {
		t.Fatalf("progress totals = %v, want hash and verify at 2", final)
	}
}

func TestRunAgainstCatalogDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithScanMode("split"))
	store := testsupport.MustOpenStore(t, cfg)

	writer, err := store.BeginImport(context.Background())
	if err != nil {
		t.Fatalf("BeginImport: %v", err)
	}
	if err := writer.Machine(catalog.Machine{Name: "parent", Runnable: true}, []catalog.ContentPart{
		contentRom(t, "rom1.bin", "alpha"),
		contentRom(t, "rom2.bin", "beta"),
	}, nil, nil); err != nil {
		t.Fatalf("write parent: %v", err)
	}
	clone1 := contentRom(t, "rom1.bin", "alpha")
	clone1.Merge = "rom1.bin"
	if err := writer.Machine(catalog.Machine{Name: "clone", CloneOf: "parent", RomOf: "parent", Runnable: true}, []catalog.ContentPart{
		clone1,
		contentRom(t, "rom3.bin", "gamma"),
	}, nil, nil); err != nil {
		t.Fatalf("write clone: %v", err)
	}
	if err := writer.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	policy, err := romset.ParsePolicy(cfg.Scan.Mode)
	if err != nil {
		t.Fatalf("ParsePolicy(%q): %v", cfg.Scan.Mode, err)
	}

	// Split layout: merge-tagged content lives only in the parent archive.
	dir := t.TempDir()
	testsupport.WriteZip(t, filepath.Join(dir, "parent.zip"), map[string]string{
		"rom1.bin": "alpha",
		"rom2.bin": "beta",
	})
	testsupport.WriteZip(t, filepath.Join(dir, "clone.zip"), map[string]string{
		"rom3.bin": "gamma",
	})

	index, err := romset.BuildIndex(context.Background(), store)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	scanner := NewScanner(store, index, ScannerOptions{Workers: cfg.Scan.Workers})
	report, err := scanner.Run(context.Background(), dir, policy)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, set := range report.Sets {
		if set.Status != SetComplete {
			t.Fatalf("set %s = %s, want complete", set.Machine, set.Status)
		}
	}
}

func TestRunSurfacesUnreadableKnownArchive(t *testing.T) {
	store := fixtureStore(t)
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "parent.zip"), "not a zip")
	testsupport.WriteZip(t, filepath.Join(dir, "clone.zip"), map[string]string{
		"rom1.bin": "alpha",
		"rom3.bin": "gamma",
	})
	testsupport.WriteFile(t, filepath.Join(dir, "bogus.zip"), "also not a zip")

	scanner := newTestScanner(t, store, ScannerOptions{})
	report, err := scanner.Run(context.Background(), dir, romset.NonMerged)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	var parent *SetReport
	for i := range report.Sets {
		if report.Sets[i].Machine == "parent" {
			parent = &report.Sets[i]
		}
	}
	if parent == nil {
		t.Fatalf("parent absent from report sets: %+v", report.Sets)
	}
	if parent.Status != SetErrored {
		t.Fatalf("parent status = %s, want %s", parent.Status, SetErrored)
	}
	if len(parent.Errors) == 0 || !strings.Contains(parent.Errors[0], "unreadable archive") {
		t.Fatalf("parent errors = %v, want the open failure attached", parent.Errors)
	}

	unknown := false
	for _, f := range report.UnknownFiles {
		if filepath.Base(f) == "bogus.zip" {
			unknown = true
		}
		if filepath.Base(f) == "parent.zip" {
			t.Fatalf("parent.zip reported unknown instead of on its machine: %v", report.UnknownFiles)
		}
	}
	if !unknown {
		t.Fatalf("UnknownFiles = %v, want bogus.zip", report.UnknownFiles)
	}
}
