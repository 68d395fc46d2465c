package scan

import (
	"sort"
	"time"

	"github.com/nico2sh/romst/internal/catalog"
	"github.com/nico2sh/romst/internal/romset"
)

// PartStatus classifies one expected part after verification.
type PartStatus string

const (
	// StatusOK means a supplied file with the expected name and checksum exists.
	StatusOK PartStatus = "ok"
	// StatusMisnamed means the content exists in the archive under another name.
	StatusMisnamed PartStatus = "misnamed"
	// StatusFixable means the content exists in another archive of the collection.
	StatusFixable PartStatus = "fixable"
	// StatusMissing means the content was not found anywhere known.
	StatusMissing PartStatus = "missing"
	// StatusUnknown marks no-dump parts, reported informationally only.
	StatusUnknown PartStatus = "unknown"
	// StatusDuplicateUnresolved marks the second of two expected parts
	// sharing one checksum when only a single physical file is available.
	StatusDuplicateUnresolved PartStatus = "duplicate-unresolved"
)

// SetStatus is the overall verdict for one machine.
type SetStatus string

const (
	// SetComplete: every non-no-dump expected part is OK.
	SetComplete SetStatus = "complete"
	// SetFixable: every non-OK part is misnamed or fixable from elsewhere.
	SetFixable SetStatus = "fixable"
	// SetIncomplete: at least one part is genuinely missing.
	SetIncomplete SetStatus = "incomplete"
	// SetErrored: resolution failed for this machine (catalog integrity).
	SetErrored SetStatus = "errored"
)

// PartResult is the verification outcome for one expected part.
type PartResult struct {
	Part   catalog.ContentPart
	Status PartStatus
	// Where names the archive the part was expected in (differs from the
	// machine for split-policy merge parts).
	Where string
	// RenameFrom is the current entry name when Status is misnamed.
	RenameFrom string
	// FixFrom points at the donor archive entry when Status is fixable,
	// or at the satisfying ancestor entry for split merge parts.
	FixFrom *Donor
	// Cause carries the reason a part degraded (unreadable entry,
	// unresolved inheritance).
	Cause string
}

// Donor locates content inside another archive of the collection.
type Donor struct {
	Set     string
	Archive string
	Entry   string
}

func (d Donor) String() string { return d.Set + ":" + d.Entry }

// FileResult describes a supplied file that matched no expected part.
type FileResult struct {
	Name string
	Sum  catalog.Checksum
	// Misplaced is set when some other machine's requirement matches this
	// content, implying the file belongs elsewhere rather than being garbage.
	Misplaced []catalog.Location
	// Unreadable carries the read error for files that could not be hashed.
	Unreadable string
}

// SampleResult is a presence check for one expected sample.
type SampleResult struct {
	Name    string
	Where   string
	Present bool
}

// SetReport is the verification report for one machine. It is an independent
// unit of work: reports for distinct machines carry no cross-references and
// partial collections of them are always valid to emit.
type SetReport struct {
	Machine string
	Archive string
	Policy  romset.Policy
	Status  SetStatus

	Parts    []PartResult
	Samples  []SampleResult
	Unneeded []FileResult

	// Errors accumulates machine-scoped failures: integrity errors,
	// unreadable entries, resolution degradations. Never empty when
	// Status is errored.
	Errors []string
}

// Counts tallies part statuses for summary output.
func (r *SetReport) Counts() map[PartStatus]int {
	counts := make(map[PartStatus]int, len(r.Parts))
	for _, p := range r.Parts {
		counts[p.Status]++
	}
	return counts
}

// Report aggregates one verification run over a collection.
type Report struct {
	// SessionID correlates log lines with this run.
	SessionID string
	Policy    romset.Policy
	Started   time.Time
	Finished  time.Time

	Sets []SetReport
	// UnknownFiles lists collection entries that map to no machine at all.
	UnknownFiles []string
}

// Sort orders the report deterministically: sets by machine name, unknown
// files by path. Verification runs are concurrent, so completion order is
// arbitrary; sorting keeps identical inputs producing identical reports.
func (r *Report) Sort() {
	sort.Slice(r.Sets, func(i, j int) bool { return r.Sets[i].Machine < r.Sets[j].Machine })
	sort.Strings(r.UnknownFiles)
}

// Totals summarizes set statuses across the run.
func (r *Report) Totals() map[SetStatus]int {
	totals := make(map[SetStatus]int, 4)
	for i := range r.Sets {
		totals[r.Sets[i].Status]++
	}
	return totals
}
