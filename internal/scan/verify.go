package scan

import (
	"context"

	"github.com/nico2sh/romst/internal/catalog"
	"github.com/nico2sh/romst/internal/romset"
	"github.com/nico2sh/romst/internal/services"
)

// Verifier classifies supplied archive content against resolved machine
// requirements. It holds only immutable state (resolver over a read-only
// store, prebuilt index) and is safe for concurrent use.
type Verifier struct {
	resolver *romset.Resolver
	index    *romset.Index
}

// NewVerifier returns a Verifier over the resolver and index.
func NewVerifier(resolver *romset.Resolver, index *romset.Index) *Verifier {
	return &Verifier{resolver: resolver, index: index}
}

// Verify produces the report for one machine given the hashed contents of its
// archive. The view answers cross-archive lookups; nil means no collection
// context, limiting classification to the supplied files. Machine-scoped
// failures land in the report; only store access errors and cancellation
// surface as a returned error.
func (v *Verifier) Verify(ctx context.Context, machine string, files []HashedFile, policy romset.Policy, view *CollectionView) (*SetReport, error) {
	report := &SetReport{Machine: machine, Policy: policy}
	if view != nil {
		report.Archive = view.ArchiveOf(machine)
	}

	es, err := v.resolver.EffectiveSet(ctx, machine, policy)
	if err != nil {
		if services.IsMachineScoped(err) {
			report.Status = SetErrored
			report.Errors = append(report.Errors, err.Error())
			return report, nil
		}
		return nil, err
	}
	for _, issue := range es.Issues {
		report.Errors = append(report.Errors, issue.Error())
	}

	// First pass: exact name+checksum matches claim their files before any
	// content-only matching, so a file satisfying one part by name is never
	// stolen by an earlier part sharing the checksum.
	used := make([]bool, len(files))
	claimed := make([]int, len(es.Parts))
	for pi, expected := range es.Parts {
		claimed[pi] = -1
		part := expected.Part
		if part.NoDump || expected.Unresolved {
			continue
		}
		for fi, file := range files {
			if used[fi] || file.Name != part.Name || !file.Readable() {
				continue
			}
			if file.Sum.Matches(part.Sum) {
				used[fi] = true
				claimed[pi] = fi
				break
			}
		}
	}
	for pi, expected := range es.Parts {
		report.Parts = append(report.Parts, v.classifyPart(machine, expected, files, used, claimed[pi], view))
	}

	for _, sample := range es.Samples {
		report.Samples = append(report.Samples, v.checkSample(machine, sample, files, used, view))
	}

	for i, file := range files {
		if used[i] {
			continue
		}
		leftover := FileResult{Name: file.Name, Sum: file.Sum}
		if !file.Readable() {
			leftover.Unreadable = file.Err
			report.Errors = append(report.Errors, "unreadable entry "+file.Name+": "+file.Err)
		} else {
			leftover.Misplaced = v.requiredElsewhere(machine, file.Sum)
		}
		report.Unneeded = append(report.Unneeded, leftover)
	}

	report.Status = overallStatus(report.Parts)
	return report, nil
}

func (v *Verifier) classifyPart(machine string, expected romset.ExpectedPart, files []HashedFile, used []bool, claimed int, view *CollectionView) PartResult {
	part := expected.Part
	result := PartResult{Part: part, Where: expected.Where}

	switch {
	case part.NoDump:
		result.Status = StatusUnknown
		return result
	case expected.Unresolved:
		result.Status = StatusMissing
		result.Cause = "inheritance unresolved: ancestor machine absent from the catalog"
		return result
	case claimed >= 0:
		// Exact name+checksum match, claimed in the first pass.
		result.Status = StatusOK
		return result
	}

	// An unreadable entry under the expected name claims the part. A name
	// match with wrong content does not claim the file; content matching
	// below may still satisfy the part, and the wrong-content file falls
	// through to the unneeded list.
	for i, file := range files {
		if used[i] || file.Name != part.Name {
			continue
		}
		if !file.Readable() {
			used[i] = true
			result.Status = StatusMissing
			result.Cause = "unreadable entry: " + file.Err
			return result
		}
	}

	// Content match under any name.
	for i, file := range files {
		if used[i] || !file.Readable() || !file.Sum.Matches(part.Sum) {
			continue
		}
		used[i] = true
		if expected.Local() {
			result.Status = StatusMisnamed
			result.RenameFrom = file.Name
		} else {
			// Split policy expects the content in the ancestor archive,
			// but a local copy still satisfies the requirement.
			result.Status = StatusOK
		}
		return result
	}

	// A single physical file cannot satisfy two expected parts: if the
	// content was already claimed by another logical name, say so instead
	// of reporting plain missing.
	for i, file := range files {
		if used[i] && file.Readable() && file.Sum.Matches(part.Sum) {
			result.Status = StatusDuplicateUnresolved
			result.Cause = "content already claimed by another expected part; only one physical copy supplied"
			return result
		}
	}

	if view != nil {
		// For non-local parts the owning ancestor archive satisfies the
		// requirement outright.
		if !expected.Local() {
			if entry, ok := view.FindIn(part.Sum, expected.Where); ok {
				result.Status = StatusOK
				result.FixFrom = &Donor{Set: expected.Where, Archive: view.ArchiveOf(expected.Where), Entry: entry}
				return result
			}
		}
		if donors := view.Donors(part.Sum, machine); len(donors) > 0 {
			donor := donors[0]
			result.Status = StatusFixable
			result.FixFrom = &donor
			return result
		}
	}

	result.Status = StatusMissing
	return result
}

func (v *Verifier) checkSample(machine string, sample romset.ExpectedSample, files []HashedFile, used []bool, view *CollectionView) SampleResult {
	result := SampleResult{Name: sample.Name, Where: sample.Where}
	if sample.Where == machine {
		for i, file := range files {
			if sampleNameMatches(file.Name, sample.Name) {
				used[i] = true
				result.Present = true
				return result
			}
		}
		return result
	}
	if view == nil {
		return result
	}
	for _, file := range view.FilesOf(sample.Where) {
		if sampleNameMatches(file.Name, sample.Name) {
			result.Present = true
			return result
		}
	}
	return result
}

func (v *Verifier) requiredElsewhere(machine string, sum catalog.Checksum) []catalog.Location {
	if v.index == nil {
		return nil
	}
	var elsewhere []catalog.Location
	for _, loc := range v.index.Lookup(sum) {
		if loc.Machine != machine {
			elsewhere = append(elsewhere, loc)
		}
	}
	return elsewhere
}

func overallStatus(parts []PartResult) SetStatus {
	complete := true
	fixable := true
	for _, p := range parts {
		switch p.Status {
		case StatusUnknown, StatusOK:
			continue
		case StatusMisnamed, StatusFixable:
			complete = false
		default:
			complete = false
			fixable = false
		}
	}
	switch {
	case complete:
		return SetComplete
	case fixable:
		return SetFixable
	default:
		return SetIncomplete
	}
}

func sampleNameMatches(entry, sample string) bool {
	if entry == sample {
		return true
	}
	if dot := lastDot(entry); dot > 0 && entry[:dot] == sample {
		return true
	}
	return false
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
		if s[i] == '/' {
			break
		}
	}
	return -1
}
