package romset

import (
	"context"
	"fmt"
	"strings"

	"github.com/nico2sh/romst/internal/catalog"
)

// indexEntry pairs a declaring location with the checksum it was declared
// under, so lookups can confirm a component-level hit with Matches.
type indexEntry struct {
	loc catalog.Location
	sum catalog.Checksum
}

// Index is the catalog-wide map from content checksum to every (machine,
// logical name) pair declaring it. It is built once from a loaded catalog and
// immutable afterwards, so concurrent verification workers share it without
// locking. Loading new catalog data means building a fresh Index and swapping
// the pointer, never mutating in place.
//
// Parts are indexed under every checksum component they carry. Catalogs
// declare partial checksums (CRC without SHA1) while hashed collection files
// always carry both, so a single preferred key would never join the two.
type Index struct {
	byComponent map[string][]indexEntry
	canonical   map[string][]catalog.Location

	machines       int
	parts          int
	noDumpParts    int
	deviceMachines int
}

// BuildIndex walks the whole store and indexes every part carrying a real
// checksum. No-dump parts are counted but never indexed.
func BuildIndex(ctx context.Context, store catalog.Store) (*Index, error) {
	names, err := store.ListMachines(ctx)
	if err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}

	ix := &Index{
		byComponent: make(map[string][]indexEntry),
		canonical:   make(map[string][]catalog.Location),
		machines:    len(names),
	}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		machine, err := store.GetMachine(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("get machine %s: %w", name, err)
		}
		if machine != nil && machine.IsDevice {
			ix.deviceMachines++
		}
		parts, err := store.PartsOf(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("parts of %s: %w", name, err)
		}
		ix.parts += len(parts)
		for _, part := range parts {
			if part.NoDump || part.Sum.IsZero() {
				ix.noDumpParts++
				continue
			}
			loc := catalog.Location{Machine: name, Part: part.Name}
			entry := indexEntry{loc: loc, sum: part.Sum}
			if part.Sum.SHA1 != "" {
				key := "sha1:" + part.Sum.SHA1
				ix.byComponent[key] = append(ix.byComponent[key], entry)
			}
			if part.Sum.CRC != "" {
				key := "crc:" + part.Sum.CRC
				ix.byComponent[key] = append(ix.byComponent[key], entry)
			}
			key := part.Sum.Key()
			ix.canonical[key] = append(ix.canonical[key], loc)
		}
	}
	return ix, nil
}

// Lookup returns every location declaring content matching the checksum.
// A part declared with only one component still matches a full pair sharing
// it. Duplicates within one machine are preserved; callers decide their
// significance.
func (ix *Index) Lookup(sum catalog.Checksum) []catalog.Location {
	if sum.IsZero() {
		return nil
	}
	var out []catalog.Location
	if sum.SHA1 != "" {
		for _, e := range ix.byComponent["sha1:"+sum.SHA1] {
			if e.sum.Matches(sum) {
				out = append(out, e.loc)
			}
		}
	}
	if sum.CRC != "" {
		for _, e := range ix.byComponent["crc:"+sum.CRC] {
			// Entries carrying a SHA1 were already considered above when
			// the lookup sum carries one too.
			if sum.SHA1 != "" && e.sum.SHA1 != "" {
				continue
			}
			if e.sum.Matches(sum) {
				out = append(out, e.loc)
			}
		}
	}
	return out
}

// Contains reports whether any machine declares the checksum.
func (ix *Index) Contains(sum catalog.Checksum) bool {
	return len(ix.Lookup(sum)) > 0
}

// DistinctChecksums returns the number of distinct indexed checksums.
func (ix *Index) DistinctChecksums() int { return len(ix.canonical) }

// Machines returns the number of machines seen at build time.
func (ix *Index) Machines() int { return ix.machines }

// Parts returns the total number of declared parts, no-dump included.
func (ix *Index) Parts() int { return ix.parts }

// NoDumpParts returns the number of parts excluded for carrying no checksum.
func (ix *Index) NoDumpParts() int { return ix.noDumpParts }

// DeviceMachines returns the number of device-only machines.
func (ix *Index) DeviceMachines() int { return ix.deviceMachines }

// Shared returns checksums declared by two or more distinct machines, mapped
// to their locations. CRC-only declarations are folded into full-pair groups
// sharing their CRC, so partial declarations of the same content count as the
// same checksum. Used by the query engine for "roms used across sets".
func (ix *Index) Shared() map[string][]catalog.Location {
	merged := make(map[string][]catalog.Location, len(ix.canonical))
	for key, locs := range ix.canonical {
		merged[key] = append(merged[key], locs...)
	}
	for key, locs := range ix.canonical {
		if !strings.HasPrefix(key, "crc:") {
			continue
		}
		targets := make(map[string]struct{})
		for _, e := range ix.byComponent[key] {
			if e.sum.SHA1 != "" {
				targets["sha1:"+e.sum.SHA1] = struct{}{}
			}
		}
		if len(targets) == 0 {
			continue
		}
		for target := range targets {
			merged[target] = append(merged[target], locs...)
		}
		delete(merged, key)
	}

	shared := make(map[string][]catalog.Location)
	for key, locs := range merged {
		distinct := make(map[string]struct{}, len(locs))
		for _, loc := range locs {
			distinct[loc.Machine] = struct{}{}
		}
		if len(distinct) >= 2 {
			shared[key] = locs
		}
	}
	return shared
}
