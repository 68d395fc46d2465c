package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/nico2sh/romst/internal/catalog"
	"github.com/nico2sh/romst/internal/romset"
	"github.com/nico2sh/romst/internal/services"
)

// Engine runs read-only queries against a catalog and its checksum index.
type Engine struct {
	store    catalog.Store
	index    *romset.Index
	resolver *romset.Resolver
}

// New returns an engine over the store and prebuilt index.
func New(store catalog.Store, index *romset.Index) *Engine {
	return &Engine{
		store:    store,
		index:    index,
		resolver: romset.NewResolver(store),
	}
}

// SharedChecksum is one piece of content declared by two or more machines.
type SharedChecksum struct {
	Key       string
	Locations []catalog.Location
}

// SharedContent lists checksums declared by at least two distinct machines,
// each with its declaring locations in machine order.
func (e *Engine) SharedContent() []SharedChecksum {
	shared := e.index.Shared()
	out := make([]SharedChecksum, 0, len(shared))
	for key, locs := range shared {
		sorted := append([]catalog.Location(nil), locs...)
		sort.Slice(sorted, func(i, j int) bool {
			if sorted[i].Machine != sorted[j].Machine {
				return sorted[i].Machine < sorted[j].Machine
			}
			return sorted[i].Part < sorted[j].Part
		})
		out = append(out, SharedChecksum{Key: key, Locations: sorted})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// PartUsage returns every other machine declaring the same content as the
// named part, answering "where else is this rom used".
func (e *Engine) PartUsage(ctx context.Context, machine, part string) ([]catalog.Location, error) {
	parts, err := e.store.PartsOf(ctx, machine)
	if err != nil {
		return nil, fmt.Errorf("parts of %s: %w", machine, err)
	}
	for _, p := range parts {
		if p.Name != part {
			continue
		}
		if p.NoDump || p.Sum.IsZero() {
			return nil, nil
		}
		var usage []catalog.Location
		for _, loc := range e.index.Lookup(p.Sum) {
			if loc.Machine != machine {
				usage = append(usage, loc)
			}
		}
		sort.Slice(usage, func(i, j int) bool {
			if usage[i].Machine != usage[j].Machine {
				return usage[i].Machine < usage[j].Machine
			}
			return usage[i].Part < usage[j].Part
		})
		return usage, nil
	}
	return nil, services.Wrap(services.ErrNotFound, "query", "usage", fmt.Sprintf("machine %s declares no part %s", machine, part), nil)
}

// Derivation marks a machine whose content can be produced from an ancestor's
// archive plus its own clone-specific parts.
type Derivation struct {
	Machine  string
	Ancestor string
}

// DerivableSets returns (machine, ancestor) pairs where every part of the
// machine's full effective set either matches content in the ancestor's set
// or is a clone-specific part the machine declares itself. Machines whose
// resolution fails are skipped; the failure is theirs alone.
func (e *Engine) DerivableSets(ctx context.Context) ([]Derivation, error) {
	names, err := e.store.ListMachines(ctx)
	if err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}

	var out []Derivation
	for _, name := range names {
		machine, err := e.store.GetMachine(ctx, name)
		if err != nil {
			return nil, err
		}
		if machine == nil || !machine.HasParent() {
			continue
		}
		ancestor := machine.RomParent()

		derivable, err := e.derivableFrom(ctx, name, ancestor)
		if err != nil {
			if services.IsMachineScoped(err) {
				continue
			}
			return nil, err
		}
		if derivable {
			out = append(out, Derivation{Machine: name, Ancestor: ancestor})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Machine < out[j].Machine })
	return out, nil
}

func (e *Engine) derivableFrom(ctx context.Context, machine, ancestor string) (bool, error) {
	own, err := e.resolver.EffectiveSet(ctx, machine, romset.NonMerged)
	if err != nil {
		return false, err
	}
	ancestral, err := e.resolver.EffectiveSet(ctx, ancestor, romset.NonMerged)
	if err != nil {
		return false, err
	}

	// Indexed under every checksum component so a partial declaration on
	// either side still joins with a full pair sharing the component.
	available := make(map[string][]catalog.Checksum, len(ancestral.Parts))
	for _, part := range ancestral.Parts {
		sum := part.Part.Sum
		if part.Part.NoDump || sum.IsZero() {
			continue
		}
		if sum.SHA1 != "" {
			available["sha1:"+sum.SHA1] = append(available["sha1:"+sum.SHA1], sum)
		}
		if sum.CRC != "" {
			available["crc:"+sum.CRC] = append(available["crc:"+sum.CRC], sum)
		}
	}
	covered := func(sum catalog.Checksum) bool {
		if sum.SHA1 != "" {
			for _, s := range available["sha1:"+sum.SHA1] {
				if s.Matches(sum) {
					return true
				}
			}
		}
		if sum.CRC != "" {
			for _, s := range available["crc:"+sum.CRC] {
				if s.Matches(sum) {
					return true
				}
			}
		}
		return false
	}

	for _, expected := range own.Parts {
		part := expected.Part
		if part.NoDump || part.Sum.IsZero() {
			continue
		}
		if covered(part.Sum) {
			continue
		}
		if part.Machine == machine && part.Merge == "" {
			// Clone-specific content the machine supplies itself.
			continue
		}
		return false, nil
	}
	return true, nil
}

// Stats are catalog-wide counts, mirroring what the importer loaded.
type Stats struct {
	Machines          int
	Parts             int
	DistinctChecksums int
	NoDumpParts       int
	DeviceMachines    int
	Samples           int
	DeviceRefs        int
}

// Stats aggregates counts over the store and index.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		Machines:          e.index.Machines(),
		Parts:             e.index.Parts(),
		DistinctChecksums: e.index.DistinctChecksums(),
		NoDumpParts:       e.index.NoDumpParts(),
		DeviceMachines:    e.index.DeviceMachines(),
	}

	names, err := e.store.ListMachines(ctx)
	if err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}
	for _, name := range names {
		samples, err := e.store.SamplesOf(ctx, name)
		if err != nil {
			return nil, err
		}
		stats.Samples += len(samples)
		refs, err := e.store.DeviceRefsOf(ctx, name)
		if err != nil {
			return nil, err
		}
		stats.DeviceRefs += len(refs)
	}
	return stats, nil
}
