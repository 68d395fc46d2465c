package romset

import (
	"context"
	"fmt"

	"github.com/nico2sh/romst/internal/catalog"
	"github.com/nico2sh/romst/internal/services"
)

// ExpectedPart is one entry of a machine's effective content set. Where names
// the set whose physical archive must hold the bytes under the active policy;
// for split-policy merge parts this is the owning ancestor, otherwise the
// machine itself.
type ExpectedPart struct {
	Part catalog.ContentPart
	// Where is the set name whose archive is expected to hold the content.
	Where string
	// Donor is the ancestor part satisfying a merge tag, when one resolved.
	Donor catalog.Location
	// Unresolved marks parts whose inheritance could not be resolved
	// (dangling merge tag or missing ancestor). They verify as missing
	// content, with the cause attached to the set's issues.
	Unresolved bool
}

// Local reports whether the part is expected inside the machine's own archive.
func (p ExpectedPart) Local() bool { return p.Where == p.Part.Machine }

// ExpectedSample is a sample requirement, resolved by name only.
type ExpectedSample struct {
	Name string
	// Where is the sample set expected to contain it.
	Where string
}

// EffectiveSet is the fully resolved requirement of one machine under one
// policy: the parts to verify, the samples to verify, and any catalog
// inconsistencies found while resolving. Issues never abort the run; they
// ride along to the machine's report.
type EffectiveSet struct {
	Machine string
	Policy  Policy
	Parts   []ExpectedPart
	Samples []ExpectedSample
	Issues  []error
}

// Resolver computes effective content sets against a read-only catalog store.
// Safe for concurrent use.
type Resolver struct {
	store catalog.Store
}

// NewResolver returns a Resolver over the store.
func NewResolver(store catalog.Store) *Resolver {
	return &Resolver{store: store}
}

// EffectiveSet resolves the machine's requirement under the policy. A cyclic
// ancestry or a duplicate logical part name is fatal for this machine only
// and returns a services.ErrIntegrity error; missing ancestors and dangling
// merge tags degrade the affected parts and are recorded as issues instead.
func (r *Resolver) EffectiveSet(ctx context.Context, name string, policy Policy) (*EffectiveSet, error) {
	machine, err := r.store.GetMachine(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get machine %s: %w", name, err)
	}
	if machine == nil {
		return nil, services.Wrap(services.ErrNotFound, "romset", "resolve", fmt.Sprintf("machine %q is not in the catalog", name), nil)
	}

	ancestry, err := r.romAncestry(ctx, machine)
	if err != nil {
		return nil, err
	}

	parts, err := r.store.PartsOf(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("parts of %s: %w", name, err)
	}
	if dup := firstDuplicateName(parts); dup != "" {
		return nil, services.Wrap(services.ErrIntegrity, "romset", "resolve",
			fmt.Sprintf("machine %q declares part %q more than once", name, dup), nil)
	}

	es := &EffectiveSet{Machine: name, Policy: policy}
	es.Issues = append(es.Issues, ancestry.issues...)

	for _, part := range parts {
		expected := ExpectedPart{Part: part, Where: name}
		if part.Merge != "" && !part.NoDump {
			donor, issue := findMergeDonor(part, ancestry.chain)
			if issue != nil {
				es.Issues = append(es.Issues, issue)
			}
			switch {
			case donor == nil && ancestry.truncated:
				// The owning ancestor is absent from the catalog; the
				// part can only verify as missing content.
				expected.Unresolved = true
			case donor == nil:
				// Dangling merge tag: catalog inconsistency, the part is
				// still required from the machine's own archive.
			default:
				expected.Donor = *donor
				if policy == Split {
					expected.Where = donor.Machine
				}
			}
		}
		es.Parts = append(es.Parts, expected)
	}

	if policy == Merged {
		if err := r.applyMergedPolicy(ctx, machine, ancestry, es); err != nil {
			return nil, err
		}
	}

	if err := r.resolveSamples(ctx, machine, policy, es); err != nil {
		return nil, err
	}

	return es, nil
}

// applyMergedPolicy retargets a clone's parts at the root parent archive and,
// for a parent machine, pulls in its clones' clone-specific parts so the
// shared archive verifies as one unit.
func (r *Resolver) applyMergedPolicy(ctx context.Context, machine *catalog.Machine, ancestry ancestryResult, es *EffectiveSet) error {
	if root := ancestry.cloneRoot; root != "" && root != machine.Name {
		for i := range es.Parts {
			es.Parts[i].Where = root
		}
		return nil
	}

	clones, err := r.clonesOf(ctx, machine.Name)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(es.Parts))
	for _, p := range es.Parts {
		seen[mergedPartKey(p.Part)] = struct{}{}
	}
	for _, clone := range clones {
		parts, err := r.store.PartsOf(ctx, clone)
		if err != nil {
			return fmt.Errorf("parts of %s: %w", clone, err)
		}
		for _, part := range parts {
			if part.Merge != "" {
				// Merge-tagged clone parts duplicate parent content.
				continue
			}
			key := mergedPartKey(part)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			es.Parts = append(es.Parts, ExpectedPart{Part: part, Where: machine.Name})
		}
	}
	return nil
}

func (r *Resolver) resolveSamples(ctx context.Context, machine *catalog.Machine, policy Policy, es *EffectiveSet) error {
	names, err := r.store.SamplesOf(ctx, machine.Name)
	if err != nil {
		return fmt.Errorf("samples of %s: %w", machine.Name, err)
	}
	where := machine.Name
	if parent := machine.SampleParent(); parent != "" && policy != NonMerged {
		if parent == machine.Name {
			return services.Wrap(services.ErrIntegrity, "romset", "resolve",
				fmt.Sprintf("machine %q is its own sample parent", machine.Name), nil)
		}
		where = parent
	}
	for _, sample := range names {
		es.Samples = append(es.Samples, ExpectedSample{Name: sample, Where: where})
	}
	return nil
}

// ancestryResult carries the romof chain (nearest ancestor first), whether it
// was cut short by a machine absent from the store, and the root of the
// cloneof chain for merged-policy retargeting.
type ancestryResult struct {
	chain     []ancestorParts
	truncated bool
	cloneRoot string
	issues    []error
}

type ancestorParts struct {
	machine *catalog.Machine
	parts   []catalog.ContentPart
}

func (r *Resolver) romAncestry(ctx context.Context, machine *catalog.Machine) (ancestryResult, error) {
	var result ancestryResult

	visited := map[string]struct{}{machine.Name: {}}
	current := machine
	for current.RomParent() != "" {
		parentName := current.RomParent()
		if _, ok := visited[parentName]; ok {
			return result, services.Wrap(services.ErrIntegrity, "romset", "resolve",
				fmt.Sprintf("cyclic romof ancestry through %q", parentName), nil)
		}
		visited[parentName] = struct{}{}

		parent, err := r.store.GetMachine(ctx, parentName)
		if err != nil {
			return result, fmt.Errorf("get machine %s: %w", parentName, err)
		}
		if parent == nil {
			result.truncated = true
			result.issues = append(result.issues, services.Wrap(services.ErrNotFound, "romset", "resolve",
				fmt.Sprintf("ancestor %q of %q is not in the catalog", parentName, machine.Name), nil))
			break
		}
		parts, err := r.store.PartsOf(ctx, parentName)
		if err != nil {
			return result, fmt.Errorf("parts of %s: %w", parentName, err)
		}
		result.chain = append(result.chain, ancestorParts{machine: parent, parts: parts})
		current = parent
	}

	root, err := r.cloneRoot(ctx, machine)
	if err != nil {
		return result, err
	}
	result.cloneRoot = root
	return result, nil
}

func (r *Resolver) cloneRoot(ctx context.Context, machine *catalog.Machine) (string, error) {
	visited := map[string]struct{}{machine.Name: {}}
	current := machine
	for current.CloneOf != "" {
		parentName := current.CloneOf
		if _, ok := visited[parentName]; ok {
			return "", services.Wrap(services.ErrIntegrity, "romset", "resolve",
				fmt.Sprintf("cyclic cloneof ancestry through %q", parentName), nil)
		}
		visited[parentName] = struct{}{}
		parent, err := r.store.GetMachine(ctx, parentName)
		if err != nil {
			return "", fmt.Errorf("get machine %s: %w", parentName, err)
		}
		if parent == nil {
			// Dangling cloneof: the nearest existing machine is the root.
			return current.Name, nil
		}
		current = parent
	}
	return current.Name, nil
}

// clonesOf returns machines whose cloneof points directly at the parent.
func (r *Resolver) clonesOf(ctx context.Context, parent string) ([]string, error) {
	names, err := r.store.ListMachines(ctx)
	if err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}
	var clones []string
	for _, name := range names {
		m, err := r.store.GetMachine(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("get machine %s: %w", name, err)
		}
		if m != nil && m.CloneOf == parent {
			clones = append(clones, name)
		}
	}
	return clones, nil
}

// findMergeDonor locates the nearest romof ancestor part supplying a
// merge-tagged part's content. Checksum identity decides; the merge name is a
// hint. A name match with a different checksum is a catalog inconsistency.
func findMergeDonor(part catalog.ContentPart, chain []ancestorParts) (*catalog.Location, error) {
	var nameMismatch *catalog.Location
	for _, ancestor := range chain {
		for _, candidate := range ancestor.parts {
			if candidate.NoDump {
				continue
			}
			if candidate.Sum.Matches(part.Sum) {
				return &catalog.Location{Machine: ancestor.machine.Name, Part: candidate.Name}, nil
			}
			if nameMismatch == nil && candidate.Name == part.Merge {
				nameMismatch = &catalog.Location{Machine: ancestor.machine.Name, Part: candidate.Name}
			}
		}
	}
	if nameMismatch != nil {
		return nil, services.Wrap(services.ErrIntegrity, "romset", "resolve",
			fmt.Sprintf("part %q of %q merges %q from %q but checksums differ",
				part.Name, part.Machine, part.Merge, nameMismatch.Machine), nil)
	}
	return nil, services.Wrap(services.ErrIntegrity, "romset", "resolve",
		fmt.Sprintf("part %q of %q carries merge tag %q but no romof ancestor declares that content",
			part.Name, part.Machine, part.Merge), nil)
}

func firstDuplicateName(parts []catalog.ContentPart) string {
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		key := string(part.Kind) + "/" + part.Name
		if _, ok := seen[key]; ok {
			return part.Name
		}
		seen[key] = struct{}{}
	}
	return ""
}

func mergedPartKey(part catalog.ContentPart) string {
	if part.Sum.IsZero() {
		return "name/" + part.Name
	}
	return part.Sum.Key() + "/" + part.Name
}
