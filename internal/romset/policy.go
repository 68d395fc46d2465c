package romset

import (
	"fmt"
	"strings"
)

// Policy is the physical packaging policy for a collection. The catalog data
// is the same under every policy; what changes is where inherited content is
// expected to physically live.
type Policy int

const (
	// NonMerged expects every part, including inherited ones, physically
	// present in the machine's own archive. This is the default.
	NonMerged Policy = iota
	// Split expects merge-tagged content only in the ancestor archive that
	// owns it.
	Split
	// Merged expects a clone's content inside the shared parent archive.
	Merged
)

// ParsePolicy converts the user-facing policy name.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "non-merged", "nonmerged":
		return NonMerged, nil
	case "split":
		return Split, nil
	case "merged":
		return Merged, nil
	default:
		return NonMerged, fmt.Errorf("invalid set mode %q: must be `merged`, `split` or `non-merged`", s)
	}
}

func (p Policy) String() string {
	switch p {
	case Split:
		return "split"
	case Merged:
		return "merged"
	default:
		return "non-merged"
	}
}
