package catalog

import (
	"fmt"
	"strings"
)

// Checksum is the content identity of a part: a CRC32 and SHA1 pair stored as
// lowercase hex. Content identity is always the checksum pair, never the
// logical name. The zero value means "no checksum" (a no-dump part).
type Checksum struct {
	CRC  string
	SHA1 string
}

// NewChecksum normalizes raw attribute values into a Checksum. Catalogs in the
// wild carry inconsistently cased hex; both components are lowercased and CRC
// values shorter than eight digits are zero-padded.
func NewChecksum(crc, sha1 string) Checksum {
	crc = strings.ToLower(strings.TrimSpace(crc))
	if n := len(crc); n > 0 && n < 8 {
		crc = strings.Repeat("0", 8-n) + crc
	}
	return Checksum{
		CRC:  crc,
		SHA1: strings.ToLower(strings.TrimSpace(sha1)),
	}
}

// IsZero reports whether no checksum component is present.
func (c Checksum) IsZero() bool {
	return c.CRC == "" && c.SHA1 == ""
}

// Matches reports whether two checksums identify the same content. Components
// missing on either side are ignored; at least one component must be present
// on both sides and agree.
func (c Checksum) Matches(other Checksum) bool {
	if c.IsZero() || other.IsZero() {
		return false
	}
	matched := false
	if c.SHA1 != "" && other.SHA1 != "" {
		if c.SHA1 != other.SHA1 {
			return false
		}
		matched = true
	}
	if c.CRC != "" && other.CRC != "" {
		if c.CRC != other.CRC {
			return false
		}
		matched = true
	}
	return matched
}

// Key returns a stable map key for indexing. SHA1 wins when present since it
// fully determines the content; CRC-only parts fall back to the CRC.
func (c Checksum) Key() string {
	if c.SHA1 != "" {
		return "sha1:" + c.SHA1
	}
	if c.CRC != "" {
		return "crc:" + c.CRC
	}
	return ""
}

func (c Checksum) String() string {
	switch {
	case c.IsZero():
		return "(no checksum)"
	case c.SHA1 == "":
		return fmt.Sprintf("crc:%s", c.CRC)
	case c.CRC == "":
		return fmt.Sprintf("sha1:%s", c.SHA1)
	default:
		return fmt.Sprintf("crc:%s sha1:%s", c.CRC, c.SHA1)
	}
}
