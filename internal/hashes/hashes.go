// Package hashes computes the checksum pair used for content identity.
// The function is injected into the verification engine so tests can swap
// it for a canned implementation.
package hashes

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/nico2sh/romst/internal/catalog"
)

// Func hashes a byte stream into a checksum pair plus the byte count.
// Implementations must consume the reader exactly once.
type Func func(r io.Reader) (catalog.Checksum, int64, error)

// Compute is the default Func: CRC32 (IEEE) and SHA1 in a single pass.
func Compute(r io.Reader) (catalog.Checksum, int64, error) {
	crc := crc32.NewIEEE()
	sha := sha1.New()
	n, err := io.Copy(io.MultiWriter(crc, sha), r)
	if err != nil {
		return catalog.Checksum{}, n, fmt.Errorf("hash stream: %w", err)
	}
	sum := catalog.Checksum{
		CRC:  fmt.Sprintf("%08x", crc.Sum32()),
		SHA1: hex.EncodeToString(sha.Sum(nil)),
	}
	return sum, n, nil
}
