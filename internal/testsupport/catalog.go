package testsupport

import (
	"strings"
	"testing"

	"github.com/nico2sh/romst/internal/catalog"
	"github.com/nico2sh/romst/internal/hashes"
)

// SumOf computes the checksum pair for a literal body, so fixtures can
// declare catalog requirements matching zip entries written with WriteZip.
func SumOf(t testing.TB, body string) catalog.Checksum {
	t.Helper()

	sum, _, err := hashes.Compute(strings.NewReader(body))
	if err != nil {
		t.Fatalf("hash fixture body: %v", err)
	}
	return sum
}
