// Package romset resolves the effective content requirement of every machine
// in a catalog. It follows romof/cloneof inheritance chains under the three
// physical packaging policies (split, merged, non-merged), detects malformed
// ancestry, and maintains the catalog-wide checksum index consumed by
// verification and by cross-set queries.
package romset
