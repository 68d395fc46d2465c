// Package query answers aggregate questions over a loaded catalog: content
// shared across machines, sets derivable from an ancestor, and catalog-wide
// counts. It derives everything from the catalog store and the checksum
// index and holds no state of its own.
package query
