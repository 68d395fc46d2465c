// Package catalogdb persists an imported catalog in SQLite and serves the
// catalog.Store read interface over it. Content checksums are stored once
// and shared between the machines declaring them, mirroring how merged
// romsets share bytes.
package catalogdb
