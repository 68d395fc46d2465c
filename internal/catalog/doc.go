// Package catalog defines the data model for DAT catalogs: machines, their
// content parts (roms and disks), samples, and device references, together
// with the read-only Store interface the engines consume. Entities are
// produced once by an importer and never mutated afterwards.
package catalog
