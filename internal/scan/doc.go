// Package scan matches real on-disk archive content against resolved machine
// requirements. It hashes supplied files once, classifies every expected part
// (ok, misnamed, fixable from elsewhere, missing, unknown), flags unneeded
// files, and aggregates per-machine reports for a whole collection run on a
// bounded worker pool.
package scan
