// Package logging assembles structured slog loggers shared across the
// command surface and scan pipeline.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so scan code can tag log
// lines with machine names, phases, and correlation IDs. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
