// Package services defines shared utilities consumed across the engines and
// the CLI.
//
// Key responsibilities:
//   - Context helpers that stamp machine names, scan phases, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures classify
//     consistently: catalog integrity problems stay scoped to one machine,
//     IO problems attach to the affected file, configuration problems abort.
package services
