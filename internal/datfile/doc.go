// Package datfile parses Logiqx-style DAT documents, the XML catalogs
// emitted by MAME and DAT managers. Parsing is streaming: machines are
// handed to a Sink one at a time, so arbitrarily large DATs import in
// constant memory. Malformed entries are skipped and counted, never fatal.
package datfile
