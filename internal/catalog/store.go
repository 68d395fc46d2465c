package catalog

import "context"

// Store is the read-only view of an imported catalog. Implementations must be
// safe for concurrent readers; the engines never write through this interface.
// Lookups for absent machines return (nil, nil) rather than an error so a
// semantically incomplete catalog (a dangling parent reference) degrades
// instead of failing a whole run.
type Store interface {
	// GetMachine returns the machine by name, or nil when unknown.
	GetMachine(ctx context.Context, name string) (*Machine, error)
	// ListMachines returns every machine name in byte order.
	ListMachines(ctx context.Context) ([]string, error)
	// PartsOf returns the machine's declared roms and disks in catalog
	// declaration order.
	PartsOf(ctx context.Context, machine string) ([]ContentPart, error)
	// SamplesOf returns the machine's declared sample names.
	SamplesOf(ctx context.Context, machine string) ([]string, error)
	// DeviceRefsOf returns the names of device machines the machine references.
	DeviceRefsOf(ctx context.Context, machine string) ([]string, error)
	// Info returns the imported DAT header, if any.
	Info(ctx context.Context) (*DatInfo, error)
}
