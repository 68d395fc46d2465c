// Package memstore provides an in-memory catalog.Store. It backs tests and
// small one-shot runs where building a database file is not worth it.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/nico2sh/romst/internal/catalog"
)

// Store holds a catalog entirely in memory. Writes happen during import via
// the Add* methods; once loading finishes the store is treated as read-only
// and is safe for concurrent readers.
type Store struct {
	mu       sync.RWMutex
	info     catalog.DatInfo
	machines map[string]*catalog.Machine
	parts    map[string][]catalog.ContentPart
	samples  map[string][]string
	devices  map[string][]string
	order    []string
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		machines: make(map[string]*catalog.Machine),
		parts:    make(map[string][]catalog.ContentPart),
		samples:  make(map[string][]string),
		devices:  make(map[string][]string),
	}
}

// SetInfo records the DAT header.
func (s *Store) SetInfo(info catalog.DatInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info = info
}

// AddMachine registers a machine. Re-adding a name replaces the previous
// entry but keeps its original position.
func (s *Store) AddMachine(m catalog.Machine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.machines[m.Name]; !ok {
		s.order = append(s.order, m.Name)
	}
	copied := m
	s.machines[m.Name] = &copied
}

// AddParts appends content parts to a machine, preserving declaration order.
func (s *Store) AddParts(machine string, parts ...catalog.ContentPart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range parts {
		p.Machine = machine
		s.parts[machine] = append(s.parts[machine], p)
	}
}

// AddSamples appends sample names to a machine.
func (s *Store) AddSamples(machine string, names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples[machine] = append(s.samples[machine], names...)
}

// AddDeviceRefs appends device references to a machine.
func (s *Store) AddDeviceRefs(machine string, names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[machine] = append(s.devices[machine], names...)
}

// GetMachine implements catalog.Store.
func (s *Store) GetMachine(_ context.Context, name string) (*catalog.Machine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.machines[name]
	if !ok {
		return nil, nil
	}
	copied := *m
	return &copied, nil
}

// ListMachines implements catalog.Store.
func (s *Store) ListMachines(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.order))
	copy(names, s.order)
	sort.Strings(names)
	return names, nil
}

// PartsOf implements catalog.Store.
func (s *Store) PartsOf(_ context.Context, machine string) ([]catalog.ContentPart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	parts := make([]catalog.ContentPart, len(s.parts[machine]))
	copy(parts, s.parts[machine])
	return parts, nil
}

// SamplesOf implements catalog.Store.
func (s *Store) SamplesOf(_ context.Context, machine string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.samples[machine]))
	copy(names, s.samples[machine])
	return names, nil
}

// DeviceRefsOf implements catalog.Store.
func (s *Store) DeviceRefsOf(_ context.Context, machine string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.devices[machine]))
	copy(names, s.devices[machine])
	return names, nil
}

// Info implements catalog.Store.
func (s *Store) Info(_ context.Context) (*catalog.DatInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info := s.info
	return &info, nil
}
