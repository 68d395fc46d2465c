package catalog

import "fmt"

// PartKind distinguishes the two checksum-verified content kinds a machine can
// declare.
type PartKind string

const (
	KindRom  PartKind = "rom"
	KindDisk PartKind = "disk"
)

// Machine is a named set of required content parts, the unit users verify.
// Parent references are name-based edges resolved through the Store; the
// catalog may be malformed, so nothing here assumes the referenced machine
// exists or that the ancestry is acyclic.
type Machine struct {
	Name       string
	CloneOf    string
	RomOf      string
	SampleOf   string
	SourceFile string
	IsDevice   bool
	Runnable   bool

	// Descriptive metadata, irrelevant to verification.
	Description  string
	Year         string
	Manufacturer string
}

// HasParent reports whether the machine inherits roms from an ancestor.
func (m *Machine) HasParent() bool {
	return m.RomOf != "" || m.CloneOf != ""
}

// RomParent returns the machine supplying inherited rom content. Catalogs that
// set only cloneof imply romof follows it.
func (m *Machine) RomParent() string {
	if m.RomOf != "" {
		return m.RomOf
	}
	return m.CloneOf
}

// SampleParent returns the machine supplying shared samples, empty when the
// machine owns its sample set.
func (m *Machine) SampleParent() string {
	if m.SampleOf != "" && m.SampleOf != m.Name {
		return m.SampleOf
	}
	return ""
}

// ContentPart is a single rom or disk a machine declares. NoDump parts carry a
// zero Checksum and are verifiable by presence only. Merge names the logical
// part along the romof chain that supplies the same bytes.
type ContentPart struct {
	Machine string
	Kind    PartKind
	Name    string
	Size    int64
	Sum     Checksum
	NoDump  bool
	Merge   string
}

func (p ContentPart) String() string {
	if p.NoDump {
		return fmt.Sprintf("%s %s (no dump)", p.Kind, p.Name)
	}
	return fmt.Sprintf("%s %s size:%d %s", p.Kind, p.Name, p.Size, p.Sum)
}

// Location names a (machine, logical part) pair, used by the checksum index
// and by fix suggestions pointing at donor archives.
type Location struct {
	Machine string
	Part    string
}

func (l Location) String() string {
	return l.Machine + "/" + l.Part
}

// DatInfo captures the catalog document header recorded at import time.
type DatInfo struct {
	Name        string
	Description string
	Version     string
	Category    string
	Comment     string
}
