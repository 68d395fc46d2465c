package datfile

import (
	"context"
	"strings"
	"testing"

	"github.com/nico2sh/romst/internal/catalog"
)

type memSink struct {
	info     *catalog.DatInfo
	machines []catalog.Machine
	parts    map[string][]catalog.ContentPart
	samples  map[string][]string
	refs     map[string][]string
}

func newMemSink() *memSink {
	return &memSink{
		parts:   make(map[string][]catalog.ContentPart),
		samples: make(map[string][]string),
		refs:    make(map[string][]string),
	}
}

func (s *memSink) Header(info catalog.DatInfo) error {
	s.info = &info
	return nil
}

func (s *memSink) Machine(m catalog.Machine, parts []catalog.ContentPart, samples, deviceRefs []string) error {
	s.machines = append(s.machines, m)
	s.parts[m.Name] = parts
	s.samples[m.Name] = samples
	s.refs[m.Name] = deviceRefs
	return nil
}

const sampleDat = `<?xml version="1.0"?>
<datafile>
	<header>
		<name>Test Drive</name>
		<description>A tiny catalog</description>
		<version>0.1</version>
	</header>
	<game name="parent" sourcefile="parent.cpp">
		<description>Parent Game</description>
		<year>1992</year>
		<manufacturer>Nobody</manufacturer>
		<rom name="rom1.bin" size="1024" crc="1d460eee" sha1="8bb3a81b9fa2de5163f0ffc634a998c455bcca25"/>
		<rom name="lost.bin" size="2048" status="nodump"/>
		<disk name="cd.chd" sha1="802e076afc412be12db3cb8c79523f65d612a6cf"/>
		<sample name="shot"/>
	</game>
	<machine name="clone" cloneof="parent" romof="parent" sampleof="parent">
		<rom name="rom1.bin" merge="rom1.bin" size="1024" crc="1d460eee" sha1="8bb3a81b9fa2de5163f0ffc634a998c455bcca25"/>
		<device_ref name="z80"/>
	</machine>
	<machine name="z80" isdevice="yes" runnable="no">
		<rom name="prom.bin" size="16" crc="dc20b010" sha1=""/>
	</machine>
</datafile>
`

func importString(t *testing.T, xml string) (*memSink, *Summary) {
	t.Helper()
	sink := newMemSink()
	summary, err := NewImporter(sink, Options{}).Import(context.Background(), strings.NewReader(xml))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	return sink, summary
}

func TestImportParsesHeaderAndMachines(t *testing.T) {
	sink, summary := importString(t, sampleDat)

	if sink.info == nil || sink.info.Name != "Test Drive" || sink.info.Version != "0.1" {
		t.Fatalf("header = %+v, want Test Drive 0.1", sink.info)
	}
	if summary.Machines != 3 {
		t.Fatalf("Machines = %d, want 3", summary.Machines)
	}
	if summary.Parts != 5 {
		t.Fatalf("Parts = %d, want 5", summary.Parts)
	}
	if summary.Skipped != 0 {
		t.Fatalf("Skipped = %d, want 0", summary.Skipped)
	}
}

func TestImportMachineRelations(t *testing.T) {
	sink, _ := importString(t, sampleDat)

	var clone *catalog.Machine
	for i := range sink.machines {
		if sink.machines[i].Name == "clone" {
			clone = &sink.machines[i]
		}
	}
	if clone == nil {
		t.Fatal("clone machine not parsed")
	}
	if clone.CloneOf != "parent" || clone.RomOf != "parent" || clone.SampleOf != "parent" {
		t.Fatalf("clone relations = %+v", clone)
	}
	if len(sink.refs["clone"]) != 1 || sink.refs["clone"][0] != "z80" {
		t.Fatalf("clone device refs = %v, want [z80]", sink.refs["clone"])
	}
	if got := sink.parts["clone"][0].Merge; got != "rom1.bin" {
		t.Fatalf("merge tag = %q, want rom1.bin", got)
	}
}

func TestImportPartCoercion(t *testing.T) {
	sink, _ := importString(t, sampleDat)

	parts := sink.parts["parent"]
	if len(parts) != 3 {
		t.Fatalf("len(parts) = %d, want 3", len(parts))
	}
	rom := parts[0]
	if rom.Kind != catalog.KindRom || rom.Size != 1024 || rom.Sum.CRC != "1d460eee" {
		t.Fatalf("rom = %+v", rom)
	}
	if !parts[1].NoDump || !parts[1].Sum.IsZero() {
		t.Fatalf("nodump rom = %+v, want no-dump with zero checksum", parts[1])
	}
	disk := parts[2]
	if disk.Kind != catalog.KindDisk || disk.Sum.SHA1 == "" {
		t.Fatalf("disk = %+v", disk)
	}
	if len(sink.samples["parent"]) != 1 || sink.samples["parent"][0] != "shot" {
		t.Fatalf("samples = %v, want [shot]", sink.samples["parent"])
	}
}

func TestImportDeviceFlags(t *testing.T) {
	sink, _ := importString(t, sampleDat)

	for _, m := range sink.machines {
		if m.Name != "z80" {
			continue
		}
		if !m.IsDevice || m.Runnable {
			t.Fatalf("z80 = %+v, want device and not runnable", m)
		}
		// CRC-only checksum still counts as real content.
		if sink.parts["z80"][0].NoDump {
			t.Fatalf("crc-only rom parsed as no-dump: %+v", sink.parts["z80"][0])
		}
		return
	}
	t.Fatal("z80 machine not parsed")
}

func TestImportSkipsMalformedEntries(t *testing.T) {
	const xml = `<datafile>
		<game>
			<rom name="orphan.bin" crc="1d460eee"/>
		</game>
		<game name="ok">
			<rom size="12" crc="dc20b010"/>
			<rom name="good.bin" size="12" crc="dc20b010" sha1=""/>
		</game>
	</datafile>`

	sink, summary := importString(t, xml)
	if summary.Machines != 1 {
		t.Fatalf("Machines = %d, want 1", summary.Machines)
	}
	if summary.Skipped != 2 {
		t.Fatalf("Skipped = %d, want nameless machine and nameless rom", summary.Skipped)
	}
	if len(sink.parts["ok"]) != 1 || sink.parts["ok"][0].Name != "good.bin" {
		t.Fatalf("parts = %v, want just good.bin", sink.parts["ok"])
	}
}

func TestImportIgnoresForeignElements(t *testing.T) {
	const xml = `<datafile>
		<machine name="solo">
			<display type="raster" rotate="0"/>
			<input players="2"><control type="joy"/></input>
			<rom name="a.bin" size="8" crc="1d460eee" sha1=""/>
		</machine>
	</datafile>`

	sink, summary := importString(t, xml)
	if summary.Machines != 1 || len(sink.parts["solo"]) != 1 {
		t.Fatalf("summary = %+v, parts = %v", summary, sink.parts["solo"])
	}
}

func TestImportReportsProgress(t *testing.T) {
	var calls int
	var lastMachines int
	sink := newMemSink()
	_, err := NewImporter(sink, Options{
		Progress: func(offset int64, machines int) {
			calls++
			lastMachines = machines
			if offset <= 0 {
				t.Fatalf("offset = %d, want positive", offset)
			}
		},
	}).Import(context.Background(), strings.NewReader(sampleDat))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if calls != 3 || lastMachines != 3 {
		t.Fatalf("calls = %d, lastMachines = %d, want 3 and 3", calls, lastMachines)
	}
}

func TestImportCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewImporter(newMemSink(), Options{}).Import(ctx, strings.NewReader(sampleDat))
	if err == nil {
		t.Fatal("cancelled import returned no error")
	}
}
