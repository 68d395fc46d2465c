package romset

import (
	"context"
	"testing"

	"github.com/nico2sh/romst/internal/catalog"
	"github.com/nico2sh/romst/internal/catalog/memstore"
)

func TestBuildIndexMapsChecksumsToEveryDeclaration(t *testing.T) {
	store := fixtureStore()
	ix, err := BuildIndex(context.Background(), store)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}

	shared := catalog.NewChecksum("1d460eee", "8bb3a81b9fa2de5163f0ffc634a998c455bcca25")
	locs := ix.Lookup(shared)
	if len(locs) != 2 {
		t.Fatalf("len(Lookup) = %d, want 2 (parent and clone both declare it)", len(locs))
	}
	if ix.Machines() != 2 {
		t.Fatalf("Machines = %d, want 2", ix.Machines())
	}
	if ix.DistinctChecksums() != 3 {
		t.Fatalf("DistinctChecksums = %d, want 3", ix.DistinctChecksums())
	}
	if ix.Parts() != 4 {
		t.Fatalf("Parts = %d, want 4", ix.Parts())
	}
}

func TestIndexExcludesNoDumpParts(t *testing.T) {
	store := memstore.New()
	store.AddMachine(catalog.Machine{Name: "m"})
	store.AddParts("m",
		catalog.ContentPart{Kind: catalog.KindRom, Name: "undumped.bin", NoDump: true},
		rom("real.bin", "77777777", ""),
	)
	ix, err := BuildIndex(context.Background(), store)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	if ix.NoDumpParts() != 1 {
		t.Fatalf("NoDumpParts = %d, want 1", ix.NoDumpParts())
	}
	if ix.DistinctChecksums() != 1 {
		t.Fatalf("DistinctChecksums = %d, want 1", ix.DistinctChecksums())
	}
	if ix.Contains(catalog.Checksum{}) {
		t.Fatalf("zero checksum must never be indexed")
	}
}

func TestIndexPreservesInMachineDuplicates(t *testing.T) {
	store := memstore.New()
	store.AddMachine(catalog.Machine{Name: "m"})
	store.AddParts("m",
		rom("copy1.bin", "88888888", ""),
		rom("copy2.bin", "88888888", ""),
	)
	ix, err := BuildIndex(context.Background(), store)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	locs := ix.Lookup(catalog.NewChecksum("88888888", ""))
	if len(locs) != 2 {
		t.Fatalf("len(Lookup) = %d, want both logical names preserved", len(locs))
	}
}

func TestSharedFiltersSingleMachineChecksums(t *testing.T) {
	store := fixtureStore()
	ix, err := BuildIndex(context.Background(), store)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	shared := ix.Shared()
	if len(shared) != 1 {
		t.Fatalf("len(Shared) = %d, want 1 (only rom1 content crosses machines)", len(shared))
	}
}

func TestIndexCountsDeviceMachines(t *testing.T) {
	store := fixtureStore()
	store.AddMachine(catalog.Machine{Name: "dev1", IsDevice: true})
	ix, err := BuildIndex(context.Background(), store)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	if ix.DeviceMachines() != 1 {
		t.Fatalf("DeviceMachines = %d, want 1", ix.DeviceMachines())
	}
}

func TestLookupJoinsPartialDeclarations(t *testing.T) {
	store := memstore.New()
	store.AddMachine(catalog.Machine{Name: "crconly"})
	store.AddParts("crconly", rom("partial.bin", "1d460eee", ""))
	store.AddMachine(catalog.Machine{Name: "fullpair"})
	store.AddParts("fullpair", rom("full.bin", "1d460eee", "8bb3a81b9fa2de5163f0ffc634a998c455bcca25"))
	ix, err := BuildIndex(context.Background(), store)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}

	// A hashed file always carries both components; the CRC-only
	// declaration must still be found.
	full := catalog.NewChecksum("1d460eee", "8bb3a81b9fa2de5163f0ffc634a998c455bcca25")
	locs := ix.Lookup(full)
	if len(locs) != 2 {
		t.Fatalf("Lookup(full pair) = %v, want both declarations", locs)
	}

	// And a CRC-only declaration finds full pairs sharing the component.
	locs = ix.Lookup(catalog.Checksum{CRC: "1d460eee"})
	if len(locs) != 2 {
		t.Fatalf("Lookup(crc only) = %v, want both declarations", locs)
	}

	// A full pair with the same CRC but different SHA1 is different content.
	other := catalog.NewChecksum("1d460eee", "ffffffffffffffffffffffffffffffffffffffff")
	for _, loc := range ix.Lookup(other) {
		if loc.Machine == "fullpair" {
			t.Fatalf("Lookup(conflicting sha1) matched fullpair: %v", loc)
		}
	}
}

func TestSharedFoldsPartialDeclarations(t *testing.T) {
	store := memstore.New()
	store.AddMachine(catalog.Machine{Name: "crconly"})
	store.AddParts("crconly", rom("partial.bin", "1d460eee", ""))
	store.AddMachine(catalog.Machine{Name: "fullpair"})
	store.AddParts("fullpair", rom("full.bin", "1d460eee", "8bb3a81b9fa2de5163f0ffc634a998c455bcca25"))
	ix, err := BuildIndex(context.Background(), store)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}

	shared := ix.Shared()
	locs, ok := shared["sha1:8bb3a81b9fa2de5163f0ffc634a998c455bcca25"]
	if !ok || len(locs) != 2 {
		t.Fatalf("Shared() = %v, want the partial declaration folded into the full group", shared)
	}
	if _, ok := shared["crc:1d460eee"]; ok {
		t.Fatalf("Shared() kept a standalone crc group: %v", shared)
	}
}
