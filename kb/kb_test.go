package kb

import (
	"fmt"
	"sync"
	"testing"

	"github.com/mopilskog/NICER-Pointing/model"
)

func TestAddAndGetCatalog(t *testing.T) {
	store := NewStore()
	table := &model.SourceTable{Schema: model.XMMSchema()}
	if err := store.AddCatalog(table); err != nil {
		t.Fatalf("AddCatalog error: %v", err)
	}
	got := store.Catalog("XMM")
	if got == nil || got.Schema.Key != "XMM" {
		t.Fatalf("Catalog returned %#v, want XMM table", got)
	}
}

func TestAddCatalogDuplicate(t *testing.T) {
	store := NewStore()
	if err := store.AddCatalog(&model.SourceTable{Schema: model.XMMSchema()}); err != nil {
		t.Fatalf("first AddCatalog error: %v", err)
	}
	if err := store.AddCatalog(&model.SourceTable{Schema: model.XMMSchema()}); err == nil {
		t.Fatalf("expected duplicate AddCatalog to fail")
	}
}

func TestAddCatalogWithoutSchema(t *testing.T) {
	store := NewStore()
	if err := store.AddCatalog(&model.SourceTable{}); err == nil {
		t.Fatalf("expected error for table without schema")
	}
}

func TestInstrumentRegistration(t *testing.T) {
	store := NewStore()
	inst := &model.Instrument{Name: "NICER-XTI"}
	if err := store.AddInstrument(inst); err != nil {
		t.Fatalf("AddInstrument error: %v", err)
	}
	if err := store.AddInstrument(&model.Instrument{Name: "NICER-XTI"}); err == nil {
		t.Fatalf("expected duplicate AddInstrument to fail")
	}
	if got := store.Instrument("NICER-XTI"); got != inst {
		t.Fatalf("Instrument returned %#v, want registered pointer", got)
	}
}

func TestCatalogKeys(t *testing.T) {
	store := NewStore()
	for _, schema := range []*model.CatalogSchema{model.XMMSchema(), model.ChandraSchema(), model.SwiftSchema()} {
		if err := store.AddCatalog(&model.SourceTable{Schema: schema}); err != nil {
			t.Fatalf("AddCatalog(%s) error: %v", schema.Key, err)
		}
	}
	if got := len(store.CatalogKeys()); got != 3 {
		t.Fatalf("CatalogKeys len=%d, want 3", got)
	}
}

func TestAuxiliaryRoundTrip(t *testing.T) {
	store := NewStore()
	store.SetAuxiliary(
		[]model.DR11Row{{IAUName: "4XMM J000000.0-000000", DetID: 42}},
		[]model.SpectralFitRow{{DetID: 42, PhotonIndex: 1.9}},
		[]model.MasterJoin{{SourceName: "4XMM J000000.0-000000", MasterID: 7}},
	)
	det, fits, master := store.Auxiliary()
	if len(det) != 1 || len(fits) != 1 || len(master) != 1 {
		t.Fatalf("Auxiliary lengths = %d/%d/%d, want 1/1/1", len(det), len(fits), len(master))
	}
	if fits[0].PhotonIndex != 1.9 {
		t.Fatalf("fit photon index = %v, want 1.9", fits[0].PhotonIndex)
	}
}

func TestSubscribeSeesCatalogLoad(t *testing.T) {
	store := NewStore()

	var wg sync.WaitGroup
	wg.Add(1)
	var got Event
	store.Subscribe(func(e Event) {
		got = e
		wg.Done()
	})

	if err := store.AddCatalog(&model.SourceTable{Schema: model.SwiftSchema()}); err != nil {
		t.Fatalf("AddCatalog error: %v", err)
	}

	wg.Wait()
	if got.Type != EventCatalogLoaded {
		t.Fatalf("got event type %v, want EventCatalogLoaded", got.Type)
	}
	if got.CatalogKey != "Swift" {
		t.Fatalf("event catalog key = %q, want Swift", got.CatalogKey)
	}
}

func TestConcurrentAccess(t *testing.T) {
	store := NewStore()
	if err := store.AddCatalog(&model.SourceTable{Schema: model.XMMSchema()}); err != nil {
		t.Fatalf("AddCatalog error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Catalog("XMM")
			_ = store.CatalogKeys()
		}()
		go func(i int) {
			defer wg.Done()
			_ = store.AddInstrument(&model.Instrument{Name: fmt.Sprintf("inst-%d", i)})
		}(i)
	}
	wg.Wait()
}
