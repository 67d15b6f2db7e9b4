package core

import (
	"errors"
	"math"
	"testing"

	"github.com/mopilskog/NICER-Pointing/model"
)

func tableWith(schema *model.CatalogSchema, srcs ...model.Source) *model.SourceTable {
	return &model.SourceTable{Schema: schema, Sources: srcs}
}

func srcAt(name string, ra, dec float64) model.Source {
	return model.Source{Name: name, Position: model.SkyCoord{RADeg: ra, DecDeg: dec}, FracVariability: math.NaN()}
}

func TestFilterFieldOfViewRadialCut(t *testing.T) {
	center := model.SkyCoord{RADeg: 330.0, DecDeg: -33.0}
	table := tableWith(model.XMMSchema(),
		srcAt("in-close", 330.01, -33.01),
		srcAt("in-edge", 330.0, -33.0+4.9/60),  // 4.9 arcmin north
		srcAt("out-near", 330.0, -33.0+5.5/60), // inside box margin, outside radius
		srcAt("out-far", 331.0, -34.0),
	)

	got, err := FilterFieldOfView(table, center, 5.0)
	if err != nil {
		t.Fatalf("FilterFieldOfView error: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("kept %d sources, want 2: %v", got.Len(), got.Names())
	}
	for _, name := range got.Names() {
		if name != "in-close" && name != "in-edge" {
			t.Errorf("unexpected survivor %q", name)
		}
	}
}

func TestFilterFieldOfViewRAWrap(t *testing.T) {
	center := model.SkyCoord{RADeg: 0.01, DecDeg: 0}
	table := tableWith(model.XMMSchema(),
		srcAt("west-of-zero", 359.99, 0.0),
	)
	got, err := FilterFieldOfView(table, center, 5.0)
	if err != nil {
		t.Fatalf("FilterFieldOfView error: %v", err)
	}
	if got.Len() != 1 {
		t.Fatal("source across the RA wrap was dropped")
	}
}

func TestFilterFieldOfViewHighDeclination(t *testing.T) {
	// Near the pole, 5 arcmin on the sky spans many degrees of RA. The
	// box prefilter must stay a superset of the radial cut.
	center := model.SkyCoord{RADeg: 10.0, DecDeg: 89.5}
	table := tableWith(model.XMMSchema(),
		srcAt("polar", 30.0, 89.55), // 20° RA gap, ~10 arcmin true separation
	)
	sep, err := AngularSeparation(center, table.Sources[0].Position)
	if err != nil {
		t.Fatalf("AngularSeparation error: %v", err)
	}
	if sep*ArcminPerDeg > 15 {
		t.Fatalf("test geometry wrong: separation %v arcmin", sep*ArcminPerDeg)
	}

	got, err := FilterFieldOfView(table, center, 15.0)
	if err != nil {
		t.Fatalf("FilterFieldOfView error: %v", err)
	}
	if got.Len() != 1 {
		t.Fatal("prefilter discarded a source inside the radius at high declination")
	}
}

func TestFilterFieldOfViewEmpty(t *testing.T) {
	center := model.SkyCoord{RADeg: 100.0, DecDeg: 10.0}
	table := tableWith(model.XMMSchema(), srcAt("far", 200.0, -40.0))

	_, err := FilterFieldOfView(table, center, 5.0)
	if !errors.Is(err, ErrNoSourcesFound) {
		t.Fatalf("error = %v, want ErrNoSourcesFound", err)
	}
}

func TestFilterFieldOfViewInvalidInputs(t *testing.T) {
	table := tableWith(model.XMMSchema(), srcAt("a", 10, 10))
	if _, err := FilterFieldOfView(table, model.SkyCoord{RADeg: math.NaN(), DecDeg: 0}, 5); !errors.Is(err, ErrInvalidCoordinate) {
		t.Fatalf("NaN center error = %v, want ErrInvalidCoordinate", err)
	}
	if _, err := FilterFieldOfView(table, model.SkyCoord{RADeg: 10, DecDeg: 10}, -1); !errors.Is(err, ErrInvalidCoordinate) {
		t.Fatalf("negative radius error = %v, want ErrInvalidCoordinate", err)
	}
}

func TestDeduplicateFirstWins(t *testing.T) {
	a := srcAt("dup", 10, 10)
	a.TotalFlux = 1e-13
	b := srcAt("dup", 10.001, 10)
	b.TotalFlux = 5e-13
	table := tableWith(model.XMMSchema(), a, srcAt("solo", 11, 11), b)

	got := Deduplicate(table)
	if got.Len() != 2 {
		t.Fatalf("kept %d rows, want 2", got.Len())
	}
	if got.Sources[0].TotalFlux != 1e-13 {
		t.Errorf("first-wins rule kept flux %v, want first row's 1e-13", got.Sources[0].TotalFlux)
	}
	if got.Sources[0].Name != "dup" || got.Sources[1].Name != "solo" {
		t.Errorf("order not preserved: %v", got.Names())
	}
}

func TestDeduplicateBrightestWins(t *testing.T) {
	a := srcAt("dup", 10, 10)
	a.TotalFlux = 1e-13
	b := srcAt("dup", 10.001, 10)
	b.TotalFlux = 5e-13
	table := tableWith(model.SwiftSchema(), a, b)

	got := Deduplicate(table)
	if got.Len() != 1 {
		t.Fatalf("kept %d rows, want 1", got.Len())
	}
	if got.Sources[0].TotalFlux != 5e-13 {
		t.Errorf("brightest-wins rule kept flux %v, want 5e-13", got.Sources[0].TotalFlux)
	}
}

func TestMatchNamesSentinel(t *testing.T) {
	got := MatchNames(
		[]string{"a", "b", "c"},
		[]string{"c", "x", "a"},
	)
	want := []int{2, model.CrossMatchNotFound, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("MatchNames[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestChainMatch(t *testing.T) {
	primary := []string{"src1", "src2", "src3"}
	detections := []model.DR11Row{
		{IAUName: "src1", DetID: 101},
		{IAUName: "src3", DetID: 103},
	}
	fits := []model.SpectralFitRow{
		{DetID: 103, PhotonIndex: 2.1},
		{DetID: 999, PhotonIndex: 1.2},
	}

	got := ChainMatch(primary, detections, fits)
	// src1 reaches a detection but no fit; src2 has no detection;
	// src3 chains through to the first fit row.
	want := []int{model.CrossMatchNotFound, model.CrossMatchNotFound, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ChainMatch[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
