package core

import (
	"math"
	"testing"

	"github.com/mopilskog/NICER-Pointing/model"
)

func powerLawModel(flux, gamma, nh float64) model.SourceModel {
	return model.SourceModel{Kind: model.ModelPowerLaw, PhotonIndex: gamma, Flux: flux, Nh: nh}
}

func TestPredictRateScalesWithFlux(t *testing.T) {
	pred := NewPowerLawRatePredictor()
	inst := testInstrument()

	r1, err := pred.PredictRate(inst, powerLawModel(1e-12, 1.7, 3e20))
	if err != nil {
		t.Fatalf("PredictRate error: %v", err)
	}
	r2, err := pred.PredictRate(inst, powerLawModel(2e-12, 1.7, 3e20))
	if err != nil {
		t.Fatalf("PredictRate error: %v", err)
	}
	if r1 <= 0 {
		t.Fatalf("rate = %v, want positive", r1)
	}
	if math.Abs(r2/r1-2) > 1e-9 {
		t.Fatalf("doubling the flux scaled the rate by %v, want 2", r2/r1)
	}
}

func TestPredictRateZeroOnBadFlux(t *testing.T) {
	pred := NewPowerLawRatePredictor()
	inst := testInstrument()

	for _, flux := range []float64{0, -1e-13, math.NaN()} {
		rate, err := pred.PredictRate(inst, powerLawModel(flux, 1.7, 3e20))
		if err != nil {
			t.Fatalf("PredictRate(%v) error: %v", flux, err)
		}
		if rate != 0 {
			t.Errorf("PredictRate with flux %v = %v, want 0", flux, rate)
		}
	}
}

func TestPredictRateRejectsUnknownModel(t *testing.T) {
	pred := NewPowerLawRatePredictor()
	m := model.SourceModel{Kind: "blackbody", Flux: 1e-12}
	if _, err := pred.PredictRate(testInstrument(), m); err == nil {
		t.Fatal("expected error for unsupported model kind")
	}
}

func TestPredictRatesAnnotatesTable(t *testing.T) {
	bright := srcAt("bright", 10, 10)
	bright.TotalFlux = 1e-12
	bright.PhotonIndex = 1.7
	bright.Nh = 3e20
	faint := srcAt("faint", 11, 11)
	faint.TotalFlux = 1e-14
	faint.PhotonIndex = 1.7
	faint.Nh = 3e20
	table := tableWith(model.XMMSchema(), bright, faint)

	if err := PredictRates(testInstrument(), NewPowerLawRatePredictor(), table); err != nil {
		t.Fatalf("PredictRates error: %v", err)
	}
	if table.Sources[0].CountRate <= table.Sources[1].CountRate {
		t.Fatalf("brighter source predicted %v cts/s, fainter %v",
			table.Sources[0].CountRate, table.Sources[1].CountRate)
	}
}

func TestPredictRateAbsorptionSuppresses(t *testing.T) {
	pred := NewPowerLawRatePredictor()
	inst := testInstrument()

	thin, err := pred.PredictRate(inst, powerLawModel(1e-12, 1.7, 1e19))
	if err != nil {
		t.Fatalf("PredictRate error: %v", err)
	}
	thick, err := pred.PredictRate(inst, powerLawModel(1e-12, 1.7, 5e21))
	if err != nil {
		t.Fatalf("PredictRate error: %v", err)
	}
	if thin <= 0 || thick <= 0 {
		t.Fatalf("rates = %v/%v, want positive", thin, thick)
	}
	// Same observed flux through a thicker column implies a harder
	// intrinsic spectrum; the soft-band photon deficit changes the
	// detector rate.
	if thin == thick {
		t.Fatal("column density had no effect on predicted rate")
	}
}
