package core

import (
	"math"
	"testing"

	"github.com/mopilskog/NICER-Pointing/model"
)

func TestFitPowerLawRecoversParameters(t *testing.T) {
	schema := model.XMMSchema()
	const (
		norm  = 3e-13
		gamma = 2.2
		nh    = 3e20
	)
	flux := make([]float64, len(schema.EnergyBandCenters))
	errs := make([]float64, len(flux))
	for i, e := range schema.EnergyBandCenters {
		width := 2 * schema.EnergyBandHalfWidths[i]
		flux[i] = AbsorbedPowerLaw(e, schema.Sigma[i], norm, gamma, nh) * width
		errs[i] = flux[i] * 0.1
	}

	fit := FitPowerLaw(schema, flux, errs, nh)
	if !fit.Converged {
		t.Fatal("fit on exact synthetic data did not converge")
	}
	if math.Abs(fit.PhotonIndex-gamma) > 1e-3 {
		t.Errorf("photon index = %v, want %v", fit.PhotonIndex, gamma)
	}
	if math.Abs(fit.Norm-norm)/norm > 1e-3 {
		t.Errorf("norm = %v, want %v", fit.Norm, norm)
	}
}

func TestFitPowerLawNoisyData(t *testing.T) {
	schema := model.XMMSchema()
	const gamma = 1.5
	// Hand-perturbed band fluxes around a Γ=1.5 law.
	perturb := []float64{1.04, 0.97, 1.02, 0.95, 1.05}
	flux := make([]float64, len(schema.EnergyBandCenters))
	errs := make([]float64, len(flux))
	for i, e := range schema.EnergyBandCenters {
		width := 2 * schema.EnergyBandHalfWidths[i]
		flux[i] = AbsorbedPowerLaw(e, schema.Sigma[i], 1e-13, gamma, 3e20) * perturb[i] * width
		errs[i] = flux[i] * 0.1
	}

	fit := FitPowerLaw(schema, flux, errs, 3e20)
	if !fit.Converged {
		t.Fatal("fit on mildly noisy data did not converge")
	}
	if math.Abs(fit.PhotonIndex-gamma) > 0.3 {
		t.Errorf("photon index = %v, want near %v", fit.PhotonIndex, gamma)
	}
}

func TestFitPowerLawInsufficientBands(t *testing.T) {
	schema := model.XMMSchema()
	flux := []float64{1e-13, math.NaN(), 0, -1, math.Inf(1)}
	errs := make([]float64, len(flux))

	fit := FitPowerLaw(schema, flux, errs, 3e20)
	if fit.Converged {
		t.Fatal("fit with a single usable band must not converge")
	}
}

func TestFitPowerLawEmptyInput(t *testing.T) {
	fit := FitPowerLaw(model.XMMSchema(), nil, nil, 3e20)
	if fit.Converged {
		t.Fatal("fit on empty input must not converge")
	}
}

func TestSolveLinearSingular(t *testing.T) {
	A := [][]float64{{1, 2}, {2, 4}}
	x := make([]float64, 2)
	if solveLinear(A, []float64{1, 2}, x, 2) {
		t.Fatal("singular system reported solvable")
	}
}

func TestSolveLinearKnownSystem(t *testing.T) {
	A := [][]float64{{2, 1}, {1, 3}}
	x := make([]float64, 2)
	if !solveLinear(A, []float64{5, 10}, x, 2) {
		t.Fatal("well-conditioned system reported unsolvable")
	}
	// Solution of 2x+y=5, x+3y=10.
	if math.Abs(x[0]-1) > 1e-12 || math.Abs(x[1]-3) > 1e-12 {
		t.Fatalf("solution = %v, want [1 3]", x)
	}
}
