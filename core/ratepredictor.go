package core

import (
	"fmt"
	"math"

	"github.com/mopilskog/NICER-Pointing/model"
)

// ErgPerKeV converts photon energies to cgs energy flux units.
const ErgPerKeV = 1.602176634e-9

// RatePredictor converts a source's spectral model into a predicted
// on-axis instrument count rate in cts/s.
type RatePredictor interface {
	PredictRate(inst *model.Instrument, m model.SourceModel) (float64, error)
}

// PowerLawRatePredictor is the built-in predictor for absorbed power
// laws. The model normalization is first calibrated so the model's
// absorbed energy flux over the calibration band reproduces the
// catalog's observed flux; the photon spectrum is then folded through
// the instrument's flat on-axis effective area over its sensitive band.
//
// SigmaEnergies/Sigma tabulate the photoelectric cross-section per
// energy; evaluation interpolates between samples and clamps outside.
type PowerLawRatePredictor struct {
	// CalibMinKeV / CalibMaxKeV bound the band the catalog flux was
	// measured over.
	CalibMinKeV float64
	CalibMaxKeV float64

	SigmaEnergies []float64
	Sigma         []float64

	// Steps is the Simpson rule interval count (even, default 200).
	Steps int
}

// NewPowerLawRatePredictor returns a predictor calibrated against the
// XMM 0.2-12 keV broad band with the XMM per-band cross-sections.
func NewPowerLawRatePredictor() *PowerLawRatePredictor {
	xmm := model.XMMSchema()
	return &PowerLawRatePredictor{
		CalibMinKeV:   0.2,
		CalibMaxKeV:   12.0,
		SigmaEnergies: xmm.EnergyBandCenters,
		Sigma:         xmm.Sigma,
		Steps:         200,
	}
}

// PredictRate implements RatePredictor.
func (p *PowerLawRatePredictor) PredictRate(inst *model.Instrument, m model.SourceModel) (float64, error) {
	if m.Kind != model.ModelPowerLaw {
		return 0, fmt.Errorf("unsupported model kind %q", m.Kind)
	}
	if m.Flux <= 0 || math.IsNaN(m.Flux) || math.IsInf(m.Flux, 0) {
		return 0, nil
	}

	gamma, nh := m.PhotonIndex, m.Nh

	// Absorbed energy flux of a unit-norm model over the calibration
	// band, in erg/cm²/s.
	unitFlux := ErgPerKeV * p.integrate(p.CalibMinKeV, p.CalibMaxKeV, func(e float64) float64 {
		return e * p.photonDensity(e, 1, gamma, nh)
	})
	if unitFlux <= 0 {
		return 0, nil
	}
	norm := m.Flux / unitFlux

	// Photon rate through the detector over its sensitive band.
	rate := inst.EffectiveAreaCm2 * p.integrate(inst.EnergyMinKeV, inst.EnergyMaxKeV, func(e float64) float64 {
		return p.photonDensity(e, norm, gamma, nh)
	})
	return rate, nil
}

// photonDensity is the absorbed power-law photon spectrum in
// photons/cm²/s/keV.
func (p *PowerLawRatePredictor) photonDensity(e, norm, gamma, nh float64) float64 {
	sigma := InterpolateCurve(p.SigmaEnergies, p.Sigma, e)
	return norm * math.Pow(e, -gamma) * math.Exp(-sigma*nh)
}

// integrate applies the composite Simpson rule over [a, b].
func (p *PowerLawRatePredictor) integrate(a, b float64, f func(float64) float64) float64 {
	steps := p.Steps
	if steps < 2 {
		steps = 200
	}
	if steps%2 != 0 {
		steps++
	}
	h := (b - a) / float64(steps)
	sum := f(a) + f(b)
	for i := 1; i < steps; i++ {
		x := a + float64(i)*h
		if i%2 == 1 {
			sum += 4 * f(x)
		} else {
			sum += 2 * f(x)
		}
	}
	return sum * h / 3
}

// PredictRates fills CountRate for every source of the table through
// the given predictor.
func PredictRates(inst *model.Instrument, pred RatePredictor, table *model.SourceTable) error {
	for i := range table.Sources {
		src := &table.Sources[i]
		rate, err := pred.PredictRate(inst, model.SourceModel{
			Kind:        model.ModelPowerLaw,
			PhotonIndex: src.PhotonIndex,
			Flux:        src.TotalFlux,
			Nh:          src.Nh,
		})
		if err != nil {
			return fmt.Errorf("predict rate for %s: %w", src.Name, err)
		}
		src.CountRate = rate
	}
	return nil
}
