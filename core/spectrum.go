package core

import (
	"math"
	"math/rand"
	"sort"

	"github.com/mopilskog/NICER-Pointing/model"
)

// SpectrumConfig controls the aggregate-spectrum Monte Carlo.
type SpectrumConfig struct {
	// EMinKeV / EMaxKeV bound the evaluation grid.
	EMinKeV float64
	EMaxKeV float64
	// Bins is the number of energy samples on the grid.
	Bins int
	// Realizations is the Monte Carlo draw count per source.
	Realizations int
	// RNG provides the draws; nil falls back to an unseeded source.
	RNG *rand.Rand
}

// DefaultSpectrumConfig covers the NICER band at 100 samples with 100
// realizations per source.
func DefaultSpectrumConfig() SpectrumConfig {
	return SpectrumConfig{EMinKeV: 0.3, EMaxKeV: 10.0, Bins: 100, Realizations: 100}
}

// AggregateSpectrum is the field's summed model spectrum with its
// variability envelope. All slices share the EnergiesKeV indexing; flux
// densities are in erg/cm²/s/keV.
type AggregateSpectrum struct {
	EnergiesKeV []float64

	// Total is the sum of every source's median model spectrum.
	Total []float64

	// Upper and Lower bound the plausible range given long-term source
	// variability: Total plus/minus the summed spectra of the sources
	// classified variable. Lower is floored at zero.
	Upper []float64
	Lower []float64

	// PerSource holds each source's median spectrum in table order.
	PerSource [][]float64
}

// AggregateSpectra builds the field's summed spectrum. Each source
// contributes the per-bin median over cfg.Realizations draws of an
// absorbed power law, with the photon index jittered within its fitted
// uncertainty and the normalization re-calibrated to the observed flux
// at each draw. split selects which sources widen the envelope.
func AggregateSpectra(
	table *model.SourceTable,
	split VariabilitySplit,
	pred *PowerLawRatePredictor,
	cfg SpectrumConfig,
) *AggregateSpectrum {
	if cfg.Bins < 2 {
		cfg.Bins = 2
	}
	if cfg.Realizations < 1 {
		cfg.Realizations = 1
	}
	rng := cfg.RNG
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	energies := make([]float64, cfg.Bins)
	step := (cfg.EMaxKeV - cfg.EMinKeV) / float64(cfg.Bins-1)
	for i := range energies {
		energies[i] = cfg.EMinKeV + float64(i)*step
	}

	out := &AggregateSpectrum{
		EnergiesKeV: energies,
		Total:       make([]float64, cfg.Bins),
		Upper:       make([]float64, cfg.Bins),
		Lower:       make([]float64, cfg.Bins),
		PerSource:   make([][]float64, table.Len()),
	}

	variable := make(map[int]bool, len(split.Variable))
	for _, i := range split.Variable {
		variable[i] = true
	}

	varSum := make([]float64, cfg.Bins)
	for i := range table.Sources {
		src := &table.Sources[i]
		spec := monteCarloSpectrum(src, pred, energies, cfg.Realizations, rng)

		// Attenuate by the vignetting factor recorded at the optimal
		// pointing. A table that never went through the optimizer has
		// none recorded; treat those sources as on-axis.
		if vf := src.VignettingFactor; vf > 0 && vf <= 1 {
			for b := range spec {
				spec[b] *= vf
			}
		}
		out.PerSource[i] = spec
		for b, v := range spec {
			out.Total[b] += v
			if variable[i] {
				varSum[b] += v
			}
		}
	}

	for b := range out.Total {
		out.Upper[b] = out.Total[b] + varSum[b]
		out.Lower[b] = out.Total[b] - varSum[b]
		if out.Lower[b] < 0 {
			out.Lower[b] = 0
		}
	}
	return out
}

// monteCarloSpectrum draws n absorbed power laws for one source and
// returns the per-bin median energy flux density.
func monteCarloSpectrum(src *model.Source, pred *PowerLawRatePredictor, energies []float64, n int, rng *rand.Rand) []float64 {
	gammaErr := src.PhotonIndexErr
	if math.IsNaN(gammaErr) || math.IsInf(gammaErr, 0) || gammaErr < 0 {
		gammaErr = 0
	}

	draws := make([][]float64, n)
	for r := 0; r < n; r++ {
		gamma := src.PhotonIndex
		if gammaErr > 0 {
			gamma += rng.NormFloat64() * gammaErr
		}
		norm := calibratedNorm(pred, src.TotalFlux, gamma, src.Nh)
		row := make([]float64, len(energies))
		for b, e := range energies {
			row[b] = ErgPerKeV * e * pred.photonDensity(e, norm, gamma, src.Nh)
		}
		draws[r] = row
	}

	med := make([]float64, len(energies))
	col := make([]float64, n)
	for b := range energies {
		for r := 0; r < n; r++ {
			col[r] = draws[r][b]
		}
		med[b] = median(col)
	}
	return med
}

// calibratedNorm scales a unit power law so its absorbed energy flux
// over the predictor's calibration band matches the observed flux.
func calibratedNorm(pred *PowerLawRatePredictor, flux, gamma, nh float64) float64 {
	if flux <= 0 || math.IsNaN(flux) {
		return 0
	}
	unit := ErgPerKeV * pred.integrate(pred.CalibMinKeV, pred.CalibMaxKeV, func(e float64) float64 {
		return e * pred.photonDensity(e, 1, gamma, nh)
	})
	if unit <= 0 {
		return 0
	}
	return flux / unit
}

// median sorts its argument in place.
func median(v []float64) float64 {
	n := len(v)
	if n == 0 {
		return 0
	}
	sort.Float64s(v)
	if n%2 == 1 {
		return v[n/2]
	}
	return (v[n/2-1] + v[n/2]) / 2
}
