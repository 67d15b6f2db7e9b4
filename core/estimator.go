package core

import (
	"context"
	"math"

	"github.com/mopilskog/NICER-Pointing/internal/logging"
	"github.com/mopilskog/NICER-Pointing/model"
)

// Canonical defaults substituted when neither an auxiliary catalog nor
// our own fit can supply spectral parameters.
const (
	DefaultPhotonIndex = 1.7
	DefaultNh          = 3e20
)

// Estimator fills in the per-source spectral parameters (photon index
// and hydrogen column) that the count-rate predictor needs.
//
// Resolution order per source:
//  1. a published fit from the auxiliary spectral catalog, reached
//     through the name→detection→fit identifier chain (authoritative);
//  2. our own absorbed power-law fit to the source's band fluxes, with
//     Nh taken from the sky map (or the default) and held fixed;
//  3. the canonical defaults, when the fit does not converge or lands
//     at a non-positive photon index.
//
// A failed fit is recovered, never fatal: the source proceeds with
// defaults and the fallback is logged and counted.
type Estimator struct {
	DefaultPhotonIndex float64
	DefaultNh          float64
	Log                logging.Logger
}

// NewEstimator returns an Estimator with the canonical defaults.
func NewEstimator(log logging.Logger) *Estimator {
	if log == nil {
		log = logging.Noop()
	}
	return &Estimator{
		DefaultPhotonIndex: DefaultPhotonIndex,
		DefaultNh:          DefaultNh,
		Log:                log,
	}
}

// EstimateStats summarizes one estimation pass over a table.
type EstimateStats struct {
	Authoritative int
	Fitted        int
	Fallbacks     int
	RepairedBands int
}

// EstimateAll annotates every source of table in place. detections and
// fits may be empty; nhMap may be nil. It returns per-pass counters for
// reporting and metrics.
func (e *Estimator) EstimateAll(
	ctx context.Context,
	table *model.SourceTable,
	detections []model.DR11Row,
	fits []model.SpectralFitRow,
	nhMap NhProvider,
) EstimateStats {
	var stats EstimateStats

	chain := ChainMatch(table.Names(), detections, fits)
	for i := range table.Sources {
		src := &table.Sources[i]
		stats.RepairedBands += repairMaskedFluxes(src)

		if j := chain[i]; j != model.CrossMatchNotFound {
			fit := fits[j]
			src.PhotonIndex = fit.PhotonIndex
			src.PhotonIndexErr = (fit.PhotonIndexHi - fit.PhotonIndexLo) / 2
			src.Nh = math.Pow(10, fit.LogNhMed)
			src.Authoritative = true
			stats.Authoritative++
			continue
		}

		src.Nh = e.DefaultNh
		if nhMap != nil {
			if nh, ok := nhMap.Nearest(src.Position); ok {
				src.Nh = nh
			}
		}

		// A fit converging to a non-positive photon index is as unusable
		// as one that never converged; both take the defaults.
		fit := FitPowerLaw(table.Schema, src.BandFlux, src.BandFluxErr, src.Nh)
		if fit.Converged && fit.PhotonIndex > 0 {
			src.PhotonIndex = fit.PhotonIndex
			src.PhotonIndexErr = fit.PhotonIndexErr
			stats.Fitted++
			continue
		}

		src.PhotonIndex = e.DefaultPhotonIndex
		src.PhotonIndexErr = math.NaN()
		stats.Fallbacks++
		e.Log.Warn(ctx, "spectral fit did not converge, using defaults",
			logging.String("source", src.Name),
			logging.Any("photon_index", e.DefaultPhotonIndex),
			logging.Any("nh", src.Nh))
	}
	return stats
}

// repairMaskedFluxes replaces masked (non-finite) band fluxes and
// errors with zero so downstream math never sees NaN. Zeroed bands are
// skipped by the fit. Returns how many values were repaired.
func repairMaskedFluxes(src *model.Source) int {
	n := 0
	for i, f := range src.BandFlux {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			src.BandFlux[i] = 0
			n++
		}
	}
	for i, e := range src.BandFluxErr {
		if math.IsNaN(e) || math.IsInf(e, 0) {
			src.BandFluxErr[i] = 0
			n++
		}
	}
	return n
}
