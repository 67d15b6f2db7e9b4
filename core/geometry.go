package core

import (
	"fmt"
	"math"

	"github.com/mopilskog/NICER-Pointing/model"
)

const (
	degToRad = math.Pi / 180.0
	radToDeg = 180.0 / math.Pi

	// ArcminPerDeg converts between the catalog's degree coordinates
	// and the arcminute scale the instrument geometry is expressed in.
	ArcminPerDeg = 60.0
)

// AngularSeparation returns the great-circle separation between two sky
// positions in degrees. Non-finite coordinates are rejected with
// ErrInvalidCoordinate.
//
// The haversine form is used so that separations near zero keep full
// precision; naive arccos of the dot product loses half the mantissa
// for close pairs, which matters when sources sit a few arcseconds
// apart.
func AngularSeparation(a, b model.SkyCoord) (float64, error) {
	if !a.IsFinite() {
		return 0, fmt.Errorf("first position (%v, %v): %w", a.RADeg, a.DecDeg, ErrInvalidCoordinate)
	}
	if !b.IsFinite() {
		return 0, fmt.Errorf("second position (%v, %v): %w", b.RADeg, b.DecDeg, ErrInvalidCoordinate)
	}
	return separationDeg(a, b), nil
}

// separationDeg is the unchecked haversine separation in degrees.
func separationDeg(a, b model.SkyCoord) float64 {
	ra1 := a.RADeg * degToRad
	dec1 := a.DecDeg * degToRad
	ra2 := b.RADeg * degToRad
	dec2 := b.DecDeg * degToRad

	sinDec := math.Sin((dec2 - dec1) / 2)
	sinRA := math.Sin((ra2 - ra1) / 2)
	h := sinDec*sinDec + math.Cos(dec1)*math.Cos(dec2)*sinRA*sinRA
	if h > 1 {
		h = 1
	}
	return 2 * math.Asin(math.Sqrt(h)) * radToDeg
}

// AngularSeparations computes the separation between one position and
// every entry of others, in degrees. It is the bulk form used on whole
// catalog columns; a single invalid entry fails the whole call.
func AngularSeparations(from model.SkyCoord, others []model.SkyCoord) ([]float64, error) {
	if !from.IsFinite() {
		return nil, fmt.Errorf("reference position (%v, %v): %w", from.RADeg, from.DecDeg, ErrInvalidCoordinate)
	}
	out := make([]float64, len(others))
	for i, o := range others {
		if !o.IsFinite() {
			return nil, fmt.Errorf("position %d (%v, %v): %w", i, o.RADeg, o.DecDeg, ErrInvalidCoordinate)
		}
		out[i] = separationDeg(from, o)
	}
	return out, nil
}

// InterpolateCurve evaluates a tabulated curve at x by linear
// interpolation, clamping to the endpoint values outside the sampled
// range. The xs must be strictly increasing.
func InterpolateCurve(xs, ys []float64, x float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	if x <= xs[0] {
		return ys[0]
	}
	if x >= xs[n-1] {
		return ys[n-1]
	}
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if xs[mid] <= x {
			lo = mid
		} else {
			hi = mid
		}
	}
	t := (x - xs[lo]) / (xs[hi] - xs[lo])
	return ys[lo] + t*(ys[hi]-ys[lo])
}

// ScaledCountRates applies the instrument's vignetting curve to a set
// of nominal count rates at the given off-axis separations (degrees).
// It returns the scaled rates and the vignetting factors themselves,
// so callers can report how much each source was suppressed.
func ScaledCountRates(inst *model.Instrument, rates, separationsDeg []float64) (scaled, factors []float64) {
	scaled = make([]float64, len(rates))
	factors = make([]float64, len(rates))
	for i, r := range rates {
		f := VignettingFactor(&inst.Vignetting, separationsDeg[i]*ArcminPerDeg)
		factors[i] = f
		scaled[i] = r * f
	}
	return scaled, factors
}

// VignettingFactor evaluates a vignetting curve at the given off-axis
// angle in arcminutes.
func VignettingFactor(c *model.VignettingCurve, offAxisArcmin float64) float64 {
	return InterpolateCurve(c.OffAxisArcmin, c.RelativeArea, offAxisArcmin)
}

// SignalToNoise evaluates the SNR of a target against the summed
// contaminating rates and the instrumental background over one
// exposure. A zero denominator yields 0, never NaN, so a dead grid
// cell sorts below every live one.
func SignalToNoise(targetRate, contaminatingRate, backgroundRate, exposureSec float64) float64 {
	denom := targetRate + contaminatingRate + backgroundRate
	if denom <= 0 {
		return 0
	}
	return targetRate * math.Sqrt(exposureSec) / math.Sqrt(denom)
}
