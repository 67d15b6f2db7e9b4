package core

import (
	"fmt"
	"math"

	"github.com/mopilskog/NICER-Pointing/model"
)

// GridSpec defines the square offset grid the optimizer searches.
// Offsets are applied directly to the target's RA and Dec in
// arcminutes; the grid spans [Min, Max] inclusive at the given step.
type GridSpec struct {
	MinArcmin  float64
	MaxArcmin  float64
	StepArcmin float64
}

// DefaultGrid is the 0.05 arcmin search used for NICER pointing
// planning, spanning −7.0 to +7.05 arcmin per axis: 282×282 candidate
// pointings.
func DefaultGrid() GridSpec {
	return GridSpec{MinArcmin: -7.0, MaxArcmin: 7.05, StepArcmin: 0.05}
}

// Offsets materializes the grid's axis values in degrees.
func (g GridSpec) Offsets() []float64 {
	n := int(math.Round((g.MaxArcmin-g.MinArcmin)/g.StepArcmin)) + 1
	if n < 1 {
		n = 1
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = (g.MinArcmin + float64(i)*g.StepArcmin) / ArcminPerDeg
	}
	return out
}

// OptimalPointing is the result of a grid search: the winning pointing,
// its SNR decomposition, and the full SNR surface for reporting.
type OptimalPointing struct {
	Position model.SkyCoord

	SNR        float64
	TargetRate float64 // target rate after vignetting at the winner
	SourceRate float64 // summed contaminating rates at the winner

	// GridIndex is the winner's position in the row-major flattening of
	// SNRGrid.
	GridIndex int

	// SNRGrid[row][col] is indexed by [Dec offset][RA offset];
	// RAOffsetsDeg and DecOffsetsDeg are the corresponding axes.
	SNRGrid       [][]float64
	RAOffsetsDeg  []float64
	DecOffsetsDeg []float64
}

// Optimizer searches the offset grid around a target for the pointing
// maximizing the signal-to-noise of the target against vignetted
// contaminating sources and the instrumental background.
type Optimizer struct {
	Instrument *model.Instrument
	Grid       GridSpec
}

// NewOptimizer builds an Optimizer over the default grid.
func NewOptimizer(inst *model.Instrument) *Optimizer {
	return &Optimizer{Instrument: inst, Grid: DefaultGrid()}
}

// Optimize runs the grid search. exposureSec is the planned exposure.
// Ties resolve to the first cell visited, rows (Dec) outer and columns
// (RA) inner, so results are reproducible across runs.
//
// The winning cell's vignetting factors and scaled rates are written
// back onto the table's sources.
func (o *Optimizer) Optimize(target model.Target, table *model.SourceTable, exposureSec float64) (*OptimalPointing, error) {
	if !target.Position.IsFinite() {
		return nil, fmt.Errorf("target position (%v, %v): %w",
			target.Position.RADeg, target.Position.DecDeg, ErrInvalidCoordinate)
	}
	if target.CountRate <= 0 || math.IsNaN(target.CountRate) || math.IsInf(target.CountRate, 0) {
		return nil, fmt.Errorf("target rate %v cts/s: %w", target.CountRate, ErrInvalidTargetRate)
	}

	offsets := o.Grid.Offsets()
	positions := table.Positions()
	rates := make([]float64, table.Len())
	for i := range table.Sources {
		rates[i] = table.Sources[i].CountRate
	}

	best := &OptimalPointing{
		SNR:           math.Inf(-1),
		SNRGrid:       make([][]float64, len(offsets)),
		RAOffsetsDeg:  offsets,
		DecOffsetsDeg: offsets,
	}
	var bestPos model.SkyCoord

	for row, dDec := range offsets {
		best.SNRGrid[row] = make([]float64, len(offsets))
		for col, dRA := range offsets {
			cand := o.evaluate(target, positions, rates, exposureSec, dRA, dDec)
			best.SNRGrid[row][col] = cand.SNR
			if cand.SNR > best.SNR {
				best.SNR = cand.SNR
				best.TargetRate = cand.TargetRate
				best.SourceRate = cand.SourceRate
				best.GridIndex = row*len(offsets) + col
				bestPos = model.SkyCoord{
					RADeg:  target.Position.RADeg + cand.OffsetRADeg,
					DecDeg: target.Position.DecDeg + cand.OffsetDecDeg,
				}
			}
		}
	}

	best.Position = bestPos

	// Annotate the table with the geometry at the winning pointing.
	for i := range table.Sources {
		src := &table.Sources[i]
		sep := separationDeg(bestPos, src.Position)
		src.VignettingFactor = VignettingFactor(&o.Instrument.Vignetting, sep*ArcminPerDeg)
		src.ScaledRate = src.CountRate * src.VignettingFactor
	}
	return best, nil
}

// evaluate scores one candidate cell at the given offsets from the
// target's nominal position. positions and rates are the field sources,
// pre-extracted once per search.
func (o *Optimizer) evaluate(target model.Target, positions []model.SkyCoord, rates []float64, exposureSec, dRA, dDec float64) model.PointingCandidate {
	p := model.SkyCoord{
		RADeg:  target.Position.RADeg + dRA,
		DecDeg: target.Position.DecDeg + dDec,
	}

	targetSep := separationDeg(p, target.Position)
	targetRate := target.CountRate * VignettingFactor(&o.Instrument.Vignetting, targetSep*ArcminPerDeg)

	sourceRate := 0.0
	for i, sp := range positions {
		sep := separationDeg(p, sp)
		sourceRate += rates[i] * VignettingFactor(&o.Instrument.Vignetting, sep*ArcminPerDeg)
	}

	return model.PointingCandidate{
		OffsetRADeg:  dRA,
		OffsetDecDeg: dDec,
		TargetRate:   targetRate,
		SourceRate:   sourceRate,
		SNR:          SignalToNoise(targetRate, sourceRate, o.Instrument.BackgroundRate, exposureSec),
	}
}
