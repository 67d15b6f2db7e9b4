package core

import (
	"errors"
	"math"
	"testing"

	"github.com/mopilskog/NICER-Pointing/model"
)

func TestGridSpecOffsets(t *testing.T) {
	g := DefaultGrid()
	offsets := g.Offsets()
	if len(offsets) != 282 {
		t.Fatalf("default grid has %d offsets per axis, want 282", len(offsets))
	}
	if math.Abs(offsets[0]*ArcminPerDeg+7) > 1e-9 {
		t.Errorf("first offset = %v arcmin, want -7", offsets[0]*ArcminPerDeg)
	}
	if math.Abs(offsets[len(offsets)-1]*ArcminPerDeg-7.05) > 1e-9 {
		t.Errorf("last offset = %v arcmin, want +7.05", offsets[len(offsets)-1]*ArcminPerDeg)
	}
}

// coarseOptimizer keeps tests fast; semantics match the default grid.
func coarseOptimizer() *Optimizer {
	return &Optimizer{
		Instrument: testInstrument(),
		Grid:       GridSpec{MinArcmin: -7, MaxArcmin: 7, StepArcmin: 0.5},
	}
}

func TestOptimizeAvoidsContaminantSide(t *testing.T) {
	target := model.Target{
		Name:      "PSR J2200-3300",
		Position:  model.SkyCoord{RADeg: 330.0, DecDeg: -33.0},
		CountRate: 1.0,
	}
	// A faint contaminant 4 arcmin east.
	contaminant := srcAt("nuisance", 330.0+4.0/ArcminPerDeg, -33.0)
	contaminant.CountRate = 0.01
	table := tableWith(model.XMMSchema(), contaminant)

	opt := coarseOptimizer()
	res, err := opt.Optimize(target, table, 1e6)
	if err != nil {
		t.Fatalf("Optimize error: %v", err)
	}

	if res.SNR <= 0 {
		t.Fatalf("SNR = %v, want positive", res.SNR)
	}
	// The winner should sit on the side of the target away from the
	// contaminant, never toward it.
	if res.Position.RADeg > target.Position.RADeg {
		t.Errorf("optimal RA %v drifted toward the contaminant at %v",
			res.Position.RADeg, contaminant.Position.RADeg)
	}
	// And it must beat pointing straight at the target.
	onAxisSNR := SignalToNoise(
		1.0,
		0.01*VignettingFactor(&opt.Instrument.Vignetting, 4.0),
		opt.Instrument.BackgroundRate,
		1e6,
	)
	if res.SNR < onAxisSNR {
		t.Errorf("optimal SNR %v worse than on-axis %v", res.SNR, onAxisSNR)
	}
}

func TestOptimizeAnnotatesSources(t *testing.T) {
	target := model.Target{Position: model.SkyCoord{RADeg: 330, DecDeg: -33}, CountRate: 1}
	contaminant := srcAt("nuisance", 330.0+4.0/ArcminPerDeg, -33.0)
	contaminant.CountRate = 0.5
	table := tableWith(model.XMMSchema(), contaminant)

	opt := coarseOptimizer()
	if _, err := opt.Optimize(target, table, 1e6); err != nil {
		t.Fatalf("Optimize error: %v", err)
	}

	src := table.Sources[0]
	if src.VignettingFactor <= 0 || src.VignettingFactor > 1 {
		t.Errorf("vignetting factor = %v, want in (0, 1]", src.VignettingFactor)
	}
	if math.Abs(src.ScaledRate-src.CountRate*src.VignettingFactor) > 1e-12 {
		t.Errorf("scaled rate %v != rate %v × factor %v", src.ScaledRate, src.CountRate, src.VignettingFactor)
	}
}

func TestOptimizeTieBreakFirstCell(t *testing.T) {
	// With a flat vignetting curve and an empty field every cell has
	// the same SNR; the first visited cell (min Dec, min RA) must win.
	inst := &model.Instrument{
		Vignetting: model.VignettingCurve{
			OffAxisArcmin: []float64{0, 100},
			RelativeArea:  []float64{1, 1},
		},
		BackgroundRate: 0.2,
	}
	opt := &Optimizer{Instrument: inst, Grid: GridSpec{MinArcmin: -1, MaxArcmin: 1, StepArcmin: 1}}

	target := model.Target{Position: model.SkyCoord{RADeg: 50, DecDeg: 10}, CountRate: 1}
	res, err := opt.Optimize(target, &model.SourceTable{Schema: model.XMMSchema()}, 1e4)
	if err != nil {
		t.Fatalf("Optimize error: %v", err)
	}
	wantRA := 50 - 1.0/ArcminPerDeg
	wantDec := 10 - 1.0/ArcminPerDeg
	if math.Abs(res.Position.RADeg-wantRA) > 1e-12 || math.Abs(res.Position.DecDeg-wantDec) > 1e-12 {
		t.Fatalf("winner = (%v, %v), want first cell (%v, %v)",
			res.Position.RADeg, res.Position.DecDeg, wantRA, wantDec)
	}
	if res.GridIndex != 0 {
		t.Fatalf("grid index = %d, want 0 for the first visited cell", res.GridIndex)
	}
}

func TestOptimizeSingleCellOptimum(t *testing.T) {
	target := model.Target{Position: model.SkyCoord{RADeg: 330, DecDeg: -33}, CountRate: 1}
	contaminant := srcAt("nuisance", 330.0+4.0/ArcminPerDeg, -33.0)
	contaminant.CountRate = 0.05
	table := tableWith(model.XMMSchema(), contaminant)

	opt := coarseOptimizer()
	res, err := opt.Optimize(target, table, 1e6)
	if err != nil {
		t.Fatalf("Optimize error: %v", err)
	}

	// The reported SNR must equal the grid maximum, found in exactly
	// the winning cell first.
	max := math.Inf(-1)
	for _, row := range res.SNRGrid {
		for _, v := range row {
			if v > max {
				max = v
			}
		}
	}
	if res.SNR != max {
		t.Fatalf("reported SNR %v != grid max %v", res.SNR, max)
	}
}

func TestOptimizeRejectsBadInputs(t *testing.T) {
	table := &model.SourceTable{Schema: model.XMMSchema()}
	opt := coarseOptimizer()

	bad := model.Target{Position: model.SkyCoord{RADeg: math.NaN()}, CountRate: 1}
	if _, err := opt.Optimize(bad, table, 1e6); !errors.Is(err, ErrInvalidCoordinate) {
		t.Fatalf("NaN position error = %v, want ErrInvalidCoordinate", err)
	}

	for _, rate := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		target := model.Target{Position: model.SkyCoord{RADeg: 10, DecDeg: 10}, CountRate: rate}
		if _, err := opt.Optimize(target, table, 1e6); !errors.Is(err, ErrInvalidTargetRate) {
			t.Fatalf("rate %v error = %v, want ErrInvalidTargetRate", rate, err)
		}
	}
}
