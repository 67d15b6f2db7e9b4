package core

import (
	"errors"
	"math"
	"testing"

	"github.com/mopilskog/NICER-Pointing/model"
)

func TestAngularSeparationIdentity(t *testing.T) {
	p := model.SkyCoord{RADeg: 330.0, DecDeg: -33.0}
	sep, err := AngularSeparation(p, p)
	if err != nil {
		t.Fatalf("AngularSeparation error: %v", err)
	}
	if sep != 0 {
		t.Fatalf("separation of a point from itself = %v, want 0", sep)
	}
}

func TestAngularSeparationSymmetry(t *testing.T) {
	a := model.SkyCoord{RADeg: 10.0, DecDeg: 20.0}
	b := model.SkyCoord{RADeg: 11.0, DecDeg: 19.5}
	ab, err := AngularSeparation(a, b)
	if err != nil {
		t.Fatalf("AngularSeparation error: %v", err)
	}
	ba, err := AngularSeparation(b, a)
	if err != nil {
		t.Fatalf("AngularSeparation error: %v", err)
	}
	if math.Abs(ab-ba) > 1e-13 {
		t.Fatalf("separation asymmetric: %v vs %v", ab, ba)
	}
}

func TestAngularSeparationKnownValues(t *testing.T) {
	cases := []struct {
		a, b model.SkyCoord
		want float64
	}{
		// One degree along the equator.
		{model.SkyCoord{RADeg: 0, DecDeg: 0}, model.SkyCoord{RADeg: 1, DecDeg: 0}, 1},
		// Pole to equator.
		{model.SkyCoord{RADeg: 45, DecDeg: 90}, model.SkyCoord{RADeg: 200, DecDeg: 0}, 90},
		// RA circles shrink with declination: 1° of RA at dec 60 is 0.5°.
		{model.SkyCoord{RADeg: 0, DecDeg: 60}, model.SkyCoord{RADeg: 1, DecDeg: 60}, 0.49999},
	}
	for _, c := range cases {
		got, err := AngularSeparation(c.a, c.b)
		if err != nil {
			t.Fatalf("AngularSeparation error: %v", err)
		}
		if math.Abs(got-c.want) > 1e-3 {
			t.Errorf("separation(%+v, %+v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestAngularSeparationRejectsNonFinite(t *testing.T) {
	good := model.SkyCoord{RADeg: 10, DecDeg: 10}
	bad := model.SkyCoord{RADeg: math.NaN(), DecDeg: 10}
	if _, err := AngularSeparation(good, bad); !errors.Is(err, ErrInvalidCoordinate) {
		t.Fatalf("error = %v, want ErrInvalidCoordinate", err)
	}
	if _, err := AngularSeparations(bad, []model.SkyCoord{good}); !errors.Is(err, ErrInvalidCoordinate) {
		t.Fatalf("bulk error = %v, want ErrInvalidCoordinate", err)
	}
	if _, err := AngularSeparations(good, []model.SkyCoord{good, bad}); !errors.Is(err, ErrInvalidCoordinate) {
		t.Fatalf("bulk element error = %v, want ErrInvalidCoordinate", err)
	}
}

func TestInterpolateCurveClamping(t *testing.T) {
	xs := []float64{0, 2, 4}
	ys := []float64{1.0, 0.5, 0.1}

	if got := InterpolateCurve(xs, ys, -1); got != 1.0 {
		t.Errorf("below range = %v, want 1.0", got)
	}
	if got := InterpolateCurve(xs, ys, 10); got != 0.1 {
		t.Errorf("above range = %v, want 0.1", got)
	}
	if got := InterpolateCurve(xs, ys, 1); math.Abs(got-0.75) > 1e-12 {
		t.Errorf("midpoint = %v, want 0.75", got)
	}
	if got := InterpolateCurve(nil, nil, 1); got != 0 {
		t.Errorf("empty curve = %v, want 0", got)
	}
}

func TestScaledCountRatesMonotone(t *testing.T) {
	inst := testInstrument()
	rates := []float64{1, 1, 1}
	seps := []float64{0, 3.0 / ArcminPerDeg, 6.0 / ArcminPerDeg}

	scaled, factors := ScaledCountRates(inst, rates, seps)
	if len(scaled) != 3 || len(factors) != 3 {
		t.Fatalf("result lengths = %d/%d, want 3/3", len(scaled), len(factors))
	}
	if factors[0] != 1.0 {
		t.Errorf("on-axis factor = %v, want 1", factors[0])
	}
	if !(scaled[0] > scaled[1] && scaled[1] > scaled[2]) {
		t.Errorf("rates not decreasing with separation: %v", scaled)
	}
}

func TestSignalToNoiseZeroDenominator(t *testing.T) {
	if got := SignalToNoise(0, 0, 0, 1e6); got != 0 {
		t.Fatalf("SNR with zero denominator = %v, want 0", got)
	}
	if math.IsNaN(SignalToNoise(0, 0, 0, 1e6)) {
		t.Fatal("SNR must never be NaN")
	}
}

func TestSignalToNoiseValue(t *testing.T) {
	// 1 cts/s target, 0.01 contaminating, 0.2 background over 1e6 s:
	// SNR = 1·√1e6/√1.21 ≈ 909.09.
	got := SignalToNoise(1.0, 0.01, 0.2, 1e6)
	want := 1000.0 / math.Sqrt(1.21)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("SNR = %v, want %v", got, want)
	}
}

func testInstrument() *model.Instrument {
	return &model.Instrument{
		Name: "NICER-XTI",
		Vignetting: model.VignettingCurve{
			OffAxisArcmin: []float64{0, 1, 2, 3, 4, 5, 6, 7},
			RelativeArea:  []float64{1.0, 0.95, 0.83, 0.67, 0.5, 0.33, 0.2, 0.1},
		},
		BackgroundRate:   0.2,
		EffectiveAreaCm2: 1900,
		EnergyMinKeV:     0.3,
		EnergyMaxKeV:     10.0,
	}
}
