package model

// VignettingCurve is an instrument's on-axis-normalized effective area
// as a function of off-axis angle. Angles are in arcminutes, areas are
// relative to the on-axis value, and the angle samples are strictly
// increasing. Separations outside the sampled range clamp to the
// nearest endpoint when interpolating.
type VignettingCurve struct {
	OffAxisArcmin []float64
	RelativeArea  []float64
}

// Len returns the number of samples in the curve.
func (c *VignettingCurve) Len() int { return len(c.OffAxisArcmin) }

// Instrument bundles the telescope description the optimizer and the
// count-rate predictor need. For NICER this is the XTI PSF-derived
// vignetting curve, the instrumental background, and the sensitive
// band.
type Instrument struct {
	Name string

	Vignetting VignettingCurve

	// BackgroundRate is the instrumental background in cts/s.
	BackgroundRate float64

	// EffectiveAreaCm2 is the nominal on-axis effective area used by
	// the built-in count-rate predictor.
	EffectiveAreaCm2 float64

	// EnergyMinKeV / EnergyMaxKeV bound the sensitive band.
	EnergyMinKeV float64
	EnergyMaxKeV float64
}

// Target is the object the observation is planned for.
type Target struct {
	Name      string
	Position  SkyCoord
	CountRate float64 // nominal on-axis rate, cts/s
}

// PointingCandidate is one cell of the optimizer's search grid. The
// offsets are relative to the target's nominal position, in degrees.
type PointingCandidate struct {
	OffsetRADeg  float64
	OffsetDecDeg float64
	TargetRate   float64
	SourceRate   float64
	SNR          float64
}

// BundledTarget is a preset observation target with a published nominal
// count rate.
type BundledTarget struct {
	Name      string
	Position  SkyCoord
	CountRate float64
}

// BundledTargets lists the millisecond pulsars the tool ships presets
// for, with their nominal NICER count rates.
func BundledTargets() []BundledTarget {
	return []BundledTarget{
		{Name: "PSR J0437-4715", Position: SkyCoord{RADeg: 69.3158, DecDeg: -47.2523}, CountRate: 1.319},
		{Name: "PSR J2124-3358", Position: SkyCoord{RADeg: 321.1827, DecDeg: -33.9785}, CountRate: 0.1},
		{Name: "PSR J0751+1807", Position: SkyCoord{RADeg: 117.7882, DecDeg: 18.1273}, CountRate: 0.025},
		{Name: "PSR J1231-1411", Position: SkyCoord{RADeg: 187.7972, DecDeg: -14.1956}, CountRate: 0.27},
	}
}

// LookupBundledTarget finds a preset by exact name. Underscores are
// accepted in place of spaces so names survive shell quoting.
func LookupBundledTarget(name string) (BundledTarget, bool) {
	for _, t := range BundledTargets() {
		if t.Name == name || t.Name == underscoresToSpaces(name) {
			return t, true
		}
	}
	return BundledTarget{}, false
}

func underscoresToSpaces(s string) string {
	out := []byte(s)
	for i := range out {
		if out[i] == '_' {
			out[i] = ' '
		}
	}
	return string(out)
}
