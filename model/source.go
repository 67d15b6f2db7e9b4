package model

import "math"

// SkyCoord is an equatorial sky position in degrees (ICRS).
type SkyCoord struct {
	RADeg  float64 `json:"ra_deg" yaml:"ra_deg"`
	DecDeg float64 `json:"dec_deg" yaml:"dec_deg"`
}

// IsFinite reports whether both coordinates hold finite values.
func (c SkyCoord) IsFinite() bool {
	return !math.IsNaN(c.RADeg) && !math.IsInf(c.RADeg, 0) &&
		!math.IsNaN(c.DecDeg) && !math.IsInf(c.DecDeg, 0)
}

// Source is one detected X-ray point source from a survey catalog.
//
// A Source is created by the field-of-view filter and then annotated in
// place by the downstream stages: the estimator fills PhotonIndex / Nh,
// the optimizer fills CountRate / VignettingFactor, and the classifier
// sets Variable. Band fluxes follow the owning table's CatalogSchema:
// BandFlux[i] is the observed flux in schema.EnergyBandCenters[i], and
// BandFluxErr[i] is the mean of the catalog's asymmetric lower/upper
// uncertainties for that band.
type Source struct {
	Name     string
	Position SkyCoord

	BandFlux    []float64
	BandFluxErr []float64

	// TotalFlux is the broad-band observed flux (erg/cm²/s) used for
	// count-rate prediction and spectral-model normalization.
	TotalFlux float64

	// FracVariability is the catalog's fractional-variability measure.
	// NaN means the catalog does not report one for this source.
	FracVariability float64

	// Spectral parameters. PhotonIndex is never left zero after
	// estimation; it falls back to the configured default when the fit
	// fails. Authoritative reports whether the pair came from an
	// auxiliary spectral-fit catalog rather than our own fit.
	PhotonIndex    float64
	PhotonIndexErr float64
	Nh             float64
	Authoritative  bool

	// CountRate is the predicted on-axis instrument rate (cts/s).
	// ScaledRate and VignettingFactor are filled at the optimal
	// pointing: ScaledRate = CountRate × VignettingFactor.
	CountRate        float64
	ScaledRate       float64
	VignettingFactor float64

	Variable bool
}

// SourceTable is an ordered collection of Sources from one catalog.
// Row order is significant: cross-match indices and variability index
// sets refer to positions in this slice.
type SourceTable struct {
	Schema  *CatalogSchema
	Sources []Source
}

// Len returns the number of rows.
func (t *SourceTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Sources)
}

// Names returns the source identifiers in row order.
func (t *SourceTable) Names() []string {
	names := make([]string, len(t.Sources))
	for i := range t.Sources {
		names[i] = t.Sources[i].Name
	}
	return names
}

// Positions returns the per-row sky positions in row order.
func (t *SourceTable) Positions() []SkyCoord {
	pos := make([]SkyCoord, len(t.Sources))
	for i := range t.Sources {
		pos[i] = t.Sources[i].Position
	}
	return pos
}

// CrossMatchNotFound is the sentinel row index recorded when a primary
// source has no counterpart in an auxiliary catalog. It is distinct from
// every valid index, including zero.
const CrossMatchNotFound = -1

// CrossMatchIndex maps each row of a primary SourceTable to its row in
// one or more auxiliary catalogs. Parallel slices, in primary row order;
// absent matches hold CrossMatchNotFound.
type CrossMatchIndex struct {
	Primary   []int
	Auxiliary map[string][]int
}

// AuxIndex returns the match slice for the named auxiliary catalog, or
// nil when that catalog was never matched.
func (x *CrossMatchIndex) AuxIndex(name string) []int {
	if x == nil {
		return nil
	}
	return x.Auxiliary[name]
}

// SourceModel is the per-source spectral model descriptor handed to the
// count-rate predictor and the spectral evaluator. Kind is currently
// always ModelPowerLaw.
type SourceModel struct {
	Kind        ModelKind
	PhotonIndex float64
	Flux        float64
	Nh          float64
}

// ModelKind enumerates supported spectral model families.
type ModelKind string

const (
	// ModelPowerLaw is an absorbed power law, the only model the
	// pipeline currently emits.
	ModelPowerLaw ModelKind = "power"
)
