package model

import "math"

// CatalogSchema maps the pipeline's logical fields onto one survey
// catalog's physical column names and fixed per-catalog constants. A
// schema is resolved once at load time; downstream code never branches
// on catalog name.
type CatalogSchema struct {
	// Key identifies the catalog family ("XMM", "Chandra", ...).
	Key string

	// Column names in the raw catalog rows.
	NameColumn    string
	RAColumn      string
	DecColumn     string
	FluxColumn    string   // broad-band observed flux
	BandColumns   []string // per-band observed flux
	BandErrLower  []string // per-band lower uncertainty
	BandErrUpper  []string // per-band upper uncertainty
	FracVarColumn string   // fractional variability; "" when absent

	// MasterColumn names this family's identifier column in the master
	// cross-catalog variability table.
	MasterColumn string

	// EnergyBandCenters / EnergyBandHalfWidths are the band definitions
	// in keV; Sigma is the per-band photoelectric cross-section vector
	// used by the absorbed power-law fit.
	EnergyBandCenters    []float64
	EnergyBandHalfWidths []float64
	Sigma                []float64

	// Dedup picks the surviving row when a catalog reports several
	// detections of the same physical source.
	Dedup DedupRule
}

// DedupRule selects which duplicate row wins during deduplication.
type DedupRule int

const (
	// DedupFirst keeps the first occurrence in catalog order.
	DedupFirst DedupRule = iota
	// DedupBrightest keeps the row with the largest broad-band flux.
	DedupBrightest
)

// Built-in schemas, transcribed from the published catalog column sets.
// The XMM sigma vector is the tabulated per-band cross-section; other
// catalogs use a log-spaced vector over the same range.

// XMMSchema describes the 4XMM-DR13 serendipitous source catalog.
func XMMSchema() *CatalogSchema {
	return &CatalogSchema{
		Key:           "XMM",
		NameColumn:    "IAUNAME",
		RAColumn:      "SC_RA",
		DecColumn:     "SC_DEC",
		FluxColumn:    "SC_EP_8_FLUX",
		BandColumns:   []string{"SC_EP_1_FLUX", "SC_EP_2_FLUX", "SC_EP_3_FLUX", "SC_EP_4_FLUX", "SC_EP_5_FLUX"},
		BandErrLower:  []string{"SC_EP_1_FLUX_ERR", "SC_EP_2_FLUX_ERR", "SC_EP_3_FLUX_ERR", "SC_EP_4_FLUX_ERR", "SC_EP_5_FLUX_ERR"},
		BandErrUpper:  []string{"SC_EP_1_FLUX_ERR", "SC_EP_2_FLUX_ERR", "SC_EP_3_FLUX_ERR", "SC_EP_4_FLUX_ERR", "SC_EP_5_FLUX_ERR"},
		FracVarColumn: "SC_FVAR",
		MasterColumn:  "XMM",

		EnergyBandCenters:    []float64{0.35, 0.75, 1.5, 3.25, 8.25},
		EnergyBandHalfWidths: []float64{0.15, 0.25, 0.5, 1.25, 3.75},
		Sigma:                []float64{1e-20, 5e-21, 1e-22, 1e-23, 1e-24},

		Dedup: DedupFirst,
	}
}

// ChandraSchema describes the Chandra Source Catalog 2.0 as distributed
// in the cross-matched master set.
func ChandraSchema() *CatalogSchema {
	return &CatalogSchema{
		Key:          "Chandra",
		NameColumn:   "Chandra_IAUNAME",
		RAColumn:     "RA",
		DecColumn:    "DEC",
		FluxColumn:   "flux_aper_b",
		BandColumns:  []string{"flux_aper_s", "flux_aper_m", "flux_aper_h"},
		BandErrLower: []string{"flux_aper_lolim_s", "flux_aper_lolim_m", "flux_aper_lolim_h"},
		BandErrUpper: []string{"flux_aper_hilim_s", "flux_aper_hilim_m", "flux_aper_hilim_h"},
		MasterColumn: "Chandra",

		EnergyBandCenters:    []float64{0.85, 1.6, 4.5},
		EnergyBandHalfWidths: []float64{0.35, 0.4, 2.5},
		Sigma:                []float64{1e-20, 1e-22, 1e-24},

		Dedup: DedupFirst,
	}
}

// SwiftSchema describes the Swift-XRT 2SXPS point source catalog.
// Swift reports one row per observation epoch, so deduplication keeps
// the brightest detection of each source.
func SwiftSchema() *CatalogSchema {
	return &CatalogSchema{
		Key:          "Swift",
		NameColumn:   "Swift_IAUNAME",
		RAColumn:     "RA",
		DecColumn:    "DEC",
		FluxColumn:   "Flux",
		BandColumns:  []string{"Flux1", "Flux2", "Flux3"},
		BandErrLower: []string{"Flux1_neg", "Flux2_neg", "Flux3_neg"},
		BandErrUpper: []string{"Flux1_pos", "Flux2_pos", "Flux3_pos"},
		MasterColumn: "Swift",

		EnergyBandCenters:    []float64{0.65, 1.5, 5.0},
		EnergyBandHalfWidths: []float64{0.35, 0.5, 3.0},
		Sigma:                logSpacedSigma(3),

		Dedup: DedupBrightest,
	}
}

// ERASSSchema describes the eROSITA eRASS1 main catalog. Like Swift it
// can carry repeated detections per source.
func ERASSSchema() *CatalogSchema {
	return &CatalogSchema{
		Key:          "eRASS1",
		NameColumn:   "eRASS_IAUNAME",
		RAColumn:     "RA",
		DecColumn:    "DEC",
		FluxColumn:   "ML_FLUX",
		BandColumns:  []string{"ML_FLUX_b1", "ML_FLUX_b2", "ML_FLUX_b3", "ML_FLUX_b4"},
		BandErrLower: []string{"ML_FLUX_ERR_b1", "ML_FLUX_ERR_b2", "ML_FLUX_ERR_b3", "ML_FLUX_ERR_b4"},
		BandErrUpper: []string{"ML_FLUX_ERR_b1", "ML_FLUX_ERR_b2", "ML_FLUX_ERR_b3", "ML_FLUX_ERR_b4"},
		MasterColumn: "eRASS1",

		EnergyBandCenters:    []float64{0.35, 0.75, 1.5, 3.4},
		EnergyBandHalfWidths: []float64{0.15, 0.25, 0.5, 1.4},
		Sigma:                logSpacedSigma(4),

		Dedup: DedupBrightest,
	}
}

// SchemaFor resolves a catalog key to its built-in schema, or nil when
// the key is unknown.
func SchemaFor(key string) *CatalogSchema {
	switch key {
	case "XMM", "Xmm_DR13":
		return XMMSchema()
	case "Chandra", "CSC_2.0":
		return ChandraSchema()
	case "Swift":
		return SwiftSchema()
	case "eRASS1", "eRosita":
		return ERASSSchema()
	default:
		return nil
	}
}

// logSpacedSigma returns n cross-sections log-spaced between the 1e-20
// and 1e-24 endpoints used by the band fits.
func logSpacedSigma(n int) []float64 {
	if n == 1 {
		return []float64{1e-20}
	}
	out := make([]float64, n)
	step := -4.0 / float64(n-1)
	for i := range out {
		out[i] = math.Pow(10, -20+float64(i)*step)
	}
	return out
}
