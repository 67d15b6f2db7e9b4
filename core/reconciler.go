package core

import (
	"fmt"
	"math"

	"github.com/mopilskog/NICER-Pointing/model"
)

// FOVMarginArcmin pads the field-of-view box prefilter so the cheap
// rectangular cut can never discard a source the exact radial cut would
// keep.
const FOVMarginArcmin = 5.0

// FilterFieldOfView cuts a catalog table down to the sources within
// radiusArcmin of center, then deduplicates repeated detections per the
// table's schema rule. Row order of survivors follows the input table.
//
// The selection runs in two passes: a rectangular prefilter with a
// fixed margin, then the exact great-circle cut on the survivors. The
// RA half-width of the box is widened by 1/cos(dec) so the box stays a
// superset of the circle at high declination.
//
// An empty result is reported as ErrNoSourcesFound.
func FilterFieldOfView(table *model.SourceTable, center model.SkyCoord, radiusArcmin float64) (*model.SourceTable, error) {
	if !center.IsFinite() {
		return nil, fmt.Errorf("field center (%v, %v): %w", center.RADeg, center.DecDeg, ErrInvalidCoordinate)
	}
	if radiusArcmin <= 0 || math.IsNaN(radiusArcmin) || math.IsInf(radiusArcmin, 0) {
		return nil, fmt.Errorf("field radius %v arcmin: %w", radiusArcmin, ErrInvalidCoordinate)
	}

	halfDeg := (radiusArcmin + FOVMarginArcmin) / ArcminPerDeg
	raHalf := raBoxHalfWidth(center.DecDeg, halfDeg)
	radiusDeg := radiusArcmin / ArcminPerDeg

	out := &model.SourceTable{Schema: table.Schema}
	for i := range table.Sources {
		src := &table.Sources[i]
		if !src.Position.IsFinite() {
			continue
		}
		if math.Abs(src.Position.DecDeg-center.DecDeg) > halfDeg {
			continue
		}
		if raDistanceDeg(src.Position.RADeg, center.RADeg) > raHalf {
			continue
		}
		if separationDeg(center, src.Position) > radiusDeg {
			continue
		}
		out.Sources = append(out.Sources, *src)
	}

	out = Deduplicate(out)
	if out.Len() == 0 {
		return nil, fmt.Errorf("no %s sources within %.1f arcmin of (%.4f, %.4f): %w",
			table.Schema.Key, radiusArcmin, center.RADeg, center.DecDeg, ErrNoSourcesFound)
	}
	return out, nil
}

// raBoxHalfWidth widens a declination half-width into an RA half-width
// at the given declination. Past the pole the box covers all of RA.
func raBoxHalfWidth(decDeg, halfDeg float64) float64 {
	edge := math.Abs(decDeg) + halfDeg
	if edge >= 90 {
		return 180
	}
	return halfDeg / math.Cos(edge*degToRad)
}

// raDistanceDeg is the shortest RA distance accounting for wrap at 360.
func raDistanceDeg(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// Deduplicate collapses repeated detections of the same named source
// into one row, following the schema's DedupRule. Output order is the
// order of each name's first appearance.
func Deduplicate(table *model.SourceTable) *model.SourceTable {
	out := &model.SourceTable{Schema: table.Schema}
	index := make(map[string]int, len(table.Sources))
	for i := range table.Sources {
		src := &table.Sources[i]
		at, seen := index[src.Name]
		if !seen {
			index[src.Name] = len(out.Sources)
			out.Sources = append(out.Sources, *src)
			continue
		}
		if table.Schema.Dedup == model.DedupBrightest && src.TotalFlux > out.Sources[at].TotalFlux {
			out.Sources[at] = *src
		}
	}
	return out
}

// MatchNames maps every primary name onto its row index in auxNames,
// recording model.CrossMatchNotFound where no counterpart exists. The
// result is parallel to primaryNames; auxNames order decides which row
// wins when the auxiliary catalog repeats a name.
func MatchNames(primaryNames, auxNames []string) []int {
	byName := make(map[string]int, len(auxNames))
	for i := len(auxNames) - 1; i >= 0; i-- {
		byName[auxNames[i]] = i
	}
	out := make([]int, len(primaryNames))
	for i, name := range primaryNames {
		if j, ok := byName[name]; ok {
			out[i] = j
		} else {
			out[i] = model.CrossMatchNotFound
		}
	}
	return out
}

// MatchDetIDs maps detection identifiers onto rows of a spectral-fit
// table. A detID of zero or below is treated as already-unmatched and
// passes the sentinel through.
func MatchDetIDs(detIDs []int64, fits []model.SpectralFitRow) []int {
	byID := make(map[int64]int, len(fits))
	for i := len(fits) - 1; i >= 0; i-- {
		byID[fits[i].DetID] = i
	}
	out := make([]int, len(detIDs))
	for i, id := range detIDs {
		if id <= 0 {
			out[i] = model.CrossMatchNotFound
			continue
		}
		if j, ok := byID[id]; ok {
			out[i] = j
		} else {
			out[i] = model.CrossMatchNotFound
		}
	}
	return out
}

// ChainMatch resolves the two-hop identifier chain from primary source
// names through a detection catalog into a spectral-fit catalog. The
// returned index is parallel to primaryNames and points into fits.
func ChainMatch(primaryNames []string, detections []model.DR11Row, fits []model.SpectralFitRow) []int {
	detNames := make([]string, len(detections))
	for i := range detections {
		detNames[i] = detections[i].IAUName
	}
	toDet := MatchNames(primaryNames, detNames)

	detIDs := make([]int64, len(primaryNames))
	for i, j := range toDet {
		if j == model.CrossMatchNotFound {
			detIDs[i] = 0
			continue
		}
		detIDs[i] = detections[j].DetID
	}
	return MatchDetIDs(detIDs, fits)
}
