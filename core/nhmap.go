package core

import (
	"github.com/mopilskog/NICER-Pointing/model"
)

// NhProvider resolves the Galactic hydrogen column density toward a sky
// position. Implementations return ok=false when they have nothing to
// offer for the position, in which case the estimator falls back to its
// configured default.
type NhProvider interface {
	Nearest(pos model.SkyCoord) (nh float64, ok bool)
}

// NhSkyMap is a sampled all-sky column density map answering nearest-
// neighbour queries by exhaustive scan. The shipped maps hold a few
// thousand lines of sight, small enough that a scan beats maintaining
// a spatial index.
type NhSkyMap struct {
	samples []model.NhSample
}

// NewNhSkyMap wraps the given samples. The slice is retained.
func NewNhSkyMap(samples []model.NhSample) *NhSkyMap {
	return &NhSkyMap{samples: samples}
}

// Len returns the number of sampled lines of sight.
func (m *NhSkyMap) Len() int { return len(m.samples) }

// Nearest returns the column density of the sample closest to pos in
// flat (RA, Dec) coordinates, matching how the published map was built.
func (m *NhSkyMap) Nearest(pos model.SkyCoord) (float64, bool) {
	if m == nil || len(m.samples) == 0 || !pos.IsFinite() {
		return 0, false
	}
	best := 0
	bestD := flatDistSq(pos, m.samples[0].Position)
	for i := 1; i < len(m.samples); i++ {
		if d := flatDistSq(pos, m.samples[i].Position); d < bestD {
			bestD = d
			best = i
		}
	}
	return m.samples[best].Nh, true
}

func flatDistSq(a, b model.SkyCoord) float64 {
	dra := a.RADeg - b.RADeg
	ddec := a.DecDeg - b.DecDeg
	return dra*dra + ddec*ddec
}
