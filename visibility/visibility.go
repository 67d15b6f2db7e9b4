// Package visibility estimates when an orbiting observatory can see a
// sky target. NICER rides on the ISS, so a pointing recommendation is
// only useful during the orbit segments where the Earth does not
// occult the target; the sweep here reports that fraction for a
// planned observation window.
package visibility

import (
	"fmt"
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/mopilskog/NICER-Pointing/model"
)

// EarthRadiusKm is the mean Earth radius used for occultation tests.
const EarthRadiusKm = 6371.0

// Vec3 is an ECI-style vector in kilometres.
type Vec3 struct {
	X, Y, Z float64
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Platform propagates the observatory's orbit from a two-line element
// set using SGP4.
type Platform struct {
	sat satellite.Satellite
}

// NewPlatformFromTLE constructs a Platform from TLE lines.
func NewPlatformFromTLE(line1, line2 string) (*Platform, error) {
	if line1 == "" || line2 == "" {
		return nil, fmt.Errorf("visibility: empty TLE line")
	}
	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)
	return &Platform{sat: sat}, nil
}

// PositionECI returns the platform's inertial position at t, in km.
func (p *Platform) PositionECI(t time.Time) Vec3 {
	year, month, day := t.UTC().Date()
	hour, min, sec := t.UTC().Clock()

	pos, _ := satellite.Propagate(p.sat, year, int(month), day, hour, min, sec)
	return Vec3{X: pos.X, Y: pos.Y, Z: pos.Z}
}

// TargetDirection converts a sky position to its inertial unit vector.
// Sky targets are effectively at infinity, so the direction alone
// decides occultation.
func TargetDirection(pos model.SkyCoord) Vec3 {
	ra := pos.RADeg * math.Pi / 180
	dec := pos.DecDeg * math.Pi / 180
	return Vec3{
		X: math.Cos(dec) * math.Cos(ra),
		Y: math.Cos(dec) * math.Sin(ra),
		Z: math.Sin(dec),
	}
}

// IsVisible reports whether the target direction is clear of the Earth
// from an observer at obs (km, ECI). The target ray is occulted when
// it points into the hemisphere containing the Earth and its closest
// approach to the Earth's centre lies inside the sphere.
func IsVisible(obs Vec3, dir Vec3) bool {
	along := obs.Dot(dir)
	if along >= 0 {
		// Looking away from the Earth's centre side; always clear for
		// an observer above the surface.
		return true
	}
	perpSq := obs.Dot(obs) - along*along
	return perpSq > EarthRadiusKm*EarthRadiusKm
}

// Window is an interval during which the target stays visible.
type Window struct {
	Start time.Time
	End   time.Time
}

// Duration returns the window length.
func (w Window) Duration() time.Duration { return w.End.Sub(w.Start) }

// SweepResult summarizes a visibility sweep over an observation window.
type SweepResult struct {
	// Fraction is the visible share of the sampled window, in [0, 1].
	Fraction float64
	// Windows lists the contiguous visible intervals found.
	Windows []Window
	// Samples is the number of time steps evaluated.
	Samples int
}

// Sweep samples the platform's orbit every step across [start, start+d]
// and reports when the target is visible. Steps of about a minute
// resolve the ISS's ~92 minute orbit well; the sweep clamps nonsense
// steps to one second.
func Sweep(p *Platform, target model.SkyCoord, start time.Time, d, step time.Duration) SweepResult {
	if step < time.Second {
		step = time.Second
	}
	dir := TargetDirection(target)

	var res SweepResult
	var open *Window
	visibleSteps := 0

	for t := start; !t.After(start.Add(d)); t = t.Add(step) {
		res.Samples++
		if IsVisible(p.PositionECI(t), dir) {
			visibleSteps++
			if open == nil {
				open = &Window{Start: t}
			}
			open.End = t.Add(step)
			continue
		}
		if open != nil {
			res.Windows = append(res.Windows, *open)
			open = nil
		}
	}
	if open != nil {
		res.Windows = append(res.Windows, *open)
	}
	if res.Samples > 0 {
		res.Fraction = float64(visibleSteps) / float64(res.Samples)
	}
	return res
}
