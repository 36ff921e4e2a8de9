// Package targets generates the candidate points a ladder could reach.
package targets

import (
	"math"

	"github.com/firereach/ladderreach/internal/geo"
	"github.com/firereach/ladderreach/pkg/core"
	"gonum.org/v1/gonum/spatial/r3"
)

// Generator places a fixed-density sphere of candidate targets around the
// ladder mount and keeps those inside the ladder's elevation window.
type Generator struct {
	unit []r3.Vec
}

// NewGenerator tessellates the unit sphere once; it is reused for every pass.
func NewGenerator(subdivisions int) *Generator {
	return &Generator{unit: Icosphere(subdivisions)}
}

// Size is the number of sphere vertices before filtering.
func (g *Generator) Size() int {
	return len(g.unit)
}

// Inclination returns the ladder elevation angle in degrees needed to reach a
// point at targetZ with a ladder of length reach mounted at observerZ.
func Inclination(observerZ, targetZ, reach float64) float64 {
	slope := (observerZ - targetZ) / reach
	slope = math.Max(-1, math.Min(slope, 1))
	return math.Acos(slope)*(180/math.Pi) - 90.0
}

// WithinRange reports whether targetZ is reachable inside the profile's
// elevation window. The bounds are exclusive and NaN never passes.
func WithinRange(observerZ, targetZ float64, profile core.TruckProfile) bool {
	inc := Inclination(observerZ, targetZ, profile.LadderReach)
	return !math.IsNaN(inc) && profile.ElevationRange.Contains(inc)
}

// Generate returns the candidate targets for an observer point, or nil when
// no truck is placed.
func (g *Generator) Generate(observer *core.Position3D, profile core.TruckProfile) []core.Position3D {
	if observer == nil {
		return nil
	}
	o := *observer
	r := profile.LadderReach
	rk := r * geo.ScaleFactor(o)

	out := make([]core.Position3D, 0, len(g.unit))
	for _, u := range g.unit {
		p := core.Position3D{
			X: o.X + u.X*rk,
			Y: o.Y + u.Y*rk,
			Z: o.Z + u.Z*r,
		}
		if WithinRange(o.Z, p.Z, profile) {
			out = append(out, p)
		}
	}
	return out
}
