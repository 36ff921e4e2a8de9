package scene

import (
	"fmt"
	"math"

	"github.com/firereach/ladderreach/internal/geo"
	"github.com/firereach/ladderreach/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// Prism is a building footprint extruded from BaseZ to TopZ.
type Prism struct {
	footprint geom.Geometry
	edges     [][2]r3.Vec
	baseZ     float64
	topZ      float64

	minX, minY, maxX, maxY float64
}

// NewPrism extrudes a building. The footprint must be a polygon or
// multipolygon in scene coordinates.
func NewPrism(b core.Building) (Prism, error) {
	g, err := geo.ParseFootprint(b.Footprint)
	if err != nil {
		return Prism{}, fmt.Errorf("building %q: %w", b.Name, err)
	}
	if b.Height <= 0 {
		return Prism{}, fmt.Errorf("building %q: height must be positive", b.Name)
	}

	p := Prism{
		footprint: g,
		baseZ:     b.BaseZ,
		topZ:      b.BaseZ + b.Height,
		minX:      math.Inf(1),
		minY:      math.Inf(1),
		maxX:      math.Inf(-1),
		maxY:      math.Inf(-1),
	}

	var polys []geom.Polygon
	switch g.Type() {
	case geom.TypePolygon:
		polys = append(polys, g.MustAsPolygon())
	case geom.TypeMultiPolygon:
		mp := g.MustAsMultiPolygon()
		for i := 0; i < mp.NumPolygons(); i++ {
			polys = append(polys, mp.PolygonN(i))
		}
	}
	for _, poly := range polys {
		rings := append([]geom.LineString{poly.ExteriorRing()}, interiorRings(poly)...)
		for _, ring := range rings {
			seq := ring.Coordinates()
			for i := 0; i+1 < seq.Length(); i++ {
				a, b := seq.GetXY(i), seq.GetXY(i+1)
				p.edges = append(p.edges, [2]r3.Vec{{X: a.X, Y: a.Y}, {X: b.X, Y: b.Y}})
				p.minX, p.maxX = math.Min(p.minX, a.X), math.Max(p.maxX, a.X)
				p.minY, p.maxY = math.Min(p.minY, a.Y), math.Max(p.maxY, a.Y)
			}
		}
	}
	if len(p.edges) == 0 {
		return Prism{}, fmt.Errorf("building %q: empty footprint", b.Name)
	}
	return p, nil
}

func interiorRings(poly geom.Polygon) []geom.LineString {
	out := make([]geom.LineString, 0, poly.NumInteriorRings())
	for i := 0; i < poly.NumInteriorRings(); i++ {
		out = append(out, poly.InteriorRingN(i))
	}
	return out
}

func (p Prism) inside(x, y float64) bool {
	if x < p.minX || x > p.maxX || y < p.minY || y > p.maxY {
		return false
	}
	return geom.Intersects(geom.XY{X: x, Y: y}.AsPoint().AsGeometry(), p.footprint)
}

// hit returns the smallest ray parameter t in [0, 1] at which the segment
// from o to o+d meets a wall or the roof of the prism.
func (p Prism) hit(o, d r3.Vec) (float64, bool) {
	if math.Max(o.X, o.X+d.X) < p.minX || math.Min(o.X, o.X+d.X) > p.maxX ||
		math.Max(o.Y, o.Y+d.Y) < p.minY || math.Min(o.Y, o.Y+d.Y) > p.maxY {
		return 0, false
	}

	best := math.Inf(1)
	within := func(t float64) bool {
		z := o.Z + t*d.Z
		return z >= p.baseZ && z <= p.topZ
	}

	// starting inside the volume
	if within(0) && p.inside(o.X, o.Y) {
		return 0, true
	}

	// walls
	for _, e := range p.edges {
		t, ok := crossing(o, d, e[0], e[1])
		if ok && t < best && within(t) {
			best = t
		}
	}

	// roof and floor planes
	if d.Z != 0 {
		for _, z := range []float64{p.topZ, p.baseZ} {
			t := (z - o.Z) / d.Z
			if t >= 0 && t <= 1 && t < best {
				q := r3.Add(o, r3.Scale(t, d))
				if p.inside(q.X, q.Y) {
					best = t
				}
			}
		}
	}

	if math.IsInf(best, 1) {
		return 0, false
	}
	return best, true
}

// crossing intersects the planar projection of the ray o+t·d, t∈[0,1], with
// the edge a→b and returns the ray parameter.
func crossing(o, d, a, b r3.Vec) (float64, bool) {
	e := r3.Vec{X: b.X - a.X, Y: b.Y - a.Y}
	denom := d.X*e.Y - d.Y*e.X
	if math.Abs(denom) < 1e-12 {
		return 0, false
	}
	w := r3.Vec{X: a.X - o.X, Y: a.Y - o.Y}
	t := (w.X*e.Y - w.Y*e.X) / denom
	s := (w.X*d.Y - w.Y*d.X) / denom
	if t < 0 || t > 1 || s < 0 || s > 1 {
		return 0, false
	}
	return t, true
}
