package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/firereach/ladderreach/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// FootprintBuffer is the outward tolerance, in metres, around building footprints.
const FootprintBuffer = 1.0

// ErrUnsupportedGeometry is returned for footprints that are not (multi)polygons.
var ErrUnsupportedGeometry = errors.New("footprint must be a polygon or multipolygon")

// Footprint is a 2-D building outline grown outward by a buffer distance.
// The buffer is kept as a distance tolerance rather than materialised, so
// intersection tests against it are exact round-joined buffers.
type Footprint struct {
	Geometry geom.Geometry
	// Buffer is in projected units.
	Buffer float64

	minX, minY, maxX, maxY float64
}

// NewFootprint buffers a polygonal footprint by bufferMeters, using scale to
// convert metres into projected units.
func NewFootprint(g geom.Geometry, bufferMeters, scale float64) (Footprint, error) {
	var rings []geom.LineString
	switch g.Type() {
	case geom.TypePolygon:
		rings = append(rings, g.MustAsPolygon().ExteriorRing())
	case geom.TypeMultiPolygon:
		mp := g.MustAsMultiPolygon()
		for i := 0; i < mp.NumPolygons(); i++ {
			rings = append(rings, mp.PolygonN(i).ExteriorRing())
		}
	default:
		return Footprint{}, fmt.Errorf("%w: got %s", ErrUnsupportedGeometry, g.Type())
	}

	f := Footprint{
		Geometry: g,
		Buffer:   bufferMeters * scale,
		minX:     math.Inf(1),
		minY:     math.Inf(1),
		maxX:     math.Inf(-1),
		maxY:     math.Inf(-1),
	}
	for _, ring := range rings {
		seq := ring.Coordinates()
		for i := 0; i < seq.Length(); i++ {
			c := seq.Get(i)
			f.minX = math.Min(f.minX, c.X)
			f.minY = math.Min(f.minY, c.Y)
			f.maxX = math.Max(f.maxX, c.X)
			f.maxY = math.Max(f.maxY, c.Y)
		}
	}
	if math.IsInf(f.minX, 1) {
		return Footprint{}, fmt.Errorf("%w: empty footprint", ErrUnsupportedGeometry)
	}
	return f, nil
}

// IntersectsSegment reports whether the planar projection of a→b touches the
// buffered footprint.
func (f Footprint) IntersectsSegment(a, b core.Position3D) bool {
	if math.Max(a.X, b.X) < f.minX-f.Buffer || math.Min(a.X, b.X) > f.maxX+f.Buffer ||
		math.Max(a.Y, b.Y) < f.minY-f.Buffer || math.Min(a.Y, b.Y) > f.maxY+f.Buffer {
		return false
	}
	seg := Segment2D(a, b)
	if geom.Intersects(seg, f.Geometry) {
		return true
	}
	d, ok := geom.Distance(seg, f.Geometry)
	return ok && d <= f.Buffer
}

// ParseFootprint reads a footprint either as WKT or as a JSON ring
// "[[x1,y1],[x2,y2],...]". JSON rings are closed automatically.
func ParseFootprint(input string) (geom.Geometry, error) {
	if len(input) > 0 && input[0] == '[' {
		return parseRing(input)
	}
	g, err := geom.UnmarshalWKT(input)
	if err != nil {
		return geom.Geometry{}, fmt.Errorf("failed to parse footprint WKT: %w", err)
	}
	if g.Type() != geom.TypePolygon && g.Type() != geom.TypeMultiPolygon {
		return geom.Geometry{}, fmt.Errorf("%w: got %s", ErrUnsupportedGeometry, g.Type())
	}
	return g, nil
}

func parseRing(input string) (geom.Geometry, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return geom.Geometry{}, fmt.Errorf("failed to parse footprint JSON: %w", err)
	}
	if len(coords) < 3 {
		return geom.Geometry{}, fmt.Errorf("footprint must have at least 3 points, got %d", len(coords))
	}

	flatCoords := make([]float64, 0, (len(coords)+1)*2)
	for i, coord := range coords {
		if len(coord) < 2 {
			return geom.Geometry{}, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		flatCoords = append(flatCoords, coord[0], coord[1])
	}
	first, last := coords[0], coords[len(coords)-1]
	if first[0] != last[0] || first[1] != last[1] {
		flatCoords = append(flatCoords, first[0], first[1])
	}

	ring := geom.NewLineString(geom.NewSequence(flatCoords, geom.DimXY))
	return geom.NewPolygon([]geom.LineString{ring}).AsGeometry(), nil
}
