package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/firereach/ladderreach/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// SCENE COORDINATES
// Everything the engine touches is EPSG:3857 with Z in true metres. Geodesic
// lengths are converted to projected units with ScaleFactor before any planar
// geometry operation.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

var (
	to3857 = wgs84.EPSG().Transform(4326, 3857)
	to4326 = wgs84.EPSG().Transform(3857, 4326)
)

// Position3DFromString parses a "x,y" or "x,y,z" string into a core.Position3D.
// Components beyond the third are ignored. NaN and Inf parse; placement
// bounds are checked with InSceneExtent.
func Position3DFromString(coords string) (core.Position3D, error) {
	coordsSplit := strings.Split(coords, ",")
	if len(coordsSplit) < 2 {
		return core.Position3D{}, ErrInvalidCoordinates
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[0]), 64)
	if err != nil {
		return core.Position3D{}, ErrInvalidCoordinates
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[1]), 64)
	if err != nil {
		return core.Position3D{}, ErrInvalidCoordinates
	}
	var z float64
	if len(coordsSplit) > 2 {
		z, err = strconv.ParseFloat(strings.TrimSpace(coordsSplit[2]), 64)
		if err != nil {
			return core.Position3D{}, ErrInvalidCoordinates
		}
	}
	return core.Position3D{X: x, Y: y, Z: z}, nil
}

// MaxExtent is the half-width of the EPSG:3857 world square in metres.
const MaxExtent = 20037508.34

// InSceneExtent reports whether p is finite and inside the EPSG:3857 world
// square. Elevation only has to be finite.
func InSceneExtent(p core.Position3D) bool {
	return p.IsFinite() && math.Abs(p.X) <= MaxExtent && math.Abs(p.Y) <= MaxExtent
}

// Coords3857From4326 projects a longitude/latitude pair, keeping elevation as Z.
func Coords3857From4326(longitude, latitude, elevation float64) core.Position3D {
	x, y, _ := to3857(longitude, latitude, 0)
	return core.Position3D{X: x, Y: y, Z: elevation}
}

// Coords4326From3857 returns the longitude and latitude of a scene position.
func Coords4326From3857(p core.Position3D) (longitude, latitude float64) {
	longitude, latitude, _ = to4326(p.X, p.Y, 0)
	return longitude, latitude
}

// ToPoint converts a position into a simplefeatures XYZ point.
func ToPoint(p core.Position3D) geom.Point {
	return geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: p.X, Y: p.Y},
			Z:    p.Z,
			Type: geom.DimXYZ,
		},
	)
}

// Segment2D returns the planar footprint of the segment a→b. A zero-length
// segment collapses to a point so that intersection tests stay well defined.
func Segment2D(a, b core.Position3D) geom.Geometry {
	if a.X == b.X && a.Y == b.Y {
		return geom.NewPoint(geom.Coordinates{XY: geom.XY{X: a.X, Y: a.Y}, Type: geom.DimXY}).AsGeometry()
	}
	seq := geom.NewSequence([]float64{a.X, a.Y, b.X, b.Y}, geom.DimXY)
	return geom.NewLineString(seq).AsGeometry()
}
