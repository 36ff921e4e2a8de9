package geo

import (
	"math"

	"github.com/firereach/ladderreach/pkg/core"
)

// earthRadius is the sphere radius Web Mercator is defined on.
const earthRadius = 6378137.0

const degToRad = math.Pi / 180.0

// ScaleFactor returns the number of projected units per true metre at p.
func ScaleFactor(p core.Position3D) float64 {
	_, lat := Coords4326From3857(p)
	c := math.Cos(lat * degToRad)
	if c < 1e-9 {
		c = 1e-9
	}
	return 1.0 / c
}

// Destination returns the point at the given geodesic distance (metres) and
// azimuth (degrees clockwise from north) from p. Z is carried over unchanged.
func Destination(p core.Position3D, distance, azimuth float64) core.Position3D {
	lon, lat := Coords4326From3857(p)
	phi1 := lat * degToRad
	lambda1 := lon * degToRad
	theta := core.NormalizeHeading(azimuth) * degToRad
	delta := distance / earthRadius

	sinPhi2 := math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta)
	phi2 := math.Asin(sinPhi2)
	lambda2 := lambda1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*sinPhi2,
	)

	return Coords3857From4326(lambda2/degToRad, phi2/degToRad, p.Z)
}

// Azimuth returns the grid bearing from a to b in degrees clockwise from north.
// Web Mercator is conformal, so over short distances this is the geodesic azimuth.
func Azimuth(a, b core.Position3D) float64 {
	return core.NormalizeHeading(math.Atan2(b.X-a.X, b.Y-a.Y) / degToRad)
}

// BufferSegment returns the closed ring of the round-capped geodesic buffer of
// the segment a→b. The ring runs clockwise, starting on the left of b as seen
// looking from a. arcSegments is the number of chords per half-circle cap.
func BufferSegment(a, b core.Position3D, distance float64, arcSegments int) []core.Position3D {
	if arcSegments < 2 {
		arcSegments = 2
	}
	az := 0.0
	if a.X != b.X || a.Y != b.Y {
		az = Azimuth(a, b)
	}
	step := 180.0 / float64(arcSegments)

	ring := make([]core.Position3D, 0, 2*(arcSegments+1)+1)
	// front cap: left, ahead, right
	for i := 0; i <= arcSegments; i++ {
		ring = append(ring, Destination(b, distance, az-90+float64(i)*step))
	}
	// back cap: right, behind, left
	for i := 0; i <= arcSegments; i++ {
		ring = append(ring, Destination(a, distance, az+90+float64(i)*step))
	}
	return append(ring, ring[0])
}
