package targets

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultSubdivisions gives 642 vertices.
const DefaultSubdivisions = 3

var phi = (1 + math.Sqrt(5)) / 2

// icosahedron vertices, in this order: the three golden rectangles in the
// XY, YZ and ZX planes.
var baseVertices = [12]r3.Vec{
	{X: -1, Y: phi}, {X: 1, Y: phi}, {X: -1, Y: -phi}, {X: 1, Y: -phi},
	{Y: -1, Z: phi}, {Y: 1, Z: phi}, {Y: -1, Z: -phi}, {Y: 1, Z: -phi},
	{X: phi, Z: -1}, {X: phi, Z: 1}, {X: -phi, Z: -1}, {X: -phi, Z: 1},
}

var baseFaces = [20][3]int{
	{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
	{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
	{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
	{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
}

type edge struct{ a, b int }

func edgeKey(a, b int) edge {
	if a > b {
		a, b = b, a
	}
	return edge{a, b}
}

// Icosphere returns the unit vertices of an icosahedron subdivided n times.
// The order is deterministic: the 12 base vertices first, then each level's
// edge midpoints in face-traversal order.
func Icosphere(n int) []r3.Vec {
	if n < 0 {
		n = 0
	}
	verts := make([]r3.Vec, 0, 10*(1<<(2*n))+2)
	for _, v := range baseVertices {
		verts = append(verts, r3.Unit(v))
	}
	faces := baseFaces[:]

	for level := 0; level < n; level++ {
		midpoints := make(map[edge]int, len(faces)*3/2)
		midpoint := func(a, b int) int {
			k := edgeKey(a, b)
			if i, ok := midpoints[k]; ok {
				return i
			}
			verts = append(verts, r3.Unit(r3.Add(verts[a], verts[b])))
			midpoints[k] = len(verts) - 1
			return len(verts) - 1
		}

		next := make([][3]int, 0, len(faces)*4)
		for _, f := range faces {
			ab := midpoint(f[0], f[1])
			bc := midpoint(f[1], f[2])
			ca := midpoint(f[2], f[0])
			next = append(next,
				[3]int{f[0], ab, ca},
				[3]int{f[1], bc, ab},
				[3]int{f[2], ca, bc},
				[3]int{ab, bc, ca},
			)
		}
		faces = next
	}
	return verts
}
