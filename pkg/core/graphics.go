// pkg/core/graphics.go
package core

// StyleRole tags a graphic with the symbology it should be drawn with.
type StyleRole string

const (
	RoleVisible      StyleRole = "visible"      // sight line to a building hit
	RoleObstructed   StyleRole = "obstructed"   // sight line blocked by something else
	RoleIntersection StyleRole = "intersection" // building hit point
	RoleObstruction  StyleRole = "obstruction"  // non-building obstruction point
	RoleJackSpread   StyleRole = "jack-spread"
)

// ResultRoles are the roles owned by committed analysis passes.
var ResultRoles = []StyleRole{RoleVisible, RoleObstructed, RoleIntersection, RoleObstruction}

// GeometryKind is the primitive type of a Graphic.
type GeometryKind string

const (
	KindPoint   GeometryKind = "point"
	KindLine    GeometryKind = "line"
	KindPolygon GeometryKind = "polygon"
)

// Graphic is a renderer-agnostic drawing primitive.
// Polygons carry a closed ring (first point repeated last).
type Graphic struct {
	Role   StyleRole    `json:"role"`
	Kind   GeometryKind `json:"kind"`
	Points []Position3D `json:"points"`
}
