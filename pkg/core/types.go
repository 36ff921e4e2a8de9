// pkg/core/types.go
package core

import "math"

// Position3D is a scene coordinate: X/Y in EPSG:3857 metres, Z in metres.
type Position3D struct {
	X float64 `json:"x"` // easting
	Y float64 `json:"y"` // northing
	Z float64 `json:"z"` // elevation
}

// IsFinite reports whether all components are finite numbers.
func (p Position3D) IsFinite() bool {
	for _, v := range []float64{p.X, p.Y, p.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Ground returns the position with Z dropped to zero.
func (p Position3D) Ground() Position3D {
	return Position3D{X: p.X, Y: p.Y}
}

// Action is the interaction that triggered an analysis pass.
type Action string

const (
	ActionMoveStart Action = "move-start"
	ActionMove      Action = "move"
	ActionMoveStop  Action = "move-stop"
	ActionReset     Action = "reset"
	ActionComplete  Action = "complete"
)

// IsRest reports whether the action settles the truck (move-stop or reset).
func (a Action) IsRest() bool {
	return a == ActionMoveStop || a == ActionReset
}

// Valid reports whether a is one of the known trigger actions.
func (a Action) Valid() bool {
	switch a {
	case ActionMoveStart, ActionMove, ActionMoveStop, ActionReset, ActionComplete:
		return true
	}
	return false
}

// Observer is the placed truck: base point on the ground plus ladder mount height.
type Observer struct {
	Base         Position3D `json:"base"`
	HeightOffset float64    `json:"heightOffset"`
	Heading      float64    `json:"heading"`
}

// Point returns the ladder mount position.
func (o Observer) Point() Position3D {
	p := o.Base
	p.Z += o.HeightOffset
	return p
}

// NormalizeHeading folds any angle into [0, 360).
func NormalizeHeading(deg float64) float64 {
	h := math.Mod(deg, 360.0)
	if h < 0 {
		h += 360.0
	}
	return h
}
