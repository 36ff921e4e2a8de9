// pkg/core/truck.go
package core

// AngleRange is an exclusive elevation window in degrees.
type AngleRange struct {
	MinDeg float64 `json:"minDeg" yaml:"minDeg"`
	MaxDeg float64 `json:"maxDeg" yaml:"maxDeg"`
}

// Contains reports whether deg lies strictly inside the range.
func (r AngleRange) Contains(deg float64) bool {
	return deg > r.MinDeg && deg < r.MaxDeg
}

// TruckProfile describes a truck model. All lengths are metres.
type TruckProfile struct {
	ID             string     `json:"id"`
	Label          string     `json:"label"`
	Description    string     `json:"description"`
	LadderReach    float64    `json:"ladderReach"`
	ElevationRange AngleRange `json:"elevationRange"`
	Width          float64    `json:"width"`
	Height         float64    `json:"height"`
	Depth          float64    `json:"depth"`
	JackSpread     float64    `json:"jackSpread"`
	LadderOffset   float64    `json:"ladderOffset"`
	DefaultHeading float64    `json:"defaultHeading"`
}
