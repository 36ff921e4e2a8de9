// pkg/core/analysis.go
package core

import "time"

// TargetStatus classifies an evaluated candidate target.
type TargetStatus int

const (
	// StatusVisible means the first obstruction lies on a nearby building,
	// so the ladder reaches a building surface in that direction.
	StatusVisible TargetStatus = iota
	// StatusObstructed means something other than a building blocks the line.
	StatusObstructed
)

func (s TargetStatus) String() string {
	switch s {
	case StatusVisible:
		return "visible"
	case StatusObstructed:
		return "obstructed"
	default:
		return "unknown"
	}
}

// ClassifiedTarget is a candidate target with its obstruction point and verdict.
type ClassifiedTarget struct {
	Target      Position3D   `json:"target"`
	Obstruction Position3D   `json:"obstruction"`
	Status      TargetStatus `json:"status"`
}

// AnalysisResult is the payload of analysis-results and analysis-preview events.
type AnalysisResult struct {
	SequenceID        uint64     `json:"sequenceId"`
	Action            Action     `json:"action"`
	Label             string     `json:"label"`
	Location          Position3D `json:"location"`
	TargetCount       int        `json:"targetCount"`
	ValidResultsCount int        `json:"validResultsCount"`
	IntersectedCount  int        `json:"intersectedCount"`
	VisibleCount      int        `json:"visibleCount"`
	ObstructedCount   int        `json:"obstructedCount"`
	TimedOut          bool       `json:"timedOut,omitempty"`
	Time              time.Time  `json:"time"`

	Targets []ClassifiedTarget `json:"-"`
}

// Coverage is the visible share of valid results, zero when nothing was valid.
func (r AnalysisResult) Coverage() float64 {
	if r.ValidResultsCount == 0 {
		return 0
	}
	return float64(r.VisibleCount) / float64(r.ValidResultsCount)
}

// IntersectionPoints returns the obstruction points of all classified targets.
func (r AnalysisResult) IntersectionPoints() []Position3D {
	out := make([]Position3D, 0, len(r.Targets))
	for _, t := range r.Targets {
		out = append(out, t.Obstruction)
	}
	return out
}

// VisibilityStatistic is one settled placement's visible count.
type VisibilityStatistic struct {
	ID           uint       `json:"id"`
	SessionID    string     `json:"sessionId"`
	Location     Position3D `json:"location"`
	VisibleCount int        `json:"visibleCount"`
	Time         time.Time  `json:"time"`
}

// StatisticBin is the average visible count of all statistics in one square cell.
type StatisticBin struct {
	Col               int64      `json:"col"`
	Row               int64      `json:"row"`
	Center            Position3D `json:"center"`
	Count             int        `json:"count"`
	AverageVisibility float64    `json:"avgVisibility"`
}
