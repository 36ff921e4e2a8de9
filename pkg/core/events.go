// pkg/core/events.go
package core

import "time"

// EventType names an event emitted by the engine.
type EventType string

const (
	EventAnalysisResults EventType = "analysis-results"
	EventAnalysisPreview EventType = "analysis-preview"
	EventTruckTypeChange EventType = "truck-type-change"
	EventResultsCleared  EventType = "results-cleared"
)

// Event is delivered to the single event consumer in emission order.
// Exactly one payload field is set, matching Type; results-cleared has none.
type Event struct {
	Type    EventType       `json:"type"`
	Time    time.Time       `json:"time"`
	Results *AnalysisResult `json:"results,omitempty"`
	Profile *TruckProfile   `json:"profile,omitempty"`
}
