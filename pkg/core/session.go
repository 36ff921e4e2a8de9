package core

import "time"

// Session groups the statistics and results of one engine run.
type Session struct {
	ID        string    `json:"id"`
	TruckID   string    `json:"truckId"`
	StartedAt time.Time `json:"startedAt"`
}

// Building is a footprint with the height it is extruded to, in scene units.
// Footprint is WKT so the type stays free of geometry dependencies.
type Building struct {
	ID        uint    `json:"id"`
	Name      string  `json:"name"`
	Footprint string  `json:"footprint"`
	BaseZ     float64 `json:"baseZ"`
	Height    float64 `json:"height"`
}
