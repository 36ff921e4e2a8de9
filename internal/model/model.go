package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Session{},
	&Statistic{},
	&Result{},
	&Building{},
}

////////////////////////
// SESSION MODELS
////////////////////////

// Session is one engine run, keyed by the aggregator's session id
type Session struct {
	gorm.Model
	SessionID string       `json:"sessionId" gorm:"size:36;uniqueIndex:idx_session_session_id"`
	TruckID   string       `json:"truckId" gorm:"size:64"`
	StartedAt time.Time    `json:"startedAt" gorm:"index:idx_session_started_at"`
	EndedAt   sql.NullTime `json:"endedAt"`
}

func (*Session) TableName() string {
	return "sessions"
}

// Statistic is one settled placement and its visible target count
type Statistic struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement:false"`
	SessionID    string    `json:"sessionId" gorm:"primaryKey;size:36;index:idx_statistic_session_id"`
	Time         time.Time `json:"time" gorm:"index:idx_statistic_time"`
	X            float64   `json:"x"`
	Y            float64   `json:"y"`
	Z            float64   `json:"z"`
	VisibleCount int       `json:"visibleCount"`
}

func (*Statistic) TableName() string {
	return "statistics"
}

// Result is a committed analysis pass. Targets holds the classified target
// list as JSON.
type Result struct {
	ID                uint           `json:"id" gorm:"primaryKey"`
	SessionID         string         `json:"sessionId" gorm:"size:36;index:idx_result_session_id"`
	SequenceID        uint64         `json:"sequenceId"`
	Action            string         `json:"action" gorm:"size:16"`
	Label             string         `json:"label" gorm:"size:127"`
	Time              time.Time      `json:"time" gorm:"index:idx_result_time"`
	X                 float64        `json:"x"`
	Y                 float64        `json:"y"`
	Z                 float64        `json:"z"`
	TargetCount       int            `json:"targetCount"`
	ValidResultsCount int            `json:"validResultsCount"`
	IntersectedCount  int            `json:"intersectedCount"`
	VisibleCount      int            `json:"visibleCount"`
	ObstructedCount   int            `json:"obstructedCount"`
	TimedOut          bool           `json:"timedOut" gorm:"default:false"`
	Targets           datatypes.JSON `json:"targets"`
}

func (*Result) TableName() string {
	return "results"
}

////////////////////////
// SCENE MODELS
////////////////////////

// Building is an extruded footprint. The footprint is stored as WKB and its
// bounding box is kept in indexed columns for radius prefiltering.
type Building struct {
	ID        uint    `json:"id" gorm:"primaryKey"`
	Name      string  `json:"name" gorm:"size:127"`
	Footprint []byte  `json:"footprint"`
	BaseZ     float64 `json:"baseZ"`
	Height    float64 `json:"height"`
	MinX      float64 `json:"minX" gorm:"index:idx_building_bbox,priority:1"`
	MinY      float64 `json:"minY" gorm:"index:idx_building_bbox,priority:2"`
	MaxX      float64 `json:"maxX" gorm:"index:idx_building_bbox,priority:3"`
	MaxY      float64 `json:"maxY" gorm:"index:idx_building_bbox,priority:4"`
}

func (*Building) TableName() string {
	return "buildings"
}
