// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/firereach/ladderreach/internal/model"
	"github.com/firereach/ladderreach/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// CoreToStatistic converts a core.VisibilityStatistic to a GORM model.Statistic.
func CoreToStatistic(s core.VisibilityStatistic) model.Statistic {
	return model.Statistic{
		ID:           s.ID,
		SessionID:    s.SessionID,
		Time:         s.Time,
		X:            s.Location.X,
		Y:            s.Location.Y,
		Z:            s.Location.Z,
		VisibleCount: s.VisibleCount,
	}
}

// StatisticToCore converts a GORM model.Statistic back to a core.VisibilityStatistic.
func StatisticToCore(s model.Statistic) core.VisibilityStatistic {
	return core.VisibilityStatistic{
		ID:           s.ID,
		SessionID:    s.SessionID,
		Location:     core.Position3D{X: s.X, Y: s.Y, Z: s.Z},
		VisibleCount: s.VisibleCount,
		Time:         s.Time,
	}
}

// targetsToJSON converts classified targets to datatypes.JSON for DB storage.
func targetsToJSON(targets []core.ClassifiedTarget) datatypes.JSON {
	if len(targets) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(targets)
	return datatypes.JSON(data)
}

// CoreToResult converts a committed core.AnalysisResult to a GORM model.Result.
func CoreToResult(sessionID string, r core.AnalysisResult) model.Result {
	return model.Result{
		SessionID:         sessionID,
		SequenceID:        r.SequenceID,
		Action:            string(r.Action),
		Label:             r.Label,
		Time:              r.Time,
		X:                 r.Location.X,
		Y:                 r.Location.Y,
		Z:                 r.Location.Z,
		TargetCount:       r.TargetCount,
		ValidResultsCount: r.ValidResultsCount,
		IntersectedCount:  r.IntersectedCount,
		VisibleCount:      r.VisibleCount,
		ObstructedCount:   r.ObstructedCount,
		TimedOut:          r.TimedOut,
		Targets:           targetsToJSON(r.Targets),
	}
}

// ResultToCore converts a GORM model.Result back to a core.AnalysisResult.
func ResultToCore(r model.Result) (core.AnalysisResult, error) {
	out := core.AnalysisResult{
		SequenceID:        r.SequenceID,
		Action:            core.Action(r.Action),
		Label:             r.Label,
		Location:          core.Position3D{X: r.X, Y: r.Y, Z: r.Z},
		TargetCount:       r.TargetCount,
		ValidResultsCount: r.ValidResultsCount,
		IntersectedCount:  r.IntersectedCount,
		VisibleCount:      r.VisibleCount,
		ObstructedCount:   r.ObstructedCount,
		TimedOut:          r.TimedOut,
		Time:              r.Time,
	}
	if len(r.Targets) > 0 {
		if err := json.Unmarshal(r.Targets, &out.Targets); err != nil {
			return core.AnalysisResult{}, fmt.Errorf("failed to decode targets of result %d: %w", r.ID, err)
		}
	}
	return out, nil
}

// CoreToBuilding converts a core.Building to a GORM model.Building, storing
// the footprint as WKB with its bounding box.
func CoreToBuilding(b core.Building) (model.Building, error) {
	g, err := geom.UnmarshalWKT(b.Footprint)
	if err != nil {
		return model.Building{}, fmt.Errorf("invalid footprint for building %q: %w", b.Name, err)
	}
	env := g.Envelope()
	minXY, minOK := env.Min().XY()
	maxXY, maxOK := env.Max().XY()
	if !minOK || !maxOK {
		return model.Building{}, fmt.Errorf("empty footprint for building %q", b.Name)
	}
	return model.Building{
		ID:        b.ID,
		Name:      b.Name,
		Footprint: g.AsBinary(),
		BaseZ:     b.BaseZ,
		Height:    b.Height,
		MinX:      minXY.X,
		MinY:      minXY.Y,
		MaxX:      maxXY.X,
		MaxY:      maxXY.Y,
	}, nil
}

// BuildingGeometry decodes the stored WKB footprint.
func BuildingGeometry(b model.Building) (geom.Geometry, error) {
	g, err := geom.UnmarshalWKB(b.Footprint)
	if err != nil {
		return geom.Geometry{}, fmt.Errorf("invalid stored footprint for building %d: %w", b.ID, err)
	}
	return g, nil
}

// BuildingToCore converts a GORM model.Building back to a core.Building.
func BuildingToCore(b model.Building) (core.Building, error) {
	g, err := BuildingGeometry(b)
	if err != nil {
		return core.Building{}, err
	}
	return core.Building{
		ID:        b.ID,
		Name:      b.Name,
		Footprint: g.AsText(),
		BaseZ:     b.BaseZ,
		Height:    b.Height,
	}, nil
}
