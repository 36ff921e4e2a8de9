// Package buildings provides building footprints to the nearby index.
package buildings

import (
	"context"
	"fmt"
	"sync"

	"github.com/firereach/ladderreach/internal/geo"
	"github.com/firereach/ladderreach/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// radiusUnits converts a radius in metres around center into projected units.
func radiusUnits(center core.Position3D, radius float64) float64 {
	return radius * geo.ScaleFactor(center)
}

// within reports whether g lies within r projected units of center.
func within(center core.Position3D, r float64, g geom.Geometry) bool {
	d, ok := geom.Distance(geom.XY{X: center.X, Y: center.Y}.AsPoint().AsGeometry(), g)
	return ok && d <= r
}

type entry struct {
	building core.Building
	geometry geom.Geometry
}

// Memory is an in-process building source.
type Memory struct {
	mu      sync.RWMutex
	entries []entry
	nextID  uint
}

// NewMemory creates a Memory holding buildings.
func NewMemory(buildings ...core.Building) (*Memory, error) {
	m := &Memory{nextID: 1}
	for _, b := range buildings {
		if _, err := m.Add(b); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Add stores b and returns it with its assigned ID. A zero ID is assigned
// the next free one.
func (m *Memory) Add(b core.Building) (core.Building, error) {
	g, err := geo.ParseFootprint(b.Footprint)
	if err != nil {
		return core.Building{}, fmt.Errorf("building %q: %w", b.Name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == 0 {
		b.ID = m.nextID
	}
	if b.ID >= m.nextID {
		m.nextID = b.ID + 1
	}
	b.Footprint = g.AsText()
	m.entries = append(m.entries, entry{building: b, geometry: g})
	return b, nil
}

// All returns every stored building in insertion order.
func (m *Memory) All(context.Context) ([]core.Building, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.Building, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.building
	}
	return out, nil
}

// QueryNearby returns the footprints within radius metres of center.
func (m *Memory) QueryNearby(ctx context.Context, center core.Position3D, radius float64) ([]geom.Geometry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := radiusUnits(center, radius)

	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []geom.Geometry
	for _, e := range m.entries {
		if within(center, r, e.geometry) {
			out = append(out, e.geometry)
		}
	}
	return out, nil
}
