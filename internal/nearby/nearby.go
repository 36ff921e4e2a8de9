// Package nearby caches the buffered building footprints around the truck.
package nearby

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/firereach/ladderreach/internal/geo"
	"github.com/firereach/ladderreach/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// ErrGeometryQuery is returned when the building source fails. The previous
// cache stays in place.
var ErrGeometryQuery = errors.New("nearby geometry query failed")

// BuildingSource returns building footprints within radius metres of center.
type BuildingSource interface {
	QueryNearby(ctx context.Context, center core.Position3D, radius float64) ([]geom.Geometry, error)
}

// Snapshot is an immutable view of the cache as of one refresh.
type Snapshot struct {
	Center      core.Position3D
	Radius      float64
	Footprints  []geo.Footprint
	Generation  uint64
	RefreshedAt time.Time
}

// HasBuildings reports whether any footprint was found.
func (s *Snapshot) HasBuildings() bool {
	return s != nil && len(s.Footprints) > 0
}

// Crosses reports whether the planar segment a→b touches any buffered footprint.
func (s *Snapshot) Crosses(a, b core.Position3D) bool {
	if s == nil {
		return false
	}
	for _, f := range s.Footprints {
		if f.IntersectsSegment(a, b) {
			return true
		}
	}
	return false
}

// Index holds the latest published Snapshot. Only Refresh writes it.
type Index struct {
	source BuildingSource
	logger *slog.Logger

	snap      atomic.Pointer[Snapshot]
	requests  atomic.Uint64
	staleMark atomic.Uint64
}

// New creates an empty index backed by source.
func New(source BuildingSource, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{source: source, logger: logger}
}

// Refresh replaces the cache with the footprints around center and reports
// whether any building was found.
func (x *Index) Refresh(ctx context.Context, center core.Position3D, radius float64) (bool, error) {
	s, err := x.RefreshAs(ctx, x.Reserve(), center, radius)
	if err != nil {
		return false, err
	}
	return s.HasBuildings(), nil
}

// Reserve takes the generation number for a refresh that will run later.
// Reserving at trigger time keeps generations in trigger order even when the
// refreshes themselves start out of order.
func (x *Index) Reserve() uint64 {
	return x.requests.Add(1)
}

// RefreshAs queries the source and publishes the result under generation gen,
// unless a later generation has already been published. The built snapshot is
// returned either way.
func (x *Index) RefreshAs(ctx context.Context, gen uint64, center core.Position3D, radius float64) (*Snapshot, error) {
	geoms, err := x.source.QueryNearby(ctx, center, radius)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeometryQuery, err)
	}

	scale := geo.ScaleFactor(center)
	footprints := make([]geo.Footprint, 0, len(geoms))
	for i, g := range geoms {
		f, err := geo.NewFootprint(g, geo.FootprintBuffer, scale)
		if err != nil {
			x.logger.Debug("skipping building footprint", "index", i, "error", err)
			continue
		}
		footprints = append(footprints, f)
	}

	next := &Snapshot{
		Center:      center,
		Radius:      radius,
		Footprints:  footprints,
		Generation:  gen,
		RefreshedAt: time.Now(),
	}
	for {
		cur := x.snap.Load()
		if cur != nil && cur.Generation > gen {
			x.logger.Debug("dropping out-of-order refresh", "generation", gen, "published", cur.Generation)
			break
		}
		if x.snap.CompareAndSwap(cur, next) {
			break
		}
	}
	return next, nil
}

// Snapshot returns the currently published snapshot, or nil before the first refresh.
func (x *Index) Snapshot() *Snapshot {
	return x.snap.Load()
}

// MarkStale invalidates the current snapshot until a newer refresh lands.
func (x *Index) MarkStale() {
	x.staleMark.Store(x.requests.Load())
}

// FreshSnapshot returns the published snapshot if it was requested after the
// last MarkStale and covers radius around center, else nil. Checking and
// loading in one step keeps a concurrent publish from slipping in between.
func (x *Index) FreshSnapshot(center core.Position3D, radius float64) *Snapshot {
	s := x.snap.Load()
	if s == nil || s.Generation <= x.staleMark.Load() {
		return nil
	}
	if s.Center.X != center.X || s.Center.Y != center.Y || s.Radius < radius {
		return nil
	}
	return s
}
