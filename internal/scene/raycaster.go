// Package scene provides reference collaborators for the analysis engine: a
// ray caster over extruded buildings and terrain, a flat ground surface and
// an in-memory graphics layer.
package scene

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/firereach/ladderreach/internal/jackspread"
	"github.com/firereach/ladderreach/internal/los"
	"github.com/firereach/ladderreach/pkg/core"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// DefaultTerrainSteps is how many samples a sight line is split into when
	// looking for the ground.
	DefaultTerrainSteps = 32
	bisectIterations    = 12
)

// Raycaster is a line-of-sight primitive over extruded buildings and an
// optional terrain surface. The first thing hit along each sight line is
// reported as its obstruction.
type Raycaster struct {
	prisms  []Prism
	terrain jackspread.ElevationSampler
	steps   int
	workers int
	logger  *slog.Logger
}

var _ los.Primitive = (*Raycaster)(nil)

// RaycasterOption configures a Raycaster.
type RaycasterOption func(*Raycaster)

// WithTerrain makes sight lines stop where they pass below the ground.
func WithTerrain(sampler jackspread.ElevationSampler) RaycasterOption {
	return func(r *Raycaster) { r.terrain = sampler }
}

// WithTerrainSteps sets the terrain sampling resolution per sight line.
func WithTerrainSteps(n int) RaycasterOption {
	return func(r *Raycaster) {
		if n > 0 {
			r.steps = n
		}
	}
}

// WithWorkers bounds the number of sight lines cast concurrently.
func WithWorkers(n int) RaycasterOption {
	return func(r *Raycaster) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RaycasterOption {
	return func(r *Raycaster) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRaycaster extrudes buildings into prisms.
func NewRaycaster(buildings []core.Building, opts ...RaycasterOption) (*Raycaster, error) {
	r := &Raycaster{
		steps:   DefaultTerrainSteps,
		workers: runtime.GOMAXPROCS(0),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, b := range buildings {
		p, err := NewPrism(b)
		if err != nil {
			return nil, err
		}
		r.prisms = append(r.prisms, p)
	}
	return r, nil
}

// Evaluate casts one sight line per target.
func (r *Raycaster) Evaluate(ctx context.Context, observer core.Position3D, targets []core.Position3D) ([]los.Sample, error) {
	samples := make([]los.Sample, len(targets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, target := range targets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			hit, err := r.cast(ctx, observer, target)
			if err != nil {
				return fmt.Errorf("target %d: %w", i, err)
			}
			samples[i] = los.Sample{Target: target, Obstruction: hit}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	r.logger.Debug("Cast sight lines", "count", len(targets), "prisms", len(r.prisms))
	return samples, nil
}

// cast returns the first obstruction between observer and target, or nil
// when the line is clear.
func (r *Raycaster) cast(ctx context.Context, observer, target core.Position3D) (*core.Position3D, error) {
	o := vec(observer)
	d := r3.Sub(vec(target), o)

	best := 2.0
	for _, p := range r.prisms {
		if t, ok := p.hit(o, d); ok && t < best {
			best = t
		}
	}

	if r.terrain != nil {
		limit := min(best, 1.0)
		t, ok, err := r.ground(ctx, o, d, limit)
		if err != nil {
			return nil, err
		}
		if ok && t < best {
			best = t
		}
	}

	if best > 1 {
		return nil, nil
	}
	hit := position(r3.Add(o, r3.Scale(best, d)))
	return &hit, nil
}

// ground finds the first parameter in (0, limit] where the ray is at or
// below the terrain, refined by bisection.
func (r *Raycaster) ground(ctx context.Context, o, d r3.Vec, limit float64) (float64, bool, error) {
	points := make([]core.Position3D, r.steps)
	for i := range points {
		t := limit * float64(i+1) / float64(r.steps)
		points[i] = position(r3.Add(o, r3.Scale(t, d)))
	}
	draped, err := r.terrain.QueryElevation(ctx, points)
	if err != nil {
		return 0, false, fmt.Errorf("terrain query: %w", err)
	}

	lo := 0.0
	for i, p := range draped {
		t := limit * float64(i+1) / float64(r.steps)
		if points[i].Z > p.Z {
			lo = t
			continue
		}
		hi := t
		for range bisectIterations {
			mid := (lo + hi) / 2
			q := position(r3.Add(o, r3.Scale(mid, d)))
			g, err := r.terrain.QueryElevation(ctx, []core.Position3D{q})
			if err != nil {
				return 0, false, fmt.Errorf("terrain query: %w", err)
			}
			if q.Z > g[0].Z {
				lo = mid
			} else {
				hi = mid
			}
		}
		return hi, true, nil
	}
	return 0, false, nil
}

func vec(p core.Position3D) r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

func position(v r3.Vec) core.Position3D {
	return core.Position3D{X: v.X, Y: v.Y, Z: v.Z}
}
