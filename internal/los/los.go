// Package los classifies candidate targets by what first blocks the line to them.
package los

import (
	"context"
	"errors"
	"fmt"

	"github.com/firereach/ladderreach/internal/nearby"
	"github.com/firereach/ladderreach/pkg/core"
)

// ErrLineOfSight is returned when the line-of-sight primitive fails.
var ErrLineOfSight = errors.New("line of sight evaluation failed")

// Sample is the primitive's answer for one target. A nil Obstruction means
// the line to the target is clear.
type Sample struct {
	Target      core.Position3D
	Obstruction *core.Position3D
}

// Primitive casts sight lines from observer to each target. Results are in
// target order. Each call supersedes the previous one.
type Primitive interface {
	Evaluate(ctx context.Context, observer core.Position3D, targets []core.Position3D) ([]Sample, error)
}

// Result is the classification of one batch of targets.
type Result struct {
	TargetCount       int
	ValidResultsCount int
	IntersectedCount  int
	VisibleCount      int
	ObstructedCount   int
	TimedOut          bool
	Targets           []core.ClassifiedTarget
}

// Evaluator turns primitive samples into visible/obstructed targets.
type Evaluator struct {
	primitive Primitive
}

// New creates an Evaluator around primitive.
func New(primitive Primitive) *Evaluator {
	return &Evaluator{primitive: primitive}
}

// Evaluate classifies targets against the buildings in snap. A target is
// visible when the segment from observer to its obstruction point touches a
// buffered footprint, meaning the ladder meets a building first.
//
// If ctx expires before the primitive answers, every target is resolved as
// obstructed at its own position and the result is flagged TimedOut.
func (e *Evaluator) Evaluate(ctx context.Context, observer core.Position3D, targets []core.Position3D, snap *nearby.Snapshot) (Result, error) {
	if !snap.HasBuildings() || len(targets) == 0 {
		return Result{}, nil
	}

	samples, err := e.primitive.Evaluate(ctx, observer, targets)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return timedOut(targets), nil
		}
		return Result{}, fmt.Errorf("%w: %w", ErrLineOfSight, err)
	}
	if len(samples) != len(targets) {
		return Result{}, fmt.Errorf("%w: got %d samples for %d targets", ErrLineOfSight, len(samples), len(targets))
	}

	res := Result{
		TargetCount: len(targets),
		Targets:     make([]core.ClassifiedTarget, 0, len(samples)),
	}
	for _, s := range samples {
		if s.Obstruction == nil {
			continue
		}
		ct := core.ClassifiedTarget{Target: s.Target, Obstruction: *s.Obstruction}
		if snap.Crosses(observer, *s.Obstruction) {
			ct.Status = core.StatusVisible
			res.VisibleCount++
		} else {
			ct.Status = core.StatusObstructed
			res.ObstructedCount++
		}
		res.Targets = append(res.Targets, ct)
	}
	res.ValidResultsCount = len(res.Targets)
	res.IntersectedCount = res.ValidResultsCount
	return res, nil
}

func timedOut(targets []core.Position3D) Result {
	res := Result{
		TargetCount:       len(targets),
		ValidResultsCount: len(targets),
		IntersectedCount:  len(targets),
		ObstructedCount:   len(targets),
		TimedOut:          true,
		Targets:           make([]core.ClassifiedTarget, len(targets)),
	}
	for i, t := range targets {
		res.Targets[i] = core.ClassifiedTarget{Target: t, Obstruction: t, Status: core.StatusObstructed}
	}
	return res
}
