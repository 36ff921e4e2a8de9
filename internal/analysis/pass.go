package analysis

import (
	"context"
	"errors"
	"time"

	"github.com/firereach/ladderreach/internal/nearby"
	"github.com/firereach/ladderreach/pkg/core"
)

var errSuperseded = errors.New("pass superseded")

// pass is the immutable snapshot of one trigger, threaded through every stage.
type pass struct {
	seq       uint64
	placement uint64
	action    core.Action
	observer  core.Observer
	profile   core.TruckProfile

	// exactly one of ticket (a reserved refresh generation) or pinned (a
	// cache already fresh at trigger time) is set for move-start and rest
	// passes; move passes use whatever is cached when they run
	ticket uint64
	pinned *nearby.Snapshot

	pending *Pending
	started time.Time
}

func (e *Engine) run(p *pass) {
	ctx, cancel := context.WithTimeout(e.ctx, e.cfg.PassTimeout)
	defer cancel()

	if p.action == core.ActionMove && e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			e.finish(p, nil, err)
			return
		}
	}
	if !e.isLatest(p) {
		e.finish(p, nil, errSuperseded)
		return
	}

	snap, err := e.geometry(ctx, p)
	if err != nil {
		e.finish(p, nil, err)
		return
	}

	point := p.observer.Point()
	candidates := e.generator.Generate(&point, p.profile)
	if e.cfg.FacingFilter {
		candidates = facing(snap, point, candidates)
	}

	res, err := e.evaluator.Evaluate(ctx, point, candidates, snap)
	if err != nil {
		e.finish(p, nil, err)
		return
	}

	e.finish(p, &core.AnalysisResult{
		SequenceID:        p.seq,
		Action:            p.action,
		Label:             p.profile.Label,
		Location:          p.observer.Base,
		TargetCount:       res.TargetCount,
		ValidResultsCount: res.ValidResultsCount,
		IntersectedCount:  res.IntersectedCount,
		VisibleCount:      res.VisibleCount,
		ObstructedCount:   res.ObstructedCount,
		TimedOut:          res.TimedOut,
		Time:              time.Now(),
		Targets:           res.Targets,
	}, nil)
}

func (e *Engine) isLatest(p *pass) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.closed && p.seq == e.seq
}

// geometry returns the building snapshot the pass evaluates against. A pass
// with a ticket waits for its own refresh, which satisfies the rule that a
// rest pass only commits against geometry fetched for its position.
func (e *Engine) geometry(ctx context.Context, p *pass) (*nearby.Snapshot, error) {
	if p.pinned != nil {
		return p.pinned, nil
	}
	if p.ticket == 0 {
		return e.index.Snapshot(), nil
	}
	return e.index.RefreshAs(ctx, p.ticket, p.observer.Point(), p.profile.LadderReach)
}

// facing keeps the targets whose sight line crosses a cached building.
func facing(snap *nearby.Snapshot, observer core.Position3D, candidates []core.Position3D) []core.Position3D {
	out := make([]core.Position3D, 0, len(candidates))
	for _, t := range candidates {
		if snap.Crosses(observer, t) {
			out = append(out, t)
		}
	}
	return out
}

// finish applies the commit rule: only the latest trigger for the current
// placement may change what is displayed.
func (e *Engine) finish(p *pass, result *core.AnalysisResult, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || p.seq != e.seq || e.observer == nil || e.placement != p.placement {
		e.metrics.record(e.metrics.superseded, p.action, p.started)
		e.logger.Debug("discarding superseded pass", "seq", p.seq, "latest", e.seq, "action", p.action)
		p.pending.resolve(Outcome{Superseded: true})
		return
	}

	if err != nil {
		e.metrics.record(e.metrics.failed, p.action, p.started)
		e.logger.Warn("analysis pass failed", "seq", p.seq, "action", p.action, "error", err)
		if p.action.IsRest() {
			e.state = StateFinalized
			e.action = core.ActionComplete
		}
		p.pending.resolve(Outcome{Err: err})
		return
	}

	if result.TimedOut {
		e.metrics.record(e.metrics.timedOut, p.action, p.started)
		e.logger.Warn("analysis pass timed out", "seq", p.seq, "action", p.action, "targets", result.TargetCount)
	}

	if !p.action.IsRest() {
		e.metrics.record(e.metrics.previewed, p.action, p.started)
		e.events.emit(core.Event{Type: core.EventAnalysisPreview, Time: time.Now(), Results: result})
		p.pending.resolve(Outcome{Preview: true, Result: result})
		return
	}

	e.state = StateFinalized
	e.action = core.ActionComplete
	e.committed = result

	if err := e.graphics.RemoveAll(e.ctx, core.ResultRoles...); err != nil {
		e.logger.Warn("failed to clear result graphics", "error", err)
	}
	if err := e.graphics.Add(e.ctx, resultGraphics(p.observer.Point(), result)...); err != nil {
		e.logger.Warn("failed to draw result graphics", "error", err)
	}
	if _, err := e.stats.Record(e.ctx, p.observer.Base, result.VisibleCount); err != nil {
		e.logger.Warn("failed to record statistic", "error", err)
	}
	e.events.emit(core.Event{Type: core.EventAnalysisResults, Time: time.Now(), Results: result})

	e.metrics.record(e.metrics.committed, p.action, p.started)
	e.logger.Info("analysis committed",
		"seq", p.seq,
		"action", p.action,
		"valid", result.ValidResultsCount,
		"visible", result.VisibleCount,
		"obstructed", result.ObstructedCount,
	)
	p.pending.resolve(Outcome{Committed: true, Result: result})
}

// resultGraphics draws one sight line and one end point per classified target.
func resultGraphics(observer core.Position3D, r *core.AnalysisResult) []core.Graphic {
	out := make([]core.Graphic, 0, 2*len(r.Targets))
	for _, t := range r.Targets {
		line, point := core.RoleObstructed, core.RoleObstruction
		if t.Status == core.StatusVisible {
			line, point = core.RoleVisible, core.RoleIntersection
		}
		out = append(out,
			core.Graphic{Role: line, Kind: core.KindLine, Points: []core.Position3D{observer, t.Obstruction}},
			core.Graphic{Role: point, Kind: core.KindPoint, Points: []core.Position3D{t.Obstruction}},
		)
	}
	return out
}
