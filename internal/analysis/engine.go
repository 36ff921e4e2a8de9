// Package analysis decides which of many overlapping reach analyses becomes
// the displayed result while a truck is dragged, dropped and rotated.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/firereach/ladderreach/internal/geo"
	"github.com/firereach/ladderreach/internal/jackspread"
	"github.com/firereach/ladderreach/internal/los"
	"github.com/firereach/ladderreach/internal/nearby"
	"github.com/firereach/ladderreach/internal/stats"
	"github.com/firereach/ladderreach/internal/targets"
	"github.com/firereach/ladderreach/pkg/core"
	"golang.org/x/time/rate"
)

var (
	ErrInvalidAction = errors.New("invalid trigger action")
	ErrClosed        = errors.New("analysis engine closed")
)

// GraphicsSink displays analysis output. Calls are made with the engine
// lock held, in commit order.
type GraphicsSink interface {
	Add(ctx context.Context, graphics ...core.Graphic) error
	RemoveAll(ctx context.Context, roles ...core.StyleRole) error
}

// Config tunes the engine.
type Config struct {
	Subdivisions  int
	PassTimeout   time.Duration
	MoveRate      float64 // drag passes per second, 0 = unlimited
	FacingFilter  bool
	JackSpreadArc int
	EventBuffer   int
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Subdivisions:  targets.DefaultSubdivisions,
		PassTimeout:   30 * time.Second,
		FacingFilter:  true,
		JackSpreadArc: jackspread.DefaultArcSegments,
		EventBuffer:   64,
	}
}

// Deps are the collaborators injected into the engine. Buildings and
// Primitive are required.
type Deps struct {
	Buildings nearby.BuildingSource
	Primitive los.Primitive
	Elevation jackspread.ElevationSampler
	Graphics  GraphicsSink
	Stats     *stats.Aggregator
	Logger    *slog.Logger
}

// Engine owns the single placed truck and its analysis passes.
type Engine struct {
	cfg       Config
	logger    *slog.Logger
	index     *nearby.Index
	generator *targets.Generator
	evaluator *los.Evaluator
	jack      *jackspread.Calculator
	graphics  GraphicsSink
	stats     *stats.Aggregator
	limiter   *rate.Limiter
	metrics   *passMetrics
	events    *emitter

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	state      State
	observer   *core.Observer
	placement  uint64
	heading    float64
	profile    core.TruckProfile
	seq        uint64
	action     core.Action
	committed  *core.AnalysisResult
	jackSeq    uint64
	jackSpread []core.Position3D
	closed     bool
}

// New creates an engine for profile with no truck placed.
func New(profile core.TruckProfile, cfg Config, deps Deps) (*Engine, error) {
	if deps.Buildings == nil || deps.Primitive == nil {
		return nil, errors.New("analysis engine needs a building source and a line of sight primitive")
	}
	if cfg.PassTimeout <= 0 {
		cfg.PassTimeout = DefaultConfig().PassTimeout
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultConfig().EventBuffer
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	graphics := deps.Graphics
	if graphics == nil {
		graphics = discardGraphics{}
	}
	agg := deps.Stats
	if agg == nil {
		agg = stats.New(nil, logger)
	}

	m, err := newPassMetrics()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:       cfg,
		logger:    logger,
		index:     nearby.New(deps.Buildings, logger),
		generator: targets.NewGenerator(cfg.Subdivisions),
		evaluator: los.New(deps.Primitive),
		jack:      jackspread.New(deps.Elevation, jackspread.WithArcSegments(cfg.JackSpreadArc)),
		graphics:  graphics,
		stats:     agg,
		metrics:   m,
		events:    newEmitter(cfg.EventBuffer),
		ctx:       ctx,
		cancel:    cancel,
		heading:   profile.DefaultHeading,
		profile:   profile,
	}
	if cfg.MoveRate > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.MoveRate), 1)
	}
	return e, nil
}

// SetLocation places or moves the truck and starts a pass for action.
// A nil, non-finite or out-of-extent location removes the truck.
func (e *Engine) SetLocation(location *core.Position3D, action core.Action) *Pending {
	if location == nil {
		e.mu.Lock()
		e.clearObserverLocked()
		e.mu.Unlock()
		return resolved(Outcome{})
	}
	if !action.Valid() || action == core.ActionComplete {
		return resolved(Outcome{Err: fmt.Errorf("%w: %q", ErrInvalidAction, action)})
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return resolved(Outcome{Err: ErrClosed})
	}
	if !geo.InSceneExtent(*location) {
		e.logger.Debug("placement outside the scene, removing truck", "location", *location, "action", action)
		e.clearObserverLocked()
		return resolved(Outcome{})
	}

	if e.observer == nil {
		e.placement++
	}
	e.observer = &core.Observer{Base: *location, HeightOffset: e.profile.Height, Heading: e.heading}
	e.seq++
	e.action = action

	p := &pass{
		seq:       e.seq,
		placement: e.placement,
		action:    action,
		observer:  *e.observer,
		profile:   e.profile,
		pending:   newPending(),
		started:   time.Now(),
	}
	point := p.observer.Point()

	switch action {
	case core.ActionMoveStart:
		e.state = StateActivePending
		e.clearResultsLocked()
		e.index.MarkStale()
		p.ticket = e.index.Reserve()
	case core.ActionMove:
		e.state = StateActivePending
	case core.ActionMoveStop, core.ActionReset:
		// the displayed result stays until this pass commits
		e.state = StateSettling
		if snap := e.index.FreshSnapshot(point, p.profile.LadderReach); snap != nil {
			p.pinned = snap
		} else {
			p.ticket = e.index.Reserve()
		}
	}

	e.logger.Debug("analysis triggered", "seq", p.seq, "action", action, "state", e.state)
	e.updateJackSpreadLocked()
	e.launchLocked(func() { e.run(p) })
	return p.pending
}

// SetHeading rotates the placed truck. Only the jack spread depends on the
// heading, so no analysis pass is started.
func (e *Engine) SetHeading(heading float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.heading = core.NormalizeHeading(heading)
	if e.observer != nil {
		o := *e.observer
		o.Heading = e.heading
		e.observer = &o
	}
	e.updateJackSpreadLocked()
}

// SetProfile switches the truck type. Statistics collected for the previous
// type are cleared and a placed truck is re-analysed where it stands.
func (e *Engine) SetProfile(profile core.TruckProfile) *Pending {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return resolved(Outcome{Err: ErrClosed})
	}
	e.profile = profile
	// passes started with the previous profile must not commit
	e.seq++
	var base *core.Position3D
	if e.observer != nil {
		b := e.observer.Base
		base = &b
		o := *e.observer
		o.HeightOffset = profile.Height
		e.observer = &o
	}
	changed := profile
	e.events.emit(core.Event{Type: core.EventTruckTypeChange, Time: time.Now(), Profile: &changed})
	e.mu.Unlock()

	if err := e.stats.Clear(e.ctx); err != nil {
		e.logger.Warn("failed to clear statistics on truck change", "error", err)
	}
	e.logger.Info("truck type changed", "truck", profile.ID)

	if base == nil {
		e.mu.Lock()
		e.updateJackSpreadLocked()
		e.mu.Unlock()
		return resolved(Outcome{})
	}
	return e.SetLocation(base, core.ActionReset)
}

// ClearResults removes the truck and every analysis output, then clears
// the session statistics.
func (e *Engine) ClearResults() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.clearObserverLocked()
	e.events.emit(core.Event{Type: core.EventResultsCleared, Time: time.Now()})
	e.mu.Unlock()

	return e.stats.Clear(e.ctx)
}

// Events delivers analysis-results, analysis-preview, truck-type-change and
// results-cleared events in emission order. The channel closes on Close.
func (e *Engine) Events() <-chan core.Event {
	return e.events.events()
}

// State returns the current interaction phase.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Action returns the latest trigger action, or complete once it committed.
func (e *Engine) Action() core.Action {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.action
}

// Observer returns the placed truck.
func (e *Engine) Observer() (core.Observer, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.observer == nil {
		return core.Observer{}, false
	}
	return *e.observer, true
}

// Profile returns the current truck profile.
func (e *Engine) Profile() core.TruckProfile {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile
}

// Committed returns the displayed result, or nil.
func (e *Engine) Committed() *core.AnalysisResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.committed
}

// JackSpread returns the displayed jack spread perimeter, or nil.
func (e *Engine) JackSpread() []core.Position3D {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.jackSpread
}

// Nearby returns the currently cached building snapshot.
func (e *Engine) Nearby() *nearby.Snapshot {
	return e.index.Snapshot()
}

// Statistics returns the aggregator fed by committed passes.
func (e *Engine) Statistics() *stats.Aggregator {
	return e.stats
}

// Wait blocks until every in-flight pass and jack spread update has finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Close discards in-flight work and closes the event channel.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.cancel()
	e.wg.Wait()
	e.events.close()
}

func (e *Engine) launchLocked(fn func()) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		fn()
	}()
}

// clearObserverLocked moves to Idle. Bumping seq and placement makes every
// in-flight pass lose its commit check.
func (e *Engine) clearObserverLocked() {
	if e.observer != nil {
		e.placement++
	}
	e.observer = nil
	e.seq++
	e.state = StateIdle
	e.action = ""
	e.clearResultsLocked()
	e.updateJackSpreadLocked()
}

func (e *Engine) clearResultsLocked() {
	e.committed = nil
	if err := e.graphics.RemoveAll(e.ctx, core.ResultRoles...); err != nil {
		e.logger.Warn("failed to clear result graphics", "error", err)
	}
}

// updateJackSpreadLocked recomputes the jack spread for the current truck.
// Only the latest computation is displayed.
func (e *Engine) updateJackSpreadLocked() {
	e.jackSeq++
	seq := e.jackSeq

	if e.observer == nil {
		e.jackSpread = nil
		if err := e.graphics.RemoveAll(e.ctx, core.RoleJackSpread); err != nil {
			e.logger.Warn("failed to clear jack spread", "error", err)
		}
		return
	}

	observer := *e.observer
	profile := e.profile
	e.launchLocked(func() {
		ctx, cancel := context.WithTimeout(e.ctx, e.cfg.PassTimeout)
		defer cancel()
		ring, err := e.jack.Compute(ctx, &observer, profile)

		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closed || seq != e.jackSeq {
			return
		}
		if err != nil {
			e.logger.Warn("jack spread update failed", "error", err)
			return
		}
		e.jackSpread = ring
		if err := e.graphics.RemoveAll(e.ctx, core.RoleJackSpread); err != nil {
			e.logger.Warn("failed to clear jack spread", "error", err)
		}
		if err := e.graphics.Add(e.ctx, jackspread.Graphic(ring)); err != nil {
			e.logger.Warn("failed to draw jack spread", "error", err)
		}
	})
}

type discardGraphics struct{}

func (discardGraphics) Add(context.Context, ...core.Graphic) error { return nil }
func (discardGraphics) RemoveAll(context.Context, ...core.StyleRole) error { return nil }
