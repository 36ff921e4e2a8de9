// Package session connects a running engine to its outputs: storage,
// InfluxDB, a remote renderer and the console.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/firereach/ladderreach/internal/analysis"
	"github.com/firereach/ladderreach/internal/stats"
	"github.com/firereach/ladderreach/pkg/core"
)

// ResultStore persists committed results.
type ResultStore interface {
	RecordResult(ctx context.Context, result *core.AnalysisResult) error
}

// Metrics receives results and statistics tagged with the session and truck.
type Metrics interface {
	RecordResult(ctx context.Context, sessionID, truckID string, r *core.AnalysisResult) error
	AddStatistic(ctx context.Context, truckID string, s *core.VisibilityStatistic) error
}

// Publisher forwards engine events, e.g. to a renderer.
type Publisher interface {
	PublishEvent(ev core.Event) error
}

// Dependencies holds the recorder's outputs. Every field but Truck is optional.
type Dependencies struct {
	SessionID string
	Truck     func() string
	Store     ResultStore
	Metrics   Metrics
	Publisher Publisher
	Out       io.Writer
	Logger    *slog.Logger
}

// Recorder consumes engine events and fans them out.
type Recorder struct {
	deps   Dependencies
	logger *slog.Logger
}

// NewRecorder creates a Recorder.
func NewRecorder(deps Dependencies) *Recorder {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Truck == nil {
		deps.Truck = func() string { return "" }
	}
	return &Recorder{deps: deps, logger: logger}
}

// Consume handles events until the channel closes and returns the number of
// committed results seen. Output failures are logged, never fatal.
func (r *Recorder) Consume(ctx context.Context, events <-chan core.Event) int {
	committed := 0
	for ev := range events {
		if ev.Type == core.EventAnalysisResults {
			committed++
		}
		if err := r.Handle(ctx, ev); err != nil {
			r.logger.Warn("failed to record event", "type", ev.Type, "error", err)
		}
	}
	return committed
}

// Handle forwards one event.
func (r *Recorder) Handle(ctx context.Context, ev core.Event) error {
	var errs []error
	if r.deps.Publisher != nil {
		errs = append(errs, r.deps.Publisher.PublishEvent(ev))
	}

	switch ev.Type {
	case core.EventAnalysisResults:
		if r.deps.Store != nil {
			errs = append(errs, r.deps.Store.RecordResult(ctx, ev.Results))
		}
		if r.deps.Metrics != nil {
			errs = append(errs, r.deps.Metrics.RecordResult(ctx, r.deps.SessionID, r.deps.Truck(), ev.Results))
		}
		r.printf("%-9s seq=%-3d action=%-10s at (%.1f, %.1f)  valid=%d visible=%d obstructed=%d intersected=%d%s\n",
			"result", ev.Results.SequenceID, ev.Results.Action,
			ev.Results.Location.X, ev.Results.Location.Y,
			ev.Results.ValidResultsCount, ev.Results.VisibleCount,
			ev.Results.ObstructedCount, ev.Results.IntersectedCount,
			timedOut(ev.Results))
	case core.EventAnalysisPreview:
		r.printf("%-9s seq=%-3d action=%-10s visible=%d/%d\n",
			"preview", ev.Results.SequenceID, ev.Results.Action,
			ev.Results.VisibleCount, ev.Results.ValidResultsCount)
	case core.EventTruckTypeChange:
		r.printf("%-9s %s (%s)\n", "truck", ev.Profile.ID, ev.Profile.Label)
	case core.EventResultsCleared:
		r.printf("%-9s\n", "cleared")
	}
	return errors.Join(errs...)
}

func (r *Recorder) printf(format string, args ...any) {
	if r.deps.Out != nil {
		fmt.Fprintf(r.deps.Out, format, args...)
	}
}

func timedOut(r *core.AnalysisResult) string {
	if r.TimedOut {
		return "  (timed out)"
	}
	return ""
}

// StatsSink stores statistics in Sink and mirrors additions to Metrics.
type StatsSink struct {
	Sink    stats.Sink
	Metrics Metrics
	Truck   func() string
}

var _ stats.Sink = (*StatsSink)(nil)

func (s *StatsSink) AddStatistic(ctx context.Context, stat *core.VisibilityStatistic) error {
	var errs []error
	if s.Sink != nil {
		errs = append(errs, s.Sink.AddStatistic(ctx, stat))
	}
	if s.Metrics != nil {
		truck := ""
		if s.Truck != nil {
			truck = s.Truck()
		}
		errs = append(errs, s.Metrics.AddStatistic(ctx, truck, stat))
	}
	return errors.Join(errs...)
}

func (s *StatsSink) ClearStatistics(ctx context.Context, sessionID string) error {
	if s.Sink == nil {
		return nil
	}
	return s.Sink.ClearStatistics(ctx, sessionID)
}

// Graphics draws on every sink in order.
type Graphics []analysis.GraphicsSink

var _ analysis.GraphicsSink = Graphics(nil)

func (g Graphics) Add(ctx context.Context, graphics ...core.Graphic) error {
	var errs []error
	for _, s := range g {
		errs = append(errs, s.Add(ctx, graphics...))
	}
	return errors.Join(errs...)
}

func (g Graphics) RemoveAll(ctx context.Context, roles ...core.StyleRole) error {
	var errs []error
	for _, s := range g {
		errs = append(errs, s.RemoveAll(ctx, roles...))
	}
	return errors.Join(errs...)
}
