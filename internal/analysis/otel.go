package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/firereach/ladderreach/pkg/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/firereach/ladderreach/internal/analysis"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// passMetrics counts pass outcomes by trigger action.
// Uses the global OTel meter (no-op if not configured).
type passMetrics struct {
	committed  metric.Int64Counter
	previewed  metric.Int64Counter
	superseded metric.Int64Counter
	failed     metric.Int64Counter
	timedOut   metric.Int64Counter
	duration   metric.Float64Histogram
}

func newPassMetrics() (*passMetrics, error) {
	m := meter()
	pm := &passMetrics{}

	var err error
	pm.committed, err = m.Int64Counter(
		"analysis.passes.committed",
		metric.WithDescription("Rest passes committed as the displayed result"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating committed counter: %w", err)
	}

	pm.previewed, err = m.Int64Counter(
		"analysis.passes.previewed",
		metric.WithDescription("Drag passes emitted as previews"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating previewed counter: %w", err)
	}

	pm.superseded, err = m.Int64Counter(
		"analysis.passes.superseded",
		metric.WithDescription("Passes discarded because a later trigger won"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating superseded counter: %w", err)
	}

	pm.failed, err = m.Int64Counter(
		"analysis.passes.failed",
		metric.WithDescription("Passes that failed in geometry or line of sight"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	pm.timedOut, err = m.Int64Counter(
		"analysis.passes.timedout",
		metric.WithDescription("Passes force-resolved after the pass deadline"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating timed out counter: %w", err)
	}

	pm.duration, err = m.Float64Histogram(
		"analysis.pass.duration",
		metric.WithDescription("Time from trigger to outcome"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return pm, nil
}

func (pm *passMetrics) record(c metric.Int64Counter, action core.Action, started time.Time) {
	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("action", string(action)))
	c.Add(ctx, 1, attrs)
	pm.duration.Record(ctx, float64(time.Since(started).Microseconds())/1000.0, attrs)
}
