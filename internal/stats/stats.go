// Package stats accumulates per-placement visibility statistics for a session.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/firereach/ladderreach/pkg/core"
	"github.com/google/uuid"
)

// DefaultBinSize is the heatmap cell edge in metres.
const DefaultBinSize = 100.0

// Sink receives statistics as they are recorded and cleared.
type Sink interface {
	AddStatistic(ctx context.Context, stat *core.VisibilityStatistic) error
	ClearStatistics(ctx context.Context, sessionID string) error
}

// Aggregator keeps the statistics of one session in memory and forwards
// them to an optional sink.
type Aggregator struct {
	sink   Sink
	logger *slog.Logger

	mu        sync.Mutex
	sessionID string
	nextID    uint
	stats     []core.VisibilityStatistic
}

// New creates an Aggregator with a fresh session id.
func New(sink Sink, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		sink:      sink,
		logger:    logger,
		sessionID: uuid.NewString(),
		nextID:    1,
	}
}

// SessionID identifies this aggregator's statistics in shared sinks.
func (a *Aggregator) SessionID() string {
	return a.sessionID
}

// Record appends one statistic for a settled placement. Callers pass the
// truck's base point on the ground, not the raised observer; it is stored
// as given.
func (a *Aggregator) Record(ctx context.Context, location core.Position3D, visibleCount int) (core.VisibilityStatistic, error) {
	a.mu.Lock()
	stat := core.VisibilityStatistic{
		ID:           a.nextID,
		SessionID:    a.sessionID,
		Location:     location,
		VisibleCount: visibleCount,
		Time:         time.Now(),
	}
	a.nextID++
	a.stats = append(a.stats, stat)
	a.mu.Unlock()

	if a.sink != nil {
		if err := a.sink.AddStatistic(ctx, &stat); err != nil {
			return stat, fmt.Errorf("failed to forward statistic %d: %w", stat.ID, err)
		}
	}
	a.logger.Debug("statistic recorded", "id", stat.ID, "visibleCount", visibleCount)
	return stat, nil
}

// Clear removes every statistic of the session.
func (a *Aggregator) Clear(ctx context.Context) error {
	a.mu.Lock()
	n := len(a.stats)
	a.stats = nil
	a.mu.Unlock()

	if a.sink != nil {
		if err := a.sink.ClearStatistics(ctx, a.sessionID); err != nil {
			return fmt.Errorf("failed to clear statistics: %w", err)
		}
	}
	a.logger.Debug("statistics cleared", "count", n)
	return nil
}

// Statistics returns a copy of the recorded statistics in recording order.
func (a *Aggregator) Statistics() []core.VisibilityStatistic {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]core.VisibilityStatistic, len(a.stats))
	copy(out, a.stats)
	return out
}

// Bins averages the visible counts over square cells of size metres.
func (a *Aggregator) Bins(size float64) []core.StatisticBin {
	return Bin(a.Statistics(), size)
}

// Bin groups stats into square cells of size metres aligned on the
// projection origin. Cells are returned ordered by row, then column.
func Bin(stats []core.VisibilityStatistic, size float64) []core.StatisticBin {
	if size <= 0 {
		size = DefaultBinSize
	}

	type cell struct{ col, row int64 }
	type acc struct{ count, sum int }
	cells := make(map[cell]*acc)
	for _, s := range stats {
		c := cell{
			col: int64(math.Floor(s.Location.X / size)),
			row: int64(math.Floor(s.Location.Y / size)),
		}
		if cells[c] == nil {
			cells[c] = &acc{}
		}
		cells[c].count++
		cells[c].sum += s.VisibleCount
	}

	out := make([]core.StatisticBin, 0, len(cells))
	for c, v := range cells {
		out = append(out, core.StatisticBin{
			Col: c.col,
			Row: c.row,
			Center: core.Position3D{
				X: (float64(c.col) + 0.5) * size,
				Y: (float64(c.row) + 0.5) * size,
			},
			Count:             v.count,
			AverageVisibility: float64(v.sum) / float64(v.count),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out
}
