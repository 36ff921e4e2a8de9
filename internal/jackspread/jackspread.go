// Package jackspread computes the ground footprint of a truck's outrigger jacks.
package jackspread

import (
	"context"
	"fmt"

	"github.com/firereach/ladderreach/internal/geo"
	"github.com/firereach/ladderreach/pkg/core"
)

// DefaultArcSegments is the number of chords per round cap.
const DefaultArcSegments = 16

// ElevationSampler drapes positions onto the ground surface.
type ElevationSampler interface {
	QueryElevation(ctx context.Context, points []core.Position3D) ([]core.Position3D, error)
}

// Calculator builds the jack spread perimeter for a placed truck.
type Calculator struct {
	sampler     ElevationSampler
	arcSegments int
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithArcSegments sets the number of chords per round cap.
func WithArcSegments(n int) Option {
	return func(c *Calculator) {
		if n >= 2 {
			c.arcSegments = n
		}
	}
}

// New creates a Calculator. A nil sampler leaves the perimeter at observer height.
func New(sampler ElevationSampler, opts ...Option) *Calculator {
	c := &Calculator{sampler: sampler, arcSegments: DefaultArcSegments}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Centerline returns the rear and front ends of the truck body along its heading.
func Centerline(observer core.Observer, profile core.TruckProfile) (back, front core.Position3D) {
	center := observer.Point()
	back = geo.Destination(center, profile.LadderOffset, observer.Heading-180)
	front = geo.Destination(center, profile.Depth-profile.LadderOffset, observer.Heading)
	return back, front
}

// Compute returns the closed, ground-draped perimeter of the jack spread, or
// nil when no truck is placed.
func (c *Calculator) Compute(ctx context.Context, observer *core.Observer, profile core.TruckProfile) ([]core.Position3D, error) {
	if observer == nil {
		return nil, nil
	}

	back, front := Centerline(*observer, profile)
	ring := geo.BufferSegment(back, front, profile.JackSpread*0.5, c.arcSegments)

	if c.sampler == nil {
		return ring, nil
	}
	draped, err := c.sampler.QueryElevation(ctx, ring)
	if err != nil {
		return nil, fmt.Errorf("failed to drape jack spread: %w", err)
	}
	if len(draped) != len(ring) {
		return nil, fmt.Errorf("failed to drape jack spread: sampler returned %d of %d points", len(draped), len(ring))
	}
	return draped, nil
}

// Graphic wraps a perimeter as a jack-spread polygon graphic.
func Graphic(ring []core.Position3D) core.Graphic {
	return core.Graphic{Role: core.RoleJackSpread, Kind: core.KindPolygon, Points: ring}
}
