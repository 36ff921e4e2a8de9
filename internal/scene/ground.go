package scene

import (
	"context"

	"github.com/firereach/ladderreach/pkg/core"
)

// FlatGround is a level terrain surface at a fixed elevation.
type FlatGround struct {
	Elevation float64
}

// QueryElevation drapes points onto the surface.
func (f FlatGround) QueryElevation(ctx context.Context, points []core.Position3D) ([]core.Position3D, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]core.Position3D, len(points))
	for i, p := range points {
		p.Z = f.Elevation
		out[i] = p
	}
	return out, nil
}
