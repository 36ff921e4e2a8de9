package jackspread

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/firereach/ladderreach/internal/geo"
	"github.com/firereach/ladderreach/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type groundAt float64

func (g groundAt) QueryElevation(_ context.Context, points []core.Position3D) ([]core.Position3D, error) {
	out := make([]core.Position3D, len(points))
	for i, p := range points {
		p.Z = float64(g)
		out[i] = p
	}
	return out, nil
}

type failingSampler struct{}

func (failingSampler) QueryElevation(context.Context, []core.Position3D) ([]core.Position3D, error) {
	return nil, errors.New("elevation service unavailable")
}

type shortSampler struct{}

func (shortSampler) QueryElevation(_ context.Context, points []core.Position3D) ([]core.Position3D, error) {
	return points[:1], nil
}

var pumper = core.TruckProfile{
	ID:           "Aerial_Ladder_Pumper",
	Depth:        12.192,
	LadderOffset: 12.192 * 0.175,
	JackSpread:   3.3528,
	Height:       3.81,
}

func placed(heading float64) *core.Observer {
	return &core.Observer{
		Base:         geo.Coords3857From4326(-117.195, 34.057, 400),
		HeightOffset: pumper.Height,
		Heading:      heading,
	}
}

func TestCompute_NoObserver(t *testing.T) {
	ring, err := New(groundAt(0)).Compute(context.Background(), nil, pumper)
	require.NoError(t, err)
	assert.Nil(t, ring)
}

func TestCompute_DrapedClosedRing(t *testing.T) {
	ring, err := New(groundAt(398.5), WithArcSegments(8)).Compute(context.Background(), placed(90), pumper)
	require.NoError(t, err)

	require.Len(t, ring, 2*9+1)
	assert.Equal(t, ring[0], ring[len(ring)-1])
	for _, p := range ring {
		assert.Equal(t, 398.5, p.Z)
	}
}

func TestCompute_Dimensions(t *testing.T) {
	obs := placed(90)
	ring, err := New(nil).Compute(context.Background(), obs, pumper)
	require.NoError(t, err)

	center := obs.Point()
	k := geo.ScaleFactor(center)
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, p := range ring {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	// heading east: length runs along X, jack spread across Y
	assert.InDelta(t, pumper.Depth+pumper.JackSpread, (maxX-minX)/k, 1e-3)
	assert.InDelta(t, pumper.JackSpread, (maxY-minY)/k, 1e-3)
	assert.InDelta(t, pumper.LadderOffset+pumper.JackSpread/2, (center.X-minX)/k, 1e-3)
}

func TestCenterline_FollowsHeading(t *testing.T) {
	obs := placed(0)
	back, front := Centerline(*obs, pumper)

	assert.Greater(t, front.Y, obs.Point().Y)
	assert.Less(t, back.Y, obs.Point().Y)
	az := geo.Azimuth(back, front)
	assert.Less(t, math.Min(az, 360-az), 1e-6)
}

func TestCompute_SamplerErrors(t *testing.T) {
	_, err := New(failingSampler{}).Compute(context.Background(), placed(0), pumper)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "elevation service unavailable")

	_, err = New(shortSampler{}).Compute(context.Background(), placed(0), pumper)
	require.Error(t, err)
}

func TestGraphic(t *testing.T) {
	g := Graphic([]core.Position3D{{X: 1}})
	assert.Equal(t, core.RoleJackSpread, g.Role)
	assert.Equal(t, core.KindPolygon, g.Kind)
}
