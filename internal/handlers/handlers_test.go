package handlers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/firereach/ladderreach/internal/analysis"
	"github.com/firereach/ladderreach/internal/buildings"
	"github.com/firereach/ladderreach/internal/dispatcher"
	"github.com/firereach/ladderreach/internal/geo"
	"github.com/firereach/ladderreach/internal/scene"
	"github.com/firereach/ladderreach/internal/truck"
	"github.com/firereach/ladderreach/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	method   string
	location *core.Position3D
	action   core.Action
	heading  float64
	profile  string
}

// mockEngine records the calls the handlers make.
type mockEngine struct {
	mu       sync.Mutex
	calls    []call
	clearErr error
}

func (m *mockEngine) record(c call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

func (m *mockEngine) SetLocation(location *core.Position3D, action core.Action) *analysis.Pending {
	m.record(call{method: "SetLocation", location: location, action: action})
	return nil
}

func (m *mockEngine) SetHeading(heading float64) {
	m.record(call{method: "SetHeading", heading: heading})
}

func (m *mockEngine) SetProfile(profile core.TruckProfile) *analysis.Pending {
	m.record(call{method: "SetProfile", profile: profile.ID})
	return nil
}

func (m *mockEngine) ClearResults() error {
	m.record(call{method: "ClearResults"})
	return m.clearErr
}

func (m *mockEngine) snapshot() []call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]call(nil), m.calls...)
}

func newMockService() (*Service, *mockEngine) {
	eng := &mockEngine{}
	return NewService(Dependencies{Engine: eng, Catalog: truck.DefaultCatalog()}), eng
}

func TestHandleLocation(t *testing.T) {
	s, eng := newMockService()

	_, err := s.HandleLocation(core.ActionMoveStop, dispatcher.Event{Args: []string{"1.5, -2, 3"}})
	require.NoError(t, err)

	calls := eng.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, core.ActionMoveStop, calls[0].action)
	assert.Equal(t, &core.Position3D{X: 1.5, Y: -2, Z: 3}, calls[0].location)
}

func TestHandleLocation_RemovesTruck(t *testing.T) {
	for _, args := range [][]string{nil, {""}, {"null"}} {
		s, eng := newMockService()
		_, err := s.HandleLocation(core.ActionReset, dispatcher.Event{Args: args})
		require.NoError(t, err)
		calls := eng.snapshot()
		require.Len(t, calls, 1)
		assert.Nil(t, calls[0].location)
	}
}

func TestHandleLocation_InvalidCoordinates(t *testing.T) {
	s, eng := newMockService()
	for _, raw := range []string{"abc", "1", "1,two"} {
		_, err := s.HandleLocation(core.ActionMove, dispatcher.Event{Args: []string{raw}})
		assert.ErrorIs(t, err, geo.ErrInvalidCoordinates, raw)
	}
	assert.Empty(t, eng.snapshot())
}

func TestHandleLocation_OutOfSceneReachesEngine(t *testing.T) {
	s, eng := newMockService()
	for _, raw := range []string{"NaN,2", "1,Inf", "1e9,1e9"} {
		_, err := s.HandleLocation(core.ActionMoveStop, dispatcher.Event{Args: []string{raw}})
		require.NoError(t, err, raw)
	}

	calls := eng.snapshot()
	require.Len(t, calls, 3)
	for _, c := range calls {
		require.NotNil(t, c.location)
		assert.False(t, geo.InSceneExtent(*c.location))
	}
}

func TestHandleRotate(t *testing.T) {
	s, eng := newMockService()

	_, err := s.HandleRotate(dispatcher.Event{Args: []string{" 270 "}})
	require.NoError(t, err)
	assert.Equal(t, 270.0, eng.snapshot()[0].heading)

	_, err = s.HandleRotate(dispatcher.Event{})
	assert.ErrorIs(t, err, ErrMissingArgument)

	_, err = s.HandleRotate(dispatcher.Event{Args: []string{"east"}})
	assert.Error(t, err)
}

func TestHandleTruckType(t *testing.T) {
	s, eng := newMockService()

	_, err := s.HandleTruckType(dispatcher.Event{Args: []string{"Aerial_Ladder_Tanker"}})
	require.NoError(t, err)
	assert.Equal(t, "Aerial_Ladder_Tanker", eng.snapshot()[0].profile)

	_, err = s.HandleTruckType(dispatcher.Event{Args: []string{"Hook_And_Ladder"}})
	assert.Error(t, err)

	_, err = s.HandleTruckType(dispatcher.Event{})
	assert.ErrorIs(t, err, ErrMissingArgument)
	assert.Len(t, eng.snapshot(), 1)
}

func TestHandleClear(t *testing.T) {
	s, eng := newMockService()
	_, err := s.HandleClear(dispatcher.Event{})
	require.NoError(t, err)

	eng.clearErr = errors.New("sink offline")
	_, err = s.HandleClear(dispatcher.Event{})
	assert.ErrorContains(t, err, "sink offline")
}

func TestRegister_OrderedLane(t *testing.T) {
	s, eng := newMockService()
	d, err := dispatcher.New(&nopLogger{})
	require.NoError(t, err)
	s.Register(d, 8)

	events := []dispatcher.Event{
		{Command: CommandMoveStart, Args: []string{"0,0"}},
		{Command: CommandMove, Args: []string{"1,0"}},
		{Command: CommandRotate, Args: []string{"45"}},
		{Command: CommandMoveStop, Args: []string{"2,0"}},
		{Command: CommandTruckType, Args: []string{"Aerial_Ladder"}},
		{Command: CommandClear},
	}
	for _, e := range events {
		_, err := d.Dispatch(e)
		require.NoError(t, err)
	}
	d.Close()

	var methods []string
	for _, c := range eng.snapshot() {
		methods = append(methods, c.method)
	}
	assert.Equal(t, []string{"SetLocation", "SetLocation", "SetHeading", "SetLocation", "SetProfile", "ClearResults"}, methods)
	assert.Equal(t, core.ActionMoveStop, eng.snapshot()[3].action)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func TestEndToEnd_ResetCommits(t *testing.T) {
	source, err := buildings.NewMemory(core.Building{
		Name:      "block",
		Footprint: "POLYGON((8 -10,20 -10,20 10,8 10,8 -10))",
		Height:    30,
	})
	require.NoError(t, err)
	all, err := source.All(context.Background())
	require.NoError(t, err)
	ray, err := scene.NewRaycaster(all, scene.WithTerrain(scene.FlatGround{}))
	require.NoError(t, err)

	layer := scene.NewLayer()
	catalog := truck.DefaultCatalog()
	cfg := analysis.DefaultConfig()
	cfg.Subdivisions = 2
	eng, err := analysis.New(catalog.Default(), cfg, analysis.Deps{
		Buildings: source,
		Primitive: ray,
		Elevation: scene.FlatGround{},
		Graphics:  layer,
	})
	require.NoError(t, err)
	t.Cleanup(eng.Close)

	s := NewService(Dependencies{Engine: eng, Catalog: catalog})
	_, err = s.HandleLocation(core.ActionReset, dispatcher.Event{Args: []string{"0,0,0"}})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	out, err := s.Last().Wait(ctx)
	require.NoError(t, err)
	require.NoError(t, out.Err)
	require.True(t, out.Committed)

	r := out.Result
	assert.Equal(t, r.ValidResultsCount, r.VisibleCount+r.ObstructedCount)
	assert.Positive(t, r.VisibleCount)
	assert.Equal(t, r.VisibleCount, layer.Count(core.RoleVisible))
	assert.Equal(t, analysis.StateFinalized, eng.State())
	assert.Len(t, eng.Statistics().Statistics(), 1)
}
