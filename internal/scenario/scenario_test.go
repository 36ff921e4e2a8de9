package scenario

import (
	"strings"
	"testing"

	"github.com/firereach/ladderreach/internal/dispatcher"
	"github.com/firereach/ladderreach/internal/handlers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	s, err := LoadFile("testdata/corner.yaml")
	require.NoError(t, err)

	assert.Equal(t, "corner lot", s.Name)
	assert.Equal(t, "Aerial_Ladder", s.Truck)
	require.Len(t, s.Buildings, 2)
	assert.Equal(t, 30.0, s.Buildings[0].Height)
	require.Len(t, s.Steps, 6)

	bs := s.CoreBuildings()
	require.Len(t, bs, 2)
	assert.Equal(t, "annex", bs[1].Name)
	assert.Zero(t, bs[1].ID)
}

func TestEvents(t *testing.T) {
	s, err := LoadFile("testdata/corner.yaml")
	require.NoError(t, err)

	events := s.Events()
	require.Len(t, events, 8)
	assert.Equal(t, dispatcher.Event{Command: handlers.CommandTruckType, Args: []string{"Aerial_Ladder"}}, events[0])
	assert.Equal(t, dispatcher.Event{Command: handlers.CommandRotate, Args: []string{"90"}}, events[1])
	assert.Equal(t, dispatcher.Event{Command: handlers.CommandMoveStart, Args: []string{"0,0"}}, events[2])
	assert.Equal(t, dispatcher.Event{Command: handlers.CommandMoveStop, Args: []string{"2,0"}}, events[4])
	assert.Equal(t, dispatcher.Event{Command: handlers.CommandRotate, Args: []string{"45"}}, events[5])
	assert.Equal(t, dispatcher.Event{Command: handlers.CommandTruckType, Args: []string{"Aerial_Ladder_Pumper"}}, events[7])
}

func TestEvents_RemoveAndClear(t *testing.T) {
	s, err := Load(strings.NewReader(`
steps:
  - action: move-stop
  - action: clear
`))
	require.NoError(t, err)

	events := s.Events()
	require.Len(t, events, 2)
	assert.Equal(t, []string{""}, events[0].Args)
	assert.Nil(t, events[1].Args)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"no steps", "name: empty\n"},
		{"unknown action", "steps:\n  - action: jump\n"},
		{"rotate without heading", "steps:\n  - action: rotate\n"},
		{"truck-type without truck", "steps:\n  - action: truck-type\n"},
		{"building without footprint", "buildings:\n  - height: 3\nsteps:\n  - action: clear\n"},
		{"building without height", "buildings:\n  - footprint: POLYGON((0 0, 1 0, 1 1, 0 0))\nsteps:\n  - action: clear\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, ErrInvalidScenario)
		})
	}
}

func TestLoad_UnknownField(t *testing.T) {
	_, err := Load(strings.NewReader("steps:\n  - action: clear\nwind: 12\n"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidScenario)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile("testdata/missing.yaml")
	assert.Error(t, err)
}
