// Package scenario loads scripted interaction sequences: a set of buildings
// and the drag, drop and rotate steps a user performs over them.
package scenario

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/firereach/ladderreach/internal/dispatcher"
	"github.com/firereach/ladderreach/internal/handlers"
	"github.com/firereach/ladderreach/pkg/core"
	"gopkg.in/yaml.v3"
)

var ErrInvalidScenario = errors.New("invalid scenario")

// Step is one interaction. Location is "x,y" or "x,y,z" in scene units;
// leaving it empty on a location action removes the truck.
type Step struct {
	Action   string   `yaml:"action"`
	Location string   `yaml:"location,omitempty"`
	Heading  *float64 `yaml:"heading,omitempty"`
	Truck    string   `yaml:"truck,omitempty"`
}

// Building is a footprint (WKT or a JSON ring) extruded from BaseZ by Height.
type Building struct {
	Name      string  `yaml:"name"`
	Footprint string  `yaml:"footprint"`
	BaseZ     float64 `yaml:"baseZ"`
	Height    float64 `yaml:"height"`
}

// Scenario is a scripted session.
type Scenario struct {
	Name      string     `yaml:"name"`
	Truck     string     `yaml:"truck"`
	Heading   *float64   `yaml:"heading"`
	Ground    float64    `yaml:"ground"`
	Buildings []Building `yaml:"buildings"`
	Steps     []Step     `yaml:"steps"`
}

// Load decodes and validates a scenario. Unknown fields are rejected.
func Load(r io.Reader) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadFile reads a scenario from path.
func LoadFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Validate checks that every step names a known command with the argument
// it needs.
func (s *Scenario) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidScenario)
	}
	for i, b := range s.Buildings {
		if b.Footprint == "" {
			return fmt.Errorf("%w: building %d has no footprint", ErrInvalidScenario, i)
		}
		if b.Height <= 0 {
			return fmt.Errorf("%w: building %d has height %g", ErrInvalidScenario, i, b.Height)
		}
	}
	for i, st := range s.Steps {
		switch st.Action {
		case handlers.CommandMoveStart, handlers.CommandMove, handlers.CommandMoveStop, handlers.CommandReset:
		case handlers.CommandRotate:
			if st.Heading == nil {
				return fmt.Errorf("%w: step %d: rotate needs a heading", ErrInvalidScenario, i)
			}
		case handlers.CommandTruckType:
			if st.Truck == "" {
				return fmt.Errorf("%w: step %d: truck-type needs a truck", ErrInvalidScenario, i)
			}
		case handlers.CommandClear:
		default:
			return fmt.Errorf("%w: step %d: unknown action %q", ErrInvalidScenario, i, st.Action)
		}
	}
	return nil
}

// CoreBuildings returns the buildings without ids, ready for a building store.
func (s *Scenario) CoreBuildings() []core.Building {
	out := make([]core.Building, 0, len(s.Buildings))
	for _, b := range s.Buildings {
		out = append(out, core.Building{Name: b.Name, Footprint: b.Footprint, BaseZ: b.BaseZ, Height: b.Height})
	}
	return out
}

// Events converts the steps into dispatcher events, in order. A scenario
// heading or truck becomes a leading rotate or truck-type event.
func (s *Scenario) Events() []dispatcher.Event {
	events := make([]dispatcher.Event, 0, len(s.Steps)+2)
	if s.Truck != "" {
		events = append(events, dispatcher.Event{Command: handlers.CommandTruckType, Args: []string{s.Truck}})
	}
	if s.Heading != nil {
		events = append(events, dispatcher.Event{Command: handlers.CommandRotate, Args: []string{formatFloat(*s.Heading)}})
	}
	for _, st := range s.Steps {
		events = append(events, st.event())
	}
	return events
}

func (st Step) event() dispatcher.Event {
	e := dispatcher.Event{Command: st.Action}
	switch st.Action {
	case handlers.CommandRotate:
		e.Args = []string{formatFloat(*st.Heading)}
	case handlers.CommandTruckType:
		e.Args = []string{st.Truck}
	case handlers.CommandClear:
	default:
		e.Args = []string{st.Location}
	}
	return e
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
