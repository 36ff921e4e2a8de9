// Package handlers turns interaction events into engine calls.
package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/firereach/ladderreach/internal/analysis"
	"github.com/firereach/ladderreach/internal/dispatcher"
	"github.com/firereach/ladderreach/internal/geo"
	"github.com/firereach/ladderreach/pkg/core"
)

// Interaction commands.
const (
	CommandMoveStart = string(core.ActionMoveStart)
	CommandMove      = string(core.ActionMove)
	CommandMoveStop  = string(core.ActionMoveStop)
	CommandReset     = string(core.ActionReset)
	CommandRotate    = "rotate"
	CommandTruckType = "truck-type"
	CommandClear     = "clear"
)

// InteractionLane is the dispatcher lane every interaction shares, so the
// engine sees them in the order they happened.
const InteractionLane = "interaction"

// ErrMissingArgument is returned when an event lacks its argument.
var ErrMissingArgument = errors.New("missing argument")

// Engine is the part of the analysis engine driven by interactions.
type Engine interface {
	SetLocation(location *core.Position3D, action core.Action) *analysis.Pending
	SetHeading(heading float64)
	SetProfile(profile core.TruckProfile) *analysis.Pending
	ClearResults() error
}

// Catalog resolves truck type ids.
type Catalog interface {
	Get(id string) (core.TruckProfile, error)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Engine  Engine
	Catalog Catalog
	Logger  *slog.Logger
}

// Service provides the interaction handlers.
type Service struct {
	deps   Dependencies
	logger *slog.Logger

	mu   sync.Mutex
	last *analysis.Pending
}

// NewService creates a new handler service
func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{deps: deps, logger: logger}
}

// Register adds every interaction handler to d on the shared interaction
// lane. Events are never dropped; a full lane blocks the caller.
func (s *Service) Register(d *dispatcher.Dispatcher, bufferSize int) {
	opts := []dispatcher.Option{
		dispatcher.Buffered(bufferSize),
		dispatcher.Lane(InteractionLane),
		dispatcher.Blocking(),
		dispatcher.Logged(),
	}
	for _, action := range []core.Action{core.ActionMoveStart, core.ActionMove, core.ActionMoveStop, core.ActionReset} {
		d.Register(string(action), s.handleLocation(action), opts...)
	}
	d.Register(CommandRotate, s.HandleRotate, opts...)
	d.Register(CommandTruckType, s.HandleTruckType, opts...)
	d.Register(CommandClear, s.HandleClear, opts...)
}

// Last returns the handle of the most recently triggered pass, or nil.
func (s *Service) Last() *analysis.Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Service) track(p *analysis.Pending) *analysis.Pending {
	s.mu.Lock()
	s.last = p
	s.mu.Unlock()
	return p
}

func (s *Service) handleLocation(action core.Action) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		return s.HandleLocation(action, e)
	}
}

// HandleLocation moves the truck to Args[0] ("x,y" or "x,y,z"). An empty or
// "null" argument removes the truck.
func (s *Service) HandleLocation(action core.Action, e dispatcher.Event) (any, error) {
	location, err := parseLocation(e.Args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	p := s.track(s.deps.Engine.SetLocation(location, action))
	return p, nil
}

// HandleRotate sets the truck heading to Args[0] degrees.
func (s *Service) HandleRotate(e dispatcher.Event) (any, error) {
	if len(e.Args) == 0 {
		return nil, fmt.Errorf("%s: %w", CommandRotate, ErrMissingArgument)
	}
	heading, err := strconv.ParseFloat(strings.TrimSpace(e.Args[0]), 64)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid heading %q: %w", CommandRotate, e.Args[0], err)
	}
	s.deps.Engine.SetHeading(heading)
	return nil, nil
}

// HandleTruckType switches to the catalog profile named by Args[0].
func (s *Service) HandleTruckType(e dispatcher.Event) (any, error) {
	if len(e.Args) == 0 {
		return nil, fmt.Errorf("%s: %w", CommandTruckType, ErrMissingArgument)
	}
	profile, err := s.deps.Catalog.Get(strings.TrimSpace(e.Args[0]))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", CommandTruckType, err)
	}
	s.logger.Info("Truck type selected", "truck", profile.ID)
	return s.track(s.deps.Engine.SetProfile(profile)), nil
}

// HandleClear removes the truck and every result.
func (s *Service) HandleClear(dispatcher.Event) (any, error) {
	if err := s.deps.Engine.ClearResults(); err != nil {
		return nil, fmt.Errorf("%s: %w", CommandClear, err)
	}
	return nil, nil
}

// parseLocation rejects malformed text only. NaN and out-of-scene values
// reach the engine, which treats them as no truck.
func parseLocation(args []string) (*core.Position3D, error) {
	if len(args) == 0 {
		return nil, nil
	}
	raw := strings.TrimSpace(args[0])
	if raw == "" || raw == "null" {
		return nil, nil
	}
	p, err := geo.Position3DFromString(raw)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
