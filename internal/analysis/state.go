package analysis

import (
	"context"
	"sync"

	"github.com/firereach/ladderreach/pkg/core"
)

// State is the interaction phase of the engine.
type State int

const (
	// StateIdle means no truck is placed.
	StateIdle State = iota
	// StateActivePending means the truck is being dragged; results are previews.
	StateActivePending
	// StateSettling means the truck came to rest and its pass is in flight.
	StateSettling
	// StateFinalized means the latest rest pass has been committed.
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActivePending:
		return "active-pending"
	case StateSettling:
		return "settling"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Outcome is how a triggered pass ended.
type Outcome struct {
	// Committed is set when the pass became the displayed result.
	Committed bool
	// Preview is set for drag passes that were still latest on completion.
	Preview bool
	// Superseded is set when a later trigger or a cleared observer won.
	Superseded bool
	// Result is shared with the emitted event and must not be modified.
	Result *core.AnalysisResult
	Err    error
}

// Pending tracks one triggered pass.
type Pending struct {
	done    chan struct{}
	once    sync.Once
	outcome Outcome
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func resolved(o Outcome) *Pending {
	p := newPending()
	p.resolve(o)
	return p
}

func (p *Pending) resolve(o Outcome) {
	p.once.Do(func() {
		p.outcome = o
		close(p.done)
	})
}

// Done is closed once the pass has an outcome.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Outcome blocks until the pass finishes.
func (p *Pending) Outcome() Outcome {
	<-p.done
	return p.outcome
}

// Wait is Outcome bounded by ctx.
func (p *Pending) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-p.done:
		return p.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}
