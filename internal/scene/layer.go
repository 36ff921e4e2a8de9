package scene

import (
	"context"
	"slices"
	"sync"

	"github.com/firereach/ladderreach/pkg/core"
)

// Layer is an in-memory graphics sink, grouped by style role.
type Layer struct {
	mu       sync.RWMutex
	graphics map[core.StyleRole][]core.Graphic
}

// NewLayer creates an empty layer.
func NewLayer() *Layer {
	return &Layer{graphics: make(map[core.StyleRole][]core.Graphic)}
}

func (l *Layer) Add(_ context.Context, graphics ...core.Graphic) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, g := range graphics {
		l.graphics[g.Role] = append(l.graphics[g.Role], g)
	}
	return nil
}

func (l *Layer) RemoveAll(_ context.Context, roles ...core.StyleRole) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range roles {
		delete(l.graphics, r)
	}
	return nil
}

// Graphics returns a copy of the graphics drawn with role.
func (l *Layer) Graphics(role core.StyleRole) []core.Graphic {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.graphics[role])
}

// Count returns how many graphics are drawn with role.
func (l *Layer) Count(role core.StyleRole) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.graphics[role])
}

// Len returns the total number of graphics.
func (l *Layer) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, gs := range l.graphics {
		n += len(gs)
	}
	return n
}
