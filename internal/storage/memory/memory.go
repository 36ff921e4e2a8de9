// Package memory keeps session data in memory and exports it to JSON when the
// session ends.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/firereach/ladderreach/internal/config"
	"github.com/firereach/ladderreach/pkg/core"
)

var errNoSession = errors.New("no session started")

// Backend stores session data in memory and exports to JSON
type Backend struct {
	cfg     config.MemoryConfig
	session *core.Session

	statistics []core.VisibilityStatistic
	results    []core.AnalysisResult

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session
func (b *Backend) StartSession(session *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = session
	b.statistics = nil
	b.results = nil
	b.lastExportPath = ""
	return nil
}

// EndSession writes the session export and forgets the session
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return errNoSession
	}
	if err := b.exportJSON(); err != nil {
		return err
	}
	b.session = nil
	return nil
}

// AddStatistic appends a statistic
func (b *Backend) AddStatistic(_ context.Context, stat *core.VisibilityStatistic) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.statistics = append(b.statistics, *stat)
	return nil
}

// ClearStatistics drops every statistic of the session
func (b *Backend) ClearStatistics(_ context.Context, sessionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.statistics[:0]
	for _, s := range b.statistics {
		if s.SessionID != sessionID {
			kept = append(kept, s)
		}
	}
	b.statistics = kept
	return nil
}

// RecordResult appends a committed result
func (b *Backend) RecordResult(_ context.Context, result *core.AnalysisResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.results = append(b.results, *result)
	return nil
}

// Statistics returns a copy of the stored statistics
func (b *Backend) Statistics() []core.VisibilityStatistic {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]core.VisibilityStatistic, len(b.statistics))
	copy(out, b.statistics)
	return out
}

// Results returns a copy of the stored results
func (b *Backend) Results() []core.AnalysisResult {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]core.AnalysisResult, len(b.results))
	copy(out, b.results)
	return out
}

// ExportedFilePath returns the file written by the last EndSession
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
