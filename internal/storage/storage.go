// Package storage defines where session statistics and committed results go.
package storage

import (
	"context"

	"github.com/firereach/ladderreach/pkg/core"
)

// Backend is the interface all storage implementations must satisfy.
// AddStatistic and ClearStatistics make every Backend a stats.Sink.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(session *core.Session) error
	EndSession() error

	// Statistics
	AddStatistic(ctx context.Context, stat *core.VisibilityStatistic) error
	ClearStatistics(ctx context.Context, sessionID string) error

	// Committed analysis results
	RecordResult(ctx context.Context, result *core.AnalysisResult) error
}

// Exporter is an optional interface for backends that write a snapshot file
// when the session ends.
type Exporter interface {
	ExportedFilePath() string
}
