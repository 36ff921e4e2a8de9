// Package gormstorage implements storage.Backend on top of GORM, with
// statistics and results batched through queues and written by a background
// goroutine.
package gormstorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/firereach/ladderreach/internal/database"
	"github.com/firereach/ladderreach/internal/model"
	"github.com/firereach/ladderreach/internal/model/convert"
	"github.com/firereach/ladderreach/internal/queue"
	"github.com/firereach/ladderreach/pkg/core"
	"gorm.io/gorm"
)

const batchSize = 500

// Dependencies holds all dependencies for the GORM storage backend. When DB
// is nil, Init calls Connect to obtain one.
type Dependencies struct {
	DB      *gorm.DB
	Connect func() (*gorm.DB, error)
	Logger  *slog.Logger
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps Dependencies
	log  *slog.Logger

	statistics *queue.Queue[model.Statistic]
	results    *queue.Queue[model.Result]

	mu      sync.Mutex
	session *model.Session

	flushMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Backend{
		deps:       deps,
		log:        log,
		statistics: queue.New[model.Statistic](),
		results:    queue.New[model.Result](),
	}
}

// DB returns the underlying connection, nil before Init.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init connects if needed, migrates the schema and starts the writer.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		if b.deps.Connect == nil {
			return errors.New("gorm backend has no database")
		}
		db, err := b.deps.Connect()
		if err != nil {
			return err
		}
		b.deps.DB = db
	}

	b.log.Info("Migrating schema", "dialect", b.deps.DB.Name())
	if err := database.Migrate(b.deps.DB); err != nil {
		return err
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writeLoop()
	return nil
}

// Close stops the writer after a final flush.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	close(b.stopChan)
	<-b.done
	b.stopChan = nil
	return nil
}

func (b *Backend) writeLoop() {
	defer close(b.done)
	for {
		select {
		case <-b.stopChan:
			if err := b.Flush(); err != nil {
				b.log.Error("Final flush failed", "error", err)
			}
			return
		case <-b.statistics.Ready():
		case <-b.results.Ready():
		}
		if err := b.Flush(); err != nil {
			b.log.Error("Flush failed", "error", err)
		}
	}
}

// Flush writes every queued row.
func (b *Backend) Flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	var errs []error
	if rows := b.statistics.Drain(); len(rows) > 0 {
		start := time.Now()
		if err := b.deps.DB.CreateInBatches(rows, batchSize).Error; err != nil {
			errs = append(errs, fmt.Errorf("failed to write %d statistics: %w", len(rows), err))
		} else {
			b.log.Debug("Wrote statistics", "count", len(rows), "duration", time.Since(start))
		}
	}
	if rows := b.results.Drain(); len(rows) > 0 {
		start := time.Now()
		if err := b.deps.DB.CreateInBatches(rows, batchSize).Error; err != nil {
			errs = append(errs, fmt.Errorf("failed to write %d results: %w", len(rows), err))
		} else {
			b.log.Debug("Wrote results", "count", len(rows), "duration", time.Since(start))
		}
	}
	return errors.Join(errs...)
}

// StartSession inserts the session row.
func (b *Backend) StartSession(session *core.Session) error {
	row := &model.Session{
		SessionID: session.ID,
		TruckID:   session.TruckID,
		StartedAt: session.StartedAt,
	}
	if err := b.deps.DB.Create(row).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	b.mu.Lock()
	b.session = row
	b.mu.Unlock()
	return nil
}

// EndSession flushes queued rows and stamps the session end time.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	session := b.session
	b.session = nil
	b.mu.Unlock()

	if err := b.Flush(); err != nil {
		return err
	}
	if session == nil {
		return nil
	}
	ended := sql.NullTime{Time: time.Now(), Valid: true}
	if err := b.deps.DB.Model(session).Update("ended_at", ended).Error; err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	return nil
}

// AddStatistic queues a statistic for the writer.
func (b *Backend) AddStatistic(_ context.Context, stat *core.VisibilityStatistic) error {
	b.statistics.Push(convert.CoreToStatistic(*stat))
	return nil
}

// ClearStatistics deletes every statistic of the session, including ones
// still queued.
func (b *Backend) ClearStatistics(ctx context.Context, sessionID string) error {
	if err := b.Flush(); err != nil {
		return err
	}
	err := b.deps.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&model.Statistic{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear statistics: %w", err)
	}
	return nil
}

// RecordResult queues a committed result for the writer.
func (b *Backend) RecordResult(_ context.Context, result *core.AnalysisResult) error {
	b.mu.Lock()
	var sessionID string
	if b.session != nil {
		sessionID = b.session.SessionID
	}
	b.mu.Unlock()

	b.results.Push(convert.CoreToResult(sessionID, *result))
	return nil
}

// LoadStatistics returns the stored statistics of a session in id order.
func (b *Backend) LoadStatistics(ctx context.Context, sessionID string) ([]core.VisibilityStatistic, error) {
	if err := b.Flush(); err != nil {
		return nil, err
	}
	var rows []model.Statistic
	err := b.deps.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load statistics: %w", err)
	}
	out := make([]core.VisibilityStatistic, 0, len(rows))
	for _, r := range rows {
		out = append(out, convert.StatisticToCore(r))
	}
	return out, nil
}

// LoadResults returns the stored results of a session in commit order.
func (b *Backend) LoadResults(ctx context.Context, sessionID string) ([]core.AnalysisResult, error) {
	if err := b.Flush(); err != nil {
		return nil, err
	}
	var rows []model.Result
	err := b.deps.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("sequence_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load results: %w", err)
	}
	out := make([]core.AnalysisResult, 0, len(rows))
	for _, r := range rows {
		res, err := convert.ResultToCore(r)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}
