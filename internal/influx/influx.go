// Package influx writes committed analysis results as InfluxDB points, or
// to a gzipped line protocol backup when the server is unavailable.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/firereach/ladderreach/internal/config"
	"github.com/firereach/ladderreach/pkg/core"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
)

// Measurements written by the manager.
const (
	MeasurementPass       = "analysis_pass"
	MeasurementStatistic  = "visibility_statistic"
	retentionDays         = 90
	defaultBackupFileName = "influx_backup.lp.gz"
)

// ErrDisabled is returned by Connect when InfluxDB output is switched off.
var ErrDisabled = errors.New("influx output disabled")

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writer       influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	Logger       zerolog.Logger
	BackupPath   string

	cfg        config.InfluxConfig
	backupFile *os.File
	mu         sync.Mutex
}

// NewManager creates a new InfluxDB manager. An empty backupPath puts the
// backup file in the working directory.
func NewManager(log zerolog.Logger, cfg config.InfluxConfig, backupPath string) *Manager {
	if backupPath == "" {
		backupPath = defaultBackupFileName
	}
	return &Manager{
		Logger:     log,
		BackupPath: backupPath,
		cfg:        cfg,
	}
}

// Connect establishes a connection to InfluxDB. When the server does not
// answer, points go to the backup file instead.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.Client = influxdb2.NewClientWithOptions(
		m.cfg.URL(),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	running, err := m.Client.Ping(ctx)
	if err != nil || !running {
		m.IsValid = false
		m.Logger.Info().Str("backupPath", m.BackupPath).
			Msg("Failed to initialize InfluxDB client, writing to backup file")
		return m.openBackup()
	}

	if err := m.setupOrganizationAndBucket(ctx); err != nil {
		return err
	}
	m.createWriter()
	m.IsValid = true
	m.Logger.Info().Str("bucket", m.cfg.Bucket).Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	if m.BackupWriter != nil {
		return nil
	}
	if dir := filepath.Dir(m.BackupPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating backup directory: %w", err)
		}
	}
	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBucket(ctx context.Context) error {
	orgName := m.cfg.Org

	// ensure org exists
	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		influxOrg, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	if _, err = m.Client.BucketsAPI().FindBucketByName(ctx, m.cfg.Bucket); err == nil {
		return nil
	}
	m.Logger.Info().Str("bucket", m.cfg.Bucket).Msg("Bucket not found, creating")

	rule := domain.RetentionRuleTypeExpire
	_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, m.cfg.Bucket, domain.RetentionRule{
		Type:         &rule,
		EverySeconds: 60 * 60 * 24 * retentionDays,
	})
	if err != nil {
		m.Logger.Error().Err(err).Str("bucket", m.cfg.Bucket).Msg("Error creating bucket")
		return err
	}
	return nil
}

func (m *Manager) createWriter() {
	m.Writer = m.Client.WriteAPI(m.cfg.Org, m.cfg.Bucket)

	go func(errorsCh <-chan error) {
		for writeErr := range errorsCh {
			m.Logger.Error().Err(writeErr).Str("bucket", m.cfg.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}(m.Writer.Errors())

	m.Logger.Debug().Str("bucket", m.cfg.Bucket).Msg("InfluxDB writer created")
}

// WritePoint writes a point to InfluxDB or backup file.
func (m *Manager) WritePoint(point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.IsValid {
		m.Writer.WritePoint(point)
		return nil
	}
	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if !strings.HasSuffix(lineProtocol, "\n") {
		lineProtocol += "\n"
	}
	if _, err := m.BackupWriter.Write([]byte(lineProtocol)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// RecordResult writes one committed pass.
func (m *Manager) RecordResult(_ context.Context, sessionID, truckID string, r *core.AnalysisResult) error {
	return m.WritePoint(ResultPoint(sessionID, truckID, r))
}

// AddStatistic writes one visibility statistic.
func (m *Manager) AddStatistic(_ context.Context, truckID string, s *core.VisibilityStatistic) error {
	return m.WritePoint(StatisticPoint(truckID, s))
}

// Close flushes pending points and releases the client and backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	if m.Writer != nil {
		m.Writer.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}
	if m.BackupWriter != nil {
		errs = append(errs, m.BackupWriter.Close())
		m.BackupWriter = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	m.IsValid = false
	return errors.Join(errs...)
}

// ResultPoint converts a committed pass into a point.
func ResultPoint(sessionID, truckID string, r *core.AnalysisResult) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement(MeasurementPass).
		AddTag("session", sessionID).
		AddTag("truck", truckID).
		AddTag("action", string(r.Action)).
		AddField("sequence_id", int64(r.SequenceID)).
		AddField("x", r.Location.X).
		AddField("y", r.Location.Y).
		AddField("z", r.Location.Z).
		AddField("targets", r.TargetCount).
		AddField("valid", r.ValidResultsCount).
		AddField("visible", r.VisibleCount).
		AddField("obstructed", r.ObstructedCount).
		AddField("coverage", r.Coverage()).
		AddField("timed_out", r.TimedOut).
		SetTime(r.Time)
	return p.SortTags().SortFields()
}

// StatisticPoint converts a visibility statistic into a point.
func StatisticPoint(truckID string, s *core.VisibilityStatistic) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(MeasurementStatistic).
		AddTag("session", s.SessionID).
		AddTag("truck", truckID).
		AddField("id", int64(s.ID)).
		AddField("x", s.Location.X).
		AddField("y", s.Location.Y).
		AddField("visible", s.VisibleCount).
		SetTime(s.Time).
		SortTags().
		SortFields()
}
