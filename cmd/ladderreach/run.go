package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/firereach/ladderreach/internal/analysis"
	"github.com/firereach/ladderreach/internal/api"
	"github.com/firereach/ladderreach/internal/buildings"
	"github.com/firereach/ladderreach/internal/config"
	"github.com/firereach/ladderreach/internal/database"
	"github.com/firereach/ladderreach/internal/dispatcher"
	"github.com/firereach/ladderreach/internal/handlers"
	"github.com/firereach/ladderreach/internal/influx"
	"github.com/firereach/ladderreach/internal/logging"
	"github.com/firereach/ladderreach/internal/nearby"
	"github.com/firereach/ladderreach/internal/scenario"
	"github.com/firereach/ladderreach/internal/scene"
	"github.com/firereach/ladderreach/internal/session"
	"github.com/firereach/ladderreach/internal/stats"
	"github.com/firereach/ladderreach/internal/storage"
	"github.com/firereach/ladderreach/pkg/core"
	"github.com/spf13/cobra"
)

const interactionBuffer = 64

var (
	runScenario  string
	runBuildings string
	runStepDelay time.Duration
	runTimeout   time.Duration
)

// sessionInfo feeds the session and truck attributes of every log record.
type sessionInfo struct {
	mu    sync.RWMutex
	id    string
	truck func() string
}

var activeSession = &sessionInfo{}

func (s *sessionInfo) bind(id string, truck func() string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id, s.truck = id, truck
}

func (s *sessionInfo) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

func (s *sessionInfo) Truck() string {
	s.mu.RLock()
	truck := s.truck
	s.mu.RUnlock()
	if truck == nil {
		return ""
	}
	return truck()
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay a scenario through the analysis engine",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sc, err := scenario.LoadFile(runScenario)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
		defer cancel()
		return runScenarioFile(ctx, sc, cmd.OutOrStdout())
	},
}

func init() {
	runCmd.Flags().StringVar(&runScenario, "scenario", "", "scenario YAML file (required)")
	runCmd.Flags().StringVar(&runBuildings, "buildings", "memory", "building source: memory or database")
	runCmd.Flags().DurationVar(&runStepDelay, "step-delay", 0, "pause between interactions")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 2*time.Minute, "give up waiting for analysis after this long")
	_ = runCmd.MarkFlagRequired("scenario")
	rootCmd.AddCommand(runCmd)
}

// runScenarioFile wires the engine to its collaborators and outputs, replays
// sc and prints what was committed.
func runScenarioFile(ctx context.Context, sc *scenario.Scenario, out io.Writer) error {
	logger := slogManager.Logger()

	catalog, err := loadCatalog()
	if err != nil {
		return err
	}
	profile, err := defaultProfile(catalog)
	if err != nil {
		return err
	}

	backend, err := storage.NewBackend(config.GetStorageConfig(), config.GetDBConfig(), logger)
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	var meta api.UploadMetadata
	defer func() {
		closeBackend(backend, out, logger)
		uploadExport(ctx, backend, meta, out, logger)
	}()

	var metrics session.Metrics
	im := influx.NewManager(zlog, config.GetInfluxConfig(), dataPath("influx_backup.lp.gz"))
	switch err := im.Connect(ctx); {
	case errors.Is(err, influx.ErrDisabled):
	case err != nil:
		logger.Warn("InfluxDB output unavailable", "error", err)
	default:
		metrics = im
		defer func() {
			if err := im.Close(); err != nil {
				logger.Warn("failed to close InfluxDB output", "error", err)
			}
		}()
	}

	source, all, closeSource, err := loadBuildings(ctx, sc, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	ground := scene.FlatGround{Elevation: sc.Ground}
	raycaster, err := scene.NewRaycaster(all, scene.WithTerrain(ground), scene.WithLogger(logger))
	if err != nil {
		return err
	}

	layer := scene.NewLayer()
	graphics := session.Graphics{layer}
	if sink, ok := backend.(analysis.GraphicsSink); ok {
		graphics = append(graphics, sink)
	}

	var engine *analysis.Engine
	truckID := func() string { return engine.Profile().ID }
	agg := stats.New(&session.StatsSink{Sink: backend, Metrics: metrics, Truck: truckID}, logger)

	ac := config.GetAnalysisConfig()
	engine, err = analysis.New(profile, analysis.Config{
		Subdivisions:  ac.Subdivisions,
		PassTimeout:   ac.PassTimeout,
		MoveRate:      ac.MoveRate,
		FacingFilter:  ac.FacingFilter,
		JackSpreadArc: ac.JackSpreadArc,
	}, analysis.Deps{
		Buildings: source,
		Primitive: raycaster,
		Elevation: ground,
		Graphics:  graphics,
		Stats:     agg,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer engine.Close()
	activeSession.bind(agg.SessionID(), truckID)

	if err := backend.StartSession(&core.Session{ID: agg.SessionID(), TruckID: profile.ID, StartedAt: startTime}); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer func() {
		if err := backend.EndSession(); err != nil {
			logger.Warn("failed to end session", "error", err)
		}
	}()

	deps := session.Dependencies{
		SessionID: agg.SessionID(),
		Truck:     truckID,
		Store:     backend,
		Metrics:   metrics,
		Out:       out,
		Logger:    logger,
	}
	if pub, ok := backend.(session.Publisher); ok {
		deps.Publisher = pub
	}
	recorder := session.NewRecorder(deps)
	committed := make(chan int, 1)
	go func() { committed <- recorder.Consume(ctx, engine.Events()) }()

	d, err := dispatcher.New(logging.NewDispatcherLogger(zlog))
	if err != nil {
		return err
	}
	svc := handlers.NewService(handlers.Dependencies{Engine: engine, Catalog: catalog, Logger: logger})
	svc.Register(d, interactionBuffer)

	fmt.Fprintf(out, "scenario %q: %d buildings, %d steps, session %s\n", sc.Name, len(all), len(sc.Steps), agg.SessionID())
	for _, ev := range sc.Events() {
		if _, err := d.Dispatch(ev); err != nil {
			logger.Warn("interaction rejected", "command", ev.Command, "args", ev.Args, "error", err)
		}
		if runStepDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(runStepDelay):
			}
		}
	}

	// drains the interaction lane, so the last trigger has been handled
	d.Close()
	if last := svc.Last(); last != nil {
		if outcome, err := last.Wait(ctx); err != nil {
			logger.Warn("gave up waiting for the last pass", "error", err)
		} else if outcome.Err != nil {
			logger.Warn("last pass failed", "error", outcome.Err)
		}
	}
	engine.Wait()
	engine.Close()
	n := <-committed

	printSummary(out, n, agg, config.GetStatsConfig().BinSize)
	meta = api.UploadMetadata{
		SessionID:  agg.SessionID(),
		TruckID:    engine.Profile().ID,
		Committed:  n,
		Statistics: len(agg.Statistics()),
	}
	return nil
}

// uploadExport sends the session export to the statistics web service when
// one is configured and the backend wrote a file.
func uploadExport(ctx context.Context, b storage.Backend, meta api.UploadMetadata, out io.Writer, logger *slog.Logger) {
	cfg := config.GetUploadConfig()
	ex, ok := b.(storage.Exporter)
	if !cfg.Enabled || !ok || ex.ExportedFilePath() == "" || meta.SessionID == "" {
		return
	}
	client := api.New(cfg.URL, cfg.APIKey)
	if err := client.Healthcheck(ctx); err != nil {
		logger.Warn("statistics service unreachable, export kept locally", "error", err)
		return
	}
	if err := client.Upload(ctx, ex.ExportedFilePath(), meta); err != nil {
		logger.Warn("failed to upload session export", "file", ex.ExportedFilePath(), "error", err)
		return
	}
	fmt.Fprintf(out, "uploaded %s to %s\n", ex.ExportedFilePath(), cfg.URL)
}

// loadBuildings puts the scenario buildings into the selected source and
// returns them with their assigned ids.
func loadBuildings(ctx context.Context, sc *scenario.Scenario, logger *slog.Logger) (nearby.BuildingSource, []core.Building, func(), error) {
	switch runBuildings {
	case "memory", "":
		m, err := buildings.NewMemory(sc.CoreBuildings()...)
		if err != nil {
			return nil, nil, nil, err
		}
		all, err := m.All(ctx)
		return m, all, func() {}, err
	case "database":
		dm := database.NewManager(zlog)
		if err := dm.Connect(config.GetDBConfig(), ""); err != nil {
			return nil, nil, nil, err
		}
		if err := dm.Setup(); err != nil {
			_ = dm.Close()
			return nil, nil, nil, err
		}
		store := buildings.NewStore(dm.DB, logger)
		if _, err := store.Insert(ctx, sc.CoreBuildings()...); err != nil {
			_ = dm.Close()
			return nil, nil, nil, err
		}
		all, err := store.All(ctx)
		if err != nil {
			_ = dm.Close()
			return nil, nil, nil, err
		}
		return store, all, func() { _ = dm.Close() }, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown building source: %s", runBuildings)
	}
}

func closeBackend(b storage.Backend, out io.Writer, logger *slog.Logger) {
	if err := b.Close(); err != nil {
		logger.Warn("failed to close storage", "error", err)
	}
	if ex, ok := b.(storage.Exporter); ok && ex.ExportedFilePath() != "" {
		fmt.Fprintf(out, "statistics written to %s\n", ex.ExportedFilePath())
	}
}

func printSummary(out io.Writer, committed int, agg *stats.Aggregator, binSize float64) {
	fmt.Fprintf(out, "%d committed results, %d statistics\n", committed, len(agg.Statistics()))
	if binSize <= 0 {
		binSize = stats.DefaultBinSize
	}
	for _, b := range agg.Bins(binSize) {
		fmt.Fprintf(out, "bin (%d,%d) centre (%.1f, %.1f): %d placements, avg visible %.1f\n",
			b.Col, b.Row, b.Center.X, b.Center.Y, b.Count, b.AverageVisibility)
	}
}
