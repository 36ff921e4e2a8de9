package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/firereach/ladderreach/internal/config"
	"github.com/firereach/ladderreach/internal/logging"
	intOtel "github.com/firereach/ladderreach/internal/otel"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

const appName = "ladderreach"

// Version is set at build time.
var Version = "dev"

var (
	configDir string
	logLevel  string
	logToFile bool

	slogManager  *logging.SlogManager
	zlog         zerolog.Logger
	otelProvider *intOtel.Provider
	logFile      *os.File
	startTime    time.Time
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Aerial ladder reach analysis",
	Long: "Places a fire truck among buildings and works out which building surfaces " +
		"its aerial ladder can reach, replaying scripted drag, drop and rotate interactions.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		startTime = time.Now()
		if err := config.Load(configDir); err != nil {
			// defaults are already installed
			fmt.Fprintf(cmd.ErrOrStderr(), "no config in %s, using defaults\n", configDir)
		}
		return initLogging()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		shutdownLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory containing "+config.FileName)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&logToFile, "log-file", false, "write logs to a file under logsDir instead of stderr")
	rootCmd.Version = Version
}

// initLogging builds the slog and zerolog loggers: text to stderr or the
// log file, plus Graylog and OTel when configured.
func initLogging() error {
	if logLevel != "" {
		viper.Set("logLevel", logLevel)
	}
	level := config.GetString("logLevel")

	out := os.Stderr
	if logToFile {
		logsDir := config.GetString("logsDir")
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return fmt.Errorf("create logs directory: %w", err)
		}
		f, err := os.OpenFile(logging.LogFilePath(logsDir, appName, startTime), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logFile = f
		out = f
	}
	zlog = logging.NewZerolog(out, level)

	otelCfg := config.GetOTelConfig()
	var err error
	otelProvider, err = intOtel.New(intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		Version:      Version,
		BatchTimeout: otelCfg.BatchTimeout,
		LogWriter:    out,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	})
	if err != nil {
		return fmt.Errorf("init otel: %w", err)
	}
	var provider *sdklog.LoggerProvider
	if otelProvider.Enabled() {
		provider = otelProvider.LoggerProvider()
	}

	opts := []logging.SetupOption{
		logging.WithSession(activeSession.ID, activeSession.Truck),
	}
	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := logging.NewGraylogWriter(gl.Address)
		if err != nil {
			zlog.Warn().Err(err).Str("address", gl.Address).Msg("Graylog output disabled")
		} else {
			opts = append(opts, logging.WithGraylog(w))
		}
	}

	slogManager = logging.NewSlogManager()
	slogManager.Setup(out, level, provider, opts...)
	return nil
}

func shutdownLogging() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if slogManager != nil {
		_ = slogManager.Flush(ctx)
	}
	if otelProvider != nil {
		_ = otelProvider.Shutdown(ctx)
	}
	if logFile != nil {
		_ = logFile.Close()
	}
}

// dataPath places a runtime file next to the logs.
func dataPath(name string) string {
	return filepath.Join(config.GetString("logsDir"), name)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
