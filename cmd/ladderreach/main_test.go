package main

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/firereach/ladderreach/internal/config"
	"github.com/firereach/ladderreach/internal/logging"
	"github.com/firereach/ladderreach/internal/scenario"
	"github.com/firereach/ladderreach/internal/truck"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"run", "trucks"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Flags(t *testing.T) {
	assert.Equal(t, "ladderreach", rootCmd.Use)
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("config-dir"))
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("log-level"))
}

func TestRunCommand_Flags(t *testing.T) {
	require.NotNil(t, runCmd.Flags().Lookup("scenario"))

	flag := runCmd.Flags().Lookup("buildings")
	require.NotNil(t, flag)
	assert.Equal(t, "memory", flag.DefValue)
}

func TestFormatTrucks(t *testing.T) {
	var buf bytes.Buffer
	formatTrucks(&buf, truck.DefaultCatalog().All())

	out := buf.String()
	assert.Contains(t, out, "REACH (m)")
	assert.Contains(t, out, "Aerial_Ladder_Pumper")
	assert.Contains(t, out, "22.86")
	assert.Contains(t, out, "3-78")
}

func TestDefaultProfile(t *testing.T) {
	t.Cleanup(viper.Reset)
	config.LoadDefaults()
	c := truck.DefaultCatalog()

	p, err := defaultProfile(c)
	require.NoError(t, err)
	assert.Equal(t, c.Default(), p)

	viper.Set("trucks.default", "Aerial_Ladder")
	p, err = defaultProfile(c)
	require.NoError(t, err)
	assert.Equal(t, "Aerial_Ladder", p.ID)
}

func TestRunScenarioFile(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	config.LoadDefaults()
	viper.Set("logsDir", dir)
	viper.Set("storage.type", "memory")
	viper.Set("storage.memory.outputDir", dir)
	viper.Set("storage.memory.compressOutput", false)
	viper.Set("analysis.subdivisions", 2)

	slogManager = logging.NewSlogManager()
	slogManager.Setup(io.Discard, "error", nil)
	zlog = zerolog.Nop()
	runBuildings = "memory"

	sc, err := scenario.LoadFile("../../internal/scenario/testdata/corner.yaml")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var out bytes.Buffer
	require.NoError(t, runScenarioFile(ctx, sc, &out))

	printed := out.String()
	assert.Contains(t, printed, `scenario "corner lot": 2 buildings, 6 steps`)
	assert.Contains(t, printed, "committed results")
	assert.Contains(t, printed, "bin (")
	assert.Contains(t, printed, "statistics written to")
}
