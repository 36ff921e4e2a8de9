package sqlitestorage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/firereach/ladderreach/internal/config"
	"github.com/firereach/ladderreach/internal/database"
	"github.com/firereach/ladderreach/internal/model"
	"github.com/firereach/ladderreach/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClose_WritesFinalDump(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "stats.db")

	b, err := New(config.SQLiteConfig{DumpPath: path}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	require.NoError(t, b.StartSession(&core.Session{ID: "s1", TruckID: "t", StartedAt: time.Now()}))
	require.NoError(t, b.AddStatistic(ctx, &core.VisibilityStatistic{ID: 1, SessionID: "s1", VisibleCount: 12}))
	require.NoError(t, b.Close())

	disk, err := database.OpenSqlite(path)
	require.NoError(t, err)
	var rows []model.Statistic
	require.NoError(t, disk.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 12, rows[0].VisibleCount)
}

func TestDumpLoop_Periodic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "periodic.db")

	b, err := New(config.SQLiteConfig{DumpPath: path, DumpInterval: 20 * time.Millisecond}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNoDumpPath(t *testing.T) {
	b, err := New(config.SQLiteConfig{}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Init())
	assert.NoError(t, b.Close())
}
