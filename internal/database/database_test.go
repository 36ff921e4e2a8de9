package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/firereach/ladderreach/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSqlite_InMemoryIsPrivate(t *testing.T) {
	a, err := OpenSqlite("")
	require.NoError(t, err)
	b, err := OpenSqlite("")
	require.NoError(t, err)

	require.NoError(t, Migrate(a))
	assert.True(t, a.Migrator().HasTable(&model.Statistic{}))
	assert.False(t, b.Migrator().HasTable(&model.Statistic{}))
}

func TestMigrate_CreatesAllTables(t *testing.T) {
	db, err := OpenSqlite("")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, m := range model.DatabaseModels {
		assert.True(t, db.Migrator().HasTable(m))
	}
}

func TestDumpMemoryDBToDisk(t *testing.T) {
	db, err := OpenSqlite("")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	require.NoError(t, db.Create(&model.Statistic{ID: 1, SessionID: "s", VisibleCount: 3}).Error)

	path := filepath.Join(t.TempDir(), "dump.db")
	// an existing file is replaced
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	_, err = DumpMemoryDBToDisk(db, path)
	require.NoError(t, err)

	disk, err := OpenSqlite(path)
	require.NoError(t, err)
	var count int64
	require.NoError(t, disk.Model(&model.Statistic{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDumpMemoryDBToDisk_NoPath(t *testing.T) {
	db, err := OpenSqlite("")
	require.NoError(t, err)
	_, err = DumpMemoryDBToDisk(db, "")
	assert.Error(t, err)
}
