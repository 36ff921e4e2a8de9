package buildings

import (
	"context"
	"testing"

	"github.com/firereach/ladderreach/internal/database"
	"github.com/firereach/ladderreach/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBuildings = []core.Building{
	{Name: "near", Footprint: "POLYGON((10 -5,20 -5,20 5,10 5,10 -5))", Height: 12},
	{Name: "edge", Footprint: "POLYGON((0 30,5 30,5 35,0 35,0 30))", Height: 8},
	{Name: "far", Footprint: "POLYGON((500 500,510 500,510 510,500 510,500 500))", Height: 30},
}

func TestMemory_QueryNearby(t *testing.T) {
	m, err := NewMemory(testBuildings...)
	require.NoError(t, err)

	got, err := m.QueryNearby(context.Background(), core.Position3D{}, 30)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = m.QueryNearby(context.Background(), core.Position3D{}, 29)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = m.QueryNearby(context.Background(), core.Position3D{X: 505, Y: 505}, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1, "center inside footprint")
}

func TestMemory_AssignsIDs(t *testing.T) {
	m, err := NewMemory()
	require.NoError(t, err)

	a, err := m.Add(core.Building{ID: 7, Footprint: testBuildings[0].Footprint})
	require.NoError(t, err)
	b, err := m.Add(core.Building{Footprint: "[[0,0],[1,0],[1,1]]"})
	require.NoError(t, err)
	assert.Equal(t, uint(7), a.ID)
	assert.Equal(t, uint(8), b.ID)
	assert.Contains(t, b.Footprint, "POLYGON")

	all, err := m.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemory_RejectsBadFootprint(t *testing.T) {
	_, err := NewMemory(core.Building{Name: "line", Footprint: "LINESTRING(0 0,1 1)"})
	assert.Error(t, err)
}

func TestMemory_CancelledContext(t *testing.T) {
	m, err := NewMemory(testBuildings...)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.QueryNearby(ctx, core.Position3D{}, 30)
	assert.ErrorIs(t, err, context.Canceled)
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.OpenSqlite("")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewStore(db, nil)
}

func TestStore_InsertAndQuery(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	inserted, err := s.Insert(ctx, testBuildings...)
	require.NoError(t, err)
	require.Len(t, inserted, 3)
	assert.NotZero(t, inserted[0].ID)

	got, err := s.QueryNearby(ctx, core.Position3D{}, 30)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.QueryNearby(ctx, core.Position3D{}, 29)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = s.QueryNearby(ctx, core.Position3D{X: 1000, Y: 1000}, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_All(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, err := s.Insert(ctx, testBuildings...)
	require.NoError(t, err)

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "near", all[0].Name)
	assert.Equal(t, 12.0, all[0].Height)
	assert.Contains(t, all[0].Footprint, "POLYGON")
}

func TestStore_InsertRejectsBadFootprint(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Insert(context.Background(), core.Building{Name: "bad", Footprint: "nope"})
	assert.Error(t, err)
}
