package buildings

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firereach/ladderreach/internal/model"
	"github.com/firereach/ladderreach/internal/model/convert"
	"github.com/firereach/ladderreach/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/gorm"
)

const insertBatchSize = 500

// Store keeps buildings in a SQL database. Footprints are prefiltered by
// their indexed bounding box in SQL and checked exactly in Go.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewStore creates a Store on a migrated database.
func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Insert saves buildings. IDs assigned by the database are written back.
func (s *Store) Insert(ctx context.Context, buildings ...core.Building) ([]core.Building, error) {
	if len(buildings) == 0 {
		return nil, nil
	}
	rows := make([]model.Building, 0, len(buildings))
	for _, b := range buildings {
		row, err := convert.CoreToBuilding(b)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&rows, insertBatchSize).Error; err != nil {
		return nil, fmt.Errorf("failed to insert buildings: %w", err)
	}

	out := make([]core.Building, len(rows))
	for i, row := range rows {
		b := buildings[i]
		b.ID = row.ID
		out[i] = b
	}
	s.logger.Debug("Inserted buildings", "count", len(rows))
	return out, nil
}

// All returns every stored building ordered by ID.
func (s *Store) All(ctx context.Context) ([]core.Building, error) {
	var rows []model.Building
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load buildings: %w", err)
	}
	out := make([]core.Building, 0, len(rows))
	for _, row := range rows {
		b, err := convert.BuildingToCore(row)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// QueryNearby returns the footprints within radius metres of center.
func (s *Store) QueryNearby(ctx context.Context, center core.Position3D, radius float64) ([]geom.Geometry, error) {
	r := radiusUnits(center, radius)

	var rows []model.Building
	err := s.db.WithContext(ctx).
		Where("max_x >= ? AND min_x <= ? AND max_y >= ? AND min_y <= ?",
			center.X-r, center.X+r, center.Y-r, center.Y+r).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query buildings: %w", err)
	}

	var out []geom.Geometry
	for _, row := range rows {
		g, err := convert.BuildingGeometry(row)
		if err != nil {
			s.logger.Warn("Skipping unreadable building footprint", "id", row.ID, "error", err)
			continue
		}
		if within(center, r, g) {
			out = append(out, g)
		}
	}
	return out, nil
}
