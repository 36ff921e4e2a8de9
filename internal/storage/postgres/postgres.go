// Package postgres implements the storage.Backend interface using GORM/PostgreSQL.
// The connection is opened in Init so a missing server fails at startup, not
// at the first write.
package postgres

import (
	"fmt"
	"log/slog"

	"github.com/firereach/ladderreach/internal/config"
	"github.com/firereach/ladderreach/internal/database"
	gormstorage "github.com/firereach/ladderreach/internal/storage/gorm"

	"gorm.io/gorm"
)

const maxOpenConns = 10

// Backend is the GORM backend connected to Postgres.
type Backend struct {
	*gormstorage.Backend
}

// New creates a Postgres backend for cfg. Nothing is dialled until Init.
func New(cfg config.DBConfig, logger *slog.Logger) *Backend {
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			Connect: func() (*gorm.DB, error) { return connect(cfg) },
			Logger:  logger,
		}),
	}
}

func connect(cfg config.DBConfig) (*gorm.DB, error) {
	db, err := database.OpenPostgres(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	return db, nil
}
