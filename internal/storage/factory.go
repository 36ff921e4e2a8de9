package storage

import (
	"fmt"
	"log/slog"

	"github.com/firereach/ladderreach/internal/config"
	"github.com/firereach/ladderreach/internal/storage/memory"
	"github.com/firereach/ladderreach/internal/storage/postgres"
	sqlitestorage "github.com/firereach/ladderreach/internal/storage/sqlite"
	"github.com/firereach/ladderreach/internal/storage/websocket"
)

var (
	_ Backend  = (*memory.Backend)(nil)
	_ Exporter = (*memory.Backend)(nil)
	_ Backend  = (*sqlitestorage.Backend)(nil)
	_ Backend  = (*postgres.Backend)(nil)
	_ Backend  = (*websocket.Backend)(nil)
)

// NewBackend creates a storage backend based on configuration. The backend
// is not initialized; callers run Init before use.
func NewBackend(cfg config.StorageConfig, db config.DBConfig, logger *slog.Logger) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(db, logger), nil
	case "sqlite":
		return sqlitestorage.New(cfg.SQLite, logger)
	case "websocket":
		return websocket.New(websocket.Config{URL: cfg.WebSocket.URL, Secret: cfg.WebSocket.Secret}, logger), nil
	case "memory", "":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
