package backend

import (
	"fmt"

	"github.com/tim48-robot/disgitbot/internal/config"
	"github.com/tim48-robot/disgitbot/internal/storage"
	"github.com/tim48-robot/disgitbot/internal/storage/memory"
	"github.com/tim48-robot/disgitbot/internal/storage/postgres"
	"github.com/tim48-robot/disgitbot/internal/storage/sqlite"
)

// Open initializes the document store selected by cfg.StorageType
func Open(cfg *config.Config) (storage.DocumentStore, error) {
	switch cfg.StorageType {
	case "postgres":
		return postgres.NewPostgresStorage(cfg.PostgresURL)
	case "sqlite":
		return sqlite.NewSQLiteStorage(cfg.SQLitePath)
	case "memory":
		return memory.NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.StorageType)
	}
}
