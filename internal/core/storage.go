package core

import (
	"context"
	"fmt"

	"cytocore/internal/config"
	"cytocore/internal/infra/persistence/memory"
	"cytocore/internal/infra/persistence/postgres"
	"cytocore/internal/infra/persistence/sqlite"
	"cytocore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenPersistentStore selects a backend from configuration.
//
//	CYTOCORE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	CYTOCORE_SQLITE_PATH: path to sqlite file (default ./cytocore.db)
//	CYTOCORE_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenPersistentStore(ctx context.Context, cfg config.Config) (domain.Store, error) {
	switch StorageDriver(cfg.StorageDriver) {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite, "":
		return sqlite.NewStore(cfg.SQLitePath)
	case StoragePostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.StorageDriver)
	}
}
