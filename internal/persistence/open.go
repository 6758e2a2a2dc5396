// Package persistence selects and decorates the row store backing the
// archives.
package persistence

import (
	"context"
	"fmt"
	"io"

	"digitalroom/internal/infra/persistence/memory"
	"digitalroom/internal/infra/persistence/postgres"
	"digitalroom/internal/infra/persistence/sqlite"
	"digitalroom/pkg/domain"
)

// Driver identifies a concrete row store implementation.
type Driver string

const (
	DriverMemory   Driver = "memory"   // in-memory only (tests / ephemeral)
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
)

// Config selects the backend.
type Config struct {
	Driver      string `mapstructure:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// Store is a row store that may hold external resources.
type Store interface {
	domain.RowStore
	io.Closer
}

type nopCloser struct{ domain.RowStore }

func (nopCloser) Close() error { return nil }

// Open constructs the configured row store. Defaults to sqlite when the
// driver is unset. strategies assigns per-table id generation.
func Open(ctx context.Context, cfg Config, strategies map[string]domain.IDStrategy) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = string(DriverSQLite)
	}
	opts := []memory.Option{memory.WithIDStrategies(strategies)}
	switch Driver(driver) {
	case DriverMemory:
		return nopCloser{memory.NewStore(opts...)}, nil
	case DriverSQLite:
		return sqlite.NewStore(cfg.SQLitePath, opts...)
	case DriverPostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN, opts...)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
