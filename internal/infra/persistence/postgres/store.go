// Package postgres provides a Postgres-backed row store that mirrors the
// in-memory semantics and snapshots each touched table as JSONB.
package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"digitalroom/internal/infra/persistence/memory"
	"digitalroom/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.RowStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/digitalroom?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists tables to Postgres while reusing the in-memory implementation for queries.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back to defaultDSN),
// ensures the snapshot table exists and hydrates the in-memory tables.
func NewStore(ctx context.Context, dsn string, opts ...memory.Option) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureStateTable(ctx, db); err != nil {
		return nil, err
	}
	mem := memory.NewStore(opts...)
	if err := loadTables(ctx, db, mem); err != nil {
		return nil, err
	}
	return &Store{Store: mem, db: db}, nil
}

func ensureStateTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS row_tables (
		name TEXT PRIMARY KEY,
		payload JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure row_tables: %w", err)
	}
	return nil
}

func loadTables(ctx context.Context, db *sql.DB, mem *memory.Store) error {
	rows, err := db.QueryContext(ctx, `SELECT name, payload FROM row_tables`)
	if err != nil {
		return fmt.Errorf("select row_tables: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var name string
		var payload []byte
		if err := rows.Scan(&name, &payload); err != nil {
			return fmt.Errorf("scan row_tables: %w", err)
		}
		if len(payload) == 0 {
			continue
		}
		var ts memory.TableSnapshot
		dec := json.NewDecoder(bytes.NewReader(payload))
		dec.UseNumber()
		if err := dec.Decode(&ts); err != nil {
			return fmt.Errorf("decode %s: %w", name, err)
		}
		mem.ImportTable(name, ts)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate row_tables: %w", err)
	}
	return nil
}

// mutate applies change to the in-memory table and snapshots it. Writes are
// serialised; when the snapshot fails the table is restored so memory never
// runs ahead of the database.
func (s *Store) mutate(ctx context.Context, table string, change func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.ExportTable(table)
	if err := change(); err != nil {
		return err
	}
	if err := s.persist(ctx, table); err != nil {
		s.ImportTable(table, before)
		return err
	}
	return nil
}

func (s *Store) persist(ctx context.Context, table string) error {
	data, err := json.Marshal(s.ExportTable(table))
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `INSERT INTO row_tables(name,payload) VALUES($1,$2) ON CONFLICT(name) DO UPDATE SET payload=EXCLUDED.payload, updated_at=now()`, table, data); err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// Insert stores a row and snapshots its table.
func (s *Store) Insert(ctx context.Context, table string, values map[string]any) (domain.Record, error) {
	var r domain.Record
	err := s.mutate(ctx, table, func() (err error) {
		r, err = s.Store.Insert(ctx, table, values)
		return err
	})
	if err != nil {
		return domain.Record{}, err
	}
	return r, nil
}

// Update merges patch into a row and snapshots its table.
func (s *Store) Update(ctx context.Context, table string, id domain.ID, patch map[string]any) (domain.Record, error) {
	var r domain.Record
	err := s.mutate(ctx, table, func() (err error) {
		r, err = s.Store.Update(ctx, table, id, patch)
		return err
	})
	if err != nil {
		return domain.Record{}, err
	}
	return r, nil
}

// Delete removes a row and snapshots its table.
func (s *Store) Delete(ctx context.Context, table string, id domain.ID) error {
	return s.mutate(ctx, table, func() error { return s.Store.Delete(ctx, table, id) })
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
