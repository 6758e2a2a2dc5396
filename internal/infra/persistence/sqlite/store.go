// Package sqlite provides an embedded, file-backed row store. Rows live in the
// in-memory store; every successful mutation snapshots the touched table to
// SQLite as a JSON payload.
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"digitalroom/internal/infra/persistence/memory"
	"digitalroom/pkg/domain"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.RowStore = (*Store)(nil)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store persists the in-memory tables to a single SQLite table.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (creating when needed) the SQLite file at path, applies the
// embedded migrations and hydrates the in-memory tables.
func NewStore(path string, opts ...memory.Option) (*Store, error) {
	if path == "" {
		path = "digitalroom.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := applyMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &Store{Store: memory.NewStore(opts...), db: db, path: path}
	if err := s.load(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func applyMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	// m.Close would close db as well; only the source is released here.
	defer func() { _ = src.Close() }()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT name, payload FROM row_tables`)
	if err != nil {
		return fmt.Errorf("select row_tables: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var name string
		var payload []byte
		if err := rows.Scan(&name, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		ts, err := decodeTable(payload)
		if err != nil {
			return fmt.Errorf("decode %s: %w", name, err)
		}
		s.ImportTable(name, ts)
	}
	return rows.Err()
}

func decodeTable(payload []byte) (memory.TableSnapshot, error) {
	var ts memory.TableSnapshot
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&ts); err != nil {
		return memory.TableSnapshot{}, err
	}
	return ts, nil
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
	if _, err := s.db.ExecContext(ctx, `INSERT INTO row_tables(name,payload,updated_at) VALUES(?,?,strftime('%Y-%m-%dT%H:%M:%SZ','now'))
		ON CONFLICT(name) DO UPDATE SET payload=excluded.payload, updated_at=excluded.updated_at`, table, data); err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
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

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
