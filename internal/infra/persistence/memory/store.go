// Package memory provides an in-memory implementation of the row store used
// for tests, ephemeral environments and as the working set of the durable
// sqlite and postgres stores.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"digitalroom/pkg/domain"

	"github.com/google/uuid"
)

// Compile-time contract assertion ensuring memory.Store adheres to the row store interface.
var _ domain.RowStore = (*Store)(nil)

type (
	// Record aliases domain.Record for in-memory persistence operations.
	Record = domain.Record
	// ID aliases domain.ID.
	ID = domain.ID
	// Query aliases domain.Query.
	Query = domain.Query
)

type table struct {
	rows       map[ID]Record
	nextSerial int64
}

func newTable() *table { return &table{rows: make(map[ID]Record)} }

// TableSnapshot captures one table for external persistence.
type TableSnapshot struct {
	Rows       []Record `json:"rows"`
	NextSerial int64    `json:"next_serial"`
}

// Snapshot captures a point-in-time clone of every table.
type Snapshot struct {
	Tables map[string]TableSnapshot `json:"tables"`
}

// Option configures a Store.
type Option func(*Store)

// WithIDStrategy sets how ids are generated for table.
func WithIDStrategy(tableName string, strategy domain.IDStrategy) Option {
	return func(s *Store) { s.strategies[tableName] = strategy }
}

// WithIDStrategies applies several table strategies at once.
func WithIDStrategies(strategies map[string]domain.IDStrategy) Option {
	return func(s *Store) {
		for name, strategy := range strategies {
			s.strategies[name] = strategy
		}
	}
}

// WithClock overrides the time source used for created_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.nowFn = now }
}

// Store keeps every table in process memory. Tables are created lazily on
// first insert; selecting an unknown table yields no rows.
type Store struct {
	mu         sync.RWMutex
	tables     map[string]*table
	strategies map[string]domain.IDStrategy
	nowFn      func() time.Time
}

// NewStore constructs an empty in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		tables:     make(map[string]*table),
		strategies: make(map[string]domain.IDStrategy),
		nowFn:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) tableFor(name string) *table {
	t, ok := s.tables[name]
	if !ok {
		t = newTable()
		s.tables[name] = t
	}
	return t
}

func (s *Store) newID(name string, t *table) ID {
	if s.strategies[name] == domain.IDUUID {
		return ID(uuid.NewString())
	}
	for {
		t.nextSerial++
		id := ID(strconv.FormatInt(t.nextSerial, 10))
		if _, taken := t.rows[id]; !taken {
			return id
		}
	}
}

func validTable(name string) error {
	if name == "" {
		return fmt.Errorf("table name required")
	}
	return nil
}

// Select returns matching rows ordered by q.Order.
func (s *Store) Select(_ context.Context, tableName string, q Query) ([]Record, error) {
	if err := validTable(tableName); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[tableName]
	if !ok {
		return []Record{}, nil
	}
	rows := make([]Record, 0, len(t.rows))
	for _, r := range t.rows {
		rows = append(rows, r.Clone())
	}
	// stable base order so unordered selects are deterministic
	domain.SortRecords(rows, []domain.Order{{Field: domain.FieldID}})
	return q.Apply(rows), nil
}

// Insert stores a new row. Any "id" in values is ignored.
func (s *Store) Insert(_ context.Context, tableName string, values map[string]any) (Record, error) {
	if err := validTable(tableName); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tableFor(tableName)
	vals := domain.NormalizeValues(values)
	if vals == nil {
		vals = make(map[string]any)
	}
	delete(vals, domain.FieldID)
	if _, ok := vals[domain.FieldCreatedAt]; !ok {
		vals[domain.FieldCreatedAt] = s.nowFn().Format(time.RFC3339)
	}
	r := Record{ID: s.newID(tableName, t), Values: vals}
	t.rows[r.ID] = r
	return r.Clone(), nil
}

// Update merges patch into an existing row. The id itself is immutable.
func (s *Store) Update(_ context.Context, tableName string, id ID, patch map[string]any) (Record, error) {
	if err := validTable(tableName); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[tableName]
	if !ok {
		return Record{}, domain.ErrNotFound{Table: tableName, ID: id}
	}
	current, ok := t.rows[id]
	if !ok {
		return Record{}, domain.ErrNotFound{Table: tableName, ID: id}
	}
	updated := current.Clone()
	if updated.Values == nil {
		updated.Values = make(map[string]any)
	}
	for k, v := range domain.NormalizeValues(patch) {
		if k == domain.FieldID {
			continue
		}
		updated.Values[k] = v
	}
	t.rows[id] = updated
	return updated.Clone(), nil
}

// Delete removes a row.
func (s *Store) Delete(_ context.Context, tableName string, id ID) error {
	if err := validTable(tableName); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[tableName]
	if !ok {
		return domain.ErrNotFound{Table: tableName, ID: id}
	}
	if _, ok := t.rows[id]; !ok {
		return domain.ErrNotFound{Table: tableName, ID: id}
	}
	delete(t.rows, id)
	return nil
}

// Tables lists known table names in ascending order.
func (s *Store) Tables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExportTable clones a single table for external persistence.
func (s *Store) ExportTable(name string) TableSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[name]
	if !ok {
		return TableSnapshot{Rows: []Record{}}
	}
	return snapshotTable(t)
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := Snapshot{Tables: make(map[string]TableSnapshot, len(s.tables))}
	for name, t := range s.tables {
		out.Tables[name] = snapshotTable(t)
	}
	return out
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = make(map[string]*table, len(snapshot.Tables))
	for name, ts := range snapshot.Tables {
		s.tables[name] = tableFromSnapshot(ts)
	}
}

// ImportTable replaces a single table.
func (s *Store) ImportTable(name string, ts TableSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[name] = tableFromSnapshot(ts)
}

func snapshotTable(t *table) TableSnapshot {
	rows := make([]Record, 0, len(t.rows))
	for _, r := range t.rows {
		rows = append(rows, r.Clone())
	}
	domain.SortRecords(rows, []domain.Order{{Field: domain.FieldID}})
	return TableSnapshot{Rows: rows, NextSerial: t.nextSerial}
}

func tableFromSnapshot(ts TableSnapshot) *table {
	t := newTable()
	t.nextSerial = ts.NextSerial
	for _, r := range ts.Rows {
		if r.ID == "" {
			continue
		}
		t.rows[r.ID] = Record{ID: r.ID, Values: domain.NormalizeValues(r.Values)}
		if n, err := strconv.ParseInt(string(r.ID), 10, 64); err == nil && n > t.nextSerial {
			t.nextSerial = n
		}
	}
	return t
}
