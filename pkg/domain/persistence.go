package domain

import (
	"context"
	"fmt"
)

// RowStore is the remote table store consumed by editors and read-only
// archive views. Implementations assign ids on Insert and apply ordering and
// filters server-side.
type RowStore interface {
	// Select returns every row of table matching q's filters in q's order.
	Select(ctx context.Context, table string, q Query) ([]Record, error)
	// Insert stores a new row and returns it with its generated ID.
	Insert(ctx context.Context, table string, values map[string]any) (Record, error)
	// Update merges patch into the row identified by id. Returns ErrNotFound
	// when the row does not exist.
	Update(ctx context.Context, table string, id ID, patch map[string]any) (Record, error)
	// Delete removes the row identified by id. Returns ErrNotFound when the
	// row does not exist.
	Delete(ctx context.Context, table string, id ID) error
}

// IDStrategy selects how a store generates primary keys for a table.
type IDStrategy string

const (
	IDSerial IDStrategy = "serial" // 1, 2, 3 ... (default)
	IDUUID   IDStrategy = "uuid"   // random UUIDv4
)

// ErrNotFound reports a stale or unknown record reference.
type ErrNotFound struct {
	Table string
	ID    ID
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Table, e.ID)
}
