package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"digitalroom/internal/infra/persistence/memory"
	"digitalroom/pkg/domain"

	"github.com/google/uuid"
)

func TestMemoryStoreCRUD(t *testing.T) { //nolint:cyclop
	ctx := context.Background()
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := memory.NewStore(memory.WithClock(func() time.Time { return fixed }))

	first, err := store.Insert(ctx, "anime", map[string]any{"title": "Mushishi", "sort_order": 20, "id": "ignored"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if first.ID != "1" {
		t.Fatalf("expected serial id 1, got %q", first.ID)
	}
	if first.Values["created_at"] != "2024-05-01T12:00:00Z" {
		t.Fatalf("expected created_at stamp, got %v", first.Values["created_at"])
	}
	if _, ok := first.Values["id"]; ok {
		t.Fatalf("id must not be stored as a value")
	}
	second, err := store.Insert(ctx, "anime", map[string]any{"title": "Haibane", "sort_order": 10})
	if err != nil {
		t.Fatalf("insert second: %v", err)
	}

	rows, err := store.Select(ctx, "anime", domain.Query{Order: domain.DefaultOrder()})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != second.ID || rows[1].ID != first.ID {
		t.Fatalf("unexpected order %+v", rows)
	}

	updated, err := store.Update(ctx, "anime", first.ID, map[string]any{"rating": 9, "id": "99"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != first.ID || updated.Values["rating"] != int64(9) || updated.Values["title"] != "Mushishi" {
		t.Fatalf("unexpected update result %+v", updated)
	}

	if err := store.Delete(ctx, "anime", first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	rows, _ = store.Select(ctx, "anime", domain.Query{})
	if len(rows) != 1 || rows[0].ID != second.ID {
		t.Fatalf("unexpected rows after delete %+v", rows)
	}

	var nf domain.ErrNotFound
	if err := store.Delete(ctx, "anime", first.ID); !errors.As(err, &nf) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if _, err := store.Update(ctx, "anime", first.ID, map[string]any{"x": 1}); !errors.As(err, &nf) {
		t.Fatalf("expected not found on stale update, got %v", err)
	}
	if _, err := store.Update(ctx, "missing", "1", nil); !errors.As(err, &nf) {
		t.Fatalf("expected not found on unknown table, got %v", err)
	}
}

func TestMemoryStoreSerialIDsNeverReused(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	a, _ := store.Insert(ctx, "books", map[string]any{"title": "a"})
	if err := store.Delete(ctx, "books", a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	b, _ := store.Insert(ctx, "books", map[string]any{"title": "b"})
	if b.ID == a.ID {
		t.Fatalf("serial id reused: %s", b.ID)
	}
}

func TestMemoryStoreUUIDStrategy(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(memory.WithIDStrategy("garden", domain.IDUUID))
	r, err := store.Insert(ctx, "garden", map[string]any{"title": "seed"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := uuid.Parse(string(r.ID)); err != nil {
		t.Fatalf("expected uuid id, got %q", r.ID)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	in := map[string]any{"images": []any{"a.png"}}
	r, _ := store.Insert(ctx, "timeline", in)
	in["images"].([]any)[0] = "mutated"
	r.Values["images"].([]any)[0] = "mutated"
	rows, _ := store.Select(ctx, "timeline", domain.Query{})
	if got := rows[0].Values["images"].([]any)[0]; got != "a.png" {
		t.Fatalf("store shares state with callers: %v", got)
	}
}

func TestMemoryStoreFiltersAndUnknownTable(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	rows, err := store.Select(ctx, "nothing", domain.Query{})
	if err != nil || len(rows) != 0 {
		t.Fatalf("expected empty select: %v %v", rows, err)
	}
	if _, err := store.Insert(ctx, "", nil); err == nil {
		t.Fatalf("expected error for empty table name")
	}
	_, _ = store.Insert(ctx, "prompts", map[string]any{"title": "a", "category_id": 1})
	_, _ = store.Insert(ctx, "prompts", map[string]any{"title": "b", "category_id": 2})
	rows, _ = store.Select(ctx, "prompts", domain.Query{Filters: []domain.Filter{{Field: "category_id", Value: "2"}}})
	if len(rows) != 1 || rows[0].Values["title"] != "b" {
		t.Fatalf("unexpected filter result %+v", rows)
	}
}

func TestMemoryStoreSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := memory.NewStore()
	_, _ = src.Insert(ctx, "tools", map[string]any{"name": "vim"})
	b, _ := src.Insert(ctx, "tools", map[string]any{"name": "tmux"})
	_ = src.Delete(ctx, "tools", b.ID)

	dst := memory.NewStore()
	dst.ImportState(src.ExportState())
	if got := dst.Tables(); len(got) != 1 || got[0] != "tools" {
		t.Fatalf("unexpected tables %v", got)
	}
	next, _ := dst.Insert(ctx, "tools", map[string]any{"name": "git"})
	if next.ID != "3" {
		t.Fatalf("expected serial to continue at 3 after import, got %s", next.ID)
	}
}

func TestImportTableAdvancesSerialPastExistingIDs(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.ImportTable("quotes", memory.TableSnapshot{Rows: []domain.Record{{ID: "41", Values: map[string]any{"text": "x"}}}})
	r, _ := store.Insert(ctx, "quotes", map[string]any{"text": "y"})
	if r.ID != "42" {
		t.Fatalf("expected id 42, got %s", r.ID)
	}
	if snap := store.ExportTable("absent"); len(snap.Rows) != 0 {
		t.Fatalf("expected empty snapshot for absent table")
	}
}
