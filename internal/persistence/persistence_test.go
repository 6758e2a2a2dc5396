package persistence

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"digitalroom/pkg/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	mem, err := Open(ctx, Config{Driver: "memory"}, map[string]domain.IDStrategy{"garden": domain.IDUUID})
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	r, err := mem.Insert(ctx, "garden", map[string]any{"title": "x"})
	if err != nil || len(r.ID) != 36 {
		t.Fatalf("expected uuid id from strategy, got %q (%v)", r.ID, err)
	}
	if err := mem.Close(); err != nil {
		t.Fatalf("close memory: %v", err)
	}

	lite, err := Open(ctx, Config{SQLitePath: filepath.Join(t.TempDir(), "room.db")}, nil)
	if err != nil {
		t.Fatalf("open default sqlite: %v", err)
	}
	defer func() { _ = lite.Close() }()
	if _, err := lite.Insert(ctx, "anime", map[string]any{"title": "x"}); err != nil {
		t.Fatalf("sqlite insert: %v", err)
	}

	if _, err := Open(ctx, Config{Driver: "mongo"}, nil); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

type failingStore struct{ domain.RowStore }

func (failingStore) Delete(context.Context, string, domain.ID) error { return errors.New("boom") }

func TestInstrumentRecordsOutcomes(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	base, _ := Open(ctx, Config{Driver: "memory"}, nil)
	store := Instrument(failingStore{base}, metrics, nil)

	r, err := store.Insert(ctx, "quotes", map[string]any{"text": "hi"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := store.Update(ctx, "quotes", r.ID, map[string]any{"text": "hello"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := store.Select(ctx, "quotes", domain.Query{}); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := store.Delete(ctx, "quotes", r.ID); err == nil {
		t.Fatalf("expected delete failure")
	}

	if got := testutil.ToFloat64(metrics.operations.WithLabelValues("quotes", "insert", "success")); got != 1 {
		t.Fatalf("insert success count = %v", got)
	}
	if got := testutil.ToFloat64(metrics.operations.WithLabelValues("quotes", "delete", "error")); got != 1 {
		t.Fatalf("delete error count = %v", got)
	}
	if n := testutil.CollectAndCount(metrics.durations); n != 4 {
		t.Fatalf("expected 4 latency series, got %d", n)
	}
	if _, err := NewMetrics(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}
