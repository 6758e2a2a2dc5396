package testutil

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"testing"
)

const upsert = "INSERT INTO row_tables(name,payload) VALUES($1,$2) ON CONFLICT(name) DO UPDATE SET payload=EXCLUDED.payload"

func args(name, payload string) []driver.NamedValue {
	return []driver.NamedValue{{Ordinal: 1, Value: name}, {Ordinal: 2, Value: []byte(payload)}}
}

func TestStubUpsertCommitsPerTransaction(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()

	tx, err := conn.BeginTx(ctx, driver.TxOptions{})
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}
	if _, err := conn.ExecContext(ctx, upsert, args("anime", "v1")); err != nil {
		t.Fatalf("ExecContext: %v", err)
	}
	if len(conn.Snapshots) != 0 {
		t.Fatalf("upsert visible before commit")
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	tx, _ = conn.BeginTx(ctx, driver.TxOptions{})
	_, _ = conn.ExecContext(ctx, upsert, args("anime", "v2"))
	_ = tx.Rollback()
	if got := string(conn.Snapshots["anime"]); got != "v1" {
		t.Fatalf("rollback leaked payload %q", got)
	}

	rows, err := conn.QueryContext(ctx, "SELECT name, payload FROM row_tables", nil)
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	dest := make([]driver.Value, 2)
	if err := rows.Next(dest); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if dest[0] != "anime" || string(dest[1].([]byte)) != "v1" {
		t.Fatalf("unexpected row %v", dest)
	}
	if err := rows.Next(dest); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestStubFailureSwitches(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()
	conn.FailPing, conn.FailExec, conn.FailQuery, conn.FailBegin = true, true, true, true
	if err := conn.Ping(ctx); err == nil {
		t.Fatalf("expected ping failure")
	}
	if _, err := conn.ExecContext(ctx, upsert, args("a", "b")); err == nil {
		t.Fatalf("expected exec failure")
	}
	if _, err := conn.QueryContext(ctx, "SELECT name, payload FROM row_tables", nil); err == nil {
		t.Fatalf("expected query failure")
	}
	if _, err := conn.Begin(); err == nil {
		t.Fatalf("expected begin failure")
	}
	conn.FailExec, conn.FailBegin, conn.FailCommit = false, false, true
	tx, _ := conn.Begin()
	_, _ = conn.ExecContext(ctx, upsert, args("a", "b"))
	if err := tx.Commit(); err == nil || len(conn.Snapshots) != 0 {
		t.Fatalf("expected commit failure without applying the upsert")
	}
}
