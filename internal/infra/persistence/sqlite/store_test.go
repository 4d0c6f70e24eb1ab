package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"flowclone/internal/tablestore"
)

func TestSQLiteStorePersistAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "dest.db")
	ctx := context.Background()
	store, err := Open(ctx, path)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	if store.Path() != path {
		t.Fatalf("expected path %s, got %s", path, store.Path())
	}
	if _, err := store.DB().ExecContext(ctx, `CREATE TABLE gh_flowcell (runid TEXT, comment TEXT)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := store.Insert(ctx, "gh_flowcell", []tablestore.Row{{"runid": "R2", "comment": `{"k":"v"}`}}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	defer func() { _ = reloaded.Close() }()
	rows, err := reloaded.Select(ctx, tablestore.Query{Table: "gh_flowcell", Where: []tablestore.Predicate{tablestore.Eq("runid", "R2")}})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 1 || rows[0]["comment"] != `{"k":"v"}` {
		t.Fatalf("unexpected rows after reload: %v", rows)
	}
}

func TestSQLiteMemoryDatabase(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, ":memory:")
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	defer func() { _ = store.Close() }()
	if _, err := store.DB().ExecContext(ctx, `CREATE TABLE qc_seq (runid TEXT)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := store.Insert(ctx, "qc_seq", []tablestore.Row{{"runid": "R1"}}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	rows, err := store.Select(ctx, tablestore.Query{Table: "qc_seq"})
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected one row on the single shared connection, got %v (%v)", rows, err)
	}
	if Dialect.Placeholder(4) != "?" {
		t.Fatalf("unexpected placeholder")
	}
}
