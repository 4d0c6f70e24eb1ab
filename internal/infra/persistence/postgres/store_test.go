package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowclone/internal/infra/persistence/postgres/testutil"
	"flowclone/internal/tablestore"
)

func openStub(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	var gotDriver, gotDSN string
	restore := OverrideSQLOpen(func(driverName, dsn string) (*sql.DB, error) {
		gotDriver, gotDSN = driverName, dsn
		return db, nil
	})
	t.Cleanup(restore)

	store, err := Open(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "pgx", gotDriver)
	assert.Equal(t, defaultDSN, gotDSN)
	return store, conn
}

func TestOpenPingFailure(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	_, err := Open(context.Background(), "postgres://example/db")
	require.ErrorContains(t, err, "ping postgres")
}

func TestOpenDriverFailure(t *testing.T) {
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, errors.New("boom") })
	defer restore()

	_, err := Open(context.Background(), "postgres://example/db")
	require.ErrorContains(t, err, "open postgres")
}

func TestSelectRendersDollarPlaceholders(t *testing.T) {
	store, conn := openStub(t)
	conn.Tables["gh_board"] = []map[string]any{
		{"runid": "R1", "run_sample_id": "A"},
		{"runid": "R9", "run_sample_id": "B"},
	}

	rows, err := store.Select(context.Background(), tablestore.Query{
		Table: "gh_board",
		Where: []tablestore.Predicate{tablestore.Eq("runid", "R1")},
		Limit: 1,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0]["run_sample_id"])

	require.NotEmpty(t, conn.Queries)
	last := conn.Queries[len(conn.Queries)-1]
	assert.Equal(t, `SELECT * FROM "gh_board" WHERE "runid" = $1 LIMIT 1`, last.SQL)
	assert.Equal(t, []any{"R1"}, last.Args)
}

func TestInsertAndDeleteThroughStub(t *testing.T) {
	store, conn := openStub(t)
	ctx := context.Background()

	n, err := store.Insert(ctx, "qc_seq", []tablestore.Row{
		{"runid": "R2", "yield": int64(10)},
		{"runid": "R2", "yield": int64(12)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.Len(t, conn.Tables["qc_seq"], 2)
	assert.Equal(t, `INSERT INTO "qc_seq" ("runid", "yield") VALUES ($1, $2), ($3, $4)`, conn.Execs[0].SQL)

	removed, err := store.Delete(ctx, tablestore.Query{Table: "qc_seq", Where: []tablestore.Predicate{tablestore.Eq("runid", "R2")}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	assert.Empty(t, conn.Tables["qc_seq"])
}

func TestInsertSurfacesCommitAndExecFailures(t *testing.T) {
	store, conn := openStub(t)
	ctx := context.Background()
	rows := []tablestore.Row{{"runid": "R2"}}

	conn.FailCommit = true
	_, err := store.Insert(ctx, "qc_seq", rows)
	require.ErrorContains(t, err, "commit qc_seq")

	conn.FailCommit = false
	conn.FailTables = map[string]bool{"qc_seq": true}
	_, err = store.Insert(ctx, "qc_seq", rows)
	require.ErrorContains(t, err, "insert qc_seq")

	conn.FailTables = nil
	conn.FailBegin = true
	_, err = store.Insert(ctx, "qc_seq", rows)
	require.ErrorContains(t, err, "begin tx")
}

func TestDialect(t *testing.T) {
	assert.Equal(t, "postgres", Dialect.Name)
	assert.Equal(t, "$3", Dialect.Placeholder(3))
	assert.Equal(t, `"gh_board"`, Dialect.Quote("gh_board"))
}
