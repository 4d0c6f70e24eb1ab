// Package testutil provides a stub database/sql driver that understands the
// statements rendered by the Postgres dialect, for store tests that must not
// reach a real server.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Statement is one recorded statement with its bind values.
type Statement struct {
	SQL  string
	Args []any
}

// StubConn records statements and keeps rows per table in memory.
type StubConn struct {
	Execs      []Statement
	Queries    []Statement
	Tables     map[string][]map[string]any
	FailExec   bool
	FailBegin  bool
	FailPing   bool
	RowsErr    error
	FailTables map[string]bool
	FailCommit bool
}

// NewStubDB registers a sql.DB backed by an in-memory stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Tables: make(map[string][]map[string]any)}
	name := fmt.Sprintf("stubpg%d", time.Now().UnixNano())
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) {
	return d.conn, nil
}

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(_ context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *StubConn) BeginTx(_ context.Context, _ driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, fmt.Errorf("begin fail")
	}
	return &stubTx{conn: c}, nil
}

// ExecContext implements driver.ExecerContext for INSERT and DELETE.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	values := plain(args)
	c.Execs = append(c.Execs, Statement{SQL: query, Args: values})
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	if c.Tables == nil {
		c.Tables = make(map[string][]map[string]any)
	}
	upper := strings.ToUpper(strings.TrimSpace(query))
	switch {
	case strings.HasPrefix(upper, "INSERT INTO"):
		table, cols, err := parseInsert(query)
		if err != nil {
			return nil, err
		}
		if c.FailTables[table] {
			return nil, fmt.Errorf("exec fail for %s", table)
		}
		if len(cols) == 0 || len(values)%len(cols) != 0 {
			return nil, fmt.Errorf("column/arg mismatch for %s", table)
		}
		n := len(values) / len(cols)
		for r := 0; r < n; r++ {
			row := make(map[string]any, len(cols))
			for i, col := range cols {
				row[col] = values[r*len(cols)+i]
			}
			c.Tables[table] = append(c.Tables[table], row)
		}
		return driver.RowsAffected(n), nil
	case strings.HasPrefix(upper, "DELETE FROM"):
		table, preds, err := parseFiltered(query, "DELETE FROM")
		if err != nil {
			return nil, err
		}
		if c.FailTables[table] {
			return nil, fmt.Errorf("exec fail for %s", table)
		}
		var kept []map[string]any
		removed := 0
		for _, row := range c.Tables[table] {
			if matches(row, preds, values) {
				removed++
				continue
			}
			kept = append(kept, row)
		}
		c.Tables[table] = kept
		return driver.RowsAffected(removed), nil
	}
	return driver.RowsAffected(0), nil
}

// QueryContext implements driver.QueryerContext for SELECT * statements.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	values := plain(args)
	c.Queries = append(c.Queries, Statement{SQL: query, Args: values})
	table, preds, err := parseFiltered(query, "SELECT * FROM")
	if err != nil {
		return nil, err
	}
	if c.FailTables[table] {
		return nil, fmt.Errorf("query fail for %s", table)
	}
	limit := parseLimit(query)
	all := c.Tables[table]
	colSet := map[string]struct{}{}
	for _, row := range all {
		for k := range row {
			colSet[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(colSet))
	for k := range colSet {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	var out [][]driver.Value
	for _, row := range all {
		if !matches(row, preds, values) {
			continue
		}
		vals := make([]driver.Value, len(cols))
		for i, col := range cols {
			vals[i] = row[col]
		}
		out = append(out, vals)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return &stubRows{cols: cols, rows: out, err: c.RowsErr}, nil
}

type stubTx struct {
	conn *StubConn
}

func (t *stubTx) Commit() error {
	if t.conn.FailCommit {
		return fmt.Errorf("commit fail")
	}
	return nil
}
func (t *stubTx) Rollback() error { return nil }

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
	err  error
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

// predicate is `"col" = $n` (arg >= 1) or `"col" IS NULL` (arg == 0).
type predicate struct {
	col string
	arg int
}

func matches(row map[string]any, preds []predicate, args []any) bool {
	for _, p := range preds {
		v, ok := row[p.col]
		if p.arg == 0 {
			if ok && v != nil {
				return false
			}
			continue
		}
		if p.arg > len(args) || !ok || fmt.Sprint(v) != fmt.Sprint(args[p.arg-1]) {
			return false
		}
	}
	return true
}

func plain(args []driver.NamedValue) []any {
	out := make([]any, len(args))
	for i, a := range args {
		out[i] = a.Value
	}
	return out
}

func parseInsert(query string) (string, []string, error) {
	up := strings.ToUpper(query)
	intoIdx := strings.Index(up, "INTO ")
	if intoIdx == -1 {
		return "", nil, fmt.Errorf("cannot parse insert: %s", query)
	}
	rest := strings.TrimSpace(query[intoIdx+len("INTO "):])
	open := strings.Index(rest, "(")
	closeIdx := strings.Index(rest, ")")
	if open == -1 || closeIdx == -1 || closeIdx <= open {
		return "", nil, fmt.Errorf("cannot parse insert: %s", query)
	}
	table := unquote(rest[:open])
	return table, splitColumns(rest[open+1 : closeIdx]), nil
}

func parseFiltered(query, prefix string) (string, []predicate, error) {
	trimmed := strings.TrimSpace(query)
	if !strings.HasPrefix(strings.ToUpper(trimmed), prefix) {
		return "", nil, fmt.Errorf("cannot parse statement: %s", query)
	}
	rest := strings.TrimSpace(trimmed[len(prefix):])
	for _, stop := range []string{" ORDER BY ", " LIMIT "} {
		if idx := strings.Index(strings.ToUpper(rest), stop); idx != -1 {
			rest = rest[:idx]
		}
	}
	table, where, _ := strings.Cut(rest, " WHERE ")
	table = unquote(table)
	if table == "" {
		return "", nil, fmt.Errorf("cannot parse statement: %s", query)
	}
	if strings.TrimSpace(where) == "" {
		return table, nil, nil
	}
	var preds []predicate
	for _, clause := range strings.Split(where, " AND ") {
		clause = strings.TrimSpace(clause)
		if col, ok := strings.CutSuffix(clause, " IS NULL"); ok {
			preds = append(preds, predicate{col: unquote(col)})
			continue
		}
		col, ph, ok := strings.Cut(clause, " = ")
		if !ok {
			return "", nil, fmt.Errorf("cannot parse predicate %q", clause)
		}
		n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(ph), "$"))
		if err != nil {
			return "", nil, fmt.Errorf("cannot parse placeholder %q", ph)
		}
		preds = append(preds, predicate{col: unquote(col), arg: n})
	}
	return table, preds, nil
}

func parseLimit(query string) int {
	idx := strings.Index(strings.ToUpper(query), " LIMIT ")
	if idx == -1 {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(query[idx+len(" LIMIT "):]))
	if err != nil {
		return 0
	}
	return n
}

func splitColumns(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, unquote(part))
	}
	return out
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	return strings.ReplaceAll(s, `""`, `"`)
}
