// Package sqlstore implements tablestore.Store over database/sql. Driver packages
// supply a Dialect describing placeholders, identifier quoting and bind limits.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"flowclone/internal/tablestore"
)

var _ tablestore.Store = (*Store)(nil)

// Dialect captures the SQL surface differences between drivers.
type Dialect struct {
	Name string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// Quote renders a safely quoted identifier.
	Quote func(ident string) string
	// MaxParams bounds bind parameters per statement.
	MaxParams int
}

// ErrEmptyIdentifier is returned for blank table or column names.
var ErrEmptyIdentifier = errors.New("sqlstore: empty identifier")

// Store runs table queries against one database handle.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps an open handle.
func New(db *sql.DB, d Dialect) *Store {
	return &Store{db: db, dialect: d}
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns the store's dialect.
func (s *Store) Dialect() Dialect { return s.dialect }

// Close releases the handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Select runs q and returns every matching row.
func (s *Store) Select(ctx context.Context, q tablestore.Query) ([]tablestore.Row, error) {
	stmt, args, err := BuildSelect(s.dialect, q)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", q.Table, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns %s: %w", q.Table, err)
	}
	var out []tablestore.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Table, err)
		}
		row := make(tablestore.Row, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", q.Table, err)
	}
	return out, nil
}

// Insert writes rows with multi-row INSERT statements inside one transaction.
// Columns missing from a row are written as NULL.
func (s *Store) Insert(ctx context.Context, table string, rows []tablestore.Row) (written int64, retErr error) {
	if len(rows) == 0 {
		return 0, nil
	}
	cols := tablestore.UnionColumns(rows)
	if len(cols) == 0 {
		return 0, fmt.Errorf("insert %s: rows have no columns", table)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, chunk := range chunkRows(rows, s.dialect.rowsPerStatement(len(cols))) {
		stmt, args, err := BuildInsert(s.dialect, table, cols, chunk)
		if err != nil {
			return 0, err
		}
		res, err := tx.ExecContext(ctx, stmt, args...)
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			n = int64(len(chunk))
		}
		written += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit %s: %w", table, err)
	}
	return written, nil
}

// Delete removes rows matching q.
func (s *Store) Delete(ctx context.Context, q tablestore.Query) (int64, error) {
	stmt, args, err := BuildDelete(s.dialect, q)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", q.Table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", q.Table, err)
	}
	return n, nil
}

// BuildSelect renders q as a SELECT * statement.
func BuildSelect(d Dialect, q tablestore.Query) (string, []any, error) {
	if strings.TrimSpace(q.Table) == "" {
		return "", nil, ErrEmptyIdentifier
	}
	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(d.Quote(q.Table))
	args, err := writeWhere(&b, d, q.Where)
	if err != nil {
		return "", nil, err
	}
	if len(q.OrderBy) > 0 {
		b.WriteString(" ORDER BY ")
		for i, col := range q.OrderBy {
			if strings.TrimSpace(col) == "" {
				return "", nil, ErrEmptyIdentifier
			}
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(d.Quote(col))
		}
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}
	return b.String(), args, nil
}

// BuildInsert renders one multi-row INSERT for rows over cols.
func BuildInsert(d Dialect, table string, cols []string, rows []tablestore.Row) (string, []any, error) {
	if strings.TrimSpace(table) == "" {
		return "", nil, ErrEmptyIdentifier
	}
	quoted := make([]string, len(cols))
	for i, c := range cols {
		if strings.TrimSpace(c) == "" {
			return "", nil, ErrEmptyIdentifier
		}
		quoted[i] = d.Quote(c)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", d.Quote(table), strings.Join(quoted, ", "))
	args := make([]any, 0, len(cols)*len(rows))
	n := 0
	for ri, row := range rows {
		if ri > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for ci, c := range cols {
			if ci > 0 {
				b.WriteString(", ")
			}
			n++
			b.WriteString(d.Placeholder(n))
			args = append(args, row[c])
		}
		b.WriteByte(')')
	}
	return b.String(), args, nil
}

// BuildDelete renders a DELETE for q's table and predicates. A delete without
// predicates is refused.
func BuildDelete(d Dialect, q tablestore.Query) (string, []any, error) {
	if strings.TrimSpace(q.Table) == "" {
		return "", nil, ErrEmptyIdentifier
	}
	if len(q.Where) == 0 {
		return "", nil, fmt.Errorf("sqlstore: refusing unfiltered delete on %s", q.Table)
	}
	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(d.Quote(q.Table))
	args, err := writeWhere(&b, d, q.Where)
	if err != nil {
		return "", nil, err
	}
	return b.String(), args, nil
}

func writeWhere(b *strings.Builder, d Dialect, preds []tablestore.Predicate) ([]any, error) {
	if len(preds) == 0 {
		return nil, nil
	}
	var args []any
	b.WriteString(" WHERE ")
	for i, p := range preds {
		if strings.TrimSpace(p.Column) == "" {
			return nil, ErrEmptyIdentifier
		}
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(d.Quote(p.Column))
		if p.Value == nil {
			b.WriteString(" IS NULL")
			continue
		}
		n := len(args) + 1
		b.WriteString(" = ")
		b.WriteString(d.Placeholder(n))
		args = append(args, p.Value)
	}
	return args, nil
}

func (d Dialect) rowsPerStatement(cols int) int {
	if d.MaxParams <= 0 || cols == 0 {
		return 1
	}
	n := d.MaxParams / cols
	if n < 1 {
		return 1
	}
	return n
}

func chunkRows(rows []tablestore.Row, size int) [][]tablestore.Row {
	var out [][]tablestore.Row
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[start:end])
	}
	return out
}

// QuoteDouble quotes an identifier with ANSI double quotes.
func QuoteDouble(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// QuoteBacktick quotes an identifier with MySQL backticks.
func QuoteBacktick(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// DollarPlaceholder renders $n.
func DollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

// QuestionPlaceholder renders ?.
func QuestionPlaceholder(int) string { return "?" }
