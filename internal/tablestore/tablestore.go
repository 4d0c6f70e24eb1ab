// Package tablestore defines the minimal relational capability the clone engine
// needs from a database: filtered selects, bulk inserts and keyed deletes against
// a named table, with rows carried as column maps.
package tablestore

import (
	"context"
	"sort"
)

// Row is one table row keyed by column name.
type Row map[string]any

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Columns returns the row's column names in ascending order.
func (r Row) Columns() []string {
	cols := make([]string, 0, len(r))
	for k := range r {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Predicate is an equality test on one column. A nil Value matches NULL.
type Predicate struct {
	Column string
	Value  any
}

// Eq builds an equality predicate.
func Eq(column string, value any) Predicate { return Predicate{Column: column, Value: value} }

// IsNull builds a NULL test.
func IsNull(column string) Predicate { return Predicate{Column: column} }

// Query selects rows of one table. All predicates must hold.
type Query struct {
	Table   string
	Where   []Predicate
	OrderBy []string
	Limit   int
}

// Reader is the read side of a store.
type Reader interface {
	Select(ctx context.Context, q Query) ([]Row, error)
}

// Store reads and writes a single database.
type Store interface {
	Reader
	// Insert appends rows to table atomically and returns the number written.
	Insert(ctx context.Context, table string, rows []Row) (int64, error)
	// Delete removes rows matching q (OrderBy and Limit are ignored).
	Delete(ctx context.Context, q Query) (int64, error)
}

// UnionColumns returns the sorted union of column names across rows.
func UnionColumns(rows []Row) []string {
	seen := make(map[string]struct{})
	for _, r := range rows {
		for k := range r {
			seen[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}
