// Package memory provides an in-process table store used for tests and ephemeral
// clone targets. It mirrors the SQL stores' semantics: equality and NULL filters,
// ordered selects, all-or-nothing bulk inserts.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"flowclone/internal/tablestore"
)

// Compile-time contract assertion ensuring memory.Store adheres to the table store interface.
var _ tablestore.Store = (*Store)(nil)

// Store keeps rows per table in memory. Tables spring into existence on first insert.
type Store struct {
	mu     sync.RWMutex
	tables map[string][]tablestore.Row

	// FailInsert makes Insert fail for the named tables.
	FailInsert map[string]error
	// FailDelete makes Delete fail for the named tables.
	FailDelete map[string]error
	// FailSelect makes Select fail for the named tables.
	FailSelect map[string]error
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{tables: make(map[string][]tablestore.Row)}
}

// Seed appends rows without going through failure injection.
func (s *Store) Seed(table string, rows ...tablestore.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.tables[table] = append(s.tables[table], r.Clone())
	}
}

// Rows returns a copy of every row in table.
func (s *Store) Rows(table string) []tablestore.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]tablestore.Row, 0, len(s.tables[table]))
	for _, r := range s.tables[table] {
		out = append(out, r.Clone())
	}
	return out
}

// Tables returns the names of tables holding at least one row.
func (s *Store) Tables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for name, rows := range s.tables {
		if len(rows) > 0 {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Select returns clones of matching rows.
func (s *Store) Select(_ context.Context, q tablestore.Query) ([]tablestore.Row, error) {
	if err := s.FailSelect[q.Table]; err != nil {
		return nil, err
	}
	s.mu.RLock()
	var out []tablestore.Row
	for _, r := range s.tables[q.Table] {
		if match(r, q.Where) {
			out = append(out, r.Clone())
		}
	}
	s.mu.RUnlock()
	if len(q.OrderBy) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			for _, col := range q.OrderBy {
				a, b := fmt.Sprint(out[i][col]), fmt.Sprint(out[j][col])
				if a != b {
					return a < b
				}
			}
			return false
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Insert appends clones of rows atomically.
func (s *Store) Insert(_ context.Context, table string, rows []tablestore.Row) (int64, error) {
	if err := s.FailInsert[table]; err != nil {
		return 0, fmt.Errorf("insert %s: %w", table, err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.tables[table] = append(s.tables[table], r.Clone())
	}
	return int64(len(rows)), nil
}

// Delete removes rows matching q. An unfiltered delete is refused, as in sqlstore.
func (s *Store) Delete(_ context.Context, q tablestore.Query) (int64, error) {
	if err := s.FailDelete[q.Table]; err != nil {
		return 0, fmt.Errorf("delete %s: %w", q.Table, err)
	}
	if len(q.Where) == 0 {
		return 0, fmt.Errorf("memory: refusing unfiltered delete on %s", q.Table)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []tablestore.Row
	var removed int64
	for _, r := range s.tables[q.Table] {
		if match(r, q.Where) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	s.tables[q.Table] = kept
	return removed, nil
}

func match(r tablestore.Row, preds []tablestore.Predicate) bool {
	for _, p := range preds {
		v, ok := r[p.Column]
		if p.Value == nil {
			if ok && v != nil {
				return false
			}
			continue
		}
		if !ok || !reflect.DeepEqual(v, p.Value) {
			return false
		}
	}
	return true
}
