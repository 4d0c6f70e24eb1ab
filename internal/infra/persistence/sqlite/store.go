// Package sqlite provides an embedded SQLite table store, used for local clone
// targets and for exercising the engine against a real SQL database in tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"flowclone/internal/infra/persistence/sqlstore"
	"flowclone/internal/tablestore"
)

var _ tablestore.Store = (*Store)(nil)

// SQLITE_MAX_VARIABLE_NUMBER default since 3.32.
const maxParams = 32766

// Dialect renders ? placeholders and double-quoted identifiers.
var Dialect = sqlstore.Dialect{
	Name:        "sqlite",
	Placeholder: sqlstore.QuestionPlaceholder,
	Quote:       sqlstore.QuoteDouble,
	MaxParams:   maxParams,
}

// Store is a SQLite table store bound to one database file.
type Store struct {
	*sqlstore.Store
	path string
}

// Open opens (creating if needed) the database at path. ":memory:" is accepted.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = "flowclone.db"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps ":memory:" coherent.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &Store{Store: sqlstore.New(db, Dialect), path: path}, nil
}

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
