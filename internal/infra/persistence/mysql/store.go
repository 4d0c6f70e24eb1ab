// Package mysql provides a MySQL/MariaDB table store for clone targets hosted on
// MySQL-compatible servers.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	gomysql "github.com/go-sql-driver/mysql"

	"flowclone/internal/infra/persistence/sqlstore"
	"flowclone/internal/tablestore"
)

var _ tablestore.Store = (*Store)(nil)

const (
	driverName = "mysql"
	maxParams  = 65535
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Dialect renders ? placeholders and backtick-quoted identifiers.
var Dialect = sqlstore.Dialect{
	Name:        "mysql",
	Placeholder: sqlstore.QuestionPlaceholder,
	Quote:       sqlstore.QuoteBacktick,
	MaxParams:   maxParams,
}

// Store is a MySQL table store.
type Store struct {
	*sqlstore.Store
}

// NormalizeDSN parses a go-sql-driver DSN and enables time parsing so DATETIME
// columns round-trip as time.Time rather than raw bytes.
func NormalizeDSN(dsn string) (string, error) {
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// Open connects to dsn and pings the server.
func Open(ctx context.Context, dsn string) (*Store, error) {
	normalized, err := NormalizeDSN(dsn)
	if err != nil {
		return nil, err
	}
	openMu.Lock()
	db, err := sqlOpen(driverName, normalized)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return &Store{Store: sqlstore.New(db, Dialect)}, nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
