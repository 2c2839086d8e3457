package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// DB is the shared relational handle. Queries are written with '?'
// placeholders and rebound for the active driver.
type DB struct {
	*sqlx.DB
}

// Open connects, pings and migrates the database.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	if driver == "sqlite" {
		dsn = sqliteDSN(dsn)
	}

	sqlDB, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db: open %s: %w", driver, err)
	}

	if driver == "sqlite" {
		// a single connection keeps SQLite writers serialized
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("db: ping %s: %w", driver, err)
	}

	db := &DB{DB: sqlDB}
	if err := RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return db, nil
}

// OpenSQLite opens a file-backed SQLite database.
func OpenSQLite(ctx context.Context, path string) (*DB, error) {
	return Open(ctx, "sqlite", path)
}

// sqliteDSN enforces foreign keys and a busy timeout unless the dsn
// already sets pragmas of its own.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}
