package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// Config is populated by envconfig under the SQLITE_ prefix.
type Config struct {
	DSN string `envconfig:"SQLITE_DSN" default:"file:orchestrator.db?_busy_timeout=5000"`
}

// IsMemory reports whether dsn points at an in-memory database.
func IsMemory(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

// Open opens the database and applies migrations in order.
func Open(ctx context.Context, dsn string, migrations []string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// every new connection to an in-memory DSN is a fresh, empty database
	if IsMemory(dsn) {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return db, nil
}
