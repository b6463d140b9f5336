// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package database

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vinovest/sqlx"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

const defaultDSN = "./data/guard.db"

// Open connects to the database and applies pending migrations.
func Open(dsn string) (*sqlx.DB, error) {
	conn, err := Connect(dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(conn.DB); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return conn, nil
}

// Connect opens the database with tuned SQLite settings but does not
// touch the schema.
func Connect(dsn string) (*sqlx.DB, error) {
	if dsn == "" {
		dsn = defaultDSN
	}

	memory := strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
	if !memory {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o750); err != nil {
			return nil, err
		}
	}

	conn, err := sqlx.Open("sqlite", addDefaultParams(dsn))
	if err != nil {
		return nil, err
	}

	// Every pooled connection to ":memory:" would be its own empty database.
	if memory {
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(10)
		conn.SetMaxIdleConns(5)
	}
	conn.SetConnMaxLifetime(time.Hour)

	if err := configureSQLite(context.Background(), conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return conn, nil
}

// addDefaultParams adds recommended SQLite parameters if not already present.
// _txlock=immediate makes every transaction take the write lock on BEGIN,
// so a read-modify-write inside one transaction cannot interleave with another.
func addDefaultParams(dsn string) string {
	defaults := []struct{ marker, param string }{
		{"_txlock=", "_txlock=immediate"},
		{"busy_timeout", "_pragma=busy_timeout(5000)"},
		{"foreign_keys", "_pragma=foreign_keys(1)"},
	}

	for _, d := range defaults {
		if strings.Contains(dsn, d.marker) {
			continue
		}
		separator := "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
		dsn += separator + d.param
	}

	return dsn
}

// configureSQLite sets PRAGMAs for optimal performance.
func configureSQLite(ctx context.Context, db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA cache_size = 2000",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return err
		}
	}

	return nil
}
