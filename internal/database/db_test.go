// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package database

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_InMemory(t *testing.T) {
	db, err := Open(":memory:")

	require.NoError(t, err)
	require.NotNil(t, db)
	require.NoError(t, db.Close())
}

func TestOpen_DefaultDSN(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, _ := os.Getwd()
	require.NoError(t, os.Chdir(tmpDir))
	defer func() {
		_ = os.Chdir(oldWd)
	}()

	db, err := Open("")
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	_, err = os.Stat(defaultDSN)
	assert.NoError(t, err)
}

func TestOpen_MigrationsApplied(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	for _, table := range []string{"accounts", "reference_phrases", "clarification_contexts"} {
		var count int64
		err = db.Get(&count, "SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?", table)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count, table)
	}
}

func TestOpen_FileDatabase(t *testing.T) {
	dbPath := t.TempDir() + "/subdir/test.db"

	db, err := Open(dbPath)
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	var journalMode string
	require.NoError(t, db.Get(&journalMode, "PRAGMA journal_mode"))
	assert.Equal(t, "wal", journalMode)

	var foreignKeys int
	require.NoError(t, db.Get(&foreignKeys, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, foreignKeys)
}

func TestConnect_DoesNotMigrate(t *testing.T) {
	db, err := Connect(":memory:")
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	var count int64
	require.NoError(t, db.Get(&count, "SELECT count(*) FROM sqlite_master WHERE type='table' AND name='accounts'"))
	assert.Equal(t, int64(0), count)
}

func TestMigrateReset(t *testing.T) {
	dbPath := t.TempDir() + "/reset.db"
	db, err := Open(dbPath)
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	version, err := Version(db.DB)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	require.NoError(t, MigrateReset(db.DB))

	var count int64
	require.NoError(t, db.Get(&count, "SELECT count(*) FROM sqlite_master WHERE type='table' AND name='accounts'"))
	assert.Equal(t, int64(0), count)
}

func TestAddDefaultParams(t *testing.T) {
	tests := []struct {
		name     string
		dsn      string
		expected string
	}{
		{
			name:     "bare path",
			dsn:      "app.db",
			expected: "app.db?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
		},
		{
			name:     "existing query",
			dsn:      "file:app.db?cache=shared",
			expected: "file:app.db?cache=shared&_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
		},
		{
			name:     "txlock already set",
			dsn:      "app.db?_txlock=exclusive",
			expected: "app.db?_txlock=exclusive&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, addDefaultParams(tt.dsn))
		})
	}
}
