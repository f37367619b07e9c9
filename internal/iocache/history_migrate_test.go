package iocache

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/huangsam/datalens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func migrationVersion(t *testing.T, path string) int {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var version int
	err = db.QueryRow("SELECT version FROM schema_migrations").Scan(&version)
	if err == sql.ErrNoRows {
		return 0
	}
	require.NoError(t, err)
	return version
}

func tableExists(t *testing.T, path, name string) bool {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&count)
	require.NoError(t, err)
	return count > 0
}

func TestMigrateHistory(t *testing.T) {
	t.Run("none backend", func(t *testing.T) {
		err := MigrateHistory(schema.NoneBackend, "", -1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not supported")
	})

	t.Run("unsupported backend", func(t *testing.T) {
		err := MigrateHistory(schema.DatabaseBackend("oracle"), "", -1)
		require.Error(t, err)
	})

	t.Run("sqlite up and down", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "history.db")

		require.NoError(t, MigrateHistory(schema.SQLiteBackend, path, -1))
		assert.Equal(t, 2, migrationVersion(t, path))
		assert.True(t, tableExists(t, path, runsTable))

		// Running again is a no-op
		require.NoError(t, MigrateHistory(schema.SQLiteBackend, path, -1))
		assert.Equal(t, 2, migrationVersion(t, path))

		require.NoError(t, MigrateHistory(schema.SQLiteBackend, path, 1))
		assert.Equal(t, 1, migrationVersion(t, path))

		require.NoError(t, MigrateHistory(schema.SQLiteBackend, path, 0))
		assert.False(t, tableExists(t, path, runsTable))

		require.NoError(t, MigrateHistory(schema.SQLiteBackend, path, -1))
		assert.Equal(t, 2, migrationVersion(t, path))
	})

	t.Run("existing store table", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "history.db")
		store, err := NewHistoryStore(schema.SQLiteBackend, path)
		require.NoError(t, err)
		require.NoError(t, store.Close())

		require.NoError(t, MigrateHistory(schema.SQLiteBackend, path, -1))
		assert.Equal(t, 2, migrationVersion(t, path))
	})
}
