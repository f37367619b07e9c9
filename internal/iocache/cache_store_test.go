package iocache

import (
	"database/sql"
	"testing"
	"time"

	"github.com/huangsam/datalens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheStore_NoneBackend(t *testing.T) {
	store, err := NewCacheStore(resultsTable, schema.NoneBackend, "")
	require.NoError(t, err)

	_, _, _, err = store.Get("missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, store.Set("k", []byte("v"), 1, 1))

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "none", status.Backend)
	assert.False(t, status.Connected)
	assert.NoError(t, store.Close())
}

func TestCacheStore_SQLite(t *testing.T) {
	store, err := NewCacheStore(resultsTable, schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, _, _, err = store.Get("missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	now := time.Now().Unix()
	require.NoError(t, store.Set("k1", []byte(`{"a":1}`), 1, now-100))
	require.NoError(t, store.Set("k2", []byte(`{"b":2}`), 1, now))

	data, version, ts, err := store.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), data)
	assert.Equal(t, 1, version)
	assert.Equal(t, now-100, ts)

	// Upsert replaces the value
	require.NoError(t, store.Set("k1", []byte(`{"a":3}`), 2, now))
	data, version, _, err = store.Get("k1")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":3}`), data)
	assert.Equal(t, 2, version)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, 2, status.TotalEntries)
	assert.Equal(t, now, status.LastEntryTime.Unix())
	assert.Equal(t, now, status.OldestEntryTime.Unix())
	assert.Positive(t, status.TableSizeBytes)
}

func TestCacheStore_EmptyStatus(t *testing.T) {
	store, err := NewCacheStore(resultsTable, schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 0, status.TotalEntries)
	assert.True(t, status.LastEntryTime.IsZero())
}

func TestCacheStore_InvalidTableName(t *testing.T) {
	tests := []string{"", "1abc", "drop table;", "a-b"}
	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewCacheStore(name, schema.SQLiteBackend, ":memory:")
			assert.Error(t, err)
		})
	}
}

func TestCacheStore_UnsupportedBackend(t *testing.T) {
	_, err := NewCacheStore(resultsTable, schema.DatabaseBackend("oracle"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported backend")
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"?", "?"}, placeholders(schema.SQLiteBackend, 2))
	assert.Equal(t, []string{"?"}, placeholders(schema.MySQLBackend, 1))
	assert.Equal(t, []string{"$1", "$2", "$3"}, placeholders(schema.PostgreSQLBackend, 3))
}

func TestQuoteTableName(t *testing.T) {
	assert.Equal(t, "`t`", quoteTableName("t", schema.MySQLBackend))
	assert.Equal(t, `"t"`, quoteTableName("t", schema.PostgreSQLBackend))
	assert.Equal(t, `"t"`, quoteTableName("t", schema.SQLiteBackend))
}

func TestNullTimeScan(t *testing.T) {
	ref := time.Date(2024, 3, 4, 5, 6, 7, 890000000, time.UTC)
	tests := []struct {
		name  string
		in    any
		valid bool
	}{
		{"nil", nil, false},
		{"native", ref, true},
		{"rfc3339 string", ref.Format(time.RFC3339Nano), true},
		{"mysql bytes", []byte(ref.Format(mysqlTimeLayout)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n nullTime
			require.NoError(t, n.Scan(tt.in))
			assert.Equal(t, tt.valid, n.Valid)
			if tt.valid {
				assert.True(t, ref.Equal(n.Time))
				require.NotNil(t, n.Ptr())
			} else {
				assert.Nil(t, n.Ptr())
			}
		})
	}

	var n nullTime
	assert.Error(t, n.Scan("yesterday"))
	assert.Error(t, n.Scan(42))
}
