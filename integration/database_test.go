//go:build database

package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDatalensWithMySQL tests the datalens CLI with a MySQL backend.
func TestDatalensWithMySQL(t *testing.T) {
	ctx := context.Background()

	// Start MySQL container
	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "datalens",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = mysqlC.Terminate(ctx) }()

	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	connStr := fmt.Sprintf("root:secret123@tcp(%s:%s)/datalens?parseTime=true", host, port.Port())
	t.Setenv("DATALENS_CACHE_BACKEND", "mysql")
	t.Setenv("DATALENS_CACHE_DB_CONNECT", connStr)
	t.Setenv("DATALENS_HISTORY_BACKEND", "mysql")
	t.Setenv("DATALENS_HISTORY_DB_CONNECT", connStr)

	exerciseStores(t)
}

// TestDatalensWithPostgres tests the datalens CLI with a PostgreSQL backend.
func TestDatalensWithPostgres(t *testing.T) {
	ctx := context.Background()

	// Start Postgres container
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = pgC.Terminate(ctx) }()

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres", host, port.Port())
	t.Setenv("DATALENS_CACHE_BACKEND", "postgresql")
	t.Setenv("DATALENS_CACHE_DB_CONNECT", connStr)
	t.Setenv("DATALENS_HISTORY_BACKEND", "postgresql")
	t.Setenv("DATALENS_HISTORY_DB_CONNECT", connStr)

	exerciseStores(t)
}

// exerciseStores clears both stores, runs two analyses and checks the status output.
func exerciseStores(t *testing.T) {
	t.Helper()
	sample := writeSalesCSV(t, 45)

	_, err := runDatalens(t, "cache", "clear")
	require.NoError(t, err)
	_, err = runDatalens(t, "history", "clear")
	require.NoError(t, err)
	_, err = runDatalens(t, "history", "migrate")
	require.NoError(t, err)

	// The second run is served from the result cache.
	for range 2 {
		_, err = runDatalens(t, "analyze", sample, "--output", "json")
		require.NoError(t, err)
	}

	out, err := runDatalens(t, "cache", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Connected: true")
	assert.Contains(t, out, "Total Entries: 1")

	out, err = runDatalens(t, "history", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Runs: 2")
	assert.Contains(t, out, "Runs With Forecast: 2")
}
