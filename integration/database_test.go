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

// TestPulseWithMySQL runs the CLI against a MySQL cache and analysis backend.
func TestPulseWithMySQL(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "pulse",
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

	connStr := fmt.Sprintf("root:secret123@tcp(%s:%s)/pulse?parseTime=true", host, port.Port())
	runBackendScenario(t, "mysql", connStr)
}

// TestPulseWithPostgres runs the CLI against a PostgreSQL cache and analysis backend.
func TestPulseWithPostgres(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
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

	connStr := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres sslmode=disable", host, port.Port())
	runBackendScenario(t, "postgresql", connStr)
}

// runBackendScenario migrates the analysis schema, scores this repository twice and
// checks that the second run is served from the cache and tracked in the history.
func runBackendScenario(t *testing.T, backend, connStr string) {
	t.Setenv("PULSE_CACHE_BACKEND", backend)
	t.Setenv("PULSE_CACHE_DB_CONNECT", connStr)
	t.Setenv("PULSE_ANALYSIS_BACKEND", backend)
	t.Setenv("PULSE_ANALYSIS_DB_CONNECT", connStr)

	_, err := runPulse(t, "analysis", "migrate")
	require.NoError(t, err)

	_, err = runPulse(t, "cache", "clear")
	require.NoError(t, err)

	_, err = runPulse(t, "analysis", "clear")
	require.NoError(t, err)

	scoreArgs := []string{"score", "--source", "git", "--repo", ".", "--lookback", "5 years", "--output", "csv"}
	first, err := runPulse(t, scoreArgs...)
	require.NoError(t, err)
	second, err := runPulse(t, scoreArgs...)
	require.NoError(t, err)
	assert.Equal(t, first, second, "cached run should score the same activity")

	_, err = runPulse(t, "series", "--source", "git", "--repo", ".", "--lookback", "1 year", "--granularity", "month")
	require.NoError(t, err)

	out, err := runPulse(t, "cache", "status")
	require.NoError(t, err)
	assert.Contains(t, out, backend)

	out, err = runPulse(t, "analysis", "status")
	require.NoError(t, err)
	assert.Contains(t, out, backend)
}
