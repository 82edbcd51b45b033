package iocache

import (
	"bytes"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/pulse/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheStore_NoneBackend(t *testing.T) {
	store, err := NewCacheStore(fetchTable, schema.NoneBackend, "")
	require.NoError(t, err)

	_, _, _, err = store.Get("k")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, store.Set("k", []byte("v"), 1, 1))

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "none", status.Backend)
	assert.False(t, status.Connected)
	assert.NoError(t, store.Close())
}

func TestCacheStore_SQLite(t *testing.T) {
	store, err := NewCacheStore(fetchTable, schema.SQLiteBackend, filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, _, _, err = store.Get("missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	require.NoError(t, store.Set("k", []byte(`{"commits":[]}`), 1, 100))
	require.NoError(t, store.Set("k", []byte(`{"commits":null}`), 2, 200))
	require.NoError(t, store.Set("other", []byte("x"), 1, 50))

	value, version, ts, err := store.Get("k")
	require.NoError(t, err)
	assert.Equal(t, `{"commits":null}`, string(value))
	assert.Equal(t, 2, version)
	assert.Equal(t, int64(200), ts)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, 2, status.TotalEntries)
	assert.Equal(t, time.Unix(50, 0), status.OldestEntryTime)
	assert.Equal(t, time.Unix(200, 0), status.LastEntryTime)
	assert.Greater(t, status.TableSizeBytes, int64(0))
}

func TestNewCacheStore_InvalidInputs(t *testing.T) {
	_, err := NewCacheStore("drop table;", schema.SQLiteBackend, ":memory:")
	assert.ErrorContains(t, err, "invalid table name")

	_, err = NewCacheStore("", schema.SQLiteBackend, ":memory:")
	assert.Error(t, err)

	_, err = NewCacheStore(fetchTable, "redis", "")
	assert.ErrorContains(t, err, "unsupported backend")
}

func TestQuoteTableName(t *testing.T) {
	assert.Equal(t, "`t`", quoteTableName("t", schema.MySQLBackend))
	assert.Equal(t, `"t"`, quoteTableName("t", schema.PostgreSQLBackend))
	assert.Equal(t, `"t"`, quoteTableName("t", schema.SQLiteBackend))
}

func TestRebind(t *testing.T) {
	q := "UPDATE t SET a = ?, b = ? WHERE c = ?"
	assert.Equal(t, q, rebind(schema.SQLiteBackend, q))
	assert.Equal(t, q, rebind(schema.MySQLBackend, q))
	assert.Equal(t, "UPDATE t SET a = $1, b = $2 WHERE c = $3", rebind(schema.PostgreSQLBackend, q))
}

func TestDBTimeScan(t *testing.T) {
	want := time.Date(2020, 9, 5, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		name  string
		value any
	}{
		{"native", want.In(time.FixedZone("X", 3600))},
		{"rfc3339", "2020-09-05T10:30:00Z"},
		{"mysql bytes", []byte("2020-09-05 10:30:00.000000")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d dbTime
			require.NoError(t, d.Scan(tt.value))
			assert.True(t, d.Valid)
			assert.True(t, want.Equal(d.Time))
			assert.Equal(t, time.UTC, d.Time.Location())
		})
	}

	var d dbTime
	require.NoError(t, d.Scan(nil))
	assert.Nil(t, d.Ptr())
	assert.Error(t, d.Scan("yesterday"))
	assert.Error(t, d.Scan(42))
}

func TestClearCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := NewCacheStore(fetchTable, schema.SQLiteBackend, path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	require.NoError(t, ClearCache(schema.SQLiteBackend, path, ""))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Clearing twice is fine
	assert.NoError(t, ClearCache(schema.SQLiteBackend, path, ""))
	assert.NoError(t, ClearCache(schema.NoneBackend, "", ""))
	assert.Error(t, ClearCache(schema.SQLiteBackend, "", ""))
	assert.Error(t, ClearAnalysis("redis", "", ""))
}

func TestCacheStoreManager(t *testing.T) {
	fetch := &MockCacheStore{}
	analysis := &MockAnalysisStore{}
	mgr := NewCacheStoreManager(fetch, analysis)
	assert.Same(t, fetch, mgr.GetFetchStore())
	assert.Same(t, analysis, mgr.GetAnalysisStore())

	empty := NewCacheStoreManager(nil, nil)
	assert.Nil(t, empty.GetFetchStore())
	assert.Nil(t, empty.GetAnalysisStore())
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	PrintCacheStatus(&buf, schema.CacheStatus{Backend: "none"})
	assert.Contains(t, buf.String(), "Connected: false")
	assert.NotContains(t, buf.String(), "Total Entries")

	buf.Reset()
	PrintCacheStatus(&buf, schema.CacheStatus{
		Backend: "sqlite", Connected: true, TotalEntries: 1200, TableSizeBytes: 2048,
		LastEntryTime: time.Now(), OldestEntryTime: time.Now().Add(-time.Hour),
	})
	assert.Contains(t, buf.String(), "Total Entries: 1,200")
	assert.Contains(t, buf.String(), "Table Size: 2.0 kB")

	buf.Reset()
	PrintAnalysisStatus(&buf, schema.AnalysisStatus{
		Backend: "sqlite", Connected: true, TotalRuns: 2, LastRunID: 2, TotalEvents: 10,
		LastRunTime: time.Now(), OldestRunTime: time.Now(),
		TableSizes: map[string]int64{timeBucketsTable: 60, analysisRunsTable: 2},
	})
	out := buf.String()
	assert.Contains(t, out, "Last Run ID: 2")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte(analysisRunsTable)), bytes.Index(buf.Bytes(), []byte(timeBucketsTable)))
}
