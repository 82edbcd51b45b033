package iocache

import (
	"fmt"
	"os"
	"sync"

	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/schema"
)

// fetchTable is the name of the table for fetched batches.
const fetchTable = "pulse_fetch_cache"

// Global Manager instance for main logic.
var (
	Manager   = &CacheStoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// GetDBFilePath returns the path to the SQLite DB file for cache storage.
func GetDBFilePath() string {
	return contract.GetCacheDBFilePath()
}

// GetAnalysisDBFilePath returns the path to the SQLite DB file for analysis storage.
func GetAnalysisDBFilePath() string {
	return contract.GetAnalysisDBFilePath()
}

// InitStores initializes the global manager with the fetch cache and the analysis store.
// An empty backend leaves the corresponding store unset.
func InitStores(cacheBackend schema.DatabaseBackend, cacheConnStr string, analysisBackend schema.DatabaseBackend, analysisConnStr string) error {
	var initErr error

	initOnce.Do(func() {
		var fetchStore contract.CacheStore
		if cacheBackend != "" {
			store, err := NewCacheStore(fetchTable, cacheBackend, cacheConnStr)
			if err != nil {
				initErr = fmt.Errorf("failed to initialize fetch caching: %w", err)
				return
			}
			fetchStore = store
		}

		var analysisStore contract.AnalysisStore
		if analysisBackend != "" && analysisBackend != schema.NoneBackend {
			store, err := NewAnalysisStore(analysisBackend, analysisConnStr)
			if err != nil {
				if fetchStore != nil {
					_ = fetchStore.Close()
				}
				initErr = fmt.Errorf("failed to initialize analysis store: %w", err)
				return
			}
			analysisStore = store
		}

		Manager.Lock()
		defer Manager.Unlock()
		Manager.fetch = fetchStore
		Manager.analysis = analysisStore
	})

	return initErr
}

// CloseStores should be called on application shutdown.
func CloseStores() {
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.fetch != nil {
			_ = Manager.fetch.Close()
		}
		if Manager.analysis != nil {
			_ = Manager.analysis.Close()
		}
	})
}

// ClearCache clears the fetch cache for the specified backend.
// For SQLite, it deletes the database file.
// For SQL backends (MySQL/PostgreSQL), it drops the table.
func ClearCache(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	return clearBackend(backend, dbFilePath, connStr, fetchTable)
}

// ClearAnalysis clears the analysis history for the specified backend.
// For SQL backends, the golang-migrate bookkeeping table is dropped too.
func ClearAnalysis(backend schema.DatabaseBackend, dbFilePath, connStr string) error {
	tables := append([]string{"schema_migrations"}, analysisTables...)
	return clearBackend(backend, dbFilePath, connStr, tables...)
}

func clearBackend(backend schema.DatabaseBackend, dbFilePath, connStr string, tables ...string) error {
	switch backend {
	case schema.SQLiteBackend:
		if dbFilePath == "" {
			return fmt.Errorf("dbFilePath cannot be empty for SQLite backend")
		}
		if err := os.Remove(dbFilePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove SQLite database file %s: %w", dbFilePath, err)
		}
		return nil

	case schema.MySQLBackend, schema.PostgreSQLBackend:
		return dropTables(backend, connStr, tables...)

	case schema.NoneBackend:
		return nil

	default:
		return fmt.Errorf("unsupported backend for clearing: %s", backend)
	}
}

// dropTables connects to the SQL database and drops the tables if they exist.
func dropTables(backend schema.DatabaseBackend, connStr string, tables ...string) error {
	db, err := openDB(backend, connStr, "")
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	for _, table := range tables {
		if err := validateTableName(table); err != nil {
			return err
		}
		if _, err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteTableName(table, backend))); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}
