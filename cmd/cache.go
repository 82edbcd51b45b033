package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/internal/iocache"
	"github.com/huangsam/pulse/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cacheSetup opens only the fetch cache.
func cacheSetup() error {
	if err := loadConfigFile(); err != nil {
		return err
	}

	backend := schema.DatabaseBackend(viper.GetString("cache-backend"))
	connStr := viper.GetString("cache-db-connect")

	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	if err := iocache.InitStores(backend, connStr, "", ""); err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}

	cfg.CacheBackend = backend
	cfg.CacheDBConnect = connStr

	return nil
}

// cacheSetupWrapper wraps cacheSetup to provide PreRunE for cache commands.
func cacheSetupWrapper(_ *cobra.Command, _ []string) error {
	return cacheSetup()
}

// sqliteFile returns the SQLite file behind a store, falling back to the default path.
func sqliteFile(connStr, defaultPath string) string {
	if connStr != "" {
		return connStr
	}
	return defaultPath
}

// cacheCmd groups the fetch cache subcommands. They skip project and range validation.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear cached activity",
	Long: `Manage the cache of fetched project activity.

Pulse caches the raw commits and merge requests of each project and range so
repeated runs skip the activity source. Entries expire after --cache-ttl.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status - Count cached batches and show their age
  clear  - Drop every cached batch

Examples:
  # Clear cache after history was rewritten
  pulse cache clear`,
}

// cacheClearCmd clears the cache.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached activity data",
	Long: `Delete all cached activity from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the cache table

Examples:
  # Clear SQLite cache (default)
  pulse cache clear

  # Clear MySQL cache (set connection string via env variable)
  PULSE_CACHE_BACKEND=mysql PULSE_CACHE_DB_CONNECT="..." pulse cache clear`,
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		// Release the SQLite handle before the file is removed
		iocache.CloseStores()
		path := sqliteFile(cfg.CacheDBConnect, iocache.GetDBFilePath())
		if err := iocache.ClearCache(cfg.CacheBackend, path, cfg.CacheDBConnect); err != nil {
			contract.LogFatal("Failed to clear cache", err)
		}
		fmt.Println("Cache cleared successfully.")
	},
}

// cacheStatusCmd shows cache status.
var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show fetch cache statistics",
	Long: `Print the cache backend, the number of cached batches, the newest
and oldest entry and the table size.

Examples:
  pulse cache status
  PULSE_CACHE_BACKEND=mysql PULSE_CACHE_DB_CONNECT="..." pulse cache status`,
	PreRunE: cacheSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store := iocache.Manager.GetFetchStore()
		if store == nil {
			contract.LogFatal("Failed to get cache status", fmt.Errorf("cache is not initialized"))
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get cache status", err)
		}
		iocache.PrintCacheStatus(os.Stdout, status)
	},
}
