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

// analysisBackendConfig reads and validates the analysis backend settings.
func analysisBackendConfig() (schema.DatabaseBackend, string, error) {
	if err := loadConfigFile(); err != nil {
		return "", "", err
	}

	backendStr := viper.GetString("analysis-backend")
	connStr := viper.GetString("analysis-db-connect")

	backend := schema.NoneBackend
	if backendStr != "" {
		backend = schema.DatabaseBackend(backendStr)
	}
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return "", "", fmt.Errorf("invalid analysis backend '%s'. must be sqlite, mysql, postgresql, none", backendStr)
	}

	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// analysisSetup opens only the history store.
func analysisSetup() error {
	backend, connStr, err := analysisBackendConfig()
	if err != nil {
		return err
	}

	// Initialize stores with the loaded config (no fetch cache for analysis commands)
	if err := iocache.InitStores("", "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize analysis: %w", err)
	}

	cfg.AnalysisBackend = backend
	cfg.AnalysisDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")

	return nil
}

// analysisSetupWrapper wraps analysisSetup to provide PreRunE for analysis commands.
func analysisSetupWrapper(_ *cobra.Command, _ []string) error {
	return analysisSetup()
}

// analysisMigrateSetup resolves the history backend without opening the stores,
// so migrations run against an empty database.
func analysisMigrateSetup() error {
	backend, connStr, err := analysisBackendConfig()
	if err != nil {
		return err
	}

	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetAnalysisDBFilePath()
	}

	cfg.AnalysisBackend = backend
	cfg.AnalysisDBConnect = connStr

	return nil
}

// analysisMigrateSetupWrapper wraps analysisMigrateSetup to provide PreRunE for migrate command.
func analysisMigrateSetupWrapper(_ *cobra.Command, _ []string) error {
	return analysisMigrateSetup()
}

// analysisCmd groups the run history subcommands.
//
// Note: Analysis subcommands use minimal initialization (analysisSetup) instead of
// the full sharedSetup used by score and series. This avoids project and range
// validation for simple history operations.
var analysisCmd = &cobra.Command{
	Use:   "analysis",
	Short: "Inspect, export and migrate the run history",
	Long: `Work with the history of score and series runs.

When enabled with --analysis-backend, pulse records every score and series run:
- Run metadata (project, range, granularity, weights, duration)
- Category scores with event counts and weights
- Dense bucket counts per category

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled, default)

Subcommands:
  status  - Count recorded runs and show their time span
  export  - Write runs, scores and buckets to Parquet
  clear   - Drop every recorded run
  migrate - Move the history schema to a version

Examples:
  # How many runs are recorded
  pulse analysis status --analysis-backend sqlite

  # Dump the history for pandas or DuckDB
  pulse analysis export --analysis-backend sqlite --output-file history`,
}

// analysisClearCmd clears the analysis data.
var analysisClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every recorded run",
	Long: `Delete all stored analysis runs, category scores and time buckets.

The history cannot be recovered afterwards, so export it first if needed.

Examples:
  # Keep a copy, then clear
  pulse analysis export --output-file backup
  pulse analysis clear`,
	PreRunE: analysisSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		// Release the SQLite handle before the file is removed
		iocache.CloseStores()
		path := sqliteFile(cfg.AnalysisDBConnect, iocache.GetAnalysisDBFilePath())
		if err := iocache.ClearAnalysis(cfg.AnalysisBackend, path, cfg.AnalysisDBConnect); err != nil {
			contract.LogFatal("Failed to clear run history", err)
		}
		fmt.Println("Run history cleared.")
	},
}

// analysisStatusCmd shows analysis status.
var analysisStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show run history statistics",
	Long: `Print the history backend, the number of recorded runs and their
time span, plus the row count of each history table.

Examples:
  pulse analysis status --analysis-backend sqlite`,
	PreRunE: analysisSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store := iocache.Manager.GetAnalysisStore()
		if store == nil {
			contract.LogFatal("Failed to get analysis status", fmt.Errorf("analysis tracking is disabled. Set --analysis-backend"))
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get analysis status", err)
		}
		iocache.PrintAnalysisStatus(os.Stdout, status)
	},
}

// analysisExportCmd exports analysis data to Parquet files.
var analysisExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the run history to Parquet files",
	Long: `Write every recorded run to Parquet.

Writes three files next to --output-file:
- <name>.analysis_runs.parquet   - metadata about each run
- <name>.category_scores.parquet - per-category scores of each run
- <name>.time_buckets.parquet    - per-bucket counts of each series run

--output-file is required.

Examples:
  pulse analysis export --output-file pulse-data

  # Query the scores with DuckDB
  duckdb -c "SELECT * FROM read_parquet('pulse-data.category_scores.parquet') LIMIT 10"`,
	PreRunE: analysisSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExportAnalysis(os.Stdout, iocache.Manager.GetAnalysisStore(), cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export analysis data", err)
		}
	},
}

// analysisMigrateCmd runs database migrations for the analysis store.
var analysisMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Upgrade or roll back the history schema",
	Long: `Apply the embedded history migrations. Without --target-version the
schema moves to the newest version; 0 rolls every migration back.

Examples:
  # Newest schema
  pulse analysis migrate --analysis-backend sqlite

  # Stop at the category scores table
  pulse analysis migrate --target-version 2

  # Rollback every migration
  pulse analysis migrate --target-version 0`,
	PreRunE: analysisMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		result, err := iocache.MigrateAnalysis(cfg.AnalysisBackend, cfg.AnalysisDBConnect, targetVersion)
		if err != nil {
			contract.LogFatal("History migration failed", err)
		}
		fmt.Println(result)
	},
}
