// Package cmd defines the command-line interface for pulse.
package cmd

import (
	"fmt"

	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(seriesCmd)
	rootCmd.AddCommand(panelsCmd)
	rootCmd.AddCommand(weightsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(analysisCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the analysis subcommands to the parent analysis command
	analysisCmd.AddCommand(analysisClearCmd)
	analysisCmd.AddCommand(analysisStatusCmd)
	analysisCmd.AddCommand(analysisExportCmd)
	analysisCmd.AddCommand(analysisMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().StringP("project", "p", "", "Project ID or namespaced path (a positional argument takes precedence)")
	rootCmd.PersistentFlags().String("source", string(schema.GitLabSource), "Activity source: gitlab or git or file")
	rootCmd.PersistentFlags().String("gitlab-url", contract.DefaultGitLabURL, "Base URL of the GitLab instance")
	rootCmd.PersistentFlags().String("gitlab-token", "", "GitLab private token (prefer PULSE_GITLAB_TOKEN)")
	rootCmd.PersistentFlags().String("repo", ".", "Path to the local Git repository for the git source")
	rootCmd.PersistentFlags().String("input", "", "Path to a JSON export for the file source")
	rootCmd.PersistentFlags().String("start", "", "Start date in ISO8601 or time ago")
	rootCmd.PersistentFlags().String("end", "", "End date in ISO8601 or time ago (default now)")
	rootCmd.PersistentFlags().String("lookback", fmt.Sprintf("%d days", contract.DefaultLookbackDays), "Time window before the end date when no start is given")
	rootCmd.PersistentFlags().String("granularity", string(schema.DayGranularity), "Bucket width: hour or day or week or month")
	rootCmd.PersistentFlags().String("panels", "A,B", "Comma-separated panel IDs")
	rootCmd.PersistentFlags().StringSlice("toggle", nil, "Flip a category on a panel, applied in order (format: 'A:merge_request')")
	rootCmd.PersistentFlags().String("weights-override", "", "Category weights (format: 'commit:1,merge_request:2')")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet or html")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().Bool("detail", false, "Print per-category counts and weights")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("timeout", "", "Timeout for each request to the activity source (e.g., '30s')")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().String("cache-backend", string(schema.SQLiteBackend), "Cache backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("cache-ttl", "", "Maximum age of a cached fetch (e.g., '1h', '2 days')")
	rootCmd.PersistentFlags().String("analysis-backend", "", "Analysis tracking backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("analysis-db-connect", "", "Database connection string for analysis tracking (a SQLite file must differ from the cache file)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	serveCmd.Flags().String("listen", contract.DefaultListenAddr, "Address for the HTTP API")
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		contract.LogFatal("Error binding serve flags", err)
	}

	// Bind all flags of analysisMigrateCmd to Viper
	analysisMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(analysisMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding analysis migrate flags", err)
	}
}
