package contract

import (
	"fmt"
	"maps"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/pulse/schema"
)

// Default values for configuration.
const (
	DefaultLookbackDays = 14
	DefaultPrecision    = 1
	DefaultGitLabURL    = "https://gitlab.com"
	DefaultListenAddr   = "127.0.0.1:8080"
	DefaultTimeout      = 30 * time.Second
	DefaultCacheTTL     = time.Hour
)

// DefaultPanels mirrors the two side-by-side graphs of the activity page.
var DefaultPanels = []string{"A", "B"}

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// ProcessProfilingConfig enables profiling when a file prefix is given.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
}

// PanelToggle is one requested flip of a category on a panel, applied in order.
type PanelToggle struct {
	PanelID  string
	Category schema.Category
}

// Config holds the runtime configuration for the analysis.
// This struct is the "final, validated" config.
type Config struct {
	ProjectID   string
	Source      schema.SourceKind
	GitLabURL   string
	GitLabToken string // Please use env var as this is plaintext
	RepoPath    string
	InputFile   string

	StartTime   time.Time
	EndTime     time.Time
	Granularity schema.Granularity

	// Weights is the final category weight mapping, defaults included
	Weights map[schema.Category]float64

	Panels  []string
	Toggles []PanelToggle

	Output     schema.OutputMode
	OutputFile string
	Precision  int
	Width      int // Terminal width override (0 = auto-detect)
	Detail     bool
	UseColors  bool
	Timeout    time.Duration

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext
	CacheTTL       time.Duration

	AnalysisBackend   schema.DatabaseBackend
	AnalysisDBConnect string // Please use env var as this is plaintext

	ListenAddr string
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	ProjectArg string

	// --- Fields from rootCmd.PersistentFlags() ---
	Project           string `mapstructure:"project"`
	Source            string `mapstructure:"source"`
	GitLabURL         string `mapstructure:"gitlab-url"`
	GitLabToken       string `mapstructure:"gitlab-token"`
	RepoPath          string `mapstructure:"repo"`
	InputFile         string `mapstructure:"input"`
	Start             string `mapstructure:"start"`
	End               string `mapstructure:"end"`
	Lookback          string `mapstructure:"lookback"`
	Granularity       string `mapstructure:"granularity"`
	Output            string `mapstructure:"output"`
	OutputFile        string `mapstructure:"output-file"`
	Precision         int    `mapstructure:"precision"`
	Width             int    `mapstructure:"width"`
	Detail            bool   `mapstructure:"detail"`
	Color             string `mapstructure:"color"`
	Timeout           string `mapstructure:"timeout"`
	CacheBackend      string `mapstructure:"cache-backend"`
	CacheDBConnect    string `mapstructure:"cache-db-connect"`
	CacheTTL          string `mapstructure:"cache-ttl"`
	AnalysisBackend   string `mapstructure:"analysis-backend"`
	AnalysisDBConnect string `mapstructure:"analysis-db-connect"`

	// --- Fields from series/panels/serve flags ---
	Panels     string   `mapstructure:"panels"`
	Toggles    []string `mapstructure:"toggle"`
	ListenAddr string   `mapstructure:"listen"`

	// --- Weights: config file map, then the override flag ---
	WeightsStr string             `mapstructure:"weights-override"`
	Weights    map[string]float64 `mapstructure:"weights"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Weights != nil {
		clone.Weights = make(map[schema.Category]float64, len(c.Weights))
		maps.Copy(clone.Weights, c.Weights)
	}
	if c.Panels != nil {
		clone.Panels = make([]string, len(c.Panels))
		copy(clone.Panels, c.Panels)
	}
	if c.Toggles != nil {
		clone.Toggles = make([]PanelToggle, len(c.Toggles))
		copy(clone.Toggles, c.Toggles)
	}
	return &clone
}

// Range returns the analysis window as a DateRange.
func (c *Config) Range() schema.DateRange {
	return schema.DateRange{Start: c.StartTime, End: c.EndTime}
}

// ProcessAndValidate performs all complex parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processSource(cfg, input); err != nil {
		return err
	}
	if err := processTimeRange(cfg, input, time.Now()); err != nil {
		return err
	}
	if err := processWeights(cfg, input); err != nil {
		return err
	}
	if err := processPanels(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfigs validates cache and analysis backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = schema.SQLiteBackend
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return fmt.Errorf("cache-db-connect: %w", err)
	}

	cfg.CacheTTL = DefaultCacheTTL
	if input.CacheTTL != "" {
		ttl, err := ParseLookbackDuration(input.CacheTTL)
		if err != nil {
			return fmt.Errorf("invalid --cache-ttl: %w", err)
		}
		cfg.CacheTTL = ttl
	}

	// --- Analysis Backend Validation ---
	cfg.AnalysisBackend = schema.DatabaseBackend(strings.ToLower(input.AnalysisBackend))
	if cfg.AnalysisBackend == "" {
		cfg.AnalysisBackend = schema.NoneBackend
		return nil
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.AnalysisBackend]; !ok {
		return fmt.Errorf("invalid analysis backend '%s'. must be sqlite, mysql, postgresql, none", input.AnalysisBackend)
	}
	cfg.AnalysisDBConnect = input.AnalysisDBConnect
	if err := ValidateDatabaseConnectionString(cfg.AnalysisBackend, cfg.AnalysisDBConnect); err != nil {
		return fmt.Errorf("analysis-db-connect: %w", err)
	}

	// For SQLite, resolve to actual file paths to catch default path conflicts
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.AnalysisBackend == schema.SQLiteBackend {
		cacheDBPath := cfg.CacheDBConnect
		if cacheDBPath == "" {
			cacheDBPath = GetCacheDBFilePath()
		}
		analysisDBPath := cfg.AnalysisDBConnect
		if analysisDBPath == "" {
			analysisDBPath = GetAnalysisDBFilePath()
		}
		if cacheDBPath == analysisDBPath {
			return fmt.Errorf("cache and analysis storage must use different SQLite database files. Both resolve to %q", cacheDBPath)
		}
	}

	return nil
}

// validateSimpleInputs processes and validates all non-source, non-range fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Detail = input.Detail
	cfg.Width = input.Width
	cfg.ListenAddr = input.ListenAddr
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	if input.Precision < 1 || input.Precision > 2 {
		return fmt.Errorf("precision must be 1 or 2 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet, html", cfg.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}

	cfg.Granularity = schema.DayGranularity
	if input.Granularity != "" {
		g, ok := schema.ParseGranularity(input.Granularity)
		if !ok {
			return fmt.Errorf("%w: '%s'. must be hour, day, week, month", schema.ErrUnknownGranularity, input.Granularity)
		}
		cfg.Granularity = g
	}

	cfg.Timeout = DefaultTimeout
	if input.Timeout != "" {
		d, err := ParseLookbackDuration(input.Timeout)
		if err != nil {
			return fmt.Errorf("invalid --timeout: %w", err)
		}
		cfg.Timeout = d
	}

	return validateBackendConfigs(cfg, input)
}

// processSource resolves the project and the fetch collaborator settings.
func processSource(cfg *Config, input *ConfigRawInput) error {
	cfg.Source = schema.SourceKind(strings.ToLower(strings.TrimSpace(input.Source)))
	if cfg.Source == "" {
		cfg.Source = schema.GitLabSource
	}
	if _, ok := schema.ValidSourceKinds[cfg.Source]; !ok {
		return fmt.Errorf("invalid source '%s'. must be gitlab, git, file", input.Source)
	}

	// Positional argument takes precedence over --project
	cfg.ProjectID = strings.TrimSpace(input.ProjectArg)
	if cfg.ProjectID == "" {
		cfg.ProjectID = strings.TrimSpace(input.Project)
	}

	switch cfg.Source {
	case schema.GitLabSource:
		cfg.GitLabURL = strings.TrimRight(strings.TrimSpace(input.GitLabURL), "/")
		if cfg.GitLabURL == "" {
			cfg.GitLabURL = DefaultGitLabURL
		}
		u, err := url.Parse(cfg.GitLabURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid --gitlab-url '%s'", input.GitLabURL)
		}
		cfg.GitLabToken = input.GitLabToken
	case schema.GitSource:
		repo := input.RepoPath
		if repo == "" {
			repo = "."
		}
		abs, err := filepath.Abs(repo)
		if err != nil {
			return err
		}
		cfg.RepoPath = filepath.Clean(abs)
		if cfg.ProjectID == "" {
			cfg.ProjectID = filepath.Base(cfg.RepoPath)
		}
	case schema.FileSource:
		if input.InputFile == "" {
			return fmt.Errorf("--input is required when using the file source")
		}
		cfg.InputFile = input.InputFile
	}
	return nil
}

// processTimeRange handles the date parsing and time range validation.
func processTimeRange(cfg *Config, input *ConfigRawInput, now time.Time) error {
	lookback := time.Duration(DefaultLookbackDays) * 24 * time.Hour
	if input.Lookback != "" {
		d, err := ParseLookbackDuration(input.Lookback)
		if err != nil {
			return fmt.Errorf("invalid --lookback: %w", err)
		}
		lookback = d
	}

	cfg.EndTime = now
	if input.End != "" {
		t, err := ParseDateInput(input.End, now, time.UTC)
		if err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
		cfg.EndTime = t
	}

	cfg.StartTime = cfg.EndTime.Add(-lookback)
	if input.Start != "" {
		t, err := ParseDateInput(input.Start, now, time.UTC)
		if err != nil {
			return fmt.Errorf("invalid start date: %w", err)
		}
		cfg.StartTime = t
	}

	if err := cfg.Range().Validate(); err != nil {
		return fmt.Errorf("start time (%s) cannot be after end time (%s): %w",
			cfg.StartTime.Format(DateTimeFormat), cfg.EndTime.Format(DateTimeFormat), err)
	}
	return nil
}

// processWeights merges the config file weights with the --weights-override flag.
// The flag takes precedence, and categories without a weight keep the default.
func processWeights(cfg *Config, input *ConfigRawInput) error {
	weights := make(map[schema.Category]float64, len(schema.AllCategories))
	for _, c := range schema.AllCategories {
		weights[c] = schema.DefaultWeight
	}

	for key, w := range input.Weights {
		c, ok := schema.ParseCategory(key)
		if !ok {
			return fmt.Errorf("%w in weights: '%s'", schema.ErrUnknownCategory, key)
		}
		weights[c] = w
	}

	if input.WeightsStr != "" {
		parsed, err := ParseWeightsString(input.WeightsStr)
		if err != nil {
			return fmt.Errorf("invalid --weights-override format: %w", err)
		}
		maps.Copy(weights, parsed)
	}

	for c, w := range weights {
		if err := schema.ValidateWeight(c, w); err != nil {
			return err
		}
	}
	cfg.Weights = weights
	return nil
}

// processPanels parses the panel list and the ordered toggle requests.
func processPanels(cfg *Config, input *ConfigRawInput) error {
	cfg.Panels = nil
	seen := make(map[string]bool)
	for p := range strings.SplitSeq(input.Panels, ",") {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		cfg.Panels = append(cfg.Panels, p)
	}
	if len(cfg.Panels) == 0 {
		cfg.Panels = append([]string(nil), DefaultPanels...)
		for _, p := range cfg.Panels {
			seen[p] = true
		}
	}

	cfg.Toggles = nil
	for _, raw := range input.Toggles {
		for part := range strings.SplitSeq(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			t, err := ParseToggle(part)
			if err != nil {
				return err
			}
			if !seen[t.PanelID] {
				return fmt.Errorf("%w: toggle '%s' targets panel %q which is not in --panels", schema.ErrInvalidPanel, part, t.PanelID)
			}
			cfg.Toggles = append(cfg.Toggles, t)
		}
	}
	return nil
}

// ParseToggle parses a "panel:category" pair such as "A:merge_request".
func ParseToggle(s string) (PanelToggle, error) {
	panelID, catStr, ok := strings.Cut(s, ":")
	panelID = strings.TrimSpace(panelID)
	catStr = strings.TrimSpace(catStr)
	if !ok || panelID == "" || catStr == "" {
		return PanelToggle{}, fmt.Errorf("invalid toggle format '%s', expected 'panel:category'", s)
	}
	c, known := schema.ParseCategory(catStr)
	if !known {
		return PanelToggle{}, fmt.Errorf("%w: '%s' in toggle '%s'", schema.ErrUnknownCategory, catStr, s)
	}
	return PanelToggle{PanelID: panelID, Category: c}, nil
}

// ParseWeightsString parses a string like "commit:2,merge_request:0.5"
// into a map of Category to weight.
func ParseWeightsString(s string) (map[schema.Category]float64, error) {
	weights := make(map[schema.Category]float64)

	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		keyValue := strings.Split(part, ":")
		if len(keyValue) != 2 {
			return nil, fmt.Errorf("invalid weight format '%s', expected 'category:value'", part)
		}

		catStr := strings.TrimSpace(keyValue[0])
		valueStr := strings.TrimSpace(keyValue[1])

		c, ok := schema.ParseCategory(catStr)
		if !ok {
			return nil, fmt.Errorf("%w: '%s', must be commit or merge_request", schema.ErrUnknownCategory, catStr)
		}

		value, err := strconv.ParseFloat(valueStr, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight value '%s' for category %s: %w", valueStr, c, err)
		}
		if err := schema.ValidateWeight(c, value); err != nil {
			return nil, err
		}

		weights[c] = value
	}

	return weights, nil
}

// RequestOverrides are the per-request knobs accepted by the API and MCP servers.
// Empty fields keep the value from the base config.
type RequestOverrides struct {
	ProjectID   string
	Start       string
	End         string
	Lookback    string
	Granularity string
	Weights     string
}

// Revalidate applies per-request overrides to a cloned config and validates the result.
// The time range is only recomputed when one of Start, End or Lookback is set.
func Revalidate(cfg *Config, o RequestOverrides, now time.Time) error {
	if id := strings.TrimSpace(o.ProjectID); id != "" {
		cfg.ProjectID = id
	}
	if cfg.ProjectID == "" {
		return fmt.Errorf("a project is required")
	}

	if o.Start != "" || o.End != "" || o.Lookback != "" {
		input := &ConfigRawInput{Start: o.Start, End: o.End, Lookback: o.Lookback}
		if err := processTimeRange(cfg, input, now); err != nil {
			return err
		}
	}

	if o.Granularity != "" {
		g, ok := schema.ParseGranularity(o.Granularity)
		if !ok {
			return fmt.Errorf("%w: '%s'. must be hour, day, week, month", schema.ErrUnknownGranularity, o.Granularity)
		}
		cfg.Granularity = g
	}

	if o.Weights != "" {
		parsed, err := ParseWeightsString(o.Weights)
		if err != nil {
			return fmt.Errorf("invalid weights: %w", err)
		}
		if cfg.Weights == nil {
			cfg.Weights = make(map[schema.Category]float64, len(parsed))
		}
		maps.Copy(cfg.Weights, parsed)
	}
	return nil
}
