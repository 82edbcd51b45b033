package contract

import (
	"math"
	"testing"
	"time"

	"github.com/huangsam/pulse/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// baseInput returns a raw input that passes validation with the file source.
func baseInput() *ConfigRawInput {
	return &ConfigRawInput{
		Source:       "file",
		InputFile:    "testdata/batch.json",
		Project:      "42",
		Start:        "2020-09-01",
		End:          "2020-09-30",
		Precision:    1,
		Output:       "text",
		Color:        "no",
		CacheBackend: "none",
	}
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError error
		wantErr     bool
	}{
		{name: "valid minimal config", mutate: func(*ConfigRawInput) {}},
		{name: "invalid source", mutate: func(in *ConfigRawInput) { in.Source = "svn" }, wantErr: true},
		{name: "file source without input", mutate: func(in *ConfigRawInput) { in.InputFile = "" }, wantErr: true},
		{name: "invalid output", mutate: func(in *ConfigRawInput) { in.Output = "xml" }, wantErr: true},
		{name: "parquet without file", mutate: func(in *ConfigRawInput) { in.Output = "parquet" }, wantErr: true},
		{name: "precision out of range", mutate: func(in *ConfigRawInput) { in.Precision = 3 }, wantErr: true},
		{name: "bad color", mutate: func(in *ConfigRawInput) { in.Color = "maybe" }, wantErr: true},
		{
			name:        "unknown granularity",
			mutate:      func(in *ConfigRawInput) { in.Granularity = "fortnight" },
			expectError: schema.ErrUnknownGranularity,
		},
		{
			name:        "start after end",
			mutate:      func(in *ConfigRawInput) { in.Start, in.End = "2020-10-01", "2020-09-01" },
			expectError: schema.ErrInvalidRange,
		},
		{
			name:        "negative weight",
			mutate:      func(in *ConfigRawInput) { in.WeightsStr = "commit:-1" },
			expectError: schema.ErrNegativeWeight,
		},
		{
			name:        "config file weight is NaN",
			mutate:      func(in *ConfigRawInput) { in.Weights = map[string]float64{"merge_request": math.NaN()} },
			expectError: schema.ErrInvalidWeight,
		},
		{
			name:        "toggle targets unknown panel",
			mutate:      func(in *ConfigRawInput) { in.Toggles = []string{"C:commit"} },
			expectError: schema.ErrInvalidPanel,
		},
		{
			name:        "toggle with unknown category",
			mutate:      func(in *ConfigRawInput) { in.Toggles = []string{"A:issue"} },
			expectError: schema.ErrUnknownCategory,
		},
		{
			name:    "mysql without connection string",
			mutate:  func(in *ConfigRawInput) { in.CacheBackend = "mysql" },
			wantErr: true,
		},
		{
			name: "same sqlite file for cache and analysis",
			mutate: func(in *ConfigRawInput) {
				in.CacheBackend, in.AnalysisBackend = "sqlite", "sqlite"
				in.CacheDBConnect, in.AnalysisDBConnect = "/tmp/pulse.db", "/tmp/pulse.db"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := baseInput()
			tt.mutate(input)
			cfg := &Config{}
			err := ProcessAndValidate(cfg, input)
			switch {
			case tt.expectError != nil:
				assert.ErrorIs(t, err, tt.expectError)
			case tt.wantErr:
				assert.Error(t, err)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestProcessAndValidateDefaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, baseInput()))

	assert.Equal(t, schema.FileSource, cfg.Source)
	assert.Equal(t, "42", cfg.ProjectID)
	assert.Equal(t, schema.DayGranularity, cfg.Granularity)
	assert.Equal(t, DefaultPanels, cfg.Panels)
	assert.Empty(t, cfg.Toggles)
	assert.Equal(t, schema.NoneBackend, cfg.AnalysisBackend)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, map[schema.Category]float64{
		schema.CommitCategory:       1,
		schema.MergeRequestCategory: 1,
	}, cfg.Weights)
	assert.Equal(t, time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC), cfg.StartTime)
	assert.Equal(t, time.Date(2020, 9, 30, 0, 0, 0, 0, time.UTC), cfg.EndTime)
}

func TestProcessAndValidatePanelsAndToggles(t *testing.T) {
	input := baseInput()
	input.Panels = "A, B, C, A"
	input.Toggles = []string{"A:mr", "C:commit,C:commits"}
	input.Granularity = "weekly"

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))

	assert.Equal(t, []string{"A", "B", "C"}, cfg.Panels)
	assert.Equal(t, []PanelToggle{
		{PanelID: "A", Category: schema.MergeRequestCategory},
		{PanelID: "C", Category: schema.CommitCategory},
		{PanelID: "C", Category: schema.CommitCategory},
	}, cfg.Toggles)
	assert.Equal(t, schema.WeekGranularity, cfg.Granularity)
}

func TestProcessWeightsPrecedence(t *testing.T) {
	input := baseInput()
	input.Weights = map[string]float64{"commit": 2, "merge_request": 3}
	input.WeightsStr = "mr:0.5"

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))
	assert.InDelta(t, 2.0, cfg.Weights[schema.CommitCategory], 1e-9)
	assert.InDelta(t, 0.5, cfg.Weights[schema.MergeRequestCategory], 1e-9)
}

func TestProcessSourceGit(t *testing.T) {
	input := baseInput()
	input.Source = "git"
	input.Project = ""
	input.RepoPath = "/srv/repos/demo"

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))
	assert.Equal(t, "/srv/repos/demo", cfg.RepoPath)
	assert.Equal(t, "demo", cfg.ProjectID)
}

func TestProcessSourceGitLab(t *testing.T) {
	input := baseInput()
	input.Source = "gitlab"
	input.GitLabURL = "https://gitlab.example.com/"
	input.ProjectArg = "group/project"

	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, input))
	assert.Equal(t, "https://gitlab.example.com", cfg.GitLabURL)
	assert.Equal(t, "group/project", cfg.ProjectID)

	input.GitLabURL = "not a url"
	assert.Error(t, ProcessAndValidate(&Config{}, input))
}

func TestConfigClone(t *testing.T) {
	cfg := &Config{
		ProjectID: "42",
		Weights:   map[schema.Category]float64{schema.CommitCategory: 1},
		Panels:    []string{"A"},
		Toggles:   []PanelToggle{{PanelID: "A", Category: schema.CommitCategory}},
	}
	clone := cfg.Clone()
	clone.Weights[schema.CommitCategory] = 5
	clone.Panels[0] = "Z"
	clone.Toggles[0].PanelID = "Z"

	assert.InDelta(t, 1.0, cfg.Weights[schema.CommitCategory], 1e-9)
	assert.Equal(t, "A", cfg.Panels[0])
	assert.Equal(t, "A", cfg.Toggles[0].PanelID)

	clone.ProjectID = "7"
	clone.StartTime = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "42", cfg.ProjectID)
	assert.NotEqual(t, clone.Range().Start, cfg.Range().Start)
}

func TestParseWeightsString(t *testing.T) {
	got, err := ParseWeightsString("commit:2, merge_request:0.25,")
	require.NoError(t, err)
	assert.Equal(t, map[schema.Category]float64{
		schema.CommitCategory:       2,
		schema.MergeRequestCategory: 0.25,
	}, got)

	_, err = ParseWeightsString("commit=2")
	assert.Error(t, err)
	_, err = ParseWeightsString("issue:1")
	assert.ErrorIs(t, err, schema.ErrUnknownCategory)
	_, err = ParseWeightsString("commit:lots")
	assert.Error(t, err)

	for _, bad := range []string{"commit:NaN", "merge_request:Inf", "commit:+Inf", "merge_request:-Inf"} {
		_, err = ParseWeightsString(bad)
		assert.ErrorIs(t, err, schema.ErrInvalidWeight, bad)
	}
	_, err = ParseWeightsString("commit:-2")
	assert.ErrorIs(t, err, schema.ErrNegativeWeight)
}

func TestParseToggle(t *testing.T) {
	got, err := ParseToggle("B:merge-request")
	require.NoError(t, err)
	assert.Equal(t, PanelToggle{PanelID: "B", Category: schema.MergeRequestCategory}, got)

	for _, bad := range []string{"B", ":commit", "B:", "B:issue"} {
		_, err := ParseToggle(bad)
		assert.Error(t, err, bad)
	}
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	assert.NoError(t, ValidateDatabaseConnectionString(schema.SQLiteBackend, ""))
	assert.NoError(t, ValidateDatabaseConnectionString(schema.MySQLBackend, "user:pass@tcp(localhost:3306)/pulse"))
	assert.Error(t, ValidateDatabaseConnectionString(schema.MySQLBackend, "localhost:3306"))
	assert.NoError(t, ValidateDatabaseConnectionString(schema.PostgreSQLBackend, "host=localhost dbname=pulse"))
	assert.Error(t, ValidateDatabaseConnectionString(schema.PostgreSQLBackend, "host=localhost"))
}

func TestRevalidate(t *testing.T) {
	now := time.Date(2020, 10, 1, 12, 0, 0, 0, time.UTC)
	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, baseInput()))
	origStart := cfg.StartTime

	t.Run("empty overrides keep the base range", func(t *testing.T) {
		c := cfg.Clone()
		require.NoError(t, Revalidate(c, RequestOverrides{}, now))
		assert.Equal(t, origStart, c.StartTime)
		assert.Equal(t, "42", c.ProjectID)
	})

	t.Run("lookback recomputes the range from now", func(t *testing.T) {
		c := cfg.Clone()
		require.NoError(t, Revalidate(c, RequestOverrides{ProjectID: "7", Lookback: "7 days", Granularity: "week"}, now))
		assert.Equal(t, "7", c.ProjectID)
		assert.Equal(t, now, c.EndTime)
		assert.Equal(t, now.AddDate(0, 0, -7), c.StartTime)
		assert.Equal(t, schema.WeekGranularity, c.Granularity)
	})

	t.Run("weights merge onto the base weights", func(t *testing.T) {
		c := cfg.Clone()
		require.NoError(t, Revalidate(c, RequestOverrides{Weights: "mr:3"}, now))
		assert.InDelta(t, 3.0, c.Weights[schema.MergeRequestCategory], 1e-9)
		assert.InDelta(t, schema.DefaultWeight, c.Weights[schema.CommitCategory], 1e-9)
		assert.InDelta(t, schema.DefaultWeight, cfg.Weights[schema.MergeRequestCategory], 1e-9, "base config untouched")
	})

	t.Run("errors", func(t *testing.T) {
		assert.ErrorIs(t, Revalidate(cfg.Clone(), RequestOverrides{Granularity: "year"}, now), schema.ErrUnknownGranularity)
		assert.ErrorIs(t, Revalidate(cfg.Clone(), RequestOverrides{Weights: "commit:-1"}, now), schema.ErrNegativeWeight)
		assert.ErrorIs(t, Revalidate(cfg.Clone(), RequestOverrides{Weights: "commit:NaN"}, now), schema.ErrInvalidWeight)
		assert.Error(t, Revalidate(cfg.Clone(), RequestOverrides{Start: "2020-10-02", End: "2020-09-01"}, now))
		assert.Error(t, Revalidate(&Config{}, RequestOverrides{}, now))
	})
}
