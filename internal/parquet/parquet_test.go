package parquet

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/pulse/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructTags(t *testing.T) {
	tests := []struct {
		name    string
		model   any
		columns []string
	}{
		{"runs", new(AnalysisRun), []string{"analysis_id", "run_key", "project_id", "start_time", "end_time", "run_duration_ms", "range_start", "range_end", "granularity", "total_events", "skipped_events", "config_params"}},
		{"scores", new(CategoryScore), []string{"analysis_id", "category", "event_count", "weight", "score"}},
		{"buckets", new(TimeBucket), []string{"analysis_id", "bucket_start", "bucket_end", "category", "event_count"}},
		{"series", new(SeriesRow), []string{"project_id", "panel_id", "granularity", "bucket_start", "bucket_end", "category", "event_count"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := parquet.SchemaOf(tt.model)
			for _, col := range tt.columns {
				_, ok := s.Lookup(col)
				assert.True(t, ok, "column %s should exist", col)
			}
		})
	}
}

func TestWriteAnalysisRunsRoundTrip(t *testing.T) {
	start := time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Second)
	dur := int32(2000)
	params := `{"source":"gitlab"}`
	records := []schema.AnalysisRunRecord{
		{AnalysisID: 1, RunKey: "01J0000000000000000000000A", ProjectID: "42", StartTime: start, EndTime: &end, RunDurationMs: &dur,
			RangeStart: start, RangeEnd: start.AddDate(0, 0, 29), Granularity: "day", TotalEvents: 4, SkippedEvents: 1, ConfigParams: &params},
		{AnalysisID: 2, RunKey: "01J0000000000000000000000B", ProjectID: "42", StartTime: start, RangeStart: start, RangeEnd: start, Granularity: "week"},
	}

	path := filepath.Join(t.TempDir(), "runs.parquet")
	require.NoError(t, WriteAnalysisRunsParquet(ConvertAnalysisRunRecords(records), path))

	got, err := parquet.ReadFile[AnalysisRun](path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "42", got[0].ProjectID)
	require.NotNil(t, got[0].EndTime)
	assert.True(t, end.Equal(*got[0].EndTime))
	assert.Equal(t, int32(1), got[0].SkippedEvents)
	assert.Nil(t, got[1].EndTime)
	assert.Nil(t, got[1].ConfigParams)
}

func TestConvertRecords(t *testing.T) {
	at := time.Date(2020, 9, 5, 0, 0, 0, 0, time.UTC)
	scores := ConvertCategoryScoreRecords([]schema.CategoryScoreRecord{{AnalysisID: 3, Category: "commit", EventCount: 2, Weight: 1.5, Score: 3}})
	assert.Equal(t, CategoryScore{AnalysisID: 3, Category: "commit", EventCount: 2, Weight: 1.5, Score: 3}, scores[0])

	buckets := ConvertTimeBucketRecords([]schema.TimeBucketRecord{{AnalysisID: 3, BucketStart: at, BucketEnd: at.AddDate(0, 0, 1), Category: "merge_request", EventCount: 1}})
	assert.Equal(t, "merge_request", buckets[0].Category)
	assert.Equal(t, at, buckets[0].BucketStart)
}

func TestSeriesRowsSkipDisabledCategories(t *testing.T) {
	at := time.Date(2020, 9, 5, 0, 0, 0, 0, time.UTC)
	result := &schema.SeriesResult{
		Project:     schema.Project{ID: "42"},
		Granularity: schema.DayGranularity,
		Panels: []schema.PanelSeries{
			{PanelID: "A", Enabled: []schema.Category{schema.CommitCategory}, Buckets: []schema.VisibleBucket{
				{Start: at, End: at.AddDate(0, 0, 1), Counts: map[schema.Category]int{schema.CommitCategory: 2}},
			}},
			{PanelID: "B", Enabled: nil, Buckets: []schema.VisibleBucket{{Start: at, End: at.AddDate(0, 0, 1), Counts: map[schema.Category]int{}}}},
		},
	}

	rows := SeriesRows(result)
	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0].PanelID)
	assert.Equal(t, int32(2), rows[0].EventCount)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, rows))
	assert.NotZero(t, buf.Len())
}

func TestScoreRows(t *testing.T) {
	result := &schema.ScoreResult{
		Project: schema.Project{ID: "42"},
		Scores: []schema.CategoryScore{
			{Category: schema.CommitCategory, Value: 2, Count: 2, Weight: 1},
			{Category: schema.MergeRequestCategory, Value: 1, Count: 1, Weight: 1},
		},
	}
	rows := ScoreRows(result)
	require.Len(t, rows, 2)
	assert.Equal(t, "merge_request", rows[1].Category)
	assert.InDelta(t, 1.0, rows[1].Score, 1e-9)
}

func TestWriteFileBadPath(t *testing.T) {
	err := WriteFile([]ScoreRow{{}}, filepath.Join(t.TempDir(), "missing", "out.parquet"))
	assert.Error(t, err)
}
