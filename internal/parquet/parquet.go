// Package parquet exports pulse results and analysis history to Parquet files
// using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/pulse/schema"
	"github.com/parquet-go/parquet-go"
)

// AnalysisRun maps to the pulse_analysis_runs table.
type AnalysisRun struct {
	AnalysisID    int64      `parquet:"analysis_id,snappy"`
	RunKey        string     `parquet:"run_key,snappy"`
	ProjectID     string     `parquet:"project_id,snappy"`
	StartTime     time.Time  `parquet:"start_time,snappy"`
	EndTime       *time.Time `parquet:"end_time,optional,snappy"`
	RunDurationMs *int32     `parquet:"run_duration_ms,optional,snappy"`
	RangeStart    time.Time  `parquet:"range_start,snappy"`
	RangeEnd      time.Time  `parquet:"range_end,snappy"`
	Granularity   string     `parquet:"granularity,snappy"`
	TotalEvents   int32      `parquet:"total_events,snappy"`
	SkippedEvents int32      `parquet:"skipped_events,snappy"`

	// ConfigParams contains the JSON-encoded weights, panels and source (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// CategoryScore maps to the pulse_category_scores table.
type CategoryScore struct {
	AnalysisID int64   `parquet:"analysis_id,snappy"`
	Category   string  `parquet:"category,snappy"`
	EventCount int32   `parquet:"event_count,snappy"`
	Weight     float64 `parquet:"weight,snappy"`
	Score      float64 `parquet:"score,snappy"`
}

// TimeBucket maps to the pulse_time_buckets table. One row per bucket and category.
type TimeBucket struct {
	AnalysisID  int64     `parquet:"analysis_id,snappy"`
	BucketStart time.Time `parquet:"bucket_start,snappy"`
	BucketEnd   time.Time `parquet:"bucket_end,snappy"`
	Category    string    `parquet:"category,snappy"`
	EventCount  int32     `parquet:"event_count,snappy"`
}

// ScoreRow is one category score of a live score result.
type ScoreRow struct {
	ProjectID  string    `parquet:"project_id,snappy"`
	RangeStart time.Time `parquet:"range_start,snappy"`
	RangeEnd   time.Time `parquet:"range_end,snappy"`
	Category   string    `parquet:"category,snappy"`
	EventCount int32     `parquet:"event_count,snappy"`
	Weight     float64   `parquet:"weight,snappy"`
	Score      float64   `parquet:"score,snappy"`
}

// SeriesRow is one visible count of one panel in a live series result.
type SeriesRow struct {
	ProjectID   string    `parquet:"project_id,snappy"`
	PanelID     string    `parquet:"panel_id,snappy"`
	Granularity string    `parquet:"granularity,snappy"`
	BucketStart time.Time `parquet:"bucket_start,snappy"`
	BucketEnd   time.Time `parquet:"bucket_end,snappy"`
	Category    string    `parquet:"category,snappy"`
	EventCount  int32     `parquet:"event_count,snappy"`
}

// Write encodes rows to w. The schema is derived from the struct tags of T.
func Write[T any](w io.Writer, rows []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WriteFile creates outputPath and writes rows to it.
func WriteFile[T any](rows []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := Write(file, rows); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// WriteAnalysisRunsParquet writes analysis runs to a Parquet file.
func WriteAnalysisRunsParquet(data []AnalysisRun, outputPath string) error {
	return WriteFile(data, outputPath)
}

// WriteCategoryScoresParquet writes recorded category scores to a Parquet file.
func WriteCategoryScoresParquet(data []CategoryScore, outputPath string) error {
	return WriteFile(data, outputPath)
}

// WriteTimeBucketsParquet writes recorded bucket rows to a Parquet file.
func WriteTimeBucketsParquet(data []TimeBucket, outputPath string) error {
	return WriteFile(data, outputPath)
}

// ConvertAnalysisRunRecords converts store records to Parquet rows.
func ConvertAnalysisRunRecords(records []schema.AnalysisRunRecord) []AnalysisRun {
	out := make([]AnalysisRun, len(records))
	for i, r := range records {
		out[i] = AnalysisRun{
			AnalysisID:    r.AnalysisID,
			RunKey:        r.RunKey,
			ProjectID:     r.ProjectID,
			StartTime:     r.StartTime,
			EndTime:       r.EndTime,
			RunDurationMs: r.RunDurationMs,
			RangeStart:    r.RangeStart,
			RangeEnd:      r.RangeEnd,
			Granularity:   r.Granularity,
			TotalEvents:   r.TotalEvents,
			SkippedEvents: r.SkippedEvents,
			ConfigParams:  r.ConfigParams,
		}
	}
	return out
}

// ConvertCategoryScoreRecords converts store records to Parquet rows.
func ConvertCategoryScoreRecords(records []schema.CategoryScoreRecord) []CategoryScore {
	out := make([]CategoryScore, len(records))
	for i, r := range records {
		out[i] = CategoryScore(r)
	}
	return out
}

// ConvertTimeBucketRecords converts store records to Parquet rows.
func ConvertTimeBucketRecords(records []schema.TimeBucketRecord) []TimeBucket {
	out := make([]TimeBucket, len(records))
	for i, r := range records {
		out[i] = TimeBucket(r)
	}
	return out
}

// ScoreRows flattens a score result.
func ScoreRows(result *schema.ScoreResult) []ScoreRow {
	rows := make([]ScoreRow, len(result.Scores))
	for i, s := range result.Scores {
		rows[i] = ScoreRow{
			ProjectID:  result.Project.ID,
			RangeStart: result.Range.Start,
			RangeEnd:   result.Range.End,
			Category:   string(s.Category),
			EventCount: int32(s.Count),
			Weight:     s.Weight,
			Score:      s.Value,
		}
	}
	return rows
}

// SeriesRows flattens the visible series of every panel. Disabled categories produce no rows.
func SeriesRows(result *schema.SeriesResult) []SeriesRow {
	var rows []SeriesRow
	for _, p := range result.Panels {
		for _, b := range p.Buckets {
			for _, c := range p.Enabled {
				rows = append(rows, SeriesRow{
					ProjectID:   result.Project.ID,
					PanelID:     p.PanelID,
					Granularity: string(result.Granularity),
					BucketStart: b.Start,
					BucketEnd:   b.End,
					Category:    string(c),
					EventCount:  int32(b.Counts[c]),
				})
			}
		}
	}
	return rows
}
