package schema

import "time"

// ScoreResult is the full result of a scoring run, ready for output writers.
type ScoreResult struct {
	Project Project         `json:"project"`
	Range   DateRange       `json:"range"`
	Scores  []CategoryScore `json:"scores"`
	Report  NormalizeReport `json:"report"`
}

// PanelSeries is the visible series of one panel.
type PanelSeries struct {
	PanelID string          `json:"panel_id"`
	Enabled []Category      `json:"enabled"`
	Buckets []VisibleBucket `json:"buckets"`
}

// CountsOf returns the per-bucket counts of one category, one entry per bucket.
// A category the panel hides reads as zero in every bucket.
func (p PanelSeries) CountsOf(c Category) []int {
	counts := make([]int, len(p.Buckets))
	for i, b := range p.Buckets {
		counts[i] = b.Counts[c]
	}
	return counts
}

// SeriesResult is the full result of a bucketization run, ready for output writers.
type SeriesResult struct {
	Project     Project         `json:"project"`
	Range       DateRange       `json:"range"`
	Granularity Granularity     `json:"granularity"`
	Buckets     []TimeBucket    `json:"buckets"`
	Panels      []PanelSeries   `json:"panels"`
	Report      NormalizeReport `json:"report"`
}

// AnalysisRunRecord represents a row from the pulse_analysis_runs table.
type AnalysisRunRecord struct {
	AnalysisID    int64
	RunKey        string
	ProjectID     string
	StartTime     time.Time
	EndTime       *time.Time
	RunDurationMs *int32
	RangeStart    time.Time
	RangeEnd      time.Time
	Granularity   string
	TotalEvents   int32
	SkippedEvents int32
	ConfigParams  *string
}

// CategoryScoreRecord represents a row from the pulse_category_scores table.
type CategoryScoreRecord struct {
	AnalysisID int64
	Category   string
	EventCount int32
	Weight     float64
	Score      float64
}

// TimeBucketRecord represents a row from the pulse_time_buckets table.
type TimeBucketRecord struct {
	AnalysisID  int64
	BucketStart time.Time
	BucketEnd   time.Time
	Category    string
	EventCount  int32
}
