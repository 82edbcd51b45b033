// Package contract provides interfaces and shared utilities for the internal architecture of pulse.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/pulse/schema"
)

// EventSource is the fetch collaborator that supplies raw events for a project.
// Implementations must return a complete, already paginated batch; the core never
// retries or pages on its own.
type EventSource interface {
	// Name identifies the source in cache keys and headers (e.g., "gitlab").
	Name() string

	// Fetch returns the project metadata plus raw commits and merge requests within rng.
	Fetch(ctx context.Context, projectID string, rng schema.DateRange) (schema.RawBatch, error)
}

// CacheManager defines the interface for managing cache stores.
// This allows the cache layer to be mocked for testing.
type CacheManager interface {
	GetFetchStore() CacheStore
	GetAnalysisStore() AnalysisStore
}

// CacheStore defines the interface for cache data storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// AnalysisStore defines the interface for tracking analysis runs with their scores and series.
type AnalysisStore interface {
	// BeginAnalysis creates a new analysis run and returns its unique ID
	BeginAnalysis(startTime time.Time, projectID string, rng schema.DateRange, granularity schema.Granularity, configParams map[string]any) (int64, error)

	// RecordScores stores the category scores of a run
	RecordScores(analysisID int64, scores []schema.CategoryScore) error

	// RecordBuckets stores the dense bucket series of a run
	RecordBuckets(analysisID int64, buckets []schema.TimeBucket) error

	// EndAnalysis updates the analysis run with completion data
	EndAnalysis(analysisID int64, endTime time.Time, report schema.NormalizeReport) error

	// GetStatus returns status information about the analysis store
	GetStatus() (schema.AnalysisStatus, error)

	// GetAllAnalysisRuns retrieves all analysis runs, oldest first
	GetAllAnalysisRuns() ([]schema.AnalysisRunRecord, error)

	// GetAllCategoryScores retrieves all recorded category scores
	GetAllCategoryScores() ([]schema.CategoryScoreRecord, error)

	// GetAllTimeBuckets retrieves all recorded bucket rows
	GetAllTimeBuckets() ([]schema.TimeBucketRecord, error)

	// Close closes the underlying connection
	Close() error
}
