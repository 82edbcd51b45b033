package iocache

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/pulse/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRange = schema.DateRange{
	Start: time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2020, 9, 30, 0, 0, 0, 0, time.UTC),
}

func newSQLiteAnalysisStore(t *testing.T) *AnalysisStoreImpl {
	t.Helper()
	store, err := NewAnalysisStore(schema.SQLiteBackend, filepath.Join(t.TempDir(), "analysis.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store.(*AnalysisStoreImpl)
}

func TestAnalysisStore_NoneBackend(t *testing.T) {
	store, err := NewAnalysisStore(schema.NoneBackend, "")
	require.NoError(t, err)

	analysisID, err := store.BeginAnalysis(time.Now(), "42", testRange, schema.DayGranularity, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), analysisID)

	assert.NoError(t, store.RecordScores(1, []schema.CategoryScore{{Category: schema.CommitCategory}}))
	assert.NoError(t, store.RecordBuckets(1, []schema.TimeBucket{{Start: testRange.Start}}))
	assert.NoError(t, store.EndAnalysis(1, time.Now(), schema.NormalizeReport{}))

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.False(t, status.Connected)

	runs, err := store.GetAllAnalysisRuns()
	assert.NoError(t, err)
	assert.Nil(t, runs)
	assert.NoError(t, store.Close())
}

func TestAnalysisStore_SQLiteLifecycle(t *testing.T) {
	store := newSQLiteAnalysisStore(t)

	startTime := time.Date(2020, 10, 1, 12, 0, 0, 0, time.UTC)
	params := map[string]any{"source": "gitlab", "panels": []string{"A", "B"}}
	analysisID, err := store.BeginAnalysis(startTime, "42", testRange, schema.DayGranularity, params)
	require.NoError(t, err)
	assert.Greater(t, analysisID, int64(0))

	scores := []schema.CategoryScore{
		{Category: schema.CommitCategory, Value: 3, Count: 2, Weight: 1.5},
		{Category: schema.MergeRequestCategory, Value: 1, Count: 1, Weight: 1},
	}
	require.NoError(t, store.RecordScores(analysisID, scores))

	day := testRange.Start
	buckets := []schema.TimeBucket{
		{Start: day, End: day.AddDate(0, 0, 1), Counts: map[schema.Category]int{schema.CommitCategory: 2, schema.MergeRequestCategory: 0}},
		{Start: day.AddDate(0, 0, 1), End: day.AddDate(0, 0, 2), Counts: map[schema.Category]int{schema.MergeRequestCategory: 1}},
	}
	require.NoError(t, store.RecordBuckets(analysisID, buckets))

	report := schema.NormalizeReport{Total: 5, Accepted: 4, Malformed: 1}
	require.NoError(t, store.EndAnalysis(analysisID, startTime.Add(1500*time.Millisecond), report))

	runs, err := store.GetAllAnalysisRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	run := runs[0]
	assert.Equal(t, analysisID, run.AnalysisID)
	assert.Len(t, run.RunKey, 26)
	assert.Equal(t, "42", run.ProjectID)
	assert.True(t, startTime.Equal(run.StartTime))
	require.NotNil(t, run.EndTime)
	require.NotNil(t, run.RunDurationMs)
	assert.Equal(t, int32(1500), *run.RunDurationMs)
	assert.True(t, testRange.End.Equal(run.RangeEnd))
	assert.Equal(t, "day", run.Granularity)
	assert.Equal(t, int32(5), run.TotalEvents)
	assert.Equal(t, int32(1), run.SkippedEvents)
	require.NotNil(t, run.ConfigParams)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(*run.ConfigParams), &decoded))
	assert.Equal(t, "gitlab", decoded["source"])

	gotScores, err := store.GetAllCategoryScores()
	require.NoError(t, err)
	require.Len(t, gotScores, 2)
	assert.Equal(t, schema.CategoryScoreRecord{AnalysisID: analysisID, Category: "commit", EventCount: 2, Weight: 1.5, Score: 3}, gotScores[0])

	gotBuckets, err := store.GetAllTimeBuckets()
	require.NoError(t, err)
	require.Len(t, gotBuckets, 4, "one row per bucket and category")
	assert.True(t, day.Equal(gotBuckets[0].BucketStart))
	assert.Equal(t, "commit", gotBuckets[0].Category)
	assert.Equal(t, int32(2), gotBuckets[0].EventCount)
	assert.Equal(t, int32(1), gotBuckets[3].EventCount)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, 1, status.TotalRuns)
	assert.Equal(t, analysisID, status.LastRunID)
	assert.Equal(t, int64(5), status.TotalEvents)
	assert.Equal(t, int64(4), status.TableSizes[timeBucketsTable])
	assert.Equal(t, int64(2), status.TableSizes[categoryScoresTable])
}

func TestAnalysisStore_RunKeysAreUnique(t *testing.T) {
	store := newSQLiteAnalysisStore(t)
	for range 3 {
		_, err := store.BeginAnalysis(time.Now(), "42", testRange, schema.WeekGranularity, nil)
		require.NoError(t, err)
	}
	runs, err := store.GetAllAnalysisRuns()
	require.NoError(t, err)
	require.Len(t, runs, 3)
	seen := map[string]bool{}
	for _, r := range runs {
		assert.False(t, seen[r.RunKey])
		seen[r.RunKey] = true
		assert.Nil(t, r.EndTime)
	}
}

func TestAnalysisStore_DuplicateScoresRollBack(t *testing.T) {
	store := newSQLiteAnalysisStore(t)
	id, err := store.BeginAnalysis(time.Now(), "42", testRange, schema.DayGranularity, nil)
	require.NoError(t, err)

	dup := []schema.CategoryScore{{Category: schema.CommitCategory}, {Category: schema.CommitCategory}}
	assert.Error(t, store.RecordScores(id, dup))

	scores, err := store.GetAllCategoryScores()
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestAnalysisStore_EndUnknownRun(t *testing.T) {
	store := newSQLiteAnalysisStore(t)
	err := store.EndAnalysis(99, time.Now(), schema.NormalizeReport{})
	assert.Error(t, err)
}

func TestNewAnalysisStore_UnsupportedBackend(t *testing.T) {
	_, err := NewAnalysisStore("oracle", "")
	assert.Error(t, err)
}
