package iocache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/pulse/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportAnalysis(t *testing.T) {
	store := newSQLiteAnalysisStore(t)
	id, err := store.BeginAnalysis(time.Now(), "42", testRange, schema.DayGranularity, map[string]any{"source": "file"})
	require.NoError(t, err)
	require.NoError(t, store.RecordScores(id, []schema.CategoryScore{{Category: schema.CommitCategory, Value: 2, Count: 2, Weight: 1}}))
	require.NoError(t, store.RecordBuckets(id, []schema.TimeBucket{{Start: testRange.Start, End: testRange.Start.AddDate(0, 0, 1), Counts: map[schema.Category]int{}}}))
	require.NoError(t, store.EndAnalysis(id, time.Now(), schema.NormalizeReport{Total: 2}))

	out := filepath.Join(t.TempDir(), "history.parquet")
	var buf bytes.Buffer
	require.NoError(t, ExportAnalysis(&buf, store, out))

	base := filepath.Join(filepath.Dir(out), "history")
	for _, suffix := range []string{".analysis_runs.parquet", ".category_scores.parquet", ".time_buckets.parquet"} {
		info, err := os.Stat(base + suffix)
		require.NoError(t, err, suffix)
		assert.Greater(t, info.Size(), int64(0))
	}
	assert.Contains(t, buf.String(), "Exported 1 analysis runs")
	assert.Contains(t, buf.String(), "Exported 2 bucket rows")
}

func TestExportAnalysisErrors(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorContains(t, ExportAnalysis(&buf, &MockAnalysisStore{}, ""), "--output-file")
	assert.ErrorContains(t, ExportAnalysis(&buf, nil, "x.parquet"), "disabled")

	empty := &MockAnalysisStore{}
	empty.On("GetStatus").Return(schema.AnalysisStatus{Backend: "sqlite"}, nil)
	assert.ErrorContains(t, ExportAnalysis(&buf, empty, "x.parquet"), "no analysis data")

	broken := &MockAnalysisStore{}
	broken.On("GetStatus").Return(schema.AnalysisStatus{TotalRuns: 1}, nil)
	broken.On("GetAllAnalysisRuns").Return(nil, errors.New("boom"))
	assert.ErrorContains(t, ExportAnalysis(&buf, broken, "x.parquet"), "boom")
}
