package iocache

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/internal/parquet"
)

// ExportAnalysis writes the analysis history held by store to three Parquet files
// named after outputFile and reports progress to w.
func ExportAnalysis(w io.Writer, store contract.AnalysisStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("analysis tracking is disabled. Set --analysis-backend to export")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get analysis status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no analysis data found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total analysis runs: %d\n", status.TotalRuns)

	runs, err := store.GetAllAnalysisRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve analysis runs: %w", err)
	}
	scores, err := store.GetAllCategoryScores()
	if err != nil {
		return fmt.Errorf("failed to retrieve category scores: %w", err)
	}
	buckets, err := store.GetAllTimeBuckets()
	if err != nil {
		return fmt.Errorf("failed to retrieve time buckets: %w", err)
	}

	base := strings.TrimSuffix(outputFile, ".parquet")
	runsFile := base + ".analysis_runs.parquet"
	if err := parquet.WriteAnalysisRunsParquet(parquet.ConvertAnalysisRunRecords(runs), runsFile); err != nil {
		return fmt.Errorf("failed to write analysis runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d analysis runs to: %s\n", len(runs), runsFile)

	scoresFile := base + ".category_scores.parquet"
	if err := parquet.WriteCategoryScoresParquet(parquet.ConvertCategoryScoreRecords(scores), scoresFile); err != nil {
		return fmt.Errorf("failed to write category scores: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d category scores to: %s\n", len(scores), scoresFile)

	bucketsFile := base + ".time_buckets.parquet"
	if err := parquet.WriteTimeBucketsParquet(parquet.ConvertTimeBucketRecords(buckets), bucketsFile); err != nil {
		return fmt.Errorf("failed to write time buckets: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d bucket rows to: %s\n", len(buckets), bucketsFile)

	return nil
}
