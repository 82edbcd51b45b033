package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/schema"
	"github.com/oklog/ulid/v2"
)

// Table names for analysis tracking.
const (
	analysisRunsTable   = "pulse_analysis_runs"
	categoryScoresTable = "pulse_category_scores"
	timeBucketsTable    = "pulse_time_buckets"
)

// analysisTables lists the analysis tables in creation order.
var analysisTables = []string{analysisRunsTable, categoryScoresTable, timeBucketsTable}

// AnalysisStoreImpl implements the AnalysisStore interface.
type AnalysisStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.AnalysisStore = &AnalysisStoreImpl{} // Compile-time check

// NewAnalysisStore creates a new AnalysisStore with the specified backend.
// The schema is brought to the latest migration on open.
func NewAnalysisStore(backend schema.DatabaseBackend, connStr string) (contract.AnalysisStore, error) {
	if backend == schema.NoneBackend {
		// Return a no-op store for disabled tracking
		return &AnalysisStoreImpl{backend: backend}, nil
	}

	db, err := openDB(backend, connStr, GetAnalysisDBFilePath())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize analysis store: %w", err)
	}

	if err := createAnalysisTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create analysis tables: %w", err)
	}

	return &AnalysisStoreImpl{db: db, backend: backend}, nil
}

// createAnalysisTables runs the statements of every up migration in order.
// They are idempotent, so databases managed by the migrate command are left untouched.
func createAnalysisTables(db *sql.DB, backend schema.DatabaseBackend) error {
	stmts, err := upStatements(backend)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to run %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

// BeginAnalysis creates a new analysis run and returns its unique ID.
func (as *AnalysisStoreImpl) BeginAnalysis(startTime time.Time, projectID string, rng schema.DateRange, granularity schema.Granularity, configParams map[string]any) (int64, error) {
	if as.db == nil {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	quoted := quoteTableName(analysisRunsTable, as.backend)
	runKey := ulid.Make().String()
	args := []any{
		runKey, projectID, formatTime(startTime, as.backend),
		formatTime(rng.Start, as.backend), formatTime(rng.End, as.backend),
		string(granularity), string(configJSON),
	}

	var analysisID int64
	switch as.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (run_key, project_id, start_time, range_start, range_end, granularity, config_params)
			VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING analysis_id`, quoted)
		err = as.db.QueryRow(query, args...).Scan(&analysisID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (run_key, project_id, start_time, range_start, range_end, granularity, config_params)
			VALUES (?, ?, ?, ?, ?, ?, ?)`, quoted)
		var result sql.Result
		result, err = as.db.Exec(query, args...)
		if err == nil {
			analysisID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert analysis run: %w", err)
	}

	return analysisID, nil
}

// RecordScores stores the category scores of a run.
func (as *AnalysisStoreImpl) RecordScores(analysisID int64, scores []schema.CategoryScore) error {
	if as.db == nil || len(scores) == 0 {
		return nil
	}
	query := rebind(as.backend, fmt.Sprintf(
		`INSERT INTO %s (analysis_id, category, event_count, weight, score) VALUES (?, ?, ?, ?, ?)`,
		quoteTableName(categoryScoresTable, as.backend)))

	return as.inTx(query, func(stmt *sql.Stmt) error {
		for _, s := range scores {
			if _, err := stmt.Exec(analysisID, string(s.Category), s.Count, s.Weight, s.Value); err != nil {
				return fmt.Errorf("failed to insert score for %s: %w", s.Category, err)
			}
		}
		return nil
	})
}

// RecordBuckets stores one row per bucket and category.
func (as *AnalysisStoreImpl) RecordBuckets(analysisID int64, buckets []schema.TimeBucket) error {
	if as.db == nil || len(buckets) == 0 {
		return nil
	}
	query := rebind(as.backend, fmt.Sprintf(
		`INSERT INTO %s (analysis_id, bucket_start, bucket_end, category, event_count) VALUES (?, ?, ?, ?, ?)`,
		quoteTableName(timeBucketsTable, as.backend)))

	return as.inTx(query, func(stmt *sql.Stmt) error {
		for _, b := range buckets {
			start, end := formatTime(b.Start, as.backend), formatTime(b.End, as.backend)
			for _, c := range schema.AllCategories {
				if _, err := stmt.Exec(analysisID, start, end, string(c), b.Counts[c]); err != nil {
					return fmt.Errorf("failed to insert bucket %s: %w", b.Start.Format(time.RFC3339), err)
				}
			}
		}
		return nil
	})
}

// inTx prepares query inside a transaction and commits when fn succeeds.
func (as *AnalysisStoreImpl) inTx(query string, fn func(stmt *sql.Stmt) error) error {
	tx, err := as.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt, err := tx.Prepare(query)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	if err := fn(stmt); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// EndAnalysis updates the analysis run with completion data.
func (as *AnalysisStoreImpl) EndAnalysis(analysisID int64, endTime time.Time, report schema.NormalizeReport) error {
	if as.db == nil {
		return nil
	}

	quoted := quoteTableName(analysisRunsTable, as.backend)
	var startTime dbTime
	query := rebind(as.backend, fmt.Sprintf(`SELECT start_time FROM %s WHERE analysis_id = ?`, quoted))
	if err := as.db.QueryRow(query, analysisID).Scan(&startTime); err != nil {
		return fmt.Errorf("failed to get start_time for analysis %d: %w", analysisID, err)
	}

	durationMs := endTime.Sub(startTime.Time).Milliseconds()
	update := rebind(as.backend, fmt.Sprintf(
		`UPDATE %s SET end_time = ?, run_duration_ms = ?, total_events = ?, skipped_events = ? WHERE analysis_id = ?`, quoted))
	if _, err := as.db.Exec(update, formatTime(endTime, as.backend), durationMs, report.Total, report.Skipped(), analysisID); err != nil {
		return fmt.Errorf("failed to update analysis run: %w", err)
	}
	return nil
}

// Close closes the underlying connection.
func (as *AnalysisStoreImpl) Close() error {
	if as.db != nil {
		return as.db.Close()
	}
	return nil
}

// GetStatus returns status information about the analysis store.
func (as *AnalysisStoreImpl) GetStatus() (schema.AnalysisStatus, error) {
	status := schema.AnalysisStatus{
		Backend:    string(as.backend),
		Connected:  as.db != nil,
		TableSizes: make(map[string]int64),
	}
	if as.db == nil {
		return status, nil
	}

	quoted := quoteTableName(analysisRunsTable, as.backend)
	row := as.db.QueryRow(fmt.Sprintf("SELECT COUNT(*), COALESCE(SUM(total_events), 0) FROM %s", quoted))
	if err := row.Scan(&status.TotalRuns, &status.TotalEvents); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		var last, oldest dbTime
		row = as.db.QueryRow(fmt.Sprintf("SELECT analysis_id, start_time FROM %s ORDER BY analysis_id DESC LIMIT 1", quoted))
		if err := row.Scan(&status.LastRunID, &last); err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		row = as.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY analysis_id ASC LIMIT 1", quoted))
		if err := row.Scan(&oldest); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
		status.LastRunTime, status.OldestRunTime = last.Time, oldest.Time
	}

	for _, table := range analysisTables {
		var count int64
		row = as.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, as.backend)))
		if err := row.Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}

	return status, nil
}

// GetAllAnalysisRuns retrieves all analysis runs, oldest first.
func (as *AnalysisStoreImpl) GetAllAnalysisRuns() ([]schema.AnalysisRunRecord, error) {
	if as.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT analysis_id, run_key, project_id, start_time, end_time, run_duration_ms,
		range_start, range_end, granularity, total_events, skipped_events, config_params
		FROM %s ORDER BY analysis_id`, quoteTableName(analysisRunsTable, as.backend))
	rows, err := as.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.AnalysisRunRecord
	for rows.Next() {
		var record schema.AnalysisRunRecord
		var start, end, rangeStart, rangeEnd dbTime
		var total, skipped sql.NullInt32
		if err := rows.Scan(&record.AnalysisID, &record.RunKey, &record.ProjectID, &start, &end, &record.RunDurationMs,
			&rangeStart, &rangeEnd, &record.Granularity, &total, &skipped, &record.ConfigParams); err != nil {
			return nil, fmt.Errorf("failed to scan analysis run: %w", err)
		}
		record.StartTime = start.Time
		record.EndTime = end.Ptr()
		record.RangeStart, record.RangeEnd = rangeStart.Time, rangeEnd.Time
		record.TotalEvents, record.SkippedEvents = total.Int32, skipped.Int32
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analysis runs: %w", err)
	}
	return results, nil
}

// GetAllCategoryScores retrieves all recorded category scores.
func (as *AnalysisStoreImpl) GetAllCategoryScores() ([]schema.CategoryScoreRecord, error) {
	if as.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT analysis_id, category, event_count, weight, score FROM %s ORDER BY analysis_id, category`,
		quoteTableName(categoryScoresTable, as.backend))
	rows, err := as.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query category scores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.CategoryScoreRecord
	for rows.Next() {
		var r schema.CategoryScoreRecord
		if err := rows.Scan(&r.AnalysisID, &r.Category, &r.EventCount, &r.Weight, &r.Score); err != nil {
			return nil, fmt.Errorf("failed to scan category score: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category scores: %w", err)
	}
	return results, nil
}

// GetAllTimeBuckets retrieves all recorded bucket rows.
func (as *AnalysisStoreImpl) GetAllTimeBuckets() ([]schema.TimeBucketRecord, error) {
	if as.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT analysis_id, bucket_start, bucket_end, category, event_count FROM %s
		ORDER BY analysis_id, bucket_start, category`, quoteTableName(timeBucketsTable, as.backend))
	rows, err := as.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query time buckets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.TimeBucketRecord
	for rows.Next() {
		var r schema.TimeBucketRecord
		var start, end dbTime
		if err := rows.Scan(&r.AnalysisID, &start, &end, &r.Category, &r.EventCount); err != nil {
			return nil, fmt.Errorf("failed to scan time bucket: %w", err)
		}
		r.BucketStart, r.BucketEnd = start.Time, end.Time
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating time buckets: %w", err)
	}
	return results, nil
}
