package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/datalens/internal/contract"
	"github.com/huangsam/datalens/schema"
)

// runsTable records one row per analysis run.
const runsTable = "datalens_runs"

// runColumns are selected in this order by GetAllRuns.
var runColumns = []string{
	"run_id", "analysis_id", "file_name", "start_time", "end_time", "run_duration_ms",
	"row_count", "column_count", "date_col", "target", "frequency", "forecast_reason",
	"insight_count", "options",
}

// HistoryStoreImpl implements the HistoryStore interface.
type HistoryStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.HistoryStore = &HistoryStoreImpl{} // Compile-time check

// NewHistoryStore creates a new HistoryStore with the specified backend.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (contract.HistoryStore, error) {
	if backend == schema.NoneBackend {
		return &HistoryStoreImpl{backend: backend}, nil
	}

	db, err := openDB(backend, connStr, GetHistoryDBFilePath())
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}

	if _, err := db.Exec(getCreateRunsQuery(backend)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", runsTable, err)
	}

	return &HistoryStoreImpl{db: db, backend: backend}, nil
}

// getCreateRunsQuery returns the CREATE TABLE query for datalens_runs.
// It matches migration 000001 so either path produces the same schema.
func getCreateRunsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(runsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				analysis_id VARCHAR(36),
				file_name VARCHAR(512) NOT NULL,
				start_time DATETIME(6) NOT NULL,
				end_time DATETIME(6),
				run_duration_ms INT,
				row_count INT,
				column_count INT,
				date_col VARCHAR(255),
				target VARCHAR(255),
				frequency VARCHAR(8),
				forecast_reason VARCHAR(255),
				insight_count INT,
				options TEXT
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGSERIAL PRIMARY KEY,
				analysis_id TEXT,
				file_name TEXT NOT NULL,
				start_time TIMESTAMPTZ NOT NULL,
				end_time TIMESTAMPTZ,
				run_duration_ms INT,
				row_count INT,
				column_count INT,
				date_col TEXT,
				target TEXT,
				frequency TEXT,
				forecast_reason TEXT,
				insight_count INT,
				options TEXT
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER PRIMARY KEY AUTOINCREMENT,
				analysis_id TEXT,
				file_name TEXT NOT NULL,
				start_time TEXT NOT NULL,
				end_time TEXT,
				run_duration_ms INTEGER,
				row_count INTEGER,
				column_count INTEGER,
				date_col TEXT,
				target TEXT,
				frequency TEXT,
				forecast_reason TEXT,
				insight_count INTEGER,
				options TEXT
			);
		`, quotedTableName)
	}
}

// BeginRun creates a new run and returns its unique ID.
func (hs *HistoryStoreImpl) BeginRun(startTime time.Time, fileName string, options schema.AnalyzeOptions) (int64, error) {
	if hs.db == nil {
		return 0, nil
	}

	optionsJSON, err := json.Marshal(options)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal options: %w", err)
	}

	quotedTableName := quoteTableName(runsTable, hs.backend)
	values := strings.Join(placeholders(hs.backend, 3), ", ")
	args := []any{formatTime(startTime, hs.backend), fileName, string(optionsJSON)}

	var runID int64
	switch hs.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (start_time, file_name, options) VALUES (%s) RETURNING run_id`, quotedTableName, values)
		err = hs.db.QueryRow(query, args...).Scan(&runID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (start_time, file_name, options) VALUES (%s)`, quotedTableName, values)
		var result sql.Result
		result, err = hs.db.Exec(query, args...)
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return runID, nil
}

// EndRun updates the run with completion data.
func (hs *HistoryStoreImpl) EndRun(runID int64, endTime time.Time, outcome schema.RunOutcome) error {
	if hs.db == nil {
		return nil
	}

	quotedTableName := quoteTableName(runsTable, hs.backend)
	ph := placeholders(hs.backend, 11)

	var start nullTime
	query := fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = %s`, quotedTableName, ph[0])
	if err := hs.db.QueryRow(query, runID).Scan(&start); err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}
	durationMs := endTime.Sub(start.Time).Milliseconds()

	update := fmt.Sprintf(`UPDATE %s SET end_time = %s, run_duration_ms = %s, analysis_id = %s, row_count = %s,
		column_count = %s, date_col = %s, target = %s, frequency = %s, forecast_reason = %s, insight_count = %s
		WHERE run_id = %s`, quotedTableName, ph[0], ph[1], ph[2], ph[3], ph[4], ph[5], ph[6], ph[7], ph[8], ph[9], ph[10])
	_, err := hs.db.Exec(update,
		formatTime(endTime, hs.backend), durationMs, nullString(outcome.AnalysisID), outcome.Rows,
		outcome.Columns, nullString(outcome.DateCol), nullString(outcome.Target), nullString(string(outcome.Frequency)),
		nullString(outcome.ForecastReason), outcome.InsightCount, runID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// GetAllRuns retrieves every run ordered by id.
func (hs *HistoryStoreImpl) GetAllRuns() ([]schema.RunRecord, error) {
	if hs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY run_id", strings.Join(runColumns, ", "), quoteTableName(runsTable, hs.backend))
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RunRecord
	for rows.Next() {
		var rec schema.RunRecord
		var start, end nullTime
		if err := rows.Scan(&rec.RunID, &rec.AnalysisID, &rec.FileName, &start, &end, &rec.RunDurationMs,
			&rec.Rows, &rec.Columns, &rec.DateCol, &rec.Target, &rec.Frequency, &rec.ForecastReason,
			&rec.InsightCount, &rec.Options); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		rec.StartTime = start.Time
		rec.EndTime = end.Ptr()
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return results, nil
}

// GetStatus returns status information about the history store.
func (hs *HistoryStoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:   string(hs.backend),
		Connected: hs.db != nil,
	}
	if hs.db == nil {
		return status, nil
	}

	quotedTableName := quoteTableName(runsTable, hs.backend)
	if err := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quotedTableName)).Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}
	if status.TotalRuns == 0 {
		return status, nil
	}

	var last, oldest nullTime
	lastQuery := fmt.Sprintf("SELECT run_id, start_time FROM %s ORDER BY run_id DESC LIMIT 1", quotedTableName)
	if err := hs.db.QueryRow(lastQuery).Scan(&status.LastRunID, &last); err != nil {
		return status, fmt.Errorf("failed to get last run info: %w", err)
	}
	status.LastRunTime = last.Time

	oldestQuery := fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", quotedTableName)
	if err := hs.db.QueryRow(oldestQuery).Scan(&oldest); err != nil {
		return status, fmt.Errorf("failed to get oldest run time: %w", err)
	}
	status.OldestRunTime = oldest.Time

	totalsQuery := fmt.Sprintf(`SELECT COALESCE(SUM(row_count), 0),
		COALESCE(SUM(CASE WHEN frequency IS NOT NULL THEN 1 ELSE 0 END), 0) FROM %s`, quotedTableName)
	if err := hs.db.QueryRow(totalsQuery).Scan(&status.TotalRows, &status.Forecasted); err != nil {
		return status, fmt.Errorf("failed to get run totals: %w", err)
	}
	return status, nil
}

// Close closes the underlying connection.
func (hs *HistoryStoreImpl) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}

// nullString stores empty strings as NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
