package schema

import "time"

// CacheStatus represents the status of the result cache.
type CacheStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalEntries    int       `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// HistoryStatus represents the status of the run history store.
type HistoryStatus struct {
	Backend       string    `json:"backend"`
	Connected     bool      `json:"connected"`
	TotalRuns     int       `json:"total_runs"`
	LastRunID     int64     `json:"last_run_id"`
	LastRunTime   time.Time `json:"last_run_time"`
	OldestRunTime time.Time `json:"oldest_run_time"`
	TotalRows     int64     `json:"total_rows"`
	Forecasted    int       `json:"forecasted"`
}

// RunOutcome is what an analysis run reports when it finishes.
type RunOutcome struct {
	AnalysisID     string
	Rows           int
	Columns        int
	DateCol        string
	Target         string
	Frequency      Frequency
	ForecastReason string
	InsightCount   int
}

// RunRecord represents a row from the datalens_runs table.
type RunRecord struct {
	RunID          int64
	AnalysisID     *string
	FileName       string
	StartTime      time.Time
	EndTime        *time.Time
	RunDurationMs  *int32
	Rows           *int32
	Columns        *int32
	DateCol        *string
	Target         *string
	Frequency      *string
	ForecastReason *string
	InsightCount   *int32
	Options        *string // JSON-encoded AnalyzeOptions
}
