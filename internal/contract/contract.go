// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"time"

	"github.com/huangsam/datalens/schema"
)

// RecordStore holds finished analyses by id for a fixed time-to-live.
// Implementations must be safe for concurrent use and evict lazily.
type RecordStore interface {
	// Put stores a record under its id.
	Put(id string, record *schema.AnalysisRecord)

	// Get returns the record if present and not expired.
	Get(id string) (*schema.AnalysisRecord, bool)

	// Sweep evicts expired records and returns how many were removed.
	Sweep() int

	// Len returns the number of live records.
	Len() int
}

// StoreManager defines the interface for managing the stores of a process.
// This allows the storage layer to be mocked for testing.
type StoreManager interface {
	GetRecordStore() RecordStore
	GetCacheStore() CacheStore
	GetHistoryStore() HistoryStore
}

// CacheStore defines the interface for result cache storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// HistoryStore defines the interface for tracking analysis runs.
type HistoryStore interface {
	// BeginRun creates a new run and returns its unique ID
	BeginRun(startTime time.Time, fileName string, options schema.AnalyzeOptions) (int64, error)

	// EndRun updates the run with completion data
	EndRun(runID int64, endTime time.Time, outcome schema.RunOutcome) error

	// GetAllRuns returns every recorded run ordered by id
	GetAllRuns() ([]schema.RunRecord, error)

	// GetStatus returns status information about the history store
	GetStatus() (schema.HistoryStatus, error)

	// Close closes the underlying connection
	Close() error
}
