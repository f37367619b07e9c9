package iocache

import (
	"sync"
	"time"

	"github.com/huangsam/datalens/internal/contract"
	"github.com/huangsam/datalens/schema"
)

type recordEntry struct {
	record   *schema.AnalysisRecord
	storedAt time.Time
}

// MemoryRecordStore keeps analysis records in a map for a fixed TTL.
// Expired entries are evicted lazily on every access and by Sweep.
type MemoryRecordStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]recordEntry
}

var _ contract.RecordStore = &MemoryRecordStore{} // Compile-time check

// NewMemoryRecordStore creates a store. A non-positive ttl uses the default.
func NewMemoryRecordStore(ttl time.Duration) *MemoryRecordStore {
	if ttl <= 0 {
		ttl = contract.DefaultRecordTTL
	}
	return &MemoryRecordStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]recordEntry),
	}
}

// Put stores a record under id, replacing any previous entry.
func (s *MemoryRecordStore) Put(id string, record *schema.AnalysisRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.evictLocked(now)
	s.entries[id] = recordEntry{record: record, storedAt: now}
}

// Get returns the record for id if present and not expired.
func (s *MemoryRecordStore) Get(id string) (*schema.AnalysisRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked(s.now())
	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	return e.record, true
}

// Sweep evicts expired records and returns how many were removed.
func (s *MemoryRecordStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evictLocked(s.now())
}

// Len returns the number of live records.
func (s *MemoryRecordStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked(s.now())
	return len(s.entries)
}

// Close drops every record.
func (s *MemoryRecordStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.entries)
	return nil
}

func (s *MemoryRecordStore) evictLocked(now time.Time) int {
	removed := 0
	for id, e := range s.entries {
		if now.Sub(e.storedAt) > s.ttl {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}
