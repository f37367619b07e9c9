// Package iocache holds analysis records in memory and persists cache and run history.
package iocache

import (
	"sync"

	"github.com/huangsam/datalens/internal/contract"
)

// StoreManager manages the stores used by one process.
type StoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	records      contract.RecordStore
	cache        contract.CacheStore
	history      contract.HistoryStore
}

var _ contract.StoreManager = &StoreManager{} // Compile-time check

// NewStoreManager wires explicit stores. Nil cache or history disables that store.
func NewStoreManager(records contract.RecordStore, cache contract.CacheStore, history contract.HistoryStore) *StoreManager {
	return &StoreManager{records: records, cache: cache, history: history}
}

// GetRecordStore returns the in-memory RecordStore.
func (mgr *StoreManager) GetRecordStore() contract.RecordStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.records
}

// GetCacheStore returns the result CacheStore, or nil when caching is off.
func (mgr *StoreManager) GetCacheStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.cache
}

// GetHistoryStore returns the run HistoryStore, or nil when history is off.
func (mgr *StoreManager) GetHistoryStore() contract.HistoryStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.history
}
