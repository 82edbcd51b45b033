// Package iocache persists fetched batches and analysis history in SQL databases.
package iocache

import (
	"sync"

	"github.com/huangsam/pulse/internal/contract"
)

// CacheStoreManager manages the fetch cache and the analysis store.
type CacheStoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	fetch        contract.CacheStore
	analysis     contract.AnalysisStore
}

var _ contract.CacheManager = &CacheStoreManager{} // Compile-time check

// NewCacheStoreManager wraps already opened stores. Either may be nil.
func NewCacheStoreManager(fetch contract.CacheStore, analysis contract.AnalysisStore) *CacheStoreManager {
	return &CacheStoreManager{fetch: fetch, analysis: analysis}
}

// GetFetchStore returns the fetch CacheStore.
func (mgr *CacheStoreManager) GetFetchStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.fetch
}

// GetAnalysisStore returns the AnalysisStore.
func (mgr *CacheStoreManager) GetAnalysisStore() contract.AnalysisStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.analysis
}
