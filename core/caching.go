package core

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/pulse/internal/contract"
	"github.com/huangsam/pulse/schema"
)

// currentCacheVersion defines the version of the cached batch schema
const currentCacheVersion = 1

// cachedFetch returns the raw batch for the project, consulting the fetch cache first.
func cachedFetch(ctx context.Context, cfg *contract.Config, src contract.EventSource, mgr contract.CacheManager) (schema.RawBatch, error) {
	var store contract.CacheStore
	if mgr != nil {
		store = mgr.GetFetchStore()
	}
	if store == nil {
		// Fallback to a direct fetch
		return src.Fetch(ctx, cfg.ProjectID, cfg.Range())
	}

	key := generateCacheKey(cfg, src)

	// Check for cache hit
	if batch, ok := checkCacheHit(store, key, cfg.CacheTTL); ok {
		return batch, nil
	}

	// Cache miss: fetch and store
	return fetchAndStore(ctx, cfg, src, store, key)
}

// checkCacheHit attempts to retrieve and validate a cached batch
func checkCacheHit(store contract.CacheStore, key string, ttl time.Duration) (schema.RawBatch, bool) {
	data, version, ts, err := store.Get(key)
	if err != nil {
		return schema.RawBatch{}, false // Cache miss
	}

	if version != currentCacheVersion {
		return schema.RawBatch{}, false
	}
	if ttl > 0 && time.Since(time.Unix(ts, 0)) > ttl {
		return schema.RawBatch{}, false
	}

	var batch schema.RawBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return schema.RawBatch{}, false
	}
	return batch, true
}

// fetchAndStore fetches the batch and stores it in the cache
func fetchAndStore(ctx context.Context, cfg *contract.Config, src contract.EventSource, store contract.CacheStore, key string) (schema.RawBatch, error) {
	batch, err := src.Fetch(ctx, cfg.ProjectID, cfg.Range())
	if err != nil {
		return schema.RawBatch{}, err
	}

	if data, err := json.Marshal(batch); err == nil {
		if err := store.Set(key, data, currentCacheVersion, time.Now().Unix()); err != nil {
			contract.LogWarn("Cannot store fetched batch in cache", err)
		}
	}

	return batch, nil
}

// generateCacheKey creates a unique key from the source, project and range.
// The range is truncated to the minute so repeated "now"-relative runs share entries.
func generateCacheKey(cfg *contract.Config, src contract.EventSource) string {
	key := fmt.Sprintf("%s:%s:%s:%s:%d:%d",
		src.Name(),
		cfg.GitLabURL,
		cfg.RepoPath+cfg.InputFile,
		cfg.ProjectID,
		cfg.StartTime.Truncate(time.Minute).Unix(),
		cfg.EndTime.Truncate(time.Minute).Unix(),
	)
	return fmt.Sprintf("%x", sha256.Sum256([]byte(key)))
}
