package core

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/datalens/internal/contract"
	"github.com/huangsam/datalens/internal/tableio"
	"github.com/huangsam/datalens/schema"
)

// currentCacheVersion defines the version of the cache schema
const currentCacheVersion = 1

// cachedAnalyze serves a record from the result cache or computes and stores it.
func cachedAnalyze(ctx context.Context, cache contract.CacheStore, name string, data []byte, opts schema.AnalyzeOptions, ttl time.Duration) (*schema.AnalysisRecord, error) {
	if cache == nil {
		// Fallback to direct computation
		return loadAndAnalyze(ctx, name, data, opts)
	}

	key := generateCacheKey(data, opts)

	// Check for cache hit
	if rec := checkCacheHit(cache, key, ttl); rec != nil {
		return rec, nil
	}

	// Cache miss: compute and store
	return computeAndStore(ctx, cache, key, name, data, opts)
}

// loadAndAnalyze parses the upload and analyzes the resulting table.
func loadAndAnalyze(ctx context.Context, name string, data []byte, opts schema.AnalyzeOptions) (*schema.AnalysisRecord, error) {
	table, err := tableio.Load(name, data)
	if err != nil {
		return nil, err
	}
	return Analyze(ctx, table, opts)
}

// checkCacheHit attempts to retrieve and validate a cached record
func checkCacheHit(cache contract.CacheStore, key string, ttl time.Duration) *schema.AnalysisRecord {
	data, version, ts, err := cache.Get(key)
	if err != nil {
		return nil // Cache miss
	}

	// Validate version and staleness
	if version == currentCacheVersion {
		entryTimestamp := time.Unix(ts, 0)
		if time.Since(entryTimestamp) <= ttl {
			var rec schema.AnalysisRecord
			if err := json.Unmarshal(data, &rec); err == nil {
				rec.Cached = true
				return &rec // Cache hit
			}
		}
	}

	return nil // Cache miss (stale or version mismatch)
}

// computeAndStore computes the record and stores it in cache
func computeAndStore(ctx context.Context, cache contract.CacheStore, key, name string, data []byte, opts schema.AnalyzeOptions) (*schema.AnalysisRecord, error) {
	rec, err := loadAndAnalyze(ctx, name, data, opts)
	if err != nil {
		return nil, err
	}

	// Store in cache
	payload, err := json.Marshal(rec)
	if err != nil {
		contract.LogWarn("Failed to encode result for cache", err)
		return rec, nil
	}
	if err := cache.Set(key, payload, currentCacheVersion, time.Now().Unix()); err != nil {
		contract.LogWarn("Failed to store result in cache", err)
	}

	return rec, nil
}

// generateCacheKey creates a unique key from the file content and analysis options
func generateCacheKey(data []byte, opts schema.AnalyzeOptions) string {
	h := sha256.New()
	h.Write(data)
	_, _ = fmt.Fprintf(h, "|%s|%d|%s|%s|v%d", opts.Frequency, opts.Horizon, opts.Target, opts.DateCol, currentCacheVersion)
	return fmt.Sprintf("%x", h.Sum(nil))
}
