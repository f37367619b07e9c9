package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/huangsam/datalens/internal/contract"
	"github.com/huangsam/datalens/schema"
	"golang.org/x/sync/errgroup"
)

// AnalyzeBytes analyzes one uploaded file and keeps the record in the record store.
// Runs are tracked in the history store and results cached when those stores exist.
func AnalyzeBytes(ctx context.Context, mgr contract.StoreManager, name string, data []byte, opts schema.AnalyzeOptions, cacheTTL time.Duration) (*schema.AnalysisRecord, error) {
	name = filepath.Base(name)

	// --- 0. Begin run tracking (if configured) ---
	history := mgr.GetHistoryStore()
	if history != nil {
		runID, err := history.BeginRun(time.Now(), name, opts)
		if err != nil {
			contract.LogWarn("Run tracking initialization failed", err)
		} else if runID > 0 {
			ctx = withRunID(ctx, runID)
		}
	}

	// --- 1. Analysis (with caching) ---
	rec, err := cachedAnalyze(ctx, mgr.GetCacheStore(), name, data, opts, cacheTTL)

	// --- 2. End run tracking ---
	if runID, ok := getRunID(ctx); ok && history != nil {
		outcome := schema.RunOutcome{ForecastReason: failureReason(err)}
		if rec != nil {
			outcome = outcomeOf(rec)
		}
		if endErr := history.EndRun(runID, time.Now(), outcome); endErr != nil {
			contract.LogWarn("Failed to finalize run tracking", endErr)
		}
	}
	if err != nil {
		return nil, err
	}

	rec.FileName = name
	if records := mgr.GetRecordStore(); records != nil {
		records.Put(rec.AnalysisID, rec)
	}
	return rec, nil
}

// failureReason labels a failed run in the history store.
func failureReason(err error) string {
	if err == nil {
		return ""
	}
	return contract.TruncateText("error: "+err.Error(), 255)
}

// AnalyzeFile reads path from disk and analyzes it.
func AnalyzeFile(ctx context.Context, mgr contract.StoreManager, path string, opts schema.AnalyzeOptions, cacheTTL time.Duration) (*schema.AnalysisRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, contract.NewInputError(fmt.Sprintf("cannot read %s", path), err)
	}
	return AnalyzeBytes(ctx, mgr, path, data, opts, cacheTTL)
}

// AnalyzeFiles analyzes several files with at most workers running at once.
// Records are returned in the order of paths. The first failure cancels the rest.
func AnalyzeFiles(ctx context.Context, mgr contract.StoreManager, paths []string, opts schema.AnalyzeOptions, cacheTTL time.Duration, workers int) ([]*schema.AnalysisRecord, error) {
	records := make([]*schema.AnalysisRecord, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	for i, path := range paths {
		g.Go(func() error {
			rec, err := AnalyzeFile(gctx, mgr, path, opts, cacheTTL)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			records[i] = rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}
