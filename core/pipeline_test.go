package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/datalens/internal/contract"
	"github.com/huangsam/datalens/internal/iocache"
	"github.com/huangsam/datalens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newMockManager(records contract.RecordStore, cache contract.CacheStore, history contract.HistoryStore) *iocache.MockStoreManager {
	mgr := &iocache.MockStoreManager{}
	mgr.On("GetRecordStore").Return(records)
	if cache == nil {
		mgr.On("GetCacheStore").Return(nil)
	} else {
		mgr.On("GetCacheStore").Return(cache)
	}
	if history == nil {
		mgr.On("GetHistoryStore").Return(nil)
	} else {
		mgr.On("GetHistoryStore").Return(history)
	}
	return mgr
}

func writeTempFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// TestAnalyzeBytesTracksRun tests run tracking and record storage for a successful analysis.
func TestAnalyzeBytesTracksRun(t *testing.T) {
	records := iocache.NewMemoryRecordStore(time.Hour)
	history := &iocache.MockHistoryStore{}
	opts := schema.AnalyzeOptions{Horizon: 5}

	history.On("BeginRun", mock.AnythingOfType("time.Time"), "sales.csv", opts).Return(int64(7), nil)
	history.On("EndRun", int64(7), mock.AnythingOfType("time.Time"), mock.MatchedBy(func(o schema.RunOutcome) bool {
		return o.Rows == 30 && o.Target == "sales" && o.DateCol == "date" && o.Frequency == schema.Daily && o.AnalysisID != ""
	})).Return(nil)

	mgr := newMockManager(records, nil, history)
	rec, err := AnalyzeBytes(context.Background(), mgr, "/uploads/tmp/sales.csv", salesCSV(30), opts, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, "sales.csv", rec.FileName)
	stored, ok := records.Get(rec.AnalysisID)
	require.True(t, ok)
	assert.Same(t, rec, stored)
	history.AssertExpectations(t)
}

// TestAnalyzeBytesFailure tests that failed runs are closed with an error reason.
func TestAnalyzeBytesFailure(t *testing.T) {
	records := iocache.NewMemoryRecordStore(time.Hour)
	history := &iocache.MockHistoryStore{}

	history.On("BeginRun", mock.Anything, "empty.csv", mock.Anything).Return(int64(3), nil)
	history.On("EndRun", int64(3), mock.Anything, mock.MatchedBy(func(o schema.RunOutcome) bool {
		return strings.HasPrefix(o.ForecastReason, "error: ") && o.AnalysisID == ""
	})).Return(nil)

	mgr := newMockManager(records, nil, history)
	_, err := AnalyzeBytes(context.Background(), mgr, "empty.csv", nil, schema.AnalyzeOptions{}, time.Hour)
	require.Error(t, err)
	assert.True(t, contract.IsInputError(err))
	assert.Equal(t, 0, records.Len())
	history.AssertExpectations(t)
}

// TestAnalyzeBytesHistoryUnavailable tests that a failing history store does not block analysis.
func TestAnalyzeBytesHistoryUnavailable(t *testing.T) {
	records := iocache.NewMemoryRecordStore(time.Hour)
	history := &iocache.MockHistoryStore{}
	history.On("BeginRun", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), errors.New("db down"))

	mgr := newMockManager(records, nil, history)
	rec, err := AnalyzeBytes(context.Background(), mgr, "sales.csv", salesCSV(30), schema.AnalyzeOptions{}, time.Hour)
	require.NoError(t, err)
	assert.NotNil(t, rec)
	history.AssertNotCalled(t, "EndRun", mock.Anything, mock.Anything, mock.Anything)
}

// TestAnalyzeBytesWithCache tests that a second upload of the same bytes is served from cache.
func TestAnalyzeBytesWithCache(t *testing.T) {
	records := iocache.NewMemoryRecordStore(time.Hour)
	cache := &iocache.MockCacheStore{}
	data := salesCSV(30)
	key := generateCacheKey(data, schema.AnalyzeOptions{})

	var stored []byte
	cache.On("Get", key).Return(nil, 0, int64(0), errors.New("not found")).Once()
	cache.On("Set", key, mock.Anything, currentCacheVersion, mock.Anything).Run(func(args mock.Arguments) {
		stored = args.Get(1).([]byte)
	}).Return(nil).Once()

	mgr := newMockManager(records, cache, nil)
	first, err := AnalyzeBytes(context.Background(), mgr, "sales.csv", data, schema.AnalyzeOptions{}, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, stored)

	cache.On("Get", key).Return(stored, currentCacheVersion, time.Now().Unix(), nil).Once()
	second, err := AnalyzeBytes(context.Background(), mgr, "sales.csv", data, schema.AnalyzeOptions{}, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, first.AnalysisID, second.AnalysisID)
	assert.True(t, second.Cached)
	assert.Equal(t, "sales.csv", second.FileName)
	cache.AssertExpectations(t)
}

// TestAnalyzeFiles tests concurrent analysis with ordered results.
func TestAnalyzeFiles(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeTempFile(t, dir, "a.csv", salesCSV(20)),
		writeTempFile(t, dir, "b.csv", []byte("region,units\neast,1\nwest,2\n")),
		writeTempFile(t, dir, "c.csv", salesCSV(40)),
	}
	mgr := iocache.NewStoreManager(iocache.NewMemoryRecordStore(time.Hour), nil, nil)

	recs, err := AnalyzeFiles(context.Background(), mgr, paths, schema.AnalyzeOptions{}, time.Hour, 2)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "a.csv", recs[0].FileName)
	assert.Equal(t, "b.csv", recs[1].FileName)
	assert.Equal(t, "c.csv", recs[2].FileName)
	assert.Equal(t, 40, recs[2].Summary.Rows)
	assert.Equal(t, 3, mgr.GetRecordStore().Len())
}

// TestAnalyzeFilesError tests that one bad path fails the batch.
func TestAnalyzeFilesError(t *testing.T) {
	dir := t.TempDir()
	good := writeTempFile(t, dir, "a.csv", salesCSV(20))
	missing := filepath.Join(dir, "missing.csv")
	mgr := iocache.NewStoreManager(iocache.NewMemoryRecordStore(time.Hour), nil, nil)

	_, err := AnalyzeFiles(context.Background(), mgr, []string{good, missing}, schema.AnalyzeOptions{}, time.Hour, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), missing)
	assert.True(t, contract.IsInputError(err))
}

func TestFailureReason(t *testing.T) {
	assert.Empty(t, failureReason(nil))
	assert.Equal(t, "error: boom", failureReason(errors.New("boom")))
	assert.LessOrEqual(t, len(failureReason(errors.New(strings.Repeat("x", 400)))), 255)
}
