package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/datalens/core/agg"
	"github.com/huangsam/datalens/core/forecast"
	"github.com/huangsam/datalens/internal/contract"
	"github.com/huangsam/datalens/internal/tableio"
	"github.com/huangsam/datalens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// salesCSV builds n days of a steadily rising sales series.
func salesCSV(n int) []byte {
	var b strings.Builder
	b.WriteString("date,sales,region\n")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range n {
		region := "east"
		if i%3 == 0 {
			region = "west"
		}
		fmt.Fprintf(&b, "%s,%d,%s\n", start.AddDate(0, 0, i).Format("2006-01-02"), 100+2*i, region)
	}
	return []byte(b.String())
}

func loadTable(t *testing.T, name string, data []byte) *schema.Table {
	t.Helper()
	tbl, err := tableio.Load(name, data)
	require.NoError(t, err)
	return tbl
}

// TestAnalyzeDailySales tests the full pipeline on a forecastable daily series.
func TestAnalyzeDailySales(t *testing.T) {
	tbl := loadTable(t, "sales.csv", salesCSV(60))

	rec, err := Analyze(context.Background(), tbl, schema.AnalyzeOptions{Horizon: 7})
	require.NoError(t, err)

	assert.NotEmpty(t, rec.AnalysisID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Equal(t, 60, rec.Summary.Rows)
	assert.Equal(t, 3, rec.Summary.Columns)
	assert.Len(t, rec.Columns, 3)

	assert.Equal(t, "date", rec.Detection.DateCol)
	assert.Equal(t, "sales", rec.Detection.Target)
	assert.Equal(t, schema.SumAgg, rec.Detection.Aggregation)
	assert.Contains(t, rec.Detection.TemporalColumns, "date")

	require.NotNil(t, rec.Forecast)
	assert.Empty(t, rec.ForecastReason)
	assert.Equal(t, schema.Daily, rec.Forecast.Frequency)
	assert.Equal(t, 7, rec.Forecast.Horizon)
	assert.Len(t, rec.Forecast.Forecast.X, 7)
	assert.Equal(t, "2024-03-01", rec.Forecast.Forecast.X[0])
	// A perfectly linear series projects the trend.
	assert.InDelta(t, 220.0, rec.Forecast.Forecast.YHat[0], 1e-6)

	assert.NotEmpty(t, rec.Insights)
	assert.Len(t, rec.PreviewRows, PreviewRows)
	assert.Equal(t, int64(100), rec.PreviewRows[0]["sales"])
	assert.NotNil(t, rec.Charts.Histograms)
	assert.NotNil(t, rec.Charts.BarCounts)
}

// TestAnalyzeNoDate tests that a table without dates still yields a record.
func TestAnalyzeNoDate(t *testing.T) {
	tbl := loadTable(t, "units.csv", []byte("region,units\neast,3\nwest,5\neast,4\nnorth,9\n"))

	rec, err := Analyze(context.Background(), tbl, schema.AnalyzeOptions{})
	require.NoError(t, err)

	assert.Nil(t, rec.Forecast)
	assert.Equal(t, schema.ReasonNoDateColumn, rec.ForecastReason)
	assert.NotNil(t, rec.Detection.TemporalColumns)
	assert.Empty(t, rec.Detection.TemporalColumns)
	assert.Len(t, rec.PreviewRows, 4)
	assert.Nil(t, rec.PreviewRows[0]["date"])
}

// TestAnalyzeShortSeries tests the insufficient-data reason for a short series.
func TestAnalyzeShortSeries(t *testing.T) {
	tbl := loadTable(t, "short.csv", salesCSV(3))

	rec, err := Analyze(context.Background(), tbl, schema.AnalyzeOptions{Frequency: schema.Daily})
	require.NoError(t, err)

	assert.Nil(t, rec.Forecast)
	assert.Equal(t, "insufficient_points_d=3", rec.ForecastReason)
}

// TestAnalyzeEmpty tests that empty tables are rejected as input errors.
func TestAnalyzeEmpty(t *testing.T) {
	_, err := Analyze(context.Background(), nil, schema.AnalyzeOptions{})
	require.Error(t, err)
	assert.True(t, contract.IsInputError(err))
	assert.ErrorIs(t, err, contract.ErrNoRows)

	tbl := loadTable(t, "header.csv", []byte("a,b\n"))
	_, err = Analyze(context.Background(), tbl, schema.AnalyzeOptions{})
	require.Error(t, err)
	assert.True(t, contract.IsInputError(err))
}

// TestAnalyzeForecastOnSample tests that large tables are forecast from the chart sample.
func TestAnalyzeForecastOnSample(t *testing.T) {
	rows := agg.SampleSize + 1000
	tbl := loadTable(t, "big.csv", salesCSV(rows))

	rec, err := Analyze(context.Background(), tbl, schema.AnalyzeOptions{Frequency: schema.Daily})
	require.NoError(t, err)
	require.NotNil(t, rec.Forecast)
	assert.Equal(t, rows, rec.Summary.Rows)

	// One row per day, so the sample resamples into exactly SampleSize buckets.
	holdout := agg.SampleSize - forecast.SplitIndex(agg.SampleSize)
	assert.Len(t, rec.Forecast.Backtest.X, holdout)
	assert.NotEqual(t, rows-forecast.SplitIndex(rows), holdout)

	sample := agg.Sample(loadTable(t, "big.csv", salesCSV(rows)))
	require.Equal(t, agg.SampleSize, sample.Rows())
	assert.Equal(t, rec.Forecast.Backtest.X[0], backtestStart(t, rec.Forecast, sample))
}

// backtestStart returns the first holdout label a forecast over the given table would report.
func backtestStart(t *testing.T, want *schema.ForecastResult, tbl *schema.Table) string {
	t.Helper()
	got, err := Analyze(context.Background(), tbl, schema.AnalyzeOptions{Frequency: want.Frequency})
	require.NoError(t, err)
	require.NotNil(t, got.Forecast)
	return got.Forecast.Backtest.X[0]
}

// TestAnalyzeLargeNumbers tests that whole numbers beyond the int64 range keep their value.
func TestAnalyzeLargeNumbers(t *testing.T) {
	tbl := loadTable(t, "big.csv", []byte("a,b\n1e20,1\n2e20,2\n3,3\n"))

	rec, err := Analyze(context.Background(), tbl, schema.AnalyzeOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1e20, rec.PreviewRows[0]["a"])
	assert.Equal(t, 3.0, rec.PreviewRows[2]["a"])
	assert.Equal(t, int64(1), rec.PreviewRows[0]["b"])
	assert.Equal(t, "float64", rec.Columns[0].DType)
	assert.Equal(t, []string{"100000000000000000000", "200000000000000000000", "3.0"}, rec.Columns[0].SampleValues)
}

// TestAnalyzeInfiniteValues tests that infinite cells are read as nulls and the record still encodes.
func TestAnalyzeInfiniteValues(t *testing.T) {
	tbl := loadTable(t, "inf.csv", []byte("a,b\ninf,1\n2,2\n-Infinity,3\n4,5\n"))

	rec, err := Analyze(context.Background(), tbl, schema.AnalyzeOptions{})
	require.NoError(t, err)

	assert.Nil(t, rec.PreviewRows[0]["a"])
	assert.Nil(t, rec.PreviewRows[2]["a"])
	assert.Equal(t, int64(2), rec.PreviewRows[1]["a"])
	assert.Equal(t, 2, rec.Summary.MissingByCol["a"])

	_, err = json.Marshal(rec)
	assert.NoError(t, err)
}

// TestAnalyzeCanceled tests that a canceled context stops the pipeline.
func TestAnalyzeCanceled(t *testing.T) {
	tbl := loadTable(t, "sales.csv", salesCSV(20))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Analyze(ctx, tbl, schema.AnalyzeOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOutcomeOf(t *testing.T) {
	rec := &schema.AnalysisRecord{
		AnalysisID: "id-1",
		Summary:    schema.Summary{Rows: 10, Columns: 2},
		Detection:  schema.Detection{DateCol: "d", Target: "y"},
		Forecast:   &schema.ForecastResult{Frequency: schema.Weekly},
		Insights:   []string{"a", "b"},
	}
	assert.Equal(t, schema.RunOutcome{
		AnalysisID: "id-1", Rows: 10, Columns: 2, DateCol: "d", Target: "y",
		Frequency: schema.Weekly, InsightCount: 2,
	}, outcomeOf(rec))
	assert.Equal(t, "10 rows, 2 columns, forecast  by W", describe(rec))

	rec.Forecast = nil
	rec.ForecastReason = schema.ReasonNoTargetColumn
	assert.Equal(t, "10 rows, 2 columns, no forecast (no_target_column)", describe(rec))
}
