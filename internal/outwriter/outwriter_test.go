package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/datalens/internal/contract"
	"github.com/huangsam/datalens/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() *schema.AnalysisRecord {
	return &schema.AnalysisRecord{
		AnalysisID: "0b7c1f8e-1111-4222-8333-444455556666",
		FileName:   "sales.csv",
		Summary: schema.Summary{
			Rows: 30, Columns: 2, MemoryBytes: 2048, MissingTotal: 1,
			DTypes:       map[string]string{"date": "datetime64[ns]", "sales": "float64"},
			MissingByCol: map[string]int{"date": 0, "sales": 1},
		},
		Columns: []schema.ColumnProfile{
			{Name: "date", DType: "datetime64[ns]", Unique: 30, SampleValues: []string{"2024-01-01", "2024-01-02"}},
			{Name: "sales", DType: "float64", Missing: 1, Unique: 29, SampleValues: []string{"10.5", "11"}},
		},
		Charts: schema.ChartBundle{
			Histograms: []schema.Histogram{{Column: "sales", Bins: []float64{0, 1}, Counts: []int{3}}},
			BarCounts:  []schema.BarCount{},
		},
		Detection: schema.Detection{DateCol: "date", Target: "sales", Aggregation: schema.SumAgg, TemporalColumns: []string{"date"}},
		Forecast: &schema.ForecastResult{
			Target: "sales", DateCol: "date", Horizon: 2, Frequency: schema.Daily, Aggregation: schema.SumAgg,
			Metrics:  schema.ForecastMetrics{MAE: schema.Float64Ptr(1.5)},
			Backtest: schema.Backtest{X: []string{"2024-01-29"}, YTrue: []float64{12}, YHat: []float64{13.5}},
			Forecast: schema.Projection{X: []string{"2024-01-31", "2024-02-01"}, YHat: []float64{14, 15}},
		},
		Insights: []string{"Forecast for 'sales' sums to 29.00 over the next 2 days (frequency D)."},
	}
}

func testConfig(t *testing.T, mode schema.OutputMode, name string) *contract.Config {
	t.Helper()
	return &contract.Config{
		Output:       mode,
		OutputFile:   filepath.Join(t.TempDir(), name),
		Precision:    2,
		Workers:      1,
		Width:        120,
		CacheBackend: schema.NoneBackend,
	}
}

// captureStderr swaps the status writer for the duration of a test.
func captureStderr(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	saved := stderr
	stderr = &buf
	t.Cleanup(func() { stderr = saved })
	return &buf
}

// TestPrintRecords tests every output mode for analysis records.
func TestPrintRecords(t *testing.T) {
	t.Run("json single", func(t *testing.T) {
		status := captureStderr(t)
		cfg := testConfig(t, schema.JSONOut, "out.json")
		require.NoError(t, PrintRecords([]*schema.AnalysisRecord{testRecord()}, cfg, time.Second))

		data, err := os.ReadFile(cfg.OutputFile)
		require.NoError(t, err)
		var got map[string]any
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, "sales.csv", got["file_name"])
		assert.Contains(t, got, "charts")
		assert.Contains(t, status.String(), "Wrote JSON")
	})

	t.Run("json many", func(t *testing.T) {
		captureStderr(t)
		cfg := testConfig(t, schema.JSONOut, "out.json")
		require.NoError(t, PrintRecords([]*schema.AnalysisRecord{testRecord(), testRecord()}, cfg, time.Second))

		data, err := os.ReadFile(cfg.OutputFile)
		require.NoError(t, err)
		var got []map[string]any
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Len(t, got, 2)
	})

	t.Run("csv", func(t *testing.T) {
		captureStderr(t)
		cfg := testConfig(t, schema.CSVOut, "out.csv")
		require.NoError(t, PrintRecords([]*schema.AnalysisRecord{testRecord()}, cfg, time.Second))

		f, err := os.Open(cfg.OutputFile)
		require.NoError(t, err)
		defer func() { _ = f.Close() }()
		rows, err := csv.NewReader(f).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, []string{"file", "analysis_id", "column", "dtype", "missing", "unique", "sample_values"}, rows[0])
		assert.Equal(t, []string{"sales.csv", testRecord().AnalysisID, "sales", "float64", "1", "29", "10.5|11"}, rows[2])
	})

	t.Run("parquet", func(t *testing.T) {
		status := captureStderr(t)
		cfg := testConfig(t, schema.ParquetOut, "profiles.parquet")
		require.NoError(t, PrintRecords([]*schema.AnalysisRecord{testRecord()}, cfg, time.Second))

		_, err := os.Stat(cfg.OutputFile)
		require.NoError(t, err)
		forecastFile := strings.TrimSuffix(cfg.OutputFile, ".parquet") + "_forecast.parquet"
		_, err = os.Stat(forecastFile)
		require.NoError(t, err)
		assert.Contains(t, status.String(), "Wrote 2 column profiles")
		assert.Contains(t, status.String(), "Wrote 3 forecast points")
	})

	t.Run("text", func(t *testing.T) {
		captureStderr(t)
		cfg := testConfig(t, schema.TextOut, "out.txt")
		require.NoError(t, PrintRecords([]*schema.AnalysisRecord{testRecord()}, cfg, 1500*time.Millisecond))

		data, err := os.ReadFile(cfg.OutputFile)
		require.NoError(t, err)
		out := string(data)
		assert.Contains(t, out, "sales.csv")
		assert.Contains(t, out, "datetime64[ns]")
		assert.Contains(t, out, "histogram")
		assert.Contains(t, out, "Skipped")
		assert.Contains(t, out, "Backtest MAE=1.50 RMSE=- MAPE=-")
		assert.Contains(t, out, "1. Forecast for 'sales'")
		assert.Contains(t, out, "Analysis completed in 1.5s with 1 workers")
	})
}

// TestPrintForecast tests the forecast-only output.
func TestPrintForecast(t *testing.T) {
	t.Run("csv", func(t *testing.T) {
		captureStderr(t)
		cfg := testConfig(t, schema.CSVOut, "fc.csv")
		require.NoError(t, PrintForecast(testRecord(), cfg, time.Second))

		data, err := os.ReadFile(cfg.OutputFile)
		require.NoError(t, err)
		assert.Equal(t, "kind,date,y_true,y_hat\nbacktest,2024-01-29,12.00,13.50\nforecast,2024-01-31,,14.00\nforecast,2024-02-01,,15.00\n", string(data))
	})

	t.Run("json without forecast", func(t *testing.T) {
		captureStderr(t)
		rec := testRecord()
		rec.Forecast = nil
		rec.ForecastReason = schema.ReasonNoDateColumn
		cfg := testConfig(t, schema.JSONOut, "fc.json")
		require.NoError(t, PrintForecast(rec, cfg, time.Second))

		data, err := os.ReadFile(cfg.OutputFile)
		require.NoError(t, err)
		var got map[string]any
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Nil(t, got["forecast"])
		assert.Equal(t, schema.ReasonNoDateColumn, got["forecast_reason"])
	})

	t.Run("csv without forecast", func(t *testing.T) {
		rec := testRecord()
		rec.Forecast = nil
		rec.ForecastReason = "insufficient_points_m=2"
		err := PrintForecast(rec, testConfig(t, schema.CSVOut, "fc.csv"), time.Second)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "insufficient_points_m=2")
	})

	t.Run("text", func(t *testing.T) {
		captureStderr(t)
		cfg := testConfig(t, schema.TextOut, "fc.txt")
		require.NoError(t, PrintForecast(testRecord(), cfg, time.Second))

		data, err := os.ReadFile(cfg.OutputFile)
		require.NoError(t, err)
		out := string(data)
		assert.Contains(t, out, "sum of 'sales' by 'date', frequency D, horizon 2 days")
		assert.Contains(t, out, "2024-02-01")
		assert.Contains(t, out, "Total over horizon: 29.00")
	})
}

// TestGetMaxTableTextWidth tests width clamping.
func TestGetMaxTableTextWidth(t *testing.T) {
	tests := []struct {
		width    int
		expected int
	}{
		{width: 50, expected: 20},
		{width: 100, expected: 40},
		{width: 400, expected: 80},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, GetMaxTableTextWidth(&contract.Config{Width: tt.width}))
	}
}

// TestLogAnalysisHeader tests the banner and option echo.
func TestLogAnalysisHeader(t *testing.T) {
	status := captureStderr(t)
	LogAnalysisHeader(&contract.Config{
		Output:  schema.TextOut,
		Files:   []string{"/tmp/a/sales.csv", "/tmp/b/costs.xlsx"},
		Options: schema.AnalyzeOptions{Frequency: schema.Monthly},
	})
	assert.Contains(t, status.String(), "Analyzing 2 file(s): sales.csv, costs.xlsx")
	assert.Contains(t, status.String(), "frequency=M horizon=0 target=auto date-col=auto")

	status.Reset()
	LogAnalysisHeader(&contract.Config{Output: schema.JSONOut, Files: []string{"x.csv"}})
	assert.Empty(t, status.String())
}

func TestSiblingPath(t *testing.T) {
	assert.Equal(t, "/out/run_forecast.parquet", siblingPath("/out/run.parquet", "forecast"))
	assert.Equal(t, "run_forecast", siblingPath("run", "forecast"))
}
