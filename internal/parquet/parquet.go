// Package parquet exports analysis records and run history to Parquet files
// using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/datalens/schema"
	"github.com/parquet-go/parquet-go"
)

// Run represents a single analysis run from the datalens_runs table.
type Run struct {
	RunID          int64      `parquet:"run_id,snappy"`
	AnalysisID     *string    `parquet:"analysis_id,optional,snappy"`
	FileName       string     `parquet:"file_name,snappy"`
	StartTime      time.Time  `parquet:"start_time,snappy"`
	EndTime        *time.Time `parquet:"end_time,optional,snappy"`
	RunDurationMs  *int32     `parquet:"run_duration_ms,optional,snappy"`
	Rows           *int32     `parquet:"row_count,optional,snappy"`
	Columns        *int32     `parquet:"column_count,optional,snappy"`
	DateCol        *string    `parquet:"date_col,optional,snappy"`
	Target         *string    `parquet:"target,optional,snappy"`
	Frequency      *string    `parquet:"frequency,optional,snappy"`
	ForecastReason *string    `parquet:"forecast_reason,optional,snappy"`
	InsightCount   *int32     `parquet:"insight_count,optional,snappy"`

	// Options contains the JSON-encoded analyze options (nullable)
	Options *string `parquet:"options,optional,snappy"`
}

// ColumnProfile is one profiled column of an analysis.
type ColumnProfile struct {
	AnalysisID string `parquet:"analysis_id,snappy"`
	Name       string `parquet:"name,snappy"`
	DType      string `parquet:"dtype,snappy"`
	Missing    int64  `parquet:"missing,snappy"`
	Unique     int64  `parquet:"unique,snappy"`

	// SampleValues holds up to five stringified values
	SampleValues []string `parquet:"sample_values,list"`
}

// ForecastPoint is one backtest or projected period of a forecast.
type ForecastPoint struct {
	AnalysisID string   `parquet:"analysis_id,snappy"`
	Target     string   `parquet:"target,snappy"`
	Frequency  string   `parquet:"frequency,snappy"`
	Kind       string   `parquet:"kind,snappy"` // "backtest" or "forecast"
	Date       string   `parquet:"date,snappy"`
	YTrue      *float64 `parquet:"y_true,optional,snappy"`
	YHat       float64  `parquet:"y_hat,snappy"`
}

// Write encodes rows to w using the schema inferred from T's struct tags.
func Write[T any](w io.Writer, rows []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WriteFile creates outputPath and writes rows to it.
func WriteFile[T any](rows []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()
	return Write(file, rows)
}

// ConvertRunRecords converts schema.RunRecord to Run for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []Run {
	result := make([]Run, len(records))
	for i, r := range records {
		result[i] = Run{
			RunID:          r.RunID,
			AnalysisID:     r.AnalysisID,
			FileName:       r.FileName,
			StartTime:      r.StartTime,
			EndTime:        r.EndTime,
			RunDurationMs:  r.RunDurationMs,
			Rows:           r.Rows,
			Columns:        r.Columns,
			DateCol:        r.DateCol,
			Target:         r.Target,
			Frequency:      r.Frequency,
			ForecastReason: r.ForecastReason,
			InsightCount:   r.InsightCount,
			Options:        r.Options,
		}
	}
	return result
}

// ConvertProfiles flattens the column profiles of a record.
func ConvertProfiles(rec *schema.AnalysisRecord) []ColumnProfile {
	result := make([]ColumnProfile, len(rec.Columns))
	for i, c := range rec.Columns {
		result[i] = ColumnProfile{
			AnalysisID:   rec.AnalysisID,
			Name:         c.Name,
			DType:        c.DType,
			Missing:      int64(c.Missing),
			Unique:       int64(c.Unique),
			SampleValues: c.SampleValues,
		}
	}
	return result
}

// ConvertForecast flattens the backtest and projection of a record.
// It returns nil when the record has no forecast.
func ConvertForecast(rec *schema.AnalysisRecord) []ForecastPoint {
	f := rec.Forecast
	if f == nil {
		return nil
	}
	result := make([]ForecastPoint, 0, len(f.Backtest.X)+len(f.Forecast.X))
	for i, x := range f.Backtest.X {
		result = append(result, ForecastPoint{
			AnalysisID: rec.AnalysisID,
			Target:     f.Target,
			Frequency:  string(f.Frequency),
			Kind:       "backtest",
			Date:       x,
			YTrue:      schema.Float64Ptr(f.Backtest.YTrue[i]),
			YHat:       f.Backtest.YHat[i],
		})
	}
	for i, x := range f.Forecast.X {
		result = append(result, ForecastPoint{
			AnalysisID: rec.AnalysisID,
			Target:     f.Target,
			Frequency:  string(f.Frequency),
			Kind:       "forecast",
			Date:       x,
			YHat:       f.Forecast.YHat[i],
		})
	}
	return result
}
