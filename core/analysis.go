package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/datalens/core/agg"
	"github.com/huangsam/datalens/core/detect"
	"github.com/huangsam/datalens/core/forecast"
	"github.com/huangsam/datalens/core/insight"
	"github.com/huangsam/datalens/internal/contract"
	"github.com/huangsam/datalens/schema"
)

// PreviewRows is how many leading rows a record carries for display.
const PreviewRows = 50

// Analyze runs detection, aggregation, forecasting and insight generation over t
// and returns a new record. The input table is not modified.
//
// Detection and insights look at the full table. Charts and the forecast with
// its backtest are built on the fixed-seed sample.
func Analyze(ctx context.Context, t *schema.Table, opts schema.AnalyzeOptions) (*schema.AnalysisRecord, error) {
	if t == nil || t.Rows() == 0 {
		return nil, contract.NewInputError("", contract.ErrNoRows)
	}

	// --- 1. Detection ---
	det, err := detect.Detect(t, opts)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// --- 2. Summary and profiles ---
	summary := agg.Summarize(det.Table)
	profiles := agg.Profiles(det.Table)

	// --- 3. Charts on the sample ---
	sample := agg.Sample(det.Table)
	charts, err := agg.BuildCharts(sample, det.Temporal)
	if err != nil {
		contract.LogWarn("Some charts were skipped", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// --- 4. Forecast ---
	fc, reason := runForecast(sample, det, opts)

	// --- 5. Insights ---
	insights := insight.Generate(insight.Input{
		Table:    det.Table,
		Temporal: det.Temporal,
		Summary:  summary,
		Charts:   charts,
		Forecast: fc,
	})

	temporal := det.Temporal
	if temporal == nil {
		temporal = []string{}
	}

	return &schema.AnalysisRecord{
		AnalysisID: uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		Summary:    summary,
		Columns:    profiles,
		Charts:     charts,
		Detection: schema.Detection{
			DateCol:         det.DateCol,
			Target:          det.Target,
			Aggregation:     det.Aggregation,
			TemporalColumns: temporal,
		},
		Forecast:       fc,
		ForecastReason: reason,
		Insights:       insights,
		PreviewRows:    preview(t, PreviewRows),
	}, nil
}

// runForecast fits the detected date and target over t and returns either a
// forecast or the reason none was produced.
func runForecast(t *schema.Table, det *detect.Result, opts schema.AnalyzeOptions) (*schema.ForecastResult, string) {
	if det.DateCol == "" || det.Target == "" {
		return nil, det.Reason()
	}
	fc, err := forecast.Run(t, forecast.Request{
		DateCol:     det.DateCol,
		Target:      det.Target,
		Aggregation: det.Aggregation,
		Frequency:   opts.Frequency,
		Horizon:     opts.Horizon,
	})
	if err != nil {
		return nil, contract.ReasonOf(err)
	}
	return fc, ""
}

// preview returns the first n rows of t keyed by column name. Nulls become nil.
func preview(t *schema.Table, n int) []map[string]any {
	n = min(n, t.Rows())
	rows := make([]map[string]any, n)
	for i := range n {
		row := make(map[string]any, len(t.Columns))
		for _, col := range t.Columns {
			row[col.Name] = col.Value(i)
		}
		rows[i] = row
	}
	return rows
}

// outcomeOf summarizes a record for the run history.
func outcomeOf(rec *schema.AnalysisRecord) schema.RunOutcome {
	out := schema.RunOutcome{
		AnalysisID:     rec.AnalysisID,
		Rows:           rec.Summary.Rows,
		Columns:        rec.Summary.Columns,
		DateCol:        rec.Detection.DateCol,
		Target:         rec.Detection.Target,
		ForecastReason: rec.ForecastReason,
		InsightCount:   len(rec.Insights),
	}
	if rec.Forecast != nil {
		out.Frequency = rec.Forecast.Frequency
	}
	return out
}

// describe renders a one-line headline for a record.
func describe(rec *schema.AnalysisRecord) string {
	if rec.Forecast != nil {
		return fmt.Sprintf("%d rows, %d columns, forecast %s by %s",
			rec.Summary.Rows, rec.Summary.Columns, rec.Forecast.Target, rec.Forecast.Frequency)
	}
	return fmt.Sprintf("%d rows, %d columns, no forecast (%s)",
		rec.Summary.Rows, rec.Summary.Columns, rec.ForecastReason)
}
