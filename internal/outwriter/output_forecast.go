package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/huangsam/datalens/internal/contract"
	"github.com/huangsam/datalens/internal/parquet"
	"github.com/huangsam/datalens/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// forecastDocument is the JSON shape of the forecast command.
type forecastDocument struct {
	AnalysisID     string                 `json:"analysis_id"`
	FileName       string                 `json:"file_name,omitempty"`
	Detection      schema.Detection       `json:"detection"`
	Forecast       *schema.ForecastResult `json:"forecast"`
	ForecastReason string                 `json:"forecast_reason,omitempty"`
}

// PrintForecast outputs only the forecast part of a record.
func PrintForecast(rec *schema.AnalysisRecord, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, _ := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, forecastDocument{
				AnalysisID:     rec.AnalysisID,
				FileName:       rec.FileName,
				Detection:      rec.Detection,
				Forecast:       rec.Forecast,
				ForecastReason: rec.ForecastReason,
			})
		}, "Wrote JSON")
	case schema.CSVOut:
		if rec.Forecast == nil {
			return fmt.Errorf("no forecast: %s", rec.ForecastReason)
		}
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeForecastCSV(w, rec.Forecast, fmtFloat)
		}, "Wrote CSV")
	case schema.ParquetOut:
		if rec.Forecast == nil {
			return fmt.Errorf("no forecast: %s", rec.ForecastReason)
		}
		points := parquet.ConvertForecast(rec)
		if err := parquet.WriteFile(points, cfg.OutputFile); err != nil {
			return err
		}
		fmt.Fprintf(stderr, "💾 Wrote %d forecast points to %s\n", len(points), cfg.OutputFile)
		return nil
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if err := writeForecastText(w, rec, cfg, fmtFloat); err != nil {
				return err
			}
			_, err := fmt.Fprintf(w, "Forecast completed in %v. Cache backend: %s\n",
				duration.Round(time.Millisecond), cfg.CacheBackend)
			return err
		}, "Wrote table")
	}
}

// writeForecastCSV writes backtest rows followed by projected rows.
func writeForecastCSV(w io.Writer, f *schema.ForecastResult, fmtFloat func(float64) string) error {
	header := []string{"kind", "date", "y_true", "y_hat"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for i, x := range f.Backtest.X {
			if err := cw.Write([]string{"backtest", x, fmtFloat(f.Backtest.YTrue[i]), fmtFloat(f.Backtest.YHat[i])}); err != nil {
				return err
			}
		}
		for i, x := range f.Forecast.X {
			if err := cw.Write([]string{"forecast", x, "", fmtFloat(f.Forecast.YHat[i])}); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeForecastText renders the forecast header, metrics and projected values.
func writeForecastText(w io.Writer, rec *schema.AnalysisRecord, cfg *contract.Config, fmtFloat func(float64) string) error {
	if err := writeSection(w, cfg, "📈", "Forecast"); err != nil {
		return err
	}
	f := rec.Forecast
	if f == nil {
		_, err := fmt.Fprintf(w, "No forecast: %s\n", rec.ForecastReason)
		return err
	}
	if _, err := fmt.Fprintf(w, "%s of '%s' by '%s', frequency %s, horizon %d %s\n",
		f.Aggregation, f.Target, f.DateCol, f.Frequency, f.Horizon, f.Frequency.Unit()); err != nil {
		return err
	}
	m := f.Metrics
	if _, err := fmt.Fprintf(w, "Backtest MAE=%s RMSE=%s MAPE=%s\n",
		fmtOptional(m.MAE, fmtFloat), fmtOptional(m.RMSE, fmtFloat), fmtOptional(m.MAPE, fmtFloat)); err != nil {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Date", "Forecast"})
	table.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.Global = tw.AlignRight
	})
	var data [][]string
	for i, x := range f.Forecast.X {
		data = append(data, []string{x, fmtFloat(f.Forecast.YHat[i])})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Total over horizon: %s\n", fmtFloat(f.Total()))
	return err
}
