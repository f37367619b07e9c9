package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/datalens/internal/contract"
	"github.com/huangsam/datalens/internal/parquet"
	"github.com/huangsam/datalens/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintRecords outputs analysis records, dispatching based on the output format configured.
func PrintRecords(records []*schema.AnalysisRecord, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, intFmt := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if len(records) == 1 {
				return writeJSON(w, records[0])
			}
			return writeJSON(w, records)
		}, "Wrote JSON")
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRecordsCSV(w, records, intFmt)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
		return nil
	case schema.ParquetOut:
		return writeRecordsParquet(records, cfg.OutputFile)
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			for _, rec := range records {
				if err := writeRecordText(w, rec, cfg, fmtFloat, intFmt); err != nil {
					return err
				}
			}
			_, err := fmt.Fprintf(w, "Analysis completed in %v with %d workers. Cache backend: %s\n",
				duration.Round(time.Millisecond), cfg.Workers, cfg.CacheBackend)
			return err
		}, "Wrote table")
	}
}

// writeRecordsCSV writes one row per profiled column.
func writeRecordsCSV(w io.Writer, records []*schema.AnalysisRecord, intFmt string) error {
	header := []string{"file", "analysis_id", "column", "dtype", "missing", "unique", "sample_values"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, rec := range records {
			for _, c := range rec.Columns {
				row := []string{
					rec.FileName,
					rec.AnalysisID,
					c.Name,
					c.DType,
					fmt.Sprintf(intFmt, c.Missing),
					fmt.Sprintf(intFmt, c.Unique),
					strings.Join(c.SampleValues, "|"),
				}
				if err := cw.Write(row); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// writeRecordsParquet writes column profiles to outputFile and, when any record
// has a forecast, the forecast points to a "_forecast" sibling file.
func writeRecordsParquet(records []*schema.AnalysisRecord, outputFile string) error {
	var profiles []parquet.ColumnProfile
	var points []parquet.ForecastPoint
	for _, rec := range records {
		profiles = append(profiles, parquet.ConvertProfiles(rec)...)
		points = append(points, parquet.ConvertForecast(rec)...)
	}
	if err := parquet.WriteFile(profiles, outputFile); err != nil {
		return err
	}
	fmt.Fprintf(stderr, "💾 Wrote %d column profiles to %s\n", len(profiles), outputFile)

	if len(points) == 0 {
		return nil
	}
	forecastFile := siblingPath(outputFile, "forecast")
	if err := parquet.WriteFile(points, forecastFile); err != nil {
		return err
	}
	fmt.Fprintf(stderr, "💾 Wrote %d forecast points to %s\n", len(points), forecastFile)
	return nil
}

// writeRecordText renders one record as a set of tables.
func writeRecordText(w io.Writer, rec *schema.AnalysisRecord, cfg *contract.Config, fmtFloat func(float64) string, intFmt string) error {
	title := fmt.Sprintf("%s (%s)", rec.FileName, rec.AnalysisID)
	if rec.Cached {
		title += " [cached]"
	}
	if err := writeSection(w, cfg, "📄", title); err != nil {
		return err
	}

	// 1. Summary
	s := rec.Summary
	summary := tablewriter.NewWriter(w)
	summary.Header([]string{"Rows", "Columns", "Memory (KB)", "Missing", "Duplicates"})
	summary.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.Global = tw.AlignRight
	})
	if err := summary.Append([]string{
		fmt.Sprintf(intFmt, s.Rows),
		fmt.Sprintf(intFmt, s.Columns),
		fmtFloat(float64(s.MemoryBytes) / 1024.0),
		fmt.Sprintf(intFmt, s.MissingTotal),
		fmt.Sprintf(intFmt, s.DuplicateRows),
	}); err != nil {
		return err
	}
	if err := summary.Render(); err != nil {
		return err
	}

	// 2. Columns
	textWidth := GetMaxTableTextWidth(cfg)
	columns := tablewriter.NewWriter(w)
	columns.Header([]string{"Column", "DType", "Missing", "Unique", "Sample"})
	var data [][]string
	for _, c := range rec.Columns {
		data = append(data, []string{
			c.Name,
			c.DType,
			fmt.Sprintf(intFmt, c.Missing),
			fmt.Sprintf(intFmt, c.Unique),
			contract.TruncateText(strings.Join(c.SampleValues, ", "), textWidth),
		})
	}
	if err := columns.Bulk(data); err != nil {
		return err
	}
	if err := columns.Render(); err != nil {
		return err
	}

	// 3. Charts
	if err := writeChartTable(w, rec, cfg); err != nil {
		return err
	}

	// 4. Forecast
	if err := writeForecastText(w, rec, cfg, fmtFloat); err != nil {
		return err
	}

	// 5. Insights
	if err := writeSection(w, cfg, "💡", "Insights"); err != nil {
		return err
	}
	for i, line := range rec.Insights {
		if _, err := fmt.Fprintf(w, "%d. %s\n", i+1, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

// writeChartTable lists every chart kind and whether it was produced.
func writeChartTable(w io.Writer, rec *schema.AnalysisRecord, cfg *contract.Config) error {
	b := rec.Charts
	label := contract.GetPlainLabel
	if cfg.UseColors {
		label = contract.GetColorLabel
	}
	rows := [][]string{
		{string(schema.HistogramChart), strconv.Itoa(len(b.Histograms)), label(len(b.Histograms) > 0)},
		{string(schema.BarCountChart), strconv.Itoa(len(b.BarCounts)), label(len(b.BarCounts) > 0)},
		{string(schema.PieChart), countOf(b.Pie != nil), label(b.Pie != nil)},
		{string(schema.HeatmapChart), countOf(b.Heatmap != nil), label(b.Heatmap != nil)},
		{string(schema.ScatterChart), countOf(b.Scatter != nil), label(b.Scatter != nil)},
		{string(schema.TimeSeriesChart), countOf(b.TimeSeries != nil), label(b.TimeSeries != nil)},
	}
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Chart", "Count", "Status"})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func countOf(present bool) string {
	if present {
		return "1"
	}
	return "0"
}

// writeSection prints a section title with an optional emoji and color.
func writeSection(w io.Writer, cfg *contract.Config, emoji, title string) error {
	if cfg.UseEmojis {
		title = emoji + " " + title
	}
	if cfg.UseColors {
		title = contract.HeaderColor.Sprint(title)
	}
	_, err := fmt.Fprintln(w, title)
	return err
}
