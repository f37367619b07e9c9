package cmd

import (
	"github.com/huangsam/datalens/core"
	"github.com/huangsam/datalens/internal/contract"
	"github.com/spf13/cobra"
)

// analyzeCmd profiles one or more files.
var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>...",
	Short: "Profile files and show summary, columns, forecast and insights.",
	Long: `Read each CSV or XLSX file and run the full analysis on it.

For every file this reports:
- Row and column counts, memory use, missing cells and duplicate rows
- Per-column type, missing count, unique count and sample values
- Which charts could be built
- The detected date and target columns
- A trend and seasonal forecast with backtest accuracy, or why none was made
- Plain-language insights

Multiple files are analyzed concurrently (see --workers).

Examples:
  # Analyze a single file
  datalens analyze sales.csv

  # Force a weekly forecast of the revenue column
  datalens analyze sales.csv --frequency W --target revenue

  # Export column profiles and the forecast to Parquet
  datalens analyze sales.csv --output parquet --output-file sales.parquet`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteAnalyze(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot run analysis", err)
		}
	},
}

// forecastCmd prints only the forecast of a file.
var forecastCmd = &cobra.Command{
	Use:   "forecast <file>",
	Short: "Forecast the main metric of a file.",
	Long: `Detect the date and target columns of a file, fit a trend and seasonal
model and print the projected values together with the holdout backtest.

When no forecast can be made the reason is printed instead
(e.g. no_date_column or insufficient_points_d=4).

Examples:
  # Let datalens pick the frequency and horizon
  datalens forecast orders.xlsx

  # Twelve months ahead as CSV
  datalens forecast orders.xlsx --frequency M --horizon 12 --output csv`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteForecast(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot run forecast", err)
		}
	},
}

// reportCmd renders a downloadable report for a file.
var reportCmd = &cobra.Command{
	Use:   "report <file>",
	Short: "Render an analysis as an XLSX workbook, HTML page or PDF.",
	Long: `Analyze a file and write a report.

Formats:
- xlsx - sample rows, summary, missingness and correlation sheets
- html - interactive charts with the key insights
- pdf  - the same content printed through headless Chrome

The report is written to --output-file, or report_<analysis-id>.<format>.

Examples:
  datalens report sales.csv --format html
  datalens report sales.csv --format pdf --output-file sales.pdf`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteReport(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot render report", err)
		}
	},
}
