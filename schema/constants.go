package schema

// Custom string types for type safety.
type (
	// ColumnKind represents the inferred kind of a column.
	ColumnKind string

	// ChartKind discriminates the chart variants of a ChartBundle.
	ChartKind string

	// Frequency represents a resampling frequency for forecasting.
	Frequency string

	// Aggregation represents how values are combined inside a bucket.
	Aggregation string

	// OutputMode represents the format of the output.
	OutputMode string

	// ReportFormat represents a rendered report format.
	ReportFormat string

	// DatabaseBackend represents the database backend for caching.
	DatabaseBackend string
)

// All column kinds.
const (
	NumericKind  ColumnKind = "numeric"
	TextKind     ColumnKind = "text"
	BoolKind     ColumnKind = "boolean"
	TemporalKind ColumnKind = "temporal"
)

// All chart kinds.
const (
	HistogramChart  ChartKind = "histogram"
	BarCountChart   ChartKind = "barCount"
	PieChart        ChartKind = "pie"
	HeatmapChart    ChartKind = "heatmap"
	ScatterChart    ChartKind = "scatter"
	TimeSeriesChart ChartKind = "timeseries"
)

// All resampling frequencies, finest first.
const (
	Daily   Frequency = "D"
	Weekly  Frequency = "W"
	Monthly Frequency = "M"
)

// All bucket aggregations.
const (
	SumAgg  Aggregation = "sum"
	MeanAgg Aggregation = "mean"
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All report formats supported.
const (
	XLSXReport ReportFormat = "xlsx"
	HTMLReport ReportFormat = "html"
	PDFReport  ReportFormat = "pdf"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite"
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none" // default
)

// Reason codes attached to a record when no forecast is produced.
const (
	ReasonNoDateColumn   = "no_date_column"
	ReasonNoTargetColumn = "no_target_column"
	ReasonNoValidRows    = "no_valid_rows_after_parsing"
	ReasonForecastError  = "forecast_error"
)

// Synthesized temporal column names.
const (
	AutoDateColumn  = "__auto_date__"
	AutoDate2Column = "__auto_date2__"
)

// NullLabel is how nulls render when stringified.
const NullLabel = "NaN"

// AllFrequencies lists frequencies in the order they are attempted.
var AllFrequencies = []Frequency{Daily, Weekly, Monthly}

// ValidFrequencies lists all valid frequencies.
var ValidFrequencies = map[Frequency]struct{}{
	Daily:   {},
	Weekly:  {},
	Monthly: {},
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidReportFormats lists all valid report formats.
var ValidReportFormats = map[ReportFormat]struct{}{
	XLSXReport: {},
	HTMLReport: {},
	PDFReport:  {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// Unit returns the plural period noun for a frequency.
func (f Frequency) Unit() string {
	switch f {
	case Weekly:
		return "weeks"
	case Monthly:
		return "months"
	default:
		return "days"
	}
}
