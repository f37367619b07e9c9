package schema

import "time"

// Summary holds table-level statistics.
type Summary struct {
	Rows          int               `json:"rows"`
	Columns       int               `json:"columns"`
	MemoryBytes   int64             `json:"memory_bytes"`
	DTypes        map[string]string `json:"dtypes"`
	MissingTotal  int               `json:"missing_total"`
	MissingByCol  map[string]int    `json:"missing_by_col"`
	DuplicateRows int               `json:"duplicate_rows"`
}

// ColumnProfile describes one column of the analyzed table.
type ColumnProfile struct {
	Name         string   `json:"name"`
	DType        string   `json:"dtype"`
	Missing      int      `json:"missing"`
	Unique       int      `json:"unique"`
	SampleValues []string `json:"sample_values"`
}

// Detection records which columns were chosen as date and target.
type Detection struct {
	DateCol         string      `json:"date_col,omitempty"`
	Target          string      `json:"target,omitempty"`
	Aggregation     Aggregation `json:"aggregation,omitempty"`
	TemporalColumns []string    `json:"temporal_columns"`
}

// AnalysisRecord is the complete, immutable result of one analysis.
type AnalysisRecord struct {
	AnalysisID     string           `json:"analysis_id"`
	CreatedAt      time.Time        `json:"created_at"`
	FileName       string           `json:"file_name,omitempty"`
	Summary        Summary          `json:"summary"`
	Columns        []ColumnProfile  `json:"columns"`
	Charts         ChartBundle      `json:"charts"`
	Detection      Detection        `json:"detection"`
	Forecast       *ForecastResult  `json:"forecast"`
	ForecastReason string           `json:"forecast_reason,omitempty"`
	Insights       []string         `json:"insights"`
	PreviewRows    []map[string]any `json:"preview_rows"`
	Cached         bool             `json:"cached,omitempty"`
}

// AnalyzeOptions carries per-request overrides for detection and forecasting.
type AnalyzeOptions struct {
	Frequency Frequency `json:"frequency,omitempty" validate:"omitempty,oneof=D W M"`
	Horizon   int       `json:"horizon,omitempty" validate:"min=0,max=365"`
	Target    string    `json:"target,omitempty"`
	DateCol   string    `json:"date_col,omitempty"`
}
