package schema

// Chart is implemented by every chart variant in a ChartBundle.
type Chart interface {
	Kind() ChartKind
	Title() string
}

// Histogram holds equal-width bin edges and the counts between them.
type Histogram struct {
	Column string    `json:"column"`
	Bins   []float64 `json:"bins"`
	Counts []int     `json:"counts"`
}

// BarCount holds the most frequent categories of a column.
type BarCount struct {
	Column string   `json:"column"`
	Labels []string `json:"labels"`
	Counts []int    `json:"counts"`
}

// Pie holds the category shares of the first categorical column.
type Pie struct {
	Column string   `json:"column"`
	Labels []string `json:"labels"`
	Values []int    `json:"values"`
}

// Heatmap holds a square correlation matrix over numeric columns.
type Heatmap struct {
	Columns []string    `json:"columns"`
	Matrix  [][]float64 `json:"matrix"`
}

// Scatter holds paired points for the most correlated column pair.
type Scatter struct {
	XCol string    `json:"xCol"`
	YCol string    `json:"yCol"`
	X    []float64 `json:"x"`
	Y    []float64 `json:"y"`
}

// Series is one metric of a TimeSeries.
type Series struct {
	Metric string    `json:"metric"`
	X      []string  `json:"x"`
	Y      []float64 `json:"y"`
}

// TimeSeries holds daily means of up to two numeric columns.
type TimeSeries struct {
	DateCol string   `json:"dateCol"`
	Series  []Series `json:"series"`
}

func (Histogram) Kind() ChartKind  { return HistogramChart }
func (BarCount) Kind() ChartKind   { return BarCountChart }
func (Pie) Kind() ChartKind        { return PieChart }
func (Heatmap) Kind() ChartKind    { return HeatmapChart }
func (Scatter) Kind() ChartKind    { return ScatterChart }
func (TimeSeries) Kind() ChartKind { return TimeSeriesChart }

func (h Histogram) Title() string  { return "Histogram - " + h.Column }
func (b BarCount) Title() string   { return "Top categories - " + b.Column }
func (p Pie) Title() string        { return "Share - " + p.Column }
func (Heatmap) Title() string      { return "Correlation Heatmap" }
func (s Scatter) Title() string    { return s.XCol + " vs " + s.YCol }
func (t TimeSeries) Title() string { return "Daily mean by " + t.DateCol }

// ChartBundle assembles every chart built for one analysis.
// Optional variants are nil when their preconditions are not met.
type ChartBundle struct {
	Histograms []Histogram `json:"histograms"`
	BarCounts  []BarCount  `json:"barCounts"`
	Pie        *Pie        `json:"pie"`
	Heatmap    *Heatmap    `json:"heatmap"`
	Scatter    *Scatter    `json:"scatter"`
	TimeSeries *TimeSeries `json:"timeseries"`
}

// NewChartBundle returns a bundle with empty, non-nil lists.
func NewChartBundle() ChartBundle {
	return ChartBundle{Histograms: []Histogram{}, BarCounts: []BarCount{}}
}

// All flattens the bundle into its charts in rendering order.
func (b ChartBundle) All() []Chart {
	var out []Chart
	for _, h := range b.Histograms {
		out = append(out, h)
	}
	for _, bc := range b.BarCounts {
		out = append(out, bc)
	}
	if b.Pie != nil {
		out = append(out, *b.Pie)
	}
	if b.Heatmap != nil {
		out = append(out, *b.Heatmap)
	}
	if b.Scatter != nil {
		out = append(out, *b.Scatter)
	}
	if b.TimeSeries != nil {
		out = append(out, *b.TimeSeries)
	}
	return out
}
