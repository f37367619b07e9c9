package report

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/huangsam/datalens/schema"
)

const chartWidth, chartHeight = "900px", "420px"

var headerTemplate = template.Must(template.New("header").Parse(`
<div class="report-header" style="font-family: sans-serif; margin: 24px;">
  <h1>{{ .Title }}</h1>
  <p>{{ .Line }}</p>
  {{- if .Insights }}
  <h2>Key Insights</h2>
  <ul>
    {{- range .Insights }}
    <li>{{ . }}</li>
    {{- end }}
  </ul>
  {{- end }}
  {{- if .Reason }}
  <p><em>No forecast: {{ .Reason }}</em></p>
  {{- end }}
</div>
`))

type headerData struct {
	Title    string
	Line     string
	Insights []string
	Reason   string
}

// renderHTML builds an interactive echarts page preceded by the report header.
func renderHTML(rec *schema.AnalysisRecord) ([]byte, error) {
	page := components.NewPage()
	page.PageTitle = Title
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(buildCharts(rec)...)

	var body bytes.Buffer
	if err := page.Render(&body); err != nil {
		return nil, fmt.Errorf("failed to render charts: %w", err)
	}

	var header bytes.Buffer
	if err := headerTemplate.Execute(&header, headerData{
		Title:    Title,
		Line:     headerLine(rec),
		Insights: topInsights(rec),
		Reason:   rec.ForecastReason,
	}); err != nil {
		return nil, fmt.Errorf("failed to render header: %w", err)
	}
	return injectAfterBody(body.Bytes(), header.Bytes()), nil
}

// injectAfterBody inserts block right after the opening body tag, or
// prepends it when the page has none.
func injectAfterBody(page, block []byte) []byte {
	tag := []byte("<body>")
	i := bytes.Index(page, tag)
	if i < 0 {
		return append(block, page...)
	}
	at := i + len(tag)
	out := make([]byte, 0, len(page)+len(block))
	out = append(out, page[:at]...)
	out = append(out, block...)
	return append(out, page[at:]...)
}

// buildCharts converts every chart of the record, plus its forecast, to echarts.
func buildCharts(rec *schema.AnalysisRecord) []components.Charter {
	var out []components.Charter
	for _, c := range rec.Charts.All() {
		switch v := c.(type) {
		case schema.Histogram:
			out = append(out, histogramChart(v))
		case schema.BarCount:
			out = append(out, barCountChart(v))
		case schema.Pie:
			out = append(out, pieChart(v))
		case schema.Heatmap:
			out = append(out, heatmapChart(v))
		case schema.Scatter:
			out = append(out, scatterChart(v))
		case schema.TimeSeries:
			out = append(out, timeSeriesChart(v))
		}
	}
	if rec.Forecast != nil {
		out = append(out, forecastChart(rec.Forecast))
	}
	return out
}

func baseOptions(title string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "item"}),
	}
}

// histogramChart labels each bar with its bin midpoint.
func histogramChart(h schema.Histogram) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(baseOptions(h.Title())...)
	labels := make([]string, len(h.Counts))
	items := make([]opts.BarData, len(h.Counts))
	for i, n := range h.Counts {
		labels[i] = fmt.Sprintf("%.2f", (h.Bins[i]+h.Bins[i+1])/2)
		items[i] = opts.BarData{Value: n}
	}
	bar.SetXAxis(labels).AddSeries("count", items)
	return bar
}

func barCountChart(b schema.BarCount) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(baseOptions(b.Title())...)
	items := make([]opts.BarData, len(b.Counts))
	for i, n := range b.Counts {
		items[i] = opts.BarData{Value: n}
	}
	bar.SetXAxis(b.Labels).AddSeries("count", items)
	return bar
}

func pieChart(p schema.Pie) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(baseOptions(p.Title())...)
	items := make([]opts.PieData, len(p.Values))
	for i, v := range p.Values {
		items[i] = opts.PieData{Name: p.Labels[i], Value: v}
	}
	pie.AddSeries(p.Column, items)
	return pie
}

func heatmapChart(h schema.Heatmap) *charts.HeatMap {
	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(append(baseOptions(h.Title()),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: h.Columns}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: h.Columns}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Min:     -1,
			Max:     1,
			InRange: &opts.VisualMapInRange{Color: []string{"#3b4cc0", "#f7f7f7", "#b40426"}},
		}),
	)...)
	var items []opts.HeatMapData
	for i := range h.Columns {
		for j := range h.Columns {
			items = append(items, opts.HeatMapData{Value: [3]any{j, i, h.Matrix[i][j]}})
		}
	}
	hm.SetXAxis(h.Columns).AddSeries("correlation", items)
	return hm
}

func scatterChart(s schema.Scatter) *charts.Scatter {
	sc := charts.NewScatter()
	sc.SetGlobalOptions(append(baseOptions(s.Title()),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: s.XCol}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: s.YCol}),
	)...)
	items := make([]opts.ScatterData, len(s.X))
	for i := range s.X {
		items[i] = opts.ScatterData{Value: []float64{s.X[i], s.Y[i]}}
	}
	sc.AddSeries("points", items)
	return sc
}

func timeSeriesChart(ts schema.TimeSeries) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(append(baseOptions(ts.Title()),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)...)
	if len(ts.Series) > 0 {
		line.SetXAxis(ts.Series[0].X)
	}
	for _, s := range ts.Series {
		items := make([]opts.LineData, len(s.Y))
		for i, y := range s.Y {
			items[i] = opts.LineData{Value: y}
		}
		line.AddSeries(s.Metric, items)
	}
	return line
}

// forecastChart overlays observed holdout values on the backtest and projection.
func forecastChart(f *schema.ForecastResult) *charts.Line {
	line := charts.NewLine()
	title := fmt.Sprintf("Forecast - %s (%s, %s)", f.Target, f.Aggregation, f.Frequency)
	line.SetGlobalOptions(append(baseOptions(title),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)...)

	x := append(append([]string{}, f.Backtest.X...), f.Forecast.X...)
	actual := make([]opts.LineData, len(x))
	predicted := make([]opts.LineData, len(x))
	for i := range f.Backtest.X {
		actual[i] = opts.LineData{Value: f.Backtest.YTrue[i]}
		predicted[i] = opts.LineData{Value: f.Backtest.YHat[i]}
	}
	for i, y := range f.Forecast.YHat {
		at := len(f.Backtest.X) + i
		actual[at] = opts.LineData{Value: nil}
		predicted[at] = opts.LineData{Value: y}
	}
	line.SetXAxis(x).
		AddSeries("actual", actual).
		AddSeries("predicted", predicted)
	return line
}
