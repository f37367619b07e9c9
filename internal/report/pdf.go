package report

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/huangsam/datalens/internal/contract"
	"github.com/huangsam/datalens/schema"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// PrintTimeout bounds a single headless Chrome print.
const PrintTimeout = 60 * time.Second

var printTemplate = template.Must(template.New("print").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{ .Title }}</title>
<style>
  body { font-family: Helvetica, Arial, sans-serif; margin: 2cm; font-size: 11pt; }
  h1 { font-size: 16pt; margin-bottom: 4px; }
  .meta { color: #444; font-size: 10pt; }
  img { width: 48%; margin-right: 1%; }
  table.corr { border-collapse: collapse; font-size: 8pt; margin-top: 12px; }
  table.corr td, table.corr th { border: 1px solid #ccc; padding: 3px 6px; text-align: right; }
</style>
</head>
<body>
<h1>{{ .Title }}</h1>
<p class="meta">{{ .Line }}</p>
<h2>Key Insights</h2>
<ul>
{{- range .Insights }}
  <li>{{ . }}</li>
{{- end }}
</ul>
{{- if .Reason }}
<p><em>No forecast: {{ .Reason }}</em></p>
{{- end }}
<div>
{{- range .Images }}
  <img src="{{ . }}">
{{- end }}
</div>
{{- with .Heatmap }}
<h2>Correlation Heatmap</h2>
<table class="corr">
  <tr><th></th>{{ range .Columns }}<th>{{ . }}</th>{{ end }}</tr>
  {{- range .Rows }}
  <tr><th>{{ .Name }}</th>{{ range .Cells }}<td style="background: {{ .Color }}">{{ .Text }}</td>{{ end }}</tr>
  {{- end }}
</table>
{{- end }}
</body>
</html>
`))

type printData struct {
	Title    string
	Line     string
	Insights []string
	Reason   string
	Images   []template.URL
	Heatmap  *heatmapTable
}

type heatmapTable struct {
	Columns []string
	Rows    []heatmapRow
}

type heatmapRow struct {
	Name  string
	Cells []heatmapCell
}

type heatmapCell struct {
	Text  string
	Color template.CSS
}

// renderPDF prints a static page with embedded chart images through headless Chrome.
func renderPDF(ctx context.Context, rec *schema.AnalysisRecord) ([]byte, error) {
	doc, err := renderPrintHTML(rec)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "datalens-report-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()
	htmlPath := filepath.Join(dir, "report.html")
	if err := os.WriteFile(htmlPath, doc, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write temp report: %w", err)
	}

	return printToPDF(ctx, "file://"+htmlPath)
}

// printToPDF loads url in a fresh headless browser and prints it.
func printToPDF(ctx context.Context, url string) ([]byte, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.DisableGPU,
		chromedp.NoSandbox,
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	timeoutCtx, cancelTimeout := context.WithTimeout(browserCtx, PrintTimeout)
	defer cancelTimeout()

	var pdf []byte
	if err := chromedp.Run(timeoutCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			return err
		}),
	); err != nil {
		return nil, fmt.Errorf("failed to print PDF: %w", err)
	}
	return pdf, nil
}

// renderPrintHTML builds the page that is printed to PDF.
func renderPrintHTML(rec *schema.AnalysisRecord) ([]byte, error) {
	data := printData{
		Title:    Title,
		Line:     headerLine(rec),
		Insights: topInsights(rec),
		Reason:   rec.ForecastReason,
	}
	if len(rec.Charts.Histograms) > 0 {
		if img, err := histogramPNG(rec.Charts.Histograms[0]); err != nil {
			contract.LogWarn("Skipping histogram image", err)
		} else {
			data.Images = append(data.Images, dataURL(img))
		}
	}
	if rec.Forecast != nil {
		if img, err := forecastPNG(rec.Forecast); err != nil {
			contract.LogWarn("Skipping forecast image", err)
		} else {
			data.Images = append(data.Images, dataURL(img))
		}
	}
	if hm := rec.Charts.Heatmap; hm != nil {
		data.Heatmap = buildHeatmapTable(hm)
	}

	var buf bytes.Buffer
	if err := printTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render print page: %w", err)
	}
	return buf.Bytes(), nil
}

func dataURL(png []byte) template.URL {
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
}

func histogramPNG(h schema.Histogram) ([]byte, error) {
	bars := make([]chart.Value, len(h.Counts))
	for i, n := range h.Counts {
		bars[i] = chart.Value{
			Value: float64(n),
			Label: fmt.Sprintf("%.1f", (h.Bins[i]+h.Bins[i+1])/2),
		}
	}
	bar := chart.BarChart{
		Title:    h.Title(),
		Width:    640,
		Height:   420,
		BarWidth: 24,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		XAxis: chart.Style{TextRotationDegrees: 45},
		Bars:  bars,
	}
	buf := bytes.NewBuffer([]byte{})
	if err := bar.Render(chart.PNG, buf); err != nil {
		return nil, fmt.Errorf("error rendering chart: %w", err)
	}
	return buf.Bytes(), nil
}

// forecastPNG plots the backtest against the observed holdout and the projection.
func forecastPNG(f *schema.ForecastResult) ([]byte, error) {
	n := len(f.Backtest.X)
	index := func(from, count int) []float64 {
		xs := make([]float64, count)
		for i := range xs {
			xs[i] = float64(from + i)
		}
		return xs
	}

	var series []chart.Series
	if n > 0 {
		series = append(series,
			chart.ContinuousSeries{
				Name:    "actual",
				XValues: index(0, n),
				YValues: f.Backtest.YTrue,
				Style:   chart.Style{StrokeColor: drawing.ColorBlack, StrokeWidth: 2},
			},
			chart.ContinuousSeries{
				Name:    "backtest",
				XValues: index(0, n),
				YValues: f.Backtest.YHat,
				Style:   chart.Style{StrokeColor: drawing.ColorBlue, StrokeWidth: 2, StrokeDashArray: []float64{5, 5}},
			},
		)
	}
	series = append(series, chart.ContinuousSeries{
		Name:    "forecast",
		XValues: index(n, len(f.Forecast.YHat)),
		YValues: f.Forecast.YHat,
		Style:   chart.Style{StrokeColor: drawing.ColorRed, StrokeWidth: 2},
	})

	labels := append(append([]string{}, f.Backtest.X...), f.Forecast.X...)
	graph := chart.Chart{
		Title:  fmt.Sprintf("Forecast - %s", f.Target),
		Width:  640,
		Height: 420,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		XAxis: chart.XAxis{
			Style: chart.Style{TextRotationDegrees: 45},
			ValueFormatter: func(v any) string {
				if vf, ok := v.(float64); ok {
					i := int(math.Round(vf))
					if i >= 0 && i < len(labels) {
						return labels[i]
					}
				}
				return ""
			},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	buf := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buf); err != nil {
		return nil, fmt.Errorf("error rendering chart: %w", err)
	}
	return buf.Bytes(), nil
}

func buildHeatmapTable(hm *schema.Heatmap) *heatmapTable {
	t := &heatmapTable{Columns: hm.Columns}
	for i, name := range hm.Columns {
		row := heatmapRow{Name: name}
		for _, v := range hm.Matrix[i] {
			row.Cells = append(row.Cells, heatmapCell{
				Text:  fmt.Sprintf("%.2f", v),
				Color: correlationColor(v),
			})
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// correlationColor maps r in [-1, 1] onto a blue-white-red scale.
func correlationColor(r float64) template.CSS {
	if math.IsNaN(r) {
		return "#eeeeee"
	}
	r = math.Max(-1, math.Min(1, r))
	shade := func(t float64) uint8 { return uint8(math.Round(255 - 150*t)) }
	if r >= 0 {
		s := shade(r)
		return template.CSS(fmt.Sprintf("rgb(255,%d,%d)", s, s))
	}
	s := shade(-r)
	return template.CSS(fmt.Sprintf("rgb(%d,%d,255)", s, s))
}
