// Package insight turns analysis artifacts into short natural-language findings.
package insight

import (
	"fmt"
	"math"
	"sort"

	"github.com/huangsam/datalens/core/agg"
	"github.com/huangsam/datalens/schema"
	"gonum.org/v1/gonum/stat"
)

// Rule thresholds and caps.
const (
	MaxInsights       = 10
	maxMissing        = 3
	minCorrelation    = 0.6
	maxDominant       = 2
	maxSkewed         = 2
	minSkewValues     = 10
	skewThreshold     = 1.0
	minTrendRows      = 5
	trendThreshold    = 0.2
	HealthyDataNotice = "Data looks healthy. No strong trends or issues detected."
)

// Input gathers the artifacts insights are derived from.
type Input struct {
	Table    *schema.Table // full detected table
	Temporal []string      // accepted temporal columns in detection order
	Summary  schema.Summary
	Charts   schema.ChartBundle
	Forecast *schema.ForecastResult
}

// Generate applies every rule in order and returns a non-empty list.
func Generate(in Input) []string {
	var out []string
	out = append(out, missingness(in)...)
	out = append(out, correlation(in)...)
	out = append(out, dominantCategories(in)...)
	out = append(out, skewness(in)...)
	out = append(out, trend(in)...)
	out = append(out, forecastTotal(in)...)
	if len(out) == 0 {
		return []string{HealthyDataNotice}
	}
	if len(out) > MaxInsights {
		out = out[:MaxInsights]
	}
	return out
}

func missingness(in Input) []string {
	type miss struct {
		name  string
		count int
	}
	var cols []miss
	for _, col := range in.Table.Columns {
		if n := in.Summary.MissingByCol[col.Name]; n > 0 {
			cols = append(cols, miss{col.Name, n})
		}
	}
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].count > cols[j].count })

	var out []string
	for _, m := range cols[:min(len(cols), maxMissing)] {
		pct := 0.0
		if in.Summary.Rows > 0 {
			pct = float64(m.count) / float64(in.Summary.Rows) * 100
		}
		out = append(out, fmt.Sprintf("Column '%s' has %d missing values (%.1f%%). Consider imputation or dropping.", m.name, m.count, pct))
	}
	return out
}

func correlation(in Input) []string {
	h := in.Charts.Heatmap
	if h == nil {
		return nil
	}
	i, j, r, ok := agg.StrongestPair(h.Matrix)
	if !ok || math.Abs(r) < minCorrelation {
		return nil
	}
	return []string{fmt.Sprintf("Strong relationship detected between '%s' and '%s' (|r|=%.2f).", h.Columns[i], h.Columns[j], math.Abs(r))}
}

func dominantCategories(in Input) []string {
	var out []string
	bars := in.Charts.BarCounts
	for _, b := range bars[:min(len(bars), maxDominant)] {
		if len(b.Labels) == 0 {
			continue
		}
		total := 0
		for _, c := range b.Counts {
			total += c
		}
		share := 0.0
		if total > 0 {
			share = float64(b.Counts[0]) / float64(total) * 100
		}
		out = append(out, fmt.Sprintf("In '%s', '%s' is the most frequent category (%.1f%%).", b.Column, b.Labels[0], share))
	}
	return out
}

func skewness(in Input) []string {
	var out []string
	numerics := in.Table.Numeric()
	for _, col := range numerics[:min(len(numerics), maxSkewed)] {
		xs := values(col)
		if len(xs) <= minSkewValues {
			continue
		}
		if line, ok := skewLine(col.Name, SampleSkew(xs)); ok {
			out = append(out, line)
		}
	}
	return out
}

// skewLine reports a skewed column; |skew| must strictly exceed the threshold.
func skewLine(name string, skew float64) (string, bool) {
	if math.IsNaN(skew) || math.Abs(skew) <= skewThreshold {
		return "", false
	}
	direction := "right-skewed"
	if skew < 0 {
		direction = "left-skewed"
	}
	return fmt.Sprintf("'%s' appears %s (skew=%.2f); consider transform or robust stats.", name, direction, skew), true
}

func trend(in Input) []string {
	numerics := in.Table.Numeric()
	if len(in.Temporal) == 0 || len(numerics) == 0 {
		return nil
	}
	dates := in.Table.Column(in.Temporal[0])
	target := numerics[0]
	if dates == nil {
		return nil
	}
	var secs, ys []float64
	for i := range dates.Len() {
		ts, okT := dates.Time(i)
		v, okV := target.Float(i)
		if okT && okV {
			secs = append(secs, float64(ts.Unix()))
			ys = append(ys, v)
		}
	}
	if len(secs) <= minTrendRows {
		return nil
	}
	r := stat.Correlation(secs, ys, nil)
	if math.IsNaN(r) || math.Abs(r) <= trendThreshold {
		return nil
	}
	sign := "increasing"
	if r < 0 {
		sign = "decreasing"
	}
	return []string{fmt.Sprintf("'%s' shows a mildly %s trend over time (r=%.2f).", target.Name, sign, r)}
}

func forecastTotal(in Input) []string {
	f := in.Forecast
	if f == nil {
		return nil
	}
	return []string{fmt.Sprintf("Forecast for '%s' sums to %.2f over the next %d %s (frequency %s).",
		f.Target, f.Total(), f.Horizon, f.Frequency.Unit(), f.Frequency)}
}

// SampleSkew is the adjusted Fisher-Pearson skewness, NaN for fewer than 3 values.
func SampleSkew(xs []float64) float64 {
	if len(xs) < 3 {
		return math.NaN()
	}
	return stat.Skew(xs, nil)
}

func values(col *schema.Column) []float64 {
	var out []float64
	for i := range col.Len() {
		if v, ok := col.Float(i); ok {
			out = append(out, v)
		}
	}
	return out
}
