// Package agg has summary statistics and chart aggregation for analyzed tables.
package agg

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/huangsam/datalens/internal/contract"
	"github.com/huangsam/datalens/schema"
	"gonum.org/v1/gonum/floats"
)

// Chart limits.
const (
	MaxHistograms     = 6
	HistogramBins     = 20
	MaxBarCharts      = 6
	MaxBarCategories  = 10
	MaxPieCategories  = 8
	MaxScatterPoints  = 500
	MaxSeriesMetrics  = 2
	MaxSeriesBuckets  = 400
	correlationDigits = 4
)

// BuildCharts builds every chart for t, which is usually already sampled.
// temporal lists accepted temporal columns in detection order.
// A chart that fails is left out and its error is joined into the returned error;
// the bundle is always usable.
func BuildCharts(t *schema.Table, temporal []string) (schema.ChartBundle, error) {
	bundle := schema.NewChartBundle()
	var errs []error

	numerics := t.Numeric()
	categoricals := t.Categorical()

	for _, col := range first(numerics, MaxHistograms) {
		h, err := guard("histogram "+col.Name, func() (*schema.Histogram, error) { return BuildHistogram(col) })
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if h != nil {
			bundle.Histograms = append(bundle.Histograms, *h)
		}
	}

	for _, col := range first(categoricals, MaxBarCharts) {
		labels, counts := topCategories(col, MaxBarCategories)
		bundle.BarCounts = append(bundle.BarCounts, schema.BarCount{Column: col.Name, Labels: labels, Counts: counts})
	}

	if len(categoricals) > 0 {
		labels, values := topCategories(categoricals[0], MaxPieCategories)
		bundle.Pie = &schema.Pie{Column: categoricals[0].Name, Labels: labels, Values: values}
	}

	if len(numerics) >= 2 {
		corr, err := guard("heatmap", func() ([][]float64, error) { return Correlations(numerics), nil })
		if err != nil {
			errs = append(errs, err)
		} else {
			bundle.Heatmap = heatmapOf(numerics, corr)
			bundle.Scatter = scatterOf(numerics, corr)
		}
	}

	if len(temporal) > 0 && len(numerics) > 0 {
		ts, err := guard("timeseries", func() (*schema.TimeSeries, error) {
			return BuildTimeSeries(t.Column(temporal[0]), first(numerics, MaxSeriesMetrics))
		})
		if err != nil {
			errs = append(errs, err)
		} else {
			bundle.TimeSeries = ts
		}
	}

	return bundle, errors.Join(errs...)
}

// guard converts a panic inside a chart builder into a NumericFailure.
func guard[T any](name string, fn func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &contract.NumericFailure{Err: fmt.Errorf("%s: %v", name, r)}
		}
	}()
	out, err = fn()
	if err != nil {
		err = fmt.Errorf("%s: %w", name, err)
	}
	return out, err
}

func first(cols []*schema.Column, n int) []*schema.Column {
	if len(cols) > n {
		return cols[:n]
	}
	return cols
}

// BuildHistogram bins the non-null values of col into equal-width bins.
// It returns nil when the column has no values.
func BuildHistogram(col *schema.Column) (*schema.Histogram, error) {
	values := nonNullFloats(col)
	if len(values) == 0 {
		return nil, nil
	}
	lo, hi := floats.Min(values), floats.Max(values)
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return nil, fmt.Errorf("non-finite range [%v, %v]", lo, hi)
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	edges := floats.Span(make([]float64, HistogramBins+1), lo, hi)
	counts := make([]int, HistogramBins)
	width := hi - lo
	for _, v := range values {
		idx := int((v - lo) / width * HistogramBins)
		if idx >= HistogramBins {
			idx = HistogramBins - 1
		}
		// Correct for float rounding near bin edges.
		if idx > 0 && v < edges[idx] {
			idx--
		} else if idx < HistogramBins-1 && v >= edges[idx+1] {
			idx++
		}
		counts[idx]++
	}
	return &schema.Histogram{Column: col.Name, Bins: edges, Counts: counts}, nil
}

// topCategories counts stringified values, nulls included as "NaN", and returns the
// n most frequent. Ties keep first-seen order.
func topCategories(col *schema.Column, n int) ([]string, []int) {
	counts := make(map[string]int)
	var order []string
	for i := range col.Len() {
		label := col.Stringify(i)
		if _, ok := counts[label]; !ok {
			order = append(order, label)
		}
		counts[label]++
	}
	sort.SliceStable(order, func(a, b int) bool {
		return counts[order[a]] > counts[order[b]]
	})
	if len(order) > n {
		order = order[:n]
	}
	values := make([]int, len(order))
	for i, label := range order {
		values[i] = counts[label]
	}
	return order, values
}

// BuildTimeSeries averages metrics into daily buckets keyed by the date column.
// Days without any value are dropped and remaining gaps are reported as 0.
func BuildTimeSeries(dateCol *schema.Column, metrics []*schema.Column) (*schema.TimeSeries, error) {
	if dateCol == nil || dateCol.Kind != schema.TemporalKind {
		return nil, errors.New("date column is not temporal")
	}

	type acc struct {
		sum   []float64
		count []int
	}
	days := make(map[time.Time]*acc)
	var keys []time.Time
	for i := range dateCol.Len() {
		ts, ok := dateCol.Time(i)
		if !ok {
			continue
		}
		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		a, ok := days[day]
		if !ok {
			a = &acc{sum: make([]float64, len(metrics)), count: make([]int, len(metrics))}
			days[day] = a
			keys = append(keys, day)
		}
		for m, col := range metrics {
			if v, ok := col.Float(i); ok {
				a.sum[m] += v
				a.count[m]++
			}
		}
	}
	if len(keys) == 0 {
		return nil, nil
	}
	sort.Slice(keys, func(a, b int) bool { return keys[a].Before(keys[b]) })

	out := &schema.TimeSeries{DateCol: dateCol.Name, Series: make([]schema.Series, len(metrics))}
	for m, col := range metrics {
		out.Series[m] = schema.Series{Metric: col.Name, X: []string{}, Y: []float64{}}
	}
	emitted := 0
	for _, day := range keys {
		if emitted == MaxSeriesBuckets {
			break
		}
		a := days[day]
		empty := true
		for _, c := range a.count {
			if c > 0 {
				empty = false
				break
			}
		}
		if empty {
			continue
		}
		label := day.Format(schema.DateFormat)
		for m := range metrics {
			var y float64
			if a.count[m] > 0 {
				y = a.sum[m] / float64(a.count[m])
			}
			out.Series[m].X = append(out.Series[m].X, label)
			out.Series[m].Y = append(out.Series[m].Y, y)
		}
		emitted++
	}
	return out, nil
}

func nonNullFloats(col *schema.Column) []float64 {
	out := make([]float64, 0, col.Len())
	for i := range col.Len() {
		if v, ok := col.Float(i); ok {
			out = append(out, v)
		}
	}
	return out
}
