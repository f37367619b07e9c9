// Package forecast fits a trend and seasonal-dummy linear model to a resampled
// target series, backtests it on a holdout tail, and projects a future horizon.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/huangsam/datalens/internal/contract"
	"github.com/huangsam/datalens/schema"
)

// MinPoints is the smallest bucket count accepted per frequency.
var MinPoints = map[schema.Frequency]int{
	schema.Daily:   10,
	schema.Weekly:  6,
	schema.Monthly: 4,
}

// DefaultHorizon is the number of projected periods per frequency.
var DefaultHorizon = map[schema.Frequency]int{
	schema.Daily:   14,
	schema.Weekly:  8,
	schema.Monthly: 6,
}

// Holdout parameters.
const (
	minSplit   = 5
	trainShare = 0.8
)

// Request describes one forecast over a detected table.
type Request struct {
	DateCol     string
	Target      string
	Aggregation schema.Aggregation
	Frequency   schema.Frequency // empty tries D, W, M in order
	Horizon     int              // 0 uses DefaultHorizon
}

// Run forecasts req.Target over req.DateCol. It returns a DetectionGap when no
// rows survive parsing, the last InsufficientData when no frequency has enough
// buckets, or a NumericFailure when fitting breaks.
func Run(t *schema.Table, req Request) (res *schema.ForecastResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, &contract.NumericFailure{Err: fmt.Errorf("%v", r)}
		}
	}()

	points, err := Points(t, req.DateCol, req.Target)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, &contract.DetectionGap{Reason: schema.ReasonNoValidRows}
	}

	freqs := schema.AllFrequencies
	if req.Frequency != "" {
		freqs = []schema.Frequency{req.Frequency}
	}

	var lastErr error
	for _, freq := range freqs {
		buckets := Resample(points, freq, req.Aggregation)
		if len(buckets) < MinPoints[freq] {
			lastErr = &contract.InsufficientData{Frequency: freq, Points: len(buckets)}
			continue
		}
		out, fitErr := fitFrequency(buckets, freq, req)
		if fitErr != nil {
			return nil, &contract.NumericFailure{Err: fitErr}
		}
		return out, nil
	}
	return nil, lastErr
}

// Points extracts non-null (timestamp, value) pairs, stably sorted by time.
func Points(t *schema.Table, dateCol, target string) ([]Point, error) {
	dc, tc := t.Column(dateCol), t.Column(target)
	if dc == nil || tc == nil {
		return nil, &contract.DetectionGap{Reason: schema.ReasonNoValidRows}
	}
	if dc.Kind != schema.TemporalKind {
		return nil, fmt.Errorf("column %q is not temporal", dateCol)
	}
	var out []Point
	for i := range dc.Len() {
		ts, okT := dc.Time(i)
		v, okV := tc.Float(i)
		if okT && okV && !math.IsInf(v, 0) {
			out = append(out, Point{At: ts, Value: v})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, nil
}

// SplitIndex is where the holdout tail starts for n buckets.
func SplitIndex(n int) int {
	return max(minSplit, int(math.Floor(trainShare*float64(n))))
}

func fitFrequency(buckets []Bucket, freq schema.Frequency, req Request) (*schema.ForecastResult, error) {
	n := len(buckets)
	labels := make([]time.Time, n)
	values := make([]float64, n)
	for i, b := range buckets {
		labels[i], values[i] = b.Label, b.Value
	}
	design := NewDesign(labels, SeasonFor(freq))

	backtest := schema.Backtest{X: []string{}, YTrue: []float64{}, YHat: []float64{}}
	var metrics schema.ForecastMetrics
	if split := SplitIndex(n); split < n {
		beta, err := Fit(design.Matrix(labels[:split], 0), values[:split])
		if err != nil {
			return nil, fmt.Errorf("backtest fit: %w", err)
		}
		yHat := Predict(design.Matrix(labels[split:], split), beta)
		backtest = schema.Backtest{
			X:     schema.FormatDates(labels[split:]),
			YTrue: append([]float64(nil), values[split:]...),
			YHat:  yHat,
		}
		metrics = Metrics(backtest.YTrue, yHat)
	}

	beta, err := Fit(design.Matrix(labels, 0), values)
	if err != nil {
		return nil, fmt.Errorf("final fit: %w", err)
	}

	horizon := req.Horizon
	if horizon <= 0 {
		horizon = DefaultHorizon[freq]
	}
	future := make([]time.Time, horizon)
	next := labels[n-1]
	for i := range future {
		next = NextLabel(next, freq)
		future[i] = next
	}
	projected := Predict(design.Matrix(future, n), beta)
	for _, v := range projected {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New("non-finite projection")
		}
	}

	return &schema.ForecastResult{
		Target:      req.Target,
		DateCol:     req.DateCol,
		Horizon:     horizon,
		Frequency:   freq,
		Aggregation: req.Aggregation,
		Metrics:     metrics,
		Backtest:    backtest,
		Forecast: schema.Projection{
			X:    schema.FormatDates(future),
			YHat: projected,
		},
	}, nil
}
