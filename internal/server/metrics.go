package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/huangsam/datalens/internal/contract"
	"github.com/huangsam/datalens/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsPrefix = "datalens"

// Analysis outcomes.
const (
	outcomeOK         = "ok"
	outcomeInputError = "input_error"
	outcomeError      = "error"
)

// Metrics holds the collectors exposed on /metrics. Each server owns its own
// registry so several servers can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	analysesTotal    *prometheus.CounterVec
	forecastsTotal   *prometheus.CounterVec
	analysisDuration prometheus.Histogram
	reportsTotal     *prometheus.CounterVec
}

// NewMetrics registers all collectors. records backs the store size gauge.
func NewMetrics(records contract.RecordStore) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{registry: reg}
	m.analysesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricsPrefix + "_analyses_total",
			Help: "Total number of analyses by outcome",
		},
		[]string{"outcome"},
	)
	m.forecastsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricsPrefix + "_forecasts_total",
			Help: "Total number of forecast attempts by frequency and reason",
		},
		[]string{"frequency", "reason"},
	)
	m.analysisDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    metricsPrefix + "_analysis_duration_seconds",
			Help:    "Analysis duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
	m.reportsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: metricsPrefix + "_reports_total",
			Help: "Total number of rendered reports by format",
		},
		[]string{"format"},
	)
	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricsPrefix + "_records_stored",
			Help: "Number of live analysis records in memory",
		},
		func() float64 {
			if records == nil {
				return 0
			}
			return float64(records.Len())
		},
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordAnalysis counts a finished analysis. rec is nil for failures.
func (m *Metrics) RecordAnalysis(outcome string, rec *schema.AnalysisRecord, duration time.Duration) {
	m.analysesTotal.WithLabelValues(outcome).Inc()
	m.analysisDuration.Observe(duration.Seconds())
	if rec == nil {
		return
	}
	frequency := "none"
	if rec.Forecast != nil {
		frequency = string(rec.Forecast.Frequency)
	}
	m.forecastsTotal.WithLabelValues(frequency, reasonLabel(rec.ForecastReason)).Inc()
}

// RecordReport counts a rendered report.
func (m *Metrics) RecordReport(format schema.ReportFormat) {
	m.reportsTotal.WithLabelValues(string(format)).Inc()
}

// reasonLabel drops the variable part of a reason code to bound label cardinality.
func reasonLabel(reason string) string {
	if reason == "" {
		return "ok"
	}
	if i := strings.IndexAny(reason, "=:"); i > 0 {
		return reason[:i]
	}
	return reason
}
