package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cyclesTotal    *prometheus.CounterVec
	cycleDuration  *prometheus.HistogramVec
	fallbacksTotal *prometheus.CounterVec
	analysisErrors *prometheus.CounterVec
	portfolioSize  prometheus.Gauge
	averageScore   prometheus.Gauge
	cacheResults   *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

// New creates a pipeline metrics recorder registered on reg.
// A nil reg uses the default Prometheus registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		cyclesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinscout_cycles_total",
				Help: "Pipeline cycles by outcome",
			},
			[]string{"status"},
		),
		cycleDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinscout_cycle_duration_seconds",
				Help:    "Duration of pipeline cycles",
				Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"status"},
		),
		fallbacksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinscout_gateway_fallbacks_total",
				Help: "Times the gateway served synthetic tickers",
			},
			[]string{"reason"},
		),
		analysisErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinscout_analysis_errors_total",
				Help: "Per-asset analysis failures",
			},
			[]string{"kind"},
		),
		portfolioSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "coinscout_portfolio_size",
			Help: "Number of assets in the current ranked portfolio",
		}),
		averageScore: f.NewGauge(prometheus.GaugeOpts{
			Name: "coinscout_portfolio_average_score",
			Help: "Average score of the current ranked portfolio",
		}),
		cacheResults: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinscout_snapshot_cache_total",
				Help: "Snapshot restore results",
			},
			[]string{"result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinscout_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinscout_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordCycle records a finished pipeline cycle.
func (r *Recorder) RecordCycle(status string, seconds float64) {
	r.cyclesTotal.WithLabelValues(status).Inc()
	r.cycleDuration.WithLabelValues(status).Observe(seconds)
}

// RecordFallback records a synthetic gateway fallback.
func (r *Recorder) RecordFallback(reason string) {
	r.fallbacksTotal.WithLabelValues(reason).Inc()
}

func (r *Recorder) RecordAnalysisError(kind string) {
	r.analysisErrors.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordPortfolio(size int, avgScore float64) {
	r.portfolioSize.Set(float64(size))
	r.averageScore.Set(avgScore)
}

// RecordCacheResult records hit, miss, stale or corrupt.
func (r *Recorder) RecordCacheResult(result string) {
	r.cacheResults.WithLabelValues(result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
