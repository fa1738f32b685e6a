package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for evaluations
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Recorder handles metrics recording and exposure
type Recorder struct {
	// API metrics
	apiRequestCounter   *prometheus.CounterVec
	apiLatencyHistogram *prometheus.HistogramVec

	// Valuation metrics
	evaluationCounter *prometheus.CounterVec
	evaluationLatency *prometheus.HistogramVec
	greekGauge        *prometheus.GaugeVec
	valueGauge        *prometheus.GaugeVec

	// Store metrics
	storedStrategiesGauge prometheus.Gauge

	// System metrics
	memoryUsageGauge    prometheus.Gauge
	goroutineCountGauge prometheus.Gauge
}

// NewRecorder creates the metrics and registers them with reg. A nil reg
// creates them unregistered.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		// API metrics
		apiRequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optrisk_api_requests_total",
				Help: "The total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		apiLatencyHistogram: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "optrisk_api_latency_seconds",
				Help:    "API request latency distribution",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15), // From 0.1ms to ~1.6s
			},
			[]string{"method", "path"},
		),

		// Valuation metrics
		evaluationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "optrisk_evaluations_total",
				Help: "The total number of valuations by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		evaluationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "optrisk_evaluation_latency_seconds",
				Help:    "Valuation latency distribution",
				Buckets: prometheus.ExponentialBuckets(0.00001, 2, 15), // From 10us to ~160ms
			},
			[]string{"kind"},
		),
		greekGauge: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "optrisk_strategy_greek",
				Help: "Latest aggregated Greek of a strategy",
			},
			[]string{"strategy", "greek"},
		),
		valueGauge: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "optrisk_strategy_value",
				Help: "Latest model value of a strategy",
			},
			[]string{"strategy"},
		),

		// Store metrics
		storedStrategiesGauge: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "optrisk_stored_strategies",
				Help: "Number of strategies held in the store",
			},
		),

		// System metrics
		memoryUsageGauge: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "optrisk_memory_usage_bytes",
				Help: "Memory usage of the application in bytes",
			},
		),
		goroutineCountGauge: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "optrisk_goroutine_count",
				Help: "Number of goroutines",
			},
		),
	}
}

// RecordAPIRequest records metrics for an API request
func (r *Recorder) RecordAPIRequest(method, path string, status int, latency time.Duration) {
	r.apiRequestCounter.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	r.apiLatencyHistogram.WithLabelValues(method, path).Observe(latency.Seconds())
}

// RecordEvaluation records one valuation of the given kind
func (r *Recorder) RecordEvaluation(kind string, err error, latency time.Duration) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	r.evaluationCounter.WithLabelValues(kind, outcome).Inc()
	r.evaluationLatency.WithLabelValues(kind).Observe(latency.Seconds())
}

// RecordStrategyRisk publishes the latest value and Greeks of a strategy
func (r *Recorder) RecordStrategyRisk(strategy string, value, delta, gamma, theta, vega, rho float64) {
	r.valueGauge.WithLabelValues(strategy).Set(value)
	r.greekGauge.WithLabelValues(strategy, "delta").Set(delta)
	r.greekGauge.WithLabelValues(strategy, "gamma").Set(gamma)
	r.greekGauge.WithLabelValues(strategy, "theta").Set(theta)
	r.greekGauge.WithLabelValues(strategy, "vega").Set(vega)
	r.greekGauge.WithLabelValues(strategy, "rho").Set(rho)
}

// RecordStoredStrategies records the current store size
func (r *Recorder) RecordStoredStrategies(n int) {
	r.storedStrategiesGauge.Set(float64(n))
}

// RecordMemoryUsage records the current memory usage
func (r *Recorder) RecordMemoryUsage(bytesUsed uint64) {
	r.memoryUsageGauge.Set(float64(bytesUsed))
}

// RecordGoroutineCount records the current number of goroutines
func (r *Recorder) RecordGoroutineCount(count int) {
	r.goroutineCountGauge.Set(float64(count))
}
