package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "lca_"

	// ResultSuccess labels a successful operation.
	ResultSuccess = "success"
	// ResultError labels a failed operation.
	ResultError = "error"
)

var (
	registerOnce sync.Once

	calculationTotal     *prometheus.CounterVec
	calculationLatency   *prometheus.HistogramVec
	calculationInstances prometheus.Counter
	calculationErrors    prometheus.Counter

	dispatchTotal      *prometheus.CounterVec
	dispatchLatency    *prometheus.HistogramVec
	dispatchBatches    prometheus.Counter
	dispatchInstances  prometheus.Counter
	dispatchDuplicates prometheus.Counter

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	consumerLag *prometheus.GaugeVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		calculationTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "calculation_total",
				Help: "Total calculation passes by result",
			},
			[]string{"result"},
		)
		calculationLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "calculation_latency_seconds",
				Help:    "Calculation pass latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		calculationInstances = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "calculation_instances_total",
				Help: "Total material instances processed",
			},
		)
		calculationErrors = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "calculation_instance_errors_total",
				Help: "Total material instances that could not be computed",
			},
		)

		dispatchTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "dispatch_total",
				Help: "Total result dispatch calls by result",
			},
			[]string{"result"},
		)
		dispatchLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "dispatch_latency_seconds",
				Help:    "Result dispatch latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		dispatchBatches = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "dispatch_batches_total",
				Help: "Total batches sent to the result topic",
			},
		)
		dispatchInstances = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "dispatch_instances_total",
				Help: "Total material instances sent to the result topic",
			},
		)
		dispatchDuplicates = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "dispatch_duplicates_dropped_total",
				Help: "Total duplicate instances dropped before sending",
			},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total result exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Result export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		consumerLag = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "consumer_lag_seconds",
				Help: "Element stream consumer processing lag in seconds",
			},
			[]string{"consumer"},
		)

		prometheus.MustRegister(
			calculationTotal,
			calculationLatency,
			calculationInstances,
			calculationErrors,
			dispatchTotal,
			dispatchLatency,
			dispatchBatches,
			dispatchInstances,
			dispatchDuplicates,
			exportTotal,
			exportLatency,
			consumerLag,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveCalculation records one calculation pass.
func ObserveCalculation(result string, duration time.Duration, instances, errors int) {
	if result == "" {
		result = ResultSuccess
	}
	if calculationTotal != nil {
		calculationTotal.WithLabelValues(result).Inc()
	}
	if calculationLatency != nil {
		calculationLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
	if calculationInstances != nil && instances > 0 {
		calculationInstances.Add(float64(instances))
	}
	if calculationErrors != nil && errors > 0 {
		calculationErrors.Add(float64(errors))
	}
}

// ObserveDispatch records one dispatch call.
func ObserveDispatch(result string, duration time.Duration, batches, instances int) {
	if result == "" {
		result = ResultSuccess
	}
	if dispatchTotal != nil {
		dispatchTotal.WithLabelValues(result).Inc()
	}
	if dispatchLatency != nil {
		dispatchLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
	if dispatchBatches != nil && batches > 0 {
		dispatchBatches.Add(float64(batches))
	}
	if dispatchInstances != nil && instances > 0 {
		dispatchInstances.Add(float64(instances))
	}
}

// IncDispatchDuplicate counts a duplicate instance dropped before send.
func IncDispatchDuplicate() {
	if dispatchDuplicates != nil {
		dispatchDuplicates.Inc()
	}
}

// ObserveExport records one result export.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = ResultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// ObserveConsumerLag sets consumer processing lag in seconds.
func ObserveConsumerLag(consumer string, lag time.Duration) {
	if consumer == "" {
		consumer = "unknown"
	}
	if lag < 0 {
		lag = 0
	}
	if consumerLag != nil {
		consumerLag.WithLabelValues(consumer).Set(lag.Seconds())
	}
}
