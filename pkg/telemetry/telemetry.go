// Package telemetry exposes Prometheus collectors for fit and predict activity.
//
// Collectors live on a package registry rather than the global default registry so that
// embedding applications decide whether to expose them:
//
//	http.Handle("/metrics", promhttp.HandlerFor(telemetry.Registry(), promhttp.HandlerOpts{}))
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var registry = prometheus.NewRegistry()

var treesFittedMetrics = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sciforest_trees_fitted_total",
		Help: "number of decision trees induced",
	}, []string{"model"})

var fitDurationMetrics = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "sciforest_fit_duration_seconds",
		Help:    "wall time of successful Fit calls",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"model"})

var fitErrorMetrics = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sciforest_fit_errors_total",
		Help: "number of Fit calls that returned an error",
	}, []string{"model"})

var predictedRowsMetrics = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sciforest_predicted_rows_total",
		Help: "number of rows passed through Predict, PredictProba or DecisionFunction",
	}, []string{"model"})

func init() {
	registry.MustRegister(
		treesFittedMetrics,
		fitDurationMetrics,
		fitErrorMetrics,
		predictedRowsMetrics,
	)
}

// Registry returns the registry holding every sciforest collector.
func Registry() *prometheus.Registry {
	return registry
}

// ObserveFit records a successful fit of trees trees that took elapsed.
func ObserveFit(model string, trees int, elapsed time.Duration) {
	treesFittedMetrics.WithLabelValues(model).Add(float64(trees))
	fitDurationMetrics.WithLabelValues(model).Observe(elapsed.Seconds())
}

// ObserveFitError records a failed fit.
func ObserveFitError(model string) {
	fitErrorMetrics.WithLabelValues(model).Inc()
}

// ObservePredict records rows predicted by model.
func ObservePredict(model string, rows int) {
	predictedRowsMetrics.WithLabelValues(model).Add(float64(rows))
}

// WriteTextfile dumps the registry in the Prometheus text format, for node_exporter's
// textfile collector or for inspection after a CLI run.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, registry)
}
