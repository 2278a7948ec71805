package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	predictions  *prometheus.CounterVec
	fitFallbacks *prometheus.CounterVec
	rows         *prometheus.GaugeVec
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	reports      *prometheus.CounterVec
}

// New creates a recorder registered on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder registered on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		predictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "growthlens_predictions_total",
				Help: "Total number of predictions computed",
			},
			[]string{"model"},
		),
		fitFallbacks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "growthlens_retention_fit_fallbacks_total",
				Help: "Predictions that used observed retention instead of a fitted curve",
			},
			[]string{"reason"},
		),
		rows: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "growthlens_validated_rows",
				Help: "Rows kept by the last validation of a dataset",
			},
			[]string{"dataset"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "growthlens_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "growthlens_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		reports: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "growthlens_report_runs_total",
				Help: "Report runs by name and outcome",
			},
			[]string{"report", "success"},
		),
	}
}

// RecordPrediction counts a finished prediction for model.
func (r *Recorder) RecordPrediction(model string) {
	r.predictions.WithLabelValues(model).Inc()
}

// RecordFitFallback counts a retention fit that fell back to observed values.
func (r *Recorder) RecordFitFallback(reason string) {
	r.fitFallbacks.WithLabelValues(reason).Inc()
}

// RecordRows records how many rows a dataset kept after validation.
func (r *Recorder) RecordRows(dataset string, n int) {
	r.rows.WithLabelValues(dataset).Set(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordReport counts a report run.
func (r *Recorder) RecordReport(name string, success bool) {
	r.reports.WithLabelValues(name, strconv.FormatBool(success)).Inc()
}
