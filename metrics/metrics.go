// Package metrics provides Prometheus metrics for forms and their hosts.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/reoring/goform"
)

const namespace = "goform"

// Collector holds all Prometheus metrics. It implements goform.Recorder.
type Collector struct {
	// Validation metrics
	ValidationsTotal *prometheus.CounterVec
	InvalidFields    *prometheus.HistogramVec

	// Submission metrics
	SubmissionsTotal   *prometheus.CounterVec
	SubmissionDuration *prometheus.HistogramVec
	SubmissionsPending prometheus.Gauge

	// HTTP binding metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

var _ goform.Recorder = (*Collector)(nil)

// New creates a collector registered with reg. A nil reg leaves the metrics
// unregistered, which is useful in tests.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		ValidationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validations_total",
				Help:      "Total number of schema runs by trigger and result",
			},
			[]string{"trigger", "result"},
		),
		InvalidFields: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "validation_invalid_fields",
				Help:      "Number of fields reported invalid per schema run",
				Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
			},
			[]string{"trigger"},
		),

		SubmissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submissions_total",
				Help:      "Total number of finished transport submissions by outcome",
			},
			[]string{"status"},
		),
		SubmissionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "submission_duration_seconds",
				Help:      "Submission duration in seconds",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"status"},
		),
		SubmissionsPending: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "submissions_in_flight",
				Help:      "Number of submissions waiting for the transport",
			},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests handled by the form binding",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),

		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of successful form definition reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Total number of form definition reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful form definition reload",
			},
		),
	}
}

// ValidationRun records one schema run.
func (c *Collector) ValidationRun(trigger string, invalid int) {
	result := "valid"
	if invalid > 0 {
		result = "invalid"
	}
	c.ValidationsTotal.WithLabelValues(trigger, result).Inc()
	c.InvalidFields.WithLabelValues(trigger).Observe(float64(invalid))
}

// SubmitStarted records a submission handed to the transport.
func (c *Collector) SubmitStarted() { c.SubmissionsPending.Inc() }

// SubmitFinished records the outcome of a submission.
func (c *Collector) SubmitFinished(status goform.Status, elapsed time.Duration) {
	c.SubmissionsPending.Dec()
	c.SubmissionsTotal.WithLabelValues(string(status)).Inc()
	c.SubmissionDuration.WithLabelValues(string(status)).Observe(elapsed.Seconds())
}

// ObserveRequest records one HTTP request served by the form binding.
func (c *Collector) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	c.RequestsTotal.WithLabelValues(method, route, StatusClass(status)).Inc()
	c.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ConfigReloaded records the result of a form definition reload.
func (c *Collector) ConfigReloaded(err error) {
	if err != nil {
		c.ConfigReloadErrors.Inc()
		return
	}
	c.ConfigReloads.Inc()
	c.ConfigLastReload.SetToCurrentTime()
}

// StatusClass converts an HTTP status code to its class ("2xx", "4xx", ...).
func StatusClass(code int) string {
	if code < 100 || code > 599 {
		return strconv.Itoa(code)
	}
	return strconv.Itoa(code/100) + "xx"
}
