// Package metrics exposes Prometheus collectors for the webhook gateway.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bdobrica/Hatoba/internal/hatoba/event"
)

var (
	// Delivery metrics
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hatoba_webhook_deliveries_total",
			Help: "Total number of webhook deliveries by HTTP status",
		},
		[]string{"source", "status"},
	)

	DeliveryBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hatoba_webhook_delivery_bytes_total",
			Help: "Total bytes of webhook payloads received",
		},
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hatoba_webhook_rate_limit_hits_total",
			Help: "Total number of deliveries rejected by the rate limiter",
		},
		[]string{"source"},
	)

	// Pipeline metrics
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hatoba_pipeline_events_total",
			Help: "Total number of pipeline invocations by outcome and update type",
		},
		[]string{"outcome", "type"},
	)

	ValidationIssues = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hatoba_pipeline_validation_issues_total",
			Help: "Total number of validation findings by severity and field",
		},
		[]string{"severity", "field"},
	)

	ProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hatoba_pipeline_processing_duration_seconds",
			Help:    "Duration of a pipeline invocation in seconds",
			Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05, .1},
		},
	)

	// Sink metrics
	SinkErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hatoba_sink_errors_total",
			Help: "Total number of failed record deliveries by sink",
		},
		[]string{"sink"},
	)

	// Config metrics
	ConfigReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hatoba_config_reloads_total",
			Help: "Total number of configuration reload attempts by result",
		},
		[]string{"result"},
	)
)

// typeLabel keeps label cardinality bounded: arbitrary discriminators
// collapse into "unknown".
func typeLabel(t event.UpdateType) string {
	switch {
	case t == "":
		return "none"
	case t.IsKnown():
		return string(t)
	default:
		return "unknown"
	}
}

// ObservePipeline records one pipeline result.
func ObservePipeline(res event.Result, elapsed time.Duration) {
	EventsTotal.WithLabelValues(string(res.Outcome), typeLabel(res.Type)).Inc()
	ProcessingDuration.Observe(elapsed.Seconds())
	for _, rec := range res.Records {
		for _, e := range rec.Validation.Errors {
			ValidationIssues.WithLabelValues(string(e.Severity), e.Field).Inc()
		}
		for _, w := range rec.Validation.Warnings {
			ValidationIssues.WithLabelValues(string(w.Severity), w.Field).Inc()
		}
	}
}
