// Package metrics exposes Prometheus collectors for the relay.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_http_requests_total",
			Help: "HTTP requests by route pattern, method and status code",
		},
		[]string{"route", "method", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 30, 60, 120},
		},
		[]string{"route", "method"},
	)

	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_provider_request_duration_seconds",
			Help:    "Latency of calls to external providers",
			Buckets: []float64{.05, .1, .5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "operation", "outcome"},
	)

	Transformations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_image_transformations_total",
			Help: "Image transformation requests by outcome code",
		},
		[]string{"outcome"},
	)

	PaymentVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_payment_verifications_total",
			Help: "Payment verification attempts by outcome",
		},
		[]string{"outcome"},
	)

	NormalizationDegraded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_image_normalization_degraded_total",
			Help: "Uploads forwarded without normalization",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relay_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// ObserveProvider records one provider call started at start.
func ObserveProvider(provider, operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ProviderDuration.WithLabelValues(provider, operation, outcome).Observe(time.Since(start).Seconds())
}
