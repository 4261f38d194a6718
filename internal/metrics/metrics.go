// Package metrics exposes Prometheus collectors for the console's
// resilience layer: gateway traffic, remote availability, refresh
// degradation, checkout verification and notification actions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "matchdesk"

var (
	// Registry holds the console's collectors. It is separate from the
	// default registry so tests can read values without global noise.
	Registry = prometheus.NewRegistry()

	gatewayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Requests issued to the remote API by endpoint and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)

	gatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Latency of remote API requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"endpoint"},
	)

	availability = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "availability",
			Help:      "1 for the current remote availability state, 0 for the others.",
		},
		[]string{"state"},
	)

	fetchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "fetch_failures_total",
			Help:      "Resources that failed to refresh and kept their previous value.",
		},
		[]string{"resource"},
	)

	refreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "refreshes_total",
			Help:      "Completed store refreshes by mode.",
		},
		[]string{"mode"},
	)

	verifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "verifications_total",
			Help:      "Checkout verification calls by checkout type and result.",
		},
		[]string{"type", "result"},
	)

	notificationActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "actions_total",
			Help:      "Reservation decisions sent to the remote API by decision and result.",
		},
		[]string{"decision", "result"},
	)
)

// AvailabilityStates lists every label value SetAvailability manages.
var AvailabilityStates = []string{"checking", "online", "offline"}

func init() {
	Registry.MustRegister(
		gatewayRequests,
		gatewayDuration,
		availability,
		fetchFailures,
		refreshes,
		verifications,
		notificationActions,
	)
}

// Handler exposes Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveGatewayRequest records one remote API call.
func ObserveGatewayRequest(endpoint, outcome string, d time.Duration) {
	gatewayRequests.WithLabelValues(endpoint, outcome).Inc()
	gatewayDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// SetAvailability marks state as current.
func SetAvailability(state string) {
	for _, s := range AvailabilityStates {
		v := 0.0
		if s == state {
			v = 1
		}
		availability.WithLabelValues(s).Set(v)
	}
}

func RecordFetchFailure(resource string) {
	fetchFailures.WithLabelValues(resource).Inc()
}

func RecordRefresh(mode string) {
	refreshes.WithLabelValues(mode).Inc()
}

func RecordVerification(checkoutType string, success bool) {
	verifications.WithLabelValues(checkoutType, result(success)).Inc()
}

func RecordNotificationAction(decision string, success bool) {
	notificationActions.WithLabelValues(decision, result(success)).Inc()
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
