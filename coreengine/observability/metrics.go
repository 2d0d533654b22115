// Package observability provides Prometheus metrics instrumentation for the
// expectation engine.
package observability

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/doudou/flexmock/coreengine/failure"
	"github.com/doudou/flexmock/coreengine/responses"
)

// =============================================================================
// DISPATCH METRICS
// =============================================================================

var (
	dispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flexmock_dispatch_total",
			Help: "Total number of dispatched mock calls",
		},
		[]string{"mock", "method", "outcome"}, // outcome: ok, raised, thrown, no_match, count, order, signature, no_block
	)

	dispatchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flexmock_dispatch_duration_seconds",
			Help:    "Mock call dispatch duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"mock", "method"},
	)
)

// =============================================================================
// REGISTRATION METRICS
// =============================================================================

var expectationsRegisteredTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "flexmock_expectations_registered_total",
		Help: "Total number of registered expectations",
	},
	[]string{"mock"},
)

// =============================================================================
// VERIFICATION METRICS
// =============================================================================

var (
	verificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flexmock_verifications_total",
			Help: "Total number of mock verifications",
		},
		[]string{"mock", "status"}, // status: passed, failed
	)

	verificationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flexmock_verification_failures_total",
			Help: "Total number of unsatisfied expectations found at verification",
		},
		[]string{"mock"},
	)
)

// =============================================================================
// PUBLIC API
// =============================================================================

// Outcome classifies the error of a dispatched call into a metric label.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var cf *failure.CheckFailedError
	if errors.As(err, &cf) {
		return string(cf.Kind)
	}
	var thrown *responses.Thrown
	if errors.As(err, &thrown) {
		return "thrown"
	}
	return "raised"
}

// RecordDispatch records one dispatched call.
func RecordDispatch(mock, method, outcome string, durationMS float64) {
	dispatchTotal.WithLabelValues(mock, method, outcome).Inc()
	dispatchDurationSeconds.WithLabelValues(mock, method).Observe(durationMS / 1000.0)
}

// RecordExpectationRegistered records a new expectation on mock.
func RecordExpectationRegistered(mock string) {
	expectationsRegisteredTotal.WithLabelValues(mock).Inc()
}

// RecordVerification records the verification of mock and the number of
// unsatisfied expectations it found.
func RecordVerification(mock string, failures int) {
	status := "passed"
	if failures > 0 {
		status = "failed"
		verificationFailuresTotal.WithLabelValues(mock).Add(float64(failures))
	}
	verificationsTotal.WithLabelValues(mock, status).Inc()
}
