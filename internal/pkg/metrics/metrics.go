/*
Package metrics holds the Prometheus instruments of the web gateway.

All methods are safe on a nil *Metrics so components can be built without instrumentation.
*/
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	GatewayRequests *prometheus.CounterVec
	GatewayLatency  *prometheus.HistogramVec
	MockResolutions *prometheus.CounterVec
	SessionLogins   *prometheus.CounterVec
	PreferenceSaves *prometheus.CounterVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		GatewayRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vibecheck_gateway_requests_total",
			Help: "Outbound API requests by method and outcome",
		}, []string{"method", "outcome"}),
		GatewayLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vibecheck_gateway_request_duration_seconds",
			Help:    "Outbound API request latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 180},
		}, []string{"method"}),
		MockResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vibecheck_mock_resolutions_total",
			Help: "Requests answered by the mock resolver",
		}, []string{"matched"}),
		SessionLogins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vibecheck_session_logins_total",
			Help: "Login attempts by result",
		}, []string{"result"}),
		PreferenceSaves: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vibecheck_preference_writes_total",
			Help: "Debounced preference writes by result",
		}, []string{"result"}),
	}
}

// ObserveGatewayRequest records one outbound request.
func (m *Metrics) ObserveGatewayRequest(method, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.GatewayRequests.WithLabelValues(method, outcome).Inc()
	m.GatewayLatency.WithLabelValues(method).Observe(d.Seconds())
}

// IncMockResolution records whether a mock request matched a fixture.
func (m *Metrics) IncMockResolution(matched bool) {
	if m == nil {
		return
	}
	label := "false"
	if matched {
		label = "true"
	}
	m.MockResolutions.WithLabelValues(label).Inc()
}

// IncLogin records a login attempt result ("success", "invalid_credentials", "error").
func (m *Metrics) IncLogin(result string) {
	if m == nil {
		return
	}
	m.SessionLogins.WithLabelValues(result).Inc()
}

// IncPreferenceWrite records a preference write result ("success", "failure").
func (m *Metrics) IncPreferenceWrite(result string) {
	if m == nil {
		return
	}
	m.PreferenceSaves.WithLabelValues(result).Inc()
}
