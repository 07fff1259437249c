package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/twowayssl"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Server connection metrics
	ConnectionsTotal          metric.Int64Counter
	ActiveConnections         metric.Int64UpDownCounter
	ConnectionsAbandonedTotal metric.Int64Counter
	FirstRequestLatency       metric.Float64Histogram
	HandshakeFailuresTotal    metric.Int64Counter

	// Endpoint metrics
	HelloServedTotal metric.Int64Counter

	// Client call metrics
	UpstreamCallsTotal   metric.Int64Counter
	UpstreamErrorsTotal  metric.Int64Counter
	UpstreamCallDuration metric.Float64Histogram
	DialRetriesTotal     metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.ConnectionsTotal, _ = meter.Int64Counter(
		"twowayssl.connections.total",
		metric.WithDescription("Total number of accepted connections"),
		metric.WithUnit("{connection}"),
	)

	m.ActiveConnections, _ = meter.Int64UpDownCounter(
		"twowayssl.connections.active",
		metric.WithDescription("Number of open connections"),
		metric.WithUnit("{connection}"),
	)

	m.ConnectionsAbandonedTotal, _ = meter.Int64Counter(
		"twowayssl.connections.abandoned.total",
		metric.WithDescription("Total number of connections closed before a request was read"),
		metric.WithUnit("{connection}"),
	)

	m.FirstRequestLatency, _ = meter.Float64Histogram(
		"twowayssl.connections.first_request.duration",
		metric.WithDescription("Time from accept until the first request is read"),
		metric.WithUnit("ms"),
	)

	m.HandshakeFailuresTotal, _ = meter.Int64Counter(
		"twowayssl.handshake.failures.total",
		metric.WithDescription("Total number of TLS handshakes reported as failed"),
		metric.WithUnit("{handshake}"),
	)

	m.HelloServedTotal, _ = meter.Int64Counter(
		"twowayssl.hello.served.total",
		metric.WithDescription("Total number of greetings served"),
		metric.WithUnit("{request}"),
	)

	m.UpstreamCallsTotal, _ = meter.Int64Counter(
		"twowayssl.upstream.calls.total",
		metric.WithDescription("Total number of calls made to the server"),
		metric.WithUnit("{call}"),
	)

	m.UpstreamErrorsTotal, _ = meter.Int64Counter(
		"twowayssl.upstream.errors.total",
		metric.WithDescription("Total number of failed calls to the server by error kind"),
		metric.WithUnit("{error}"),
	)

	m.UpstreamCallDuration, _ = meter.Float64Histogram(
		"twowayssl.upstream.call.duration",
		metric.WithDescription("Duration of calls to the server including retries"),
		metric.WithUnit("ms"),
	)

	m.DialRetriesTotal, _ = meter.Int64Counter(
		"twowayssl.upstream.dial_retries.total",
		metric.WithDescription("Total number of dial attempts retried"),
		metric.WithUnit("{retry}"),
	)

	return m
}
