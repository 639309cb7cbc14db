// Package observe provides application-wide observability primitives for the
// voice-command pipeline: OpenTelemetry metrics, distributed tracing,
// structured logging, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all pipeline metrics.
const meterName = "github.com/ProSamhacker/hospitalmanagement"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// CommandDuration tracks end-to-end command handling latency.
	CommandDuration metric.Float64Histogram

	// AIDuration tracks AI completion latency.
	AIDuration metric.Float64Histogram

	// ExtractionDuration tracks clinical extraction latency, AI call
	// included.
	ExtractionDuration metric.Float64Histogram

	// --- Counters ---

	// CommandsHandled counts handled commands. Use with attributes:
	//   attribute.String("intent", ...), attribute.String("status", ...)
	CommandsHandled metric.Int64Counter

	// AIRequests counts AI service calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	AIRequests metric.Int64Counter

	// NotificationsEmitted counts derived notification events. Use with
	// attribute: attribute.String("category", ...)
	NotificationsEmitted metric.Int64Counter

	// --- Error counters ---

	// AIErrors counts AI service errors by provider.
	AIErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveCommands tracks commands currently inside the orchestrator.
	ActiveCommands metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("route", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// a pipeline whose slowest stage is a 30s-bounded AI call.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.CommandDuration, err = m.Float64Histogram("hospitalvoice.command.duration",
		metric.WithDescription("End-to-end latency of voice command handling."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AIDuration, err = m.Float64Histogram("hospitalvoice.ai.duration",
		metric.WithDescription("Latency of AI completions."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ExtractionDuration, err = m.Float64Histogram("hospitalvoice.extraction.duration",
		metric.WithDescription("Latency of clinical extraction including the AI call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.CommandsHandled, err = m.Int64Counter("hospitalvoice.commands.handled",
		metric.WithDescription("Total handled commands by intent and status."),
	); err != nil {
		return nil, err
	}
	if met.AIRequests, err = m.Int64Counter("hospitalvoice.ai.requests",
		metric.WithDescription("Total AI service requests by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.NotificationsEmitted, err = m.Int64Counter("hospitalvoice.notifications.emitted",
		metric.WithDescription("Total derived notification events by category."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.AIErrors, err = m.Int64Counter("hospitalvoice.ai.errors",
		metric.WithDescription("Total AI service errors by provider."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveCommands, err = m.Int64UpDownCounter("hospitalvoice.active_commands",
		metric.WithDescription("Commands currently being handled."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("hospitalvoice.http.request.duration",
		metric.WithDescription("HTTP request latency by method and route."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordCommand records one handled command with its end-to-end duration in
// seconds.
func (m *Metrics) RecordCommand(ctx context.Context, intent, status string, seconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("intent", intent),
		attribute.String("status", status),
	)
	m.CommandsHandled.Add(ctx, 1, attrs)
	m.CommandDuration.Record(ctx, seconds, attrs)
}

// RecordAIRequest records an AI request counter increment with the standard
// attribute set.
func (m *Metrics) RecordAIRequest(ctx context.Context, provider, status string) {
	m.AIRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("status", status),
		),
	)
}

// RecordAIError records an AI error counter increment.
func (m *Metrics) RecordAIError(ctx context.Context, provider string) {
	m.AIErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}

// RecordNotification records one derived notification event.
func (m *Metrics) RecordNotification(ctx context.Context, category string) {
	m.NotificationsEmitted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("category", category)),
	)
}
