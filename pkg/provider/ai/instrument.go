package ai

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/ProSamhacker/hospitalmanagement/internal/observe"
)

// instrumented decorates a Service with per-backend request, error, and
// latency metrics.
type instrumented struct {
	name    string
	svc     Service
	metrics *observe.Metrics
}

var _ Service = (*instrumented)(nil)

// Instrument wraps svc so every Complete call is counted and timed under the
// given backend name. A nil metrics falls back to [observe.DefaultMetrics].
func Instrument(name string, svc Service, m *observe.Metrics) Service {
	if m == nil {
		m = observe.DefaultMetrics()
	}
	return &instrumented{name: name, svc: svc, metrics: m}
}

func (i *instrumented) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := i.svc.Complete(ctx, prompt)
	i.metrics.AIDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("provider", i.name)))

	if err != nil {
		i.metrics.RecordAIRequest(ctx, i.name, "error")
		i.metrics.RecordAIError(ctx, i.name)
		return "", err
	}
	i.metrics.RecordAIRequest(ctx, i.name, "ok")
	return text, nil
}
