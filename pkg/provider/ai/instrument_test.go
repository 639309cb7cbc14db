package ai

import (
	"context"
	"errors"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/ProSamhacker/hospitalmanagement/internal/observe"
)

type stubService struct {
	reply string
	err   error
}

func (s stubService) Complete(context.Context, string) (string, error) {
	return s.reply, s.err
}

func newTestMetrics(t *testing.T) (*observe.Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { mp.Shutdown(context.Background()) })

	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	return m, reader
}

// counterSum returns the summed int64 datapoints of the named counter, or -1
// when the metric was never recorded.
func counterSum(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	total := int64(-1)
	for _, sm := range rm.ScopeMetrics {
		for _, metr := range sm.Metrics {
			if metr.Name != name {
				continue
			}
			sum, ok := metr.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s is not an int64 sum", name)
			}
			total = 0
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func TestInstrument_CountsSuccess(t *testing.T) {
	m, reader := newTestMetrics(t)
	svc := Instrument("gemini", stubService{reply: "ok"}, m)

	text, err := svc.Complete(context.Background(), "prompt")
	if err != nil || text != "ok" {
		t.Fatalf("Complete = %q, %v", text, err)
	}

	if got := counterSum(t, reader, "hospitalvoice.ai.requests"); got != 1 {
		t.Errorf("ai.requests = %d, want 1", got)
	}
	if got := counterSum(t, reader, "hospitalvoice.ai.errors"); got != -1 {
		t.Errorf("ai.errors recorded on success (sum %d)", got)
	}
}

func TestInstrument_CountsFailure(t *testing.T) {
	m, reader := newTestMetrics(t)
	boom := errors.New("boom")
	svc := Instrument("gemini", stubService{err: boom}, m)

	if _, err := svc.Complete(context.Background(), "prompt"); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	if got := counterSum(t, reader, "hospitalvoice.ai.requests"); got != 1 {
		t.Errorf("ai.requests = %d, want 1", got)
	}
	if got := counterSum(t, reader, "hospitalvoice.ai.errors"); got != 1 {
		t.Errorf("ai.errors = %d, want 1", got)
	}
}

func TestInstrument_RecordsDuration(t *testing.T) {
	m, reader := newTestMetrics(t)
	svc := Instrument("gemini", stubService{reply: "ok"}, m)

	if _, err := svc.Complete(context.Background(), "prompt"); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, metr := range sm.Metrics {
			if metr.Name == "hospitalvoice.ai.duration" {
				found = true
			}
		}
	}
	if !found {
		t.Error("ai.duration not recorded")
	}
}
