package observe

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestRecordStage(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordStage(ctx, "transcribe", 120*time.Millisecond)
	m.RecordStage(ctx, "transcribe", 80*time.Millisecond)
	m.RecordStage(ctx, "generate", 2*time.Second)

	got := findMetric(collect(t, reader), "voicechat.stage.duration")
	if got == nil {
		t.Fatal("metric voicechat.stage.duration not found")
	}
	hist, ok := got.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("Expected Histogram[float64], got %T", got.Data)
	}

	counts := map[string]uint64{}
	for _, dp := range hist.DataPoints {
		stage, _ := dp.Attributes.Value(attribute.Key("stage"))
		counts[stage.AsString()] = dp.Count
	}
	if counts["transcribe"] != 2 || counts["generate"] != 1 {
		t.Errorf("Unexpected per-stage counts %v", counts)
	}
}

func TestRecordRun(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordRun(ctx, time.Second, "", "")
	m.RecordRun(ctx, time.Second, "decode", "decode")
	m.RecordRun(ctx, time.Second, "generate", "backend_http")

	rm := collect(t, reader)

	runs := findMetric(rm, "voicechat.pipeline.runs")
	if runs == nil {
		t.Fatal("metric voicechat.pipeline.runs not found")
	}
	sum := runs.Data.(metricdata.Sum[int64])
	outcomes := map[string]int64{}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key("outcome"))
		outcomes[v.AsString()] = dp.Value
	}
	if outcomes["delivered"] != 1 || outcomes["failed"] != 2 {
		t.Errorf("Unexpected outcomes %v", outcomes)
	}

	errs := findMetric(rm, "voicechat.pipeline.errors")
	if errs == nil {
		t.Fatal("metric voicechat.pipeline.errors not found")
	}
	if n := len(errs.Data.(metricdata.Sum[int64]).DataPoints); n != 2 {
		t.Errorf("Expected 2 error series, got %d", n)
	}
}

func TestProviderHandler(t *testing.T) {
	p, err := InitProvider(context.Background(), ProviderConfig{ServiceName: "voicechat-test"})
	if err != nil {
		t.Fatalf("InitProvider: %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	m, err := NewMetrics(p.MeterProvider)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.Runs.Add(context.Background(), 1)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if out := string(body); !strings.Contains(out, "pipeline") || !strings.Contains(out, "runs") {
		t.Errorf("Expected exported counter in scrape output")
	}
}

func TestNopMetrics(t *testing.T) {
	m := NopMetrics()
	m.RecordStage(context.Background(), "decode", time.Millisecond)
	m.RecordRun(context.Background(), time.Millisecond, "", "")
}
