// Package observe holds the OpenTelemetry instruments recorded by the voice
// pipeline and the provider that exports them to Prometheus.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/satriahrh/voicechat"

// Metrics holds all metric instruments for the service. Safe for concurrent use.
type Metrics struct {
	// StageDuration tracks per-stage latency, attribute "stage"
	StageDuration metric.Float64Histogram

	// RunDuration tracks end-to-end utterance latency, attribute "outcome"
	RunDuration metric.Float64Histogram

	// Runs counts finished pipeline runs, attribute "outcome"
	Runs metric.Int64Counter

	// Errors counts failed runs, attributes "stage" and "kind"
	Errors metric.Int64Counter

	// Rejected counts utterances refused because the session was busy
	Rejected metric.Int64Counter

	// ActiveSessions tracks connected sessions
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets in seconds, sized for external speech and completion calls
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates the instruments from mp
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.StageDuration, err = m.Float64Histogram("voicechat.stage.duration",
		metric.WithDescription("Latency of a single pipeline stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.RunDuration, err = m.Float64Histogram("voicechat.pipeline.duration",
		metric.WithDescription("Latency from utterance receipt to terminal event."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Runs, err = m.Int64Counter("voicechat.pipeline.runs",
		metric.WithDescription("Finished pipeline runs by outcome."),
	); err != nil {
		return nil, err
	}
	if met.Errors, err = m.Int64Counter("voicechat.pipeline.errors",
		metric.WithDescription("Failed pipeline runs by stage and error kind."),
	); err != nil {
		return nil, err
	}
	if met.Rejected, err = m.Int64Counter("voicechat.utterances.rejected",
		metric.WithDescription("Utterances refused while the session was busy."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("voicechat.sessions.active",
		metric.WithDescription("Connected voice sessions."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// NopMetrics returns instruments that record nothing
func NopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider())
	return m
}

// RecordStage records the latency of one stage
func (m *Metrics) RecordStage(ctx context.Context, stage string, d time.Duration) {
	m.StageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordRun records a finished run. stage and kind are empty on success.
func (m *Metrics) RecordRun(ctx context.Context, d time.Duration, stage, kind string) {
	outcome := "delivered"
	if kind != "" {
		outcome = "failed"
		m.Errors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("kind", kind),
		))
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.Runs.Add(ctx, 1, attrs)
	m.RunDuration.Record(ctx, d.Seconds(), attrs)
}
