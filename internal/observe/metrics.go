// Package observe provides OpenTelemetry metrics and HTTP middleware for the
// stresstype service.
//
// Instruments are created through [NewMetrics] from any
// [metric.MeterProvider]. [InitProvider] installs an SDK provider with a
// Prometheus exporter so the instruments can be scraped from /metrics.
package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/verte-zerg/stresstype"

// Metrics holds every metric instrument of the service.
type Metrics struct {
	// SessionsStarted counts started sessions by source.
	SessionsStarted metric.Int64Counter

	// SessionsFinished counts finalized sessions by source and reason.
	SessionsFinished metric.Int64Counter

	// StressScore records final scores.
	StressScore metric.Int64Histogram

	// SessionsActive tracks sessions that are currently running.
	SessionsActive metric.Int64UpDownCounter

	// StreamClients tracks connected WebSocket clients.
	StreamClients metric.Int64UpDownCounter

	// PersistErrors counts sessions that could not be written to history.
	PersistErrors metric.Int64Counter

	// HTTPRequestDuration tracks request latency by method and route.
	HTTPRequestDuration metric.Float64Histogram
}

// scoreBuckets follow the 10-95 score range in steps of the level bands.
var scoreBuckets = []float64{10, 20, 30, 40, 50, 60, 70, 80, 95}

var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
}

// NewMetrics creates all instruments from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SessionsStarted, err = m.Int64Counter("stresstype.sessions.started",
		metric.WithDescription("Typing sessions started, by source."),
	); err != nil {
		return nil, err
	}
	if met.SessionsFinished, err = m.Int64Counter("stresstype.sessions.finished",
		metric.WithDescription("Typing sessions finalized, by source and reason."),
	); err != nil {
		return nil, err
	}
	if met.StressScore, err = m.Int64Histogram("stresstype.stress.score",
		metric.WithDescription("Final stress score of finished sessions."),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SessionsActive, err = m.Int64UpDownCounter("stresstype.sessions.active",
		metric.WithDescription("Sessions currently running."),
	); err != nil {
		return nil, err
	}
	if met.StreamClients, err = m.Int64UpDownCounter("stresstype.stream.clients",
		metric.WithDescription("Connected event stream clients."),
	); err != nil {
		return nil, err
	}
	if met.PersistErrors, err = m.Int64Counter("stresstype.history.errors",
		metric.WithDescription("Finished sessions that failed to persist."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("stresstype.http.request.duration",
		metric.WithDescription("HTTP request latency by method and route."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// RecordStarted counts a started session and marks it active.
func (m *Metrics) RecordStarted(ctx context.Context, source string) {
	attrs := metric.WithAttributes(attribute.String("source", source))
	m.SessionsStarted.Add(ctx, 1, attrs)
	m.SessionsActive.Add(ctx, 1, attrs)
}

// RecordFinished counts a finalized session, records its score and clears it
// from the active gauge.
func (m *Metrics) RecordFinished(ctx context.Context, source, reason string, score int) {
	m.SessionsFinished.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("reason", reason),
	))
	m.StressScore.Record(ctx, int64(score), metric.WithAttributes(attribute.String("source", source)))
	m.SessionsActive.Add(ctx, -1, metric.WithAttributes(attribute.String("source", source)))
}

// RecordDiscarded clears a running session that was reset before finishing.
func (m *Metrics) RecordDiscarded(ctx context.Context, source string) {
	m.SessionsActive.Add(ctx, -1, metric.WithAttributes(attribute.String("source", source)))
}
