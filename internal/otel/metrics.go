package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "cactus"

// Metrics holds all OTEL metric instruments for the poller.
// All counters are cumulative (monotonic) and safe for concurrent use.
type Metrics struct {
	// Poll cycle counters (partitioned by outcome: ok, skipped)
	PollCycles metric.Int64Counter

	// Per-session capture failures
	CaptureFailures metric.Int64Counter

	// Status transitions (partitioned by resulting status)
	Transitions metric.Int64Counter

	// Sessions discovered / removed by the reconciler
	SessionsAdded   metric.Int64Counter
	SessionsRemoved metric.Int64Counter
}

// NewMetrics creates all metric instruments. Returns no-op instruments
// when no MeterProvider is registered (safe to call unconditionally).
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.PollCycles, err = meter.Int64Counter("poll.cycles",
		metric.WithDescription("Poll cycles partitioned by outcome (ok, skipped)"))
	if err != nil {
		return nil, err
	}

	m.CaptureFailures, err = meter.Int64Counter("poll.capture_failures",
		metric.WithDescription("Pane captures that failed or timed out"))
	if err != nil {
		return nil, err
	}

	m.Transitions, err = meter.Int64Counter("session.transitions",
		metric.WithDescription("Session status transitions partitioned by resulting status"))
	if err != nil {
		return nil, err
	}

	m.SessionsAdded, err = meter.Int64Counter("session.added",
		metric.WithDescription("Sessions discovered and registered by the reconciler"))
	if err != nil {
		return nil, err
	}

	m.SessionsRemoved, err = meter.Int64Counter("session.removed",
		metric.WithDescription("Sessions removed after confirmed external disappearance"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordCycle records a completed or skipped poll cycle.
func (m *Metrics) RecordCycle(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.PollCycles.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cycle.outcome", outcome),
	))
}

// RecordCaptureFailure records one failed pane capture.
func (m *Metrics) RecordCaptureFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.CaptureFailures.Add(ctx, 1)
}

// RecordTransition records a status transition to the given status name.
func (m *Metrics) RecordTransition(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.Transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("session.status", status),
	))
}

// RecordSessionAdded records a newly registered session.
func (m *Metrics) RecordSessionAdded(ctx context.Context) {
	if m == nil {
		return
	}
	m.SessionsAdded.Add(ctx, 1)
}

// RecordSessionRemoved records a session removed from the registry.
func (m *Metrics) RecordSessionRemoved(ctx context.Context) {
	if m == nil {
		return
	}
	m.SessionsRemoved.Add(ctx, 1)
}
