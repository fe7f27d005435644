// Package metrics defines the OpenTelemetry instruments for the simulation
// server. Instruments are created once and shared; recording is cheap enough
// to sit on the tick path.
package metrics

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Metrics bundles the server's instruments.
type Metrics struct {
	TicksTotal         metric.Int64Counter
	CommandsApplied    metric.Int64Counter
	CommandsRejected   metric.Int64Counter
	DesyncsTotal       metric.Int64Counter
	ActiveMatches      metric.Int64UpDownCounter
	TickDuration       metric.Float64Histogram
	AIDecisionDuration metric.Float64Histogram
}

// New creates the instrument set on the global meter provider.
func New() (*Metrics, error) {
	meter := otel.Meter("quaternion/simulation")

	m := &Metrics{}
	var err error

	if m.TicksTotal, err = meter.Int64Counter("sim.ticks.total",
		metric.WithDescription("Simulation ticks executed")); err != nil {
		return nil, err
	}
	if m.CommandsApplied, err = meter.Int64Counter("sim.commands.applied",
		metric.WithDescription("Commands accepted into the queue")); err != nil {
		return nil, err
	}
	if m.CommandsRejected, err = meter.Int64Counter("sim.commands.rejected",
		metric.WithDescription("Commands rejected as stale or out of window")); err != nil {
		return nil, err
	}
	if m.DesyncsTotal, err = meter.Int64Counter("sim.desyncs.total",
		metric.WithDescription("Matches aborted on checksum disagreement")); err != nil {
		return nil, err
	}
	if m.ActiveMatches, err = meter.Int64UpDownCounter("sim.matches.active",
		metric.WithDescription("Matches currently ticking")); err != nil {
		return nil, err
	}
	if m.TickDuration, err = meter.Float64Histogram("sim.tick.duration",
		metric.WithDescription("Wall time per simulation tick"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.AIDecisionDuration, err = meter.Float64Histogram("sim.ai.decision.duration",
		metric.WithDescription("Wall time per AI evaluation cycle"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	return m, nil
}
