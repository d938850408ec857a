// Package telemetry adapts walker events and generated rows to metrics and
// traces.
//
// OTelObserver records one span per run with backtrack and unsatisfiable
// events, plus OpenTelemetry counters. PrometheusObserver keeps counters on
// a caller-supplied registry. Both satisfy walker.Observer and RowObserver;
// Multi fans events out to several observers.
//
// Walker events fire on the value-pulling path, so every method here only
// increments counters or appends span events.
package telemetry
