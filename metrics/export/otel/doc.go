// Package otel publishes goOTP metrics through OpenTelemetry.
//
// [NewExporter] registers an Int64ObservableCounter for each goOTP counter and
// an Int64ObservableGauge per histogram bucket. One callback reads
// [goOTP.Service.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate service state.
package otel
