// Package prometheus renders goOTP metrics in Prometheus text exposition
// format.
//
// [NewExporter] wraps a [goOTP.Service] and exposes an [http.Handler]. Counter
// names are otp_*_total; the verify latency histogram is
// otp_verify_latency_seconds and otp_active_codes is a gauge.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate service state.
package prometheus
