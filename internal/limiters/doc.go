// Package limiters provides the request limiter that throttles code issuance
// and verification per identity and per client IP.
//
// [RequestLimiter] is nil-safe: calling any method on a nil receiver returns
// nil, so callers can hold a nil limiter when limiting is disabled.
//
// # Architecture boundaries
//
// Counting is delegated to internal/rate. This package only decides which
// keys are counted for which operation and with which thresholds.
//
// # What this package must NOT do
//
//   - Import goOTP or any sibling internal package except internal/rate.
//   - Touch verification records. Attempt counting on a code is the
//     service's job; this limiter only bounds request volume.
package limiters
