// Package rate provides the Redis fixed-window counter that request limiting
// is built on.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. A window
// starts at the first hit for a key and lasts for the configured duration,
// after which Redis drops the key and counting starts over.
//
// # What this package must NOT do
//
//   - Decide which keys to count (that lives in internal/limiters).
//   - Be imported outside the goOTP module.
package rate
