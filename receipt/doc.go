// Package receipt issues and parses verification receipts: short-lived signed
// JWTs stating that an identity proved control of a one-time code at a given
// time.
//
// A receipt lets the step that follows verification (account registration,
// password reset) trust the outcome without sharing state with the OTP
// service. It is not a login or session token and carries no permissions.
//
// # Architecture boundaries
//
// The package is clock-agnostic: callers pass "now" to [Manager.Issue] and
// [Manager.Parse], so tests and the service's injected clock agree on expiry.
//
// # What this package must NOT do
//
//   - Import goOTP (the root package depends on this one).
//   - Accept tokens signed with any algorithm other than the configured one.
package receipt
