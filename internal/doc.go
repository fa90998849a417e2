// Package internal contains helpers private to goOTP: code generation and
// hashing.
//
// # Sub-packages
//
//   - limiters: issue/resend and verify request limits on top of rate
//   - logging: zap logger construction for the binaries
//   - rate: Redis fixed-window counter primitive
//   - reaper: periodic eviction of expired records
//   - stores: sharded in-memory record store
//
// # What this package must NOT do
//
//   - Export types that appear in the public goOTP API.
//   - Log or return plaintext codes beyond the caller that generated them.
package internal
