// Package httpapi exposes a goOTP Service over JSON HTTP endpoints using gin.
//
// # Routes
//
//	POST /otp/issue    {"identity": "..."}
//	POST /otp/resend   {"identity": "..."}
//	POST /otp/verify   {"identity": "...", "code": "..."}
//	POST /otp/receipt  {"receipt": "..."}
//
// Verification failures carry an "action" field: "retry" when the same code
// record accepts more attempts, "reissue" when a new code is required.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Service calls. Every decision
// about codes, cooldowns and attempts is made by the Service.
//
// # What this package must NOT do
//
//   - Touch code records or the request limiter directly.
//   - Echo codes back to the caller.
//   - Distinguish unknown identities from known ones in issue responses.
package httpapi
