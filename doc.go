// Package goOTP provides a time-boxed, attempt-limited store of one-time
// verification codes for registration and password-reset flows.
//
// A [Service] issues short numeric codes per identity (typically an email
// address), keeps at most one live code per identity, lets a code be guessed
// a bounded number of times, and forgets it on success, exhaustion or
// expiry. A background reaper sweeps expired records so identities that
// never verify do not accumulate.
//
// Expected outcomes are tagged results ([IssueResult], [VerifyResult]), not
// errors. The error return is reserved for invalid input, a closed service,
// request limiting and backend failures.
//
// # Architecture boundaries
//
// goOTP is the public surface. It exposes [Service], [Builder], [Config] and
// value types. The record store, reaper, random source and Redis request
// limiter live under internal/ and are never exported. Delivery of codes is
// delegated to a caller-supplied [Deliverer]; see delivery/mail for an SMTP
// implementation and httpapi for an HTTP adapter.
//
// # What this package must NOT do
//
//   - Persist codes across restarts or share them between processes.
//   - Retain or log plaintext codes after handing them to the Deliverer.
//   - Hold a record lock while calling the Deliverer, Redis or an audit sink.
//   - Import any sub-package that re-imports goOTP (no import cycles).
package goOTP
