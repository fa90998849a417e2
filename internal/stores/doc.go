// Package stores provides the in-memory record store for short-lived
// verification codes.
//
// # Design
//
// Records live in a fixed set of shards, each guarded by its own mutex. An
// identity always maps to the same shard, so every primitive on one identity
// is serialized. Composite read-modify-write sequences go through Mutate,
// which runs the caller's decision function inside the shard's critical
// section; nothing that blocks may run inside it.
//
// # Architecture boundaries
//
// This package owns storage and locking only. It does NOT generate codes,
// compare secrets, or decide outcomes; those belong to the goOTP service.
//
// # What this package must NOT do
//
//   - Import goOTP or any sibling internal package.
//   - Hand out references to its internal maps.
//   - Hold plaintext codes.
package stores
