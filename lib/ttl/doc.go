// Package ttl implements every expiration rule of the store independent of
// any specific backend.
//
// The package focuses on:
//   - Computing absolute expiry timestamps from relative TTLs or absolute
//     expire-at times
//   - Sliding expiration (read-extends-lease) that only ever renews an
//     existing lease, never creates one implicitly
//   - Additive TTL extension and explicit persisting (clearing the expiry)
//   - A best-effort, idempotent background sweep over any key space
//
// Design notes:
//
//   - Time is epoch milliseconds throughout, matching the envelope fields.
//     The Manager's clock is a swappable function so tests can advance time
//     deterministically.
//
//   - The sweep re-verifies expiry per key right before removal, which makes
//     racing a concurrent writer harmless: a fresh write either moves the
//     expiry (sweep skips the key) or the sweep already removed the old
//     entry (last writer wins, per the store's concurrency model).
//
//   - The sweep takes three callbacks (list, get, remove) instead of an
//     adapter so the orchestrator can point it at whichever backend or
//     combination of backends it manages.
package ttl
