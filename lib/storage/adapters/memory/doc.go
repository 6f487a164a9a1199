// Package memory implements the in-process storage adapter.
//
// Envelopes live in sharded concurrent maps; a key is routed to its
// shard with a seeded maphash so two adapter instances never share a
// distribution. Keys with a deadline are additionally indexed in an
// expiry heap, and a janitor goroutine evicts them shortly after they
// expire. Reads double-check the deadline themselves, so an expired
// entry is never observable even before the janitor gets to it.
//
// The adapter is synchronous, observable and queryable, and has no size
// ceiling. Nothing survives a process restart.
package memory
