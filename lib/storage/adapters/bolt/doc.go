// Package bolt implements a storage adapter on top of bbolt, a
// single-file B+tree database. It registers under the indexeddb backend
// kind: durable, transactional, indexed-by-key local storage.
//
// Envelopes are codec-encoded into one bucket per namespace, so several
// stores can share the database file without seeing each other's keys.
// All reads and writes run inside bbolt transactions; queries and key
// listings are full bucket scans.
//
// The adapter is persistent, queryable and unbounded. It is not
// observable since bbolt has no change notification mechanism.
package bolt
