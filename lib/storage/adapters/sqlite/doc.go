// Package sqlite implements a storage adapter on a single-file sqlite
// database using the pure-Go modernc.org/sqlite driver, so no cgo is
// involved.
//
// Envelopes are codec-encoded blobs in one table keyed by (namespace,
// key). The envelope deadline is mirrored into an indexed expires
// column, which lets listings, existence checks and size queries filter
// dead rows in SQL without decoding a single blob. Condition queries
// decode the live rows and run the shared matcher over them.
//
// The adapter is persistent, queryable and unbounded.
package sqlite
