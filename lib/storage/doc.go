// Package storage defines the shared contract between the strata-storage
// orchestrator and its interchangeable storage backends.
//
// The package focuses on:
//   - A unified Adapter interface for backend implementations
//   - Capability discovery through static descriptors
//   - The Envelope wrapper that is actually persisted per key
//   - A common error taxonomy used across the whole core
//
// Key Components:
//
//   - Adapter Interface: The core interface that all backend implementations
//     must satisfy. It provides basic operations (Get, Set, Remove, Keys,
//     Has, Clear, Size), lifecycle management (Available, Initialize, Close)
//     and the optional capabilities Subscribe and Query.
//
//   - Capabilities: A static descriptor advertising what an adapter supports
//     (persistence, at-rest encryption, synchrony, observability,
//     queryability and a byte ceiling). Selection strategies rank adapters
//     exclusively over this descriptor plus the backend Type, so the
//     descriptor must never change at runtime.
//
//   - Envelope: The storage-level wrapper persisted per key. It carries the
//     transformed payload, creation/update timestamps, an optional absolute
//     expiry, caller tags and metadata, and the Encrypted/Compressed flags
//     the read pipeline needs to reverse the write pipeline. The flags are
//     authoritative: transformation state is recorded, never detected from
//     payload bytes.
//
//   - Error Taxonomy: A single Error type with an ErrCode enum
//     (AdapterNotAvailable, Storage, Encryption, NotSupported,
//     Serialization, KeyNotFound) and errors.As-friendly helpers. Adapter
//     selection retries on AdapterNotAvailable; every other failure
//     propagates to the caller.
//
// Note on Optional Operations:
//
//	Subscribe and Query are part of the interface but gated by the
//	capability descriptor. An adapter without the capability must return an
//	ErrCodeNotSupported error rather than silently ignoring the call. This
//	keeps the interface uniform while making the capability check explicit
//	at call sites.
//
// Related Packages:
//
// The adapters subpackages (memory, bolt, sqlite, fs) provide reference
// implementations of the Adapter interface. The registry package manages
// adapter registration and lazy initialization, the strategy package ranks
// available adapters, and the store package runs the value pipeline on top
// of all of them.
package storage
