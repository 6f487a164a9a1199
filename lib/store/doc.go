// Package store is the orchestration layer of strata-storage. It ties
// the adapter registry, the selection strategies, the value pipeline,
// the TTL manager, the query engine and the broadcaster into a single
// key/value API with dynamic and typed reads.
//
// Adapter resolution follows a fixed precedence:
//
//  1. an explicit Storage in the per-call options,
//  2. the configured DefaultStorage,
//  3. the configured selection policy, which ranks the currently
//     available adapters and walks the resulting chain until one of
//     them initializes. Only availability errors fall through to the
//     next adapter in the chain; any other error is final.
//
// Writes run the value through the pipeline in a fixed order: JSON
// encode, optional compression, optional encryption, then TTL
// stamping. The envelope's Compressed/Encrypted flags record what was
// actually applied (a declined compression is recorded as not
// compressed), and reads trust only these flags. Reads reverse the
// pipeline: expiry check first (an expired hit is deleted and reported
// as a miss), then decrypt, then decompress, then decode.
//
// Two read failures get special treatment:
//
//   - A decryption failure is an error by default; with
//     IgnoreDecryptionErrors it is logged and reported as a miss. This
//     is the only sanctioned swallow point for decryption failures.
//
//   - A decompression failure degrades: the raw stored bytes are
//     returned as-is from Get, while the typed accessors report a
//     serialization error. This keeps corrupted-but-recoverable data
//     reachable.
//
// Every mutation that actually changed state emits a ChangeEvent
// through the broadcaster; removing an absent key emits nothing. The
// background sweeper runs through the same removal path, so swept keys
// produce expire events like lazily-evicted ones.
//
// Thread-safety: the Store is safe for concurrent use. Its own state
// is immutable after construction; all mutable state lives in the
// registry, the adapters and the broadcaster, which synchronize
// themselves.
package store
