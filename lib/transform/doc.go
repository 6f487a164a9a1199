// Package transform defines the value-pipeline collaborator contracts:
// the reversible byte-compressor and the AEAD encryptor the orchestrator
// runs envelopes through on write (compress, then encrypt) and on read
// (decrypt, then decompress).
//
// The package focuses on:
//   - A Compressor interface whose Compress may explicitly decline
//   - The Result sum type (Compressed | Declined) that makes the decline
//     contract explicit instead of shape-sniffing the return value
//   - An Encryptor interface covering password-based authenticated
//     encryption
//
// Implementations:
//
//   - compress: gzip via klauspost/compress, declining payloads below a
//     size threshold and payloads that do not shrink
//   - crypto: AES-256-GCM with PBKDF2-SHA256 key derivation
//
// Thread Safety:
//
//	Both reference implementations are stateless and safe for concurrent
//	use without additional synchronization.
package transform
