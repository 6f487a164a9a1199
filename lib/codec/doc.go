// Package codec provides envelope serialization for byte-oriented storage
// backends. It defines a common interface and multiple implementations for
// turning storage envelopes into bytes and back.
//
// The package focuses on:
//   - A consistent interface over different serialization formats
//   - Implementations with different performance characteristics
//   - Compact encoding of the envelope's optional fields
//
// Key Components:
//
//   - Codec: Core interface that all codec implementations must satisfy.
//
//   - binaryCodecImpl: Custom binary format optimized for speed and space.
//     Uses a flag byte to encode only present fields, so an envelope
//     without tags, metadata or expiry costs nothing for them. This is the
//     default codec for the bolt, sqlite and fs adapters.
//
//   - jsonCodecImpl: JSON encoding, useful for debugging and for export
//     files a human should be able to read, at the price of size and speed.
//
//   - gobCodecImpl: Go's gob encoding. Works, but produces larger payloads
//     than the binary codec with no offsetting advantage; kept for
//     compatibility with gob-based tooling.
//
// Thread Safety:
//
//	All codec implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	Codecs are typically resolved once from configuration and reused:
//
//	  c, err := codec.Get(cfg.Codec)
//	  data, err := c.Encode(envelope)
//	  // ... persist data ...
//	  var env storage.Envelope
//	  err = c.Decode(data, &env)
package codec
