// Package testing provides the standardized conformance suite and
// benchmark suite for storage adapters.
//
// Every adapter package runs RunAdapterTests from its own _test.go file
// so all backends are held to the identical contract: copy-safe reads,
// wholesale overwrites, glob key listing, envelope field fidelity,
// expiry behavior, capability gating of Subscribe/Query, concurrent
// access and idempotent Close. RunAdapterBenchmarks mirrors the suite
// with throughput measurements for the core operations.
package testing
