package testing

import (
	"fmt"
	"testing"

	"github.com/aoneahsan/strata-storage/lib/storage"
)

// BenchFactory creates a fresh, uninitialized adapter instance for one
// benchmark.
type BenchFactory func(b *testing.B) storage.Adapter

// RunAdapterBenchmarks runs all benchmarks for an adapter implementation.
func RunAdapterBenchmarks(b *testing.B, name string, factory BenchFactory) {
	b.Run("Set", func(b *testing.B) {
		benchmarkSet(b, benchInit(b, factory))
	})

	b.Run("SetExisting", func(b *testing.B) {
		benchmarkSetExisting(b, benchInit(b, factory))
	})

	b.Run("SetLargeValue", func(b *testing.B) {
		benchmarkSetLargeValue(b, benchInit(b, factory))
	})

	b.Run("Get", func(b *testing.B) {
		benchmarkGet(b, benchInit(b, factory))
	})

	b.Run("Has", func(b *testing.B) {
		benchmarkHas(b, benchInit(b, factory))
	})

	b.Run("Remove", func(b *testing.B) {
		benchmarkRemove(b, benchInit(b, factory))
	})

	b.Run("MixedUsage", func(b *testing.B) {
		benchmarkMixedUsage(b, benchInit(b, factory))
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func benchInit(b *testing.B, factory BenchFactory) storage.Adapter {
	b.Helper()

	adapter := factory(b)
	if ok, reason := adapter.Available(); !ok {
		b.Skipf("adapter %s not available: %s", adapter.Name(), reason)
	}
	cfg := storage.Config{Namespace: "bench", Path: b.TempDir()}
	if err := adapter.Initialize(cfg); err != nil {
		b.Fatalf("Initialize failed: %v", err)
	}
	b.Cleanup(func() { _ = adapter.Close() })
	return adapter
}

func benchEnvelope(value []byte) *storage.Envelope {
	now := storage.NowMillis()
	return &storage.Envelope{Value: value, Created: now, Updated: now}
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

func benchmarkSet(b *testing.B, adapter storage.Adapter) {
	b.ResetTimer()
	counter := 0
	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("bench-key-%d", counter)
		if err := adapter.Set(key, benchEnvelope([]byte("bench-value"))); err != nil {
			b.Fatalf("Set failed: %v", err)
		}
		counter++
	}
}

func benchmarkSetExisting(b *testing.B, adapter storage.Adapter) {
	const numKeys = 1000
	for i := 0; i < numKeys; i++ {
		if err := adapter.Set(fmt.Sprintf("bench-key-%d", i), benchEnvelope([]byte("initial"))); err != nil {
			b.Fatalf("Set failed: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("bench-key-%d", i%numKeys)
		if err := adapter.Set(key, benchEnvelope([]byte("updated"))); err != nil {
			b.Fatalf("Set failed: %v", err)
		}
	}
}

func benchmarkSetLargeValue(b *testing.B, adapter storage.Adapter) {
	large := make([]byte, 64*1024)
	for i := range large {
		large[i] = byte(i)
	}

	b.SetBytes(int64(len(large)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("bench-large-%d", i%100)
		if err := adapter.Set(key, benchEnvelope(large)); err != nil {
			b.Fatalf("Set failed: %v", err)
		}
	}
}

func benchmarkGet(b *testing.B, adapter storage.Adapter) {
	const numKeys = 1000
	for i := 0; i < numKeys; i++ {
		if err := adapter.Set(fmt.Sprintf("bench-key-%d", i), benchEnvelope([]byte("value"))); err != nil {
			b.Fatalf("Set failed: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := adapter.Get(fmt.Sprintf("bench-key-%d", i%numKeys)); err != nil {
			b.Fatalf("Get failed: %v", err)
		}
	}
}

func benchmarkHas(b *testing.B, adapter storage.Adapter) {
	const numKeys = 1000
	for i := 0; i < numKeys; i++ {
		if err := adapter.Set(fmt.Sprintf("bench-key-%d", i), benchEnvelope([]byte("value"))); err != nil {
			b.Fatalf("Set failed: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := adapter.Has(fmt.Sprintf("bench-key-%d", i%(numKeys*2))); err != nil {
			b.Fatalf("Has failed: %v", err)
		}
	}
}

func benchmarkRemove(b *testing.B, adapter storage.Adapter) {
	for i := 0; i < b.N; i++ {
		if err := adapter.Set(fmt.Sprintf("bench-key-%d", i), benchEnvelope([]byte("value"))); err != nil {
			b.Fatalf("Set failed: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := adapter.Remove(fmt.Sprintf("bench-key-%d", i)); err != nil {
			b.Fatalf("Remove failed: %v", err)
		}
	}
}

// benchmarkMixedUsage approximates a session-store workload: mostly
// reads, some overwrites, occasional removals.
func benchmarkMixedUsage(b *testing.B, adapter storage.Adapter) {
	const numKeys = 500
	for i := 0; i < numKeys; i++ {
		if err := adapter.Set(fmt.Sprintf("bench-key-%d", i), benchEnvelope([]byte("value"))); err != nil {
			b.Fatalf("Set failed: %v", err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("bench-key-%d", i%numKeys)
		switch i % 10 {
		case 0, 1:
			if err := adapter.Set(key, benchEnvelope([]byte("rewritten"))); err != nil {
				b.Fatalf("Set failed: %v", err)
			}
		case 2:
			if err := adapter.Remove(key); err != nil {
				b.Fatalf("Remove failed: %v", err)
			}
		default:
			if _, _, err := adapter.Get(key); err != nil {
				b.Fatalf("Get failed: %v", err)
			}
		}
	}
}
