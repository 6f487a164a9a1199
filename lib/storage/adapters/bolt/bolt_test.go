package bolt

import (
	"testing"

	"github.com/aoneahsan/strata-storage/lib/storage"
	storagetest "github.com/aoneahsan/strata-storage/lib/storage/testing"
)

func TestBoltAdapterConformance(t *testing.T) {
	storagetest.RunAdapterTests(t, "bolt", func(t *testing.T) storage.Adapter {
		return New()
	})
}

func TestPersistenceAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	cfg := storage.Config{Namespace: "persist", Path: dir}

	first := New()
	if err := first.Initialize(cfg); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	now := storage.NowMillis()
	if err := first.Set("key", &storage.Envelope{Value: []byte("survives"), Created: now, Updated: now}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second := New()
	if err := second.Initialize(cfg); err != nil {
		t.Fatalf("re-Initialize failed: %v", err)
	}
	defer second.Close()

	env, found, err := second.Get("key")
	if err != nil || !found {
		t.Fatalf("Get after reopen: found=%v err=%v", found, err)
	}
	if string(env.Value) != "survives" {
		t.Errorf("value after reopen = %q", env.Value)
	}
}

func TestNamespaceIsolation(t *testing.T) {
	dir := t.TempDir()

	alpha := New()
	if err := alpha.Initialize(storage.Config{Namespace: "alpha", Path: dir}); err != nil {
		t.Fatalf("Initialize(alpha) failed: %v", err)
	}
	now := storage.NowMillis()
	if err := alpha.Set("shared-key", &storage.Envelope{Value: []byte("alpha"), Created: now, Updated: now}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := alpha.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// same file, different bucket
	beta := New()
	if err := beta.Initialize(storage.Config{Namespace: "beta", Path: dir}); err != nil {
		t.Fatalf("Initialize(beta) failed: %v", err)
	}
	defer beta.Close()

	if _, found, _ := beta.Get("shared-key"); found {
		t.Error("key from namespace alpha visible in namespace beta")
	}
}

func TestInitializeRequiresPath(t *testing.T) {
	adapter := New()
	if err := adapter.Initialize(storage.Config{}); err == nil {
		t.Fatal("Initialize without path succeeded")
	}
}

func BenchmarkBoltAdapter(b *testing.B) {
	storagetest.RunAdapterBenchmarks(b, "bolt", func(b *testing.B) storage.Adapter {
		return New()
	})
}
