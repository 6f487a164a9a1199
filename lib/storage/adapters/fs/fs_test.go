package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aoneahsan/strata-storage/lib/storage"
	storagetest "github.com/aoneahsan/strata-storage/lib/storage/testing"
)

func TestFilesystemAdapterConformance(t *testing.T) {
	storagetest.RunAdapterTests(t, "filesystem", func(t *testing.T) storage.Adapter {
		return New()
	})
}

func TestKeyFilenameRoundTrip(t *testing.T) {
	keys := []string{
		"plain",
		"user:1",
		"path/with/slashes",
		"spaces and ümlauts",
		"dots..and--dashes",
		"%already%escaped%",
	}
	for _, key := range keys {
		name := encodeKey(key)
		if filepath.Base(name) != name {
			t.Errorf("encodeKey(%q) = %q contains a path separator", key, name)
		}
		got, ok := decodeKey(name)
		if !ok || got != key {
			t.Errorf("decodeKey(encodeKey(%q)) = %q, ok=%v", key, got, ok)
		}
	}

	if _, ok := decodeKey("foreign-file.txt"); ok {
		t.Error("decodeKey accepted a file without the adapter extension")
	}
}

func TestPersistenceAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	cfg := storage.Config{Namespace: "persist", Path: dir}

	first := New()
	if err := first.Initialize(cfg); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	now := storage.NowMillis()
	env := &storage.Envelope{
		Value:    []byte("survives"),
		Created:  now,
		Updated:  now,
		Tags:     []string{"durable"},
		Metadata: map[string]string{"gen": "1"},
	}
	if err := first.Set("key", env); err != nil {
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

	got, found, err := second.Get("key")
	if err != nil || !found {
		t.Fatalf("Get after reopen: found=%v err=%v", found, err)
	}
	if string(got.Value) != "survives" || got.Metadata["gen"] != "1" {
		t.Errorf("envelope did not survive reopen: %+v", got)
	}
}

func TestClearLeavesForeignFiles(t *testing.T) {
	dir := t.TempDir()
	adapter := New()
	if err := adapter.Initialize(storage.Config{Path: dir}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer adapter.Close()

	foreign := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(foreign, []byte("keep me"), 0o644); err != nil {
		t.Fatalf("writing foreign file: %v", err)
	}

	now := storage.NowMillis()
	if err := adapter.Set("mine", &storage.Envelope{Value: []byte("v"), Created: now, Updated: now}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := adapter.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if _, err := os.Stat(foreign); err != nil {
		t.Errorf("foreign file removed by Clear: %v", err)
	}
	if keys, _ := adapter.Keys(""); len(keys) != 0 {
		t.Errorf("adapter keys survived Clear: %v", keys)
	}
}

func BenchmarkFilesystemAdapter(b *testing.B) {
	storagetest.RunAdapterBenchmarks(b, "filesystem", func(b *testing.B) storage.Adapter {
		return New()
	})
}
