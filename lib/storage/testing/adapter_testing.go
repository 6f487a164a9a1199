package testing

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aoneahsan/strata-storage/lib/storage"
)

// AdapterFactory creates a fresh, uninitialized adapter instance for one
// test case. Disk-backed adapters should point each instance at its own
// temporary location.
type AdapterFactory func(t *testing.T) storage.Adapter

// RunAdapterTests runs the standardized conformance suite against an
// adapter implementation. Every adapter package invokes this from its
// own _test.go file.
func RunAdapterTests(t *testing.T, name string, factory AdapterFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Availability", func(t *testing.T) {
			testAvailability(t, factory)
		})

		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, initialized(t, factory))
		})

		t.Run("Overwrite", func(t *testing.T) {
			testOverwrite(t, initialized(t, factory))
		})

		t.Run("Remove", func(t *testing.T) {
			testRemove(t, initialized(t, factory))
		})

		t.Run("Has", func(t *testing.T) {
			testHas(t, initialized(t, factory))
		})

		t.Run("Keys", func(t *testing.T) {
			testKeys(t, initialized(t, factory))
		})

		t.Run("Clear", func(t *testing.T) {
			testClear(t, initialized(t, factory))
		})

		t.Run("Size", func(t *testing.T) {
			testSize(t, initialized(t, factory))
		})

		t.Run("EnvelopeFidelity", func(t *testing.T) {
			testEnvelopeFidelity(t, initialized(t, factory))
		})

		t.Run("Expiry", func(t *testing.T) {
			testExpiry(t, initialized(t, factory))
		})

		t.Run("OptionalCapabilities", func(t *testing.T) {
			testOptionalCapabilities(t, initialized(t, factory))
		})

		t.Run("Subscribe", func(t *testing.T) {
			testSubscribe(t, initialized(t, factory))
		})

		t.Run("Query", func(t *testing.T) {
			testQuery(t, initialized(t, factory))
		})

		t.Run("ConcurrentAccess", func(t *testing.T) {
			testConcurrentAccess(t, initialized(t, factory))
		})

		t.Run("CloseIdempotent", func(t *testing.T) {
			testCloseIdempotent(t, initialized(t, factory))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// initialized creates an adapter via the factory, initializes it with a
// default config, and registers cleanup.
func initialized(t *testing.T, factory AdapterFactory) storage.Adapter {
	t.Helper()

	adapter := factory(t)
	if ok, reason := adapter.Available(); !ok {
		t.Skipf("adapter %s not available: %s", adapter.Name(), reason)
	}
	cfg := storage.Config{Namespace: "conformance", Path: t.TempDir()}
	if err := adapter.Initialize(cfg); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { _ = adapter.Close() })
	return adapter
}

// envelope is a shorthand for building a plain test envelope.
func envelope(value string) *storage.Envelope {
	now := storage.NowMillis()
	return &storage.Envelope{
		Value:   []byte(value),
		Created: now,
		Updated: now,
	}
}

// mustSet stores an envelope or fails the test.
func mustSet(t *testing.T, adapter storage.Adapter, key string, env *storage.Envelope) {
	t.Helper()
	if err := adapter.Set(key, env); err != nil {
		t.Fatalf("Set(%q) failed: %v", key, err)
	}
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testAvailability(t *testing.T, factory AdapterFactory) {
	adapter := factory(t)

	ok, reason := adapter.Available()
	if !ok && reason == "" {
		t.Error("unavailable adapter must give a reason")
	}

	// the probe is side-effect free and stable
	ok2, _ := adapter.Available()
	if ok != ok2 {
		t.Error("Available() changed its answer between calls")
	}
}

func testSetGet(t *testing.T, adapter storage.Adapter) {
	mustSet(t, adapter, "test-key", envelope("test-value"))

	env, found, err := adapter.Get("test-key")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Fatal("expected key to exist after Set")
	}
	if !bytes.Equal(env.Value, []byte("test-value")) {
		t.Errorf("expected value %q, got %q", "test-value", env.Value)
	}

	// a missing key is found=false, not an error
	_, found, err = adapter.Get("nonexistent-key")
	if err != nil {
		t.Fatalf("Get of missing key errored: %v", err)
	}
	if found {
		t.Error("expected missing key to return found=false")
	}

	// mutating the returned envelope must not affect stored state
	env.Value[0] = 'X'
	env2, _, _ := adapter.Get("test-key")
	if !bytes.Equal(env2.Value, []byte("test-value")) {
		t.Error("stored envelope was mutated through a returned copy")
	}
}

func testOverwrite(t *testing.T, adapter storage.Adapter) {
	first := envelope("first")
	first.Tags = []string{"a", "b"}
	first.Metadata = map[string]string{"owner": "alice"}
	mustSet(t, adapter, "key", first)

	// the overwrite replaces the envelope wholesale, no field merging
	mustSet(t, adapter, "key", envelope("second"))

	env, found, err := adapter.Get("key")
	if err != nil || !found {
		t.Fatalf("Get after overwrite: found=%v err=%v", found, err)
	}
	if !bytes.Equal(env.Value, []byte("second")) {
		t.Errorf("expected overwritten value, got %q", env.Value)
	}
	if len(env.Tags) != 0 || len(env.Metadata) != 0 {
		t.Errorf("old tags/metadata survived the overwrite: %v %v", env.Tags, env.Metadata)
	}
}

func testRemove(t *testing.T, adapter storage.Adapter) {
	mustSet(t, adapter, "key", envelope("value"))

	if err := adapter.Remove("key"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, found, _ := adapter.Get("key"); found {
		t.Error("key still present after Remove")
	}

	// removing an absent key is not an error
	if err := adapter.Remove("never-existed"); err != nil {
		t.Errorf("Remove of absent key errored: %v", err)
	}
}

func testHas(t *testing.T, adapter storage.Adapter) {
	mustSet(t, adapter, "present", envelope("v"))

	ok, err := adapter.Has("present")
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	if !ok {
		t.Error("Has(present) = false")
	}

	ok, err = adapter.Has("absent")
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	if ok {
		t.Error("Has(absent) = true")
	}
}

func testKeys(t *testing.T, adapter storage.Adapter) {
	for _, key := range []string{"user:1", "user:2", "session:1"} {
		mustSet(t, adapter, key, envelope("v"))
	}

	all, err := adapter.Keys("")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Keys(\"\") returned %d keys, want 3: %v", len(all), all)
	}

	users, err := adapter.Keys("user:*")
	if err != nil {
		t.Fatalf("Keys(pattern) failed: %v", err)
	}
	if len(users) != 2 || !containsKey(users, "user:1") || !containsKey(users, "user:2") {
		t.Errorf("Keys(user:*) = %v, want user:1 and user:2", users)
	}

	single, err := adapter.Keys("session:?")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(single) != 1 || single[0] != "session:1" {
		t.Errorf("Keys(session:?) = %v", single)
	}
}

func testClear(t *testing.T, adapter storage.Adapter) {
	// clearing an empty backend is not an error
	if err := adapter.Clear(); err != nil {
		t.Fatalf("Clear on empty backend failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		mustSet(t, adapter, fmt.Sprintf("key-%d", i), envelope("v"))
	}
	if err := adapter.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	keys, err := adapter.Keys("")
	if err != nil {
		t.Fatalf("Keys after Clear failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("%d keys survived Clear: %v", len(keys), keys)
	}
}

func testSize(t *testing.T, adapter storage.Adapter) {
	empty, err := adapter.Size()
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if empty.Count != 0 {
		t.Errorf("empty backend reports count %d", empty.Count)
	}

	mustSet(t, adapter, "a", envelope("0123456789"))
	mustSet(t, adapter, "b", envelope("0123456789"))

	info, err := adapter.Size()
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	if info.Count != 2 {
		t.Errorf("Size.Count = %d, want 2", info.Count)
	}
	if info.Bytes < 20 {
		t.Errorf("Size.Bytes = %d, want at least the 20 payload bytes", info.Bytes)
	}
}

func testEnvelopeFidelity(t *testing.T, adapter storage.Adapter) {
	in := &storage.Envelope{
		Value:      []byte{0x00, 0xff, 0x10, 0x80},
		Created:    1700000000000,
		Updated:    1700000001000,
		Expires:    storage.NowMillis() + int64(time.Hour/time.Millisecond),
		Tags:       []string{"session", "critical"},
		Metadata:   map[string]string{"region": "eu", "owner": "bob"},
		Encrypted:  true,
		Compressed: true,
	}
	mustSet(t, adapter, "full", in)

	out, found, err := adapter.Get("full")
	if err != nil || !found {
		t.Fatalf("Get failed: found=%v err=%v", found, err)
	}

	if !bytes.Equal(out.Value, in.Value) {
		t.Errorf("value changed: %x != %x", out.Value, in.Value)
	}
	if out.Created != in.Created || out.Updated != in.Updated || out.Expires != in.Expires {
		t.Errorf("timestamps changed: %+v", out)
	}
	if len(out.Tags) != 2 || out.Tags[0] != "session" || out.Tags[1] != "critical" {
		t.Errorf("tags changed: %v", out.Tags)
	}
	if out.Metadata["region"] != "eu" || out.Metadata["owner"] != "bob" {
		t.Errorf("metadata changed: %v", out.Metadata)
	}
	// transformation flags are authoritative and must round-trip exactly
	if !out.Encrypted || !out.Compressed {
		t.Errorf("transformation flags lost: encrypted=%v compressed=%v", out.Encrypted, out.Compressed)
	}
}

func testExpiry(t *testing.T, adapter storage.Adapter) {
	env := envelope("short-lived")
	env.Expires = storage.NowMillis() + 50
	mustSet(t, adapter, "ttl-key", env)

	if _, found, _ := adapter.Get("ttl-key"); !found {
		t.Fatal("key missing before its deadline")
	}

	time.Sleep(80 * time.Millisecond)

	// an expired entry may be evicted lazily or by a janitor, but must
	// never be returned as live past its deadline
	if _, found, _ := adapter.Get("ttl-key"); found {
		t.Error("expired key still returned by Get")
	}
	if ok, _ := adapter.Has("ttl-key"); ok {
		t.Error("expired key still reported by Has")
	}
}

func testOptionalCapabilities(t *testing.T, adapter storage.Adapter) {
	caps := adapter.Capabilities()

	if !caps.Observable {
		if _, err := adapter.Subscribe(func(storage.ChangeEvent) {}); !storage.IsNotSupported(err) {
			t.Errorf("Subscribe on non-observable adapter: err = %v, want NotSupported", err)
		}
	}
	if !caps.Queryable {
		if _, err := adapter.Query(map[string]any{"tags": "x"}); !storage.IsNotSupported(err) {
			t.Errorf("Query on non-queryable adapter: err = %v, want NotSupported", err)
		}
	}
}

func testSubscribe(t *testing.T, adapter storage.Adapter) {
	if !adapter.Capabilities().Observable {
		t.Skip("adapter is not observable")
	}

	var mu sync.Mutex
	var events []storage.ChangeEvent
	cancel, err := adapter.Subscribe(func(e storage.ChangeEvent) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer cancel()

	mustSet(t, adapter, "watched", envelope("v"))
	if err := adapter.Remove("watched"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		n := len(events)
		mu.Unlock()
		if n >= 2 || time.Now().After(deadline) {
			break
		}
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) < 2 {
		t.Fatalf("received %d events, want set + remove", len(events))
	}
	if events[0].Type != storage.EventSet || events[0].Key != "watched" {
		t.Errorf("first event = %+v, want set(watched)", events[0])
	}
	if events[1].Type != storage.EventRemove || events[1].Key != "watched" {
		t.Errorf("second event = %+v, want remove(watched)", events[1])
	}
}

func testQuery(t *testing.T, adapter storage.Adapter) {
	if !adapter.Capabilities().Queryable {
		t.Skip("adapter is not queryable")
	}

	session := envelope("s")
	session.Tags = []string{"session"}
	session.Metadata = map[string]string{"owner": "alice"}
	mustSet(t, adapter, "sess-1", session)

	config := envelope("c")
	config.Tags = []string{"config"}
	mustSet(t, adapter, "conf-1", config)

	keys, err := adapter.Query(map[string]any{"tags": "session"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != "sess-1" {
		t.Errorf("Query(tags=session) = %v, want [sess-1]", keys)
	}

	keys, err = adapter.Query(map[string]any{"metadata.owner": map[string]any{"$eq": "alice"}})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != "sess-1" {
		t.Errorf("Query(metadata.owner) = %v, want [sess-1]", keys)
	}

	keys, err = adapter.Query(map[string]any{"tags": "missing"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("Query(tags=missing) = %v, want none", keys)
	}
}

func testConcurrentAccess(t *testing.T, adapter storage.Adapter) {
	const goroutines = 8
	const perGoroutine = 50

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				key := fmt.Sprintf("g%d-k%d", g, i)
				if err := adapter.Set(key, envelope(key)); err != nil {
					t.Errorf("concurrent Set failed: %v", err)
					return
				}
				env, found, err := adapter.Get(key)
				if err != nil || !found {
					t.Errorf("concurrent Get(%q): found=%v err=%v", key, found, err)
					return
				}
				if !bytes.Equal(env.Value, []byte(key)) {
					t.Errorf("concurrent Get(%q) returned %q", key, env.Value)
					return
				}
			}
		}(g)
	}
	wg.Wait()

	keys, err := adapter.Keys("")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != goroutines*perGoroutine {
		t.Errorf("found %d keys after concurrent writes, want %d", len(keys), goroutines*perGoroutine)
	}
}

func testCloseIdempotent(t *testing.T, adapter storage.Adapter) {
	if err := adapter.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := adapter.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}
