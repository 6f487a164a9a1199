package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/aoneahsan/strata-storage/lib/storage"
	storagetest "github.com/aoneahsan/strata-storage/lib/storage/testing"
)

func TestMemoryAdapterConformance(t *testing.T) {
	storagetest.RunAdapterTests(t, "memory", func(t *testing.T) storage.Adapter {
		return New(&Options{SweepInterval: 10 * time.Millisecond})
	})
}

func TestJanitorEvictsAndNotifies(t *testing.T) {
	adapter := New(&Options{SweepInterval: 5 * time.Millisecond})
	if err := adapter.Initialize(storage.Config{}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer adapter.Close()

	events := make(chan storage.ChangeEvent, 8)
	cancel, err := adapter.Subscribe(func(e storage.ChangeEvent) {
		events <- e
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer cancel()

	now := storage.NowMillis()
	env := &storage.Envelope{Value: []byte("v"), Created: now, Updated: now, Expires: now + 20}
	if err := adapter.Set("doomed", env); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	<-events // the set event

	// the janitor must evict without any read touching the key
	select {
	case e := <-events:
		if e.Type != storage.EventExpired || e.Key != "doomed" {
			t.Errorf("got event %+v, want expired(doomed)", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no expired event from the janitor")
	}

	if _, found, _ := adapter.Get("doomed"); found {
		t.Error("key still present after janitor eviction")
	}
}

func TestOverwriteCancelsExpiry(t *testing.T) {
	adapter := New(&Options{SweepInterval: 5 * time.Millisecond})
	if err := adapter.Initialize(storage.Config{}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer adapter.Close()

	now := storage.NowMillis()
	short := &storage.Envelope{Value: []byte("a"), Created: now, Updated: now, Expires: now + 20}
	if err := adapter.Set("key", short); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// overwrite with no deadline before the first one fires
	forever := &storage.Envelope{Value: []byte("b"), Created: now, Updated: now}
	if err := adapter.Set("key", forever); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	env, found, err := adapter.Get("key")
	if err != nil || !found {
		t.Fatalf("key vanished after overwrite: found=%v err=%v", found, err)
	}
	if string(env.Value) != "b" {
		t.Errorf("value = %q, want the overwritten one", env.Value)
	}
}

func TestClearDuringConcurrentAccess(t *testing.T) {
	adapter := New(&Options{SweepInterval: time.Hour})
	if err := adapter.Initialize(storage.Config{}); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer adapter.Close()

	now := storage.NowMillis()
	for _, key := range []string{"a", "b", "c", "d"} {
		env := &storage.Envelope{Value: []byte(key), Created: now, Updated: now}
		if err := adapter.Set(key, env); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			key := string(rune('a' + w))
			env := &storage.Envelope{Value: []byte(key), Created: now, Updated: now}
			for {
				select {
				case <-done:
					return
				default:
				}
				if err := adapter.Set(key, env); err != nil {
					t.Errorf("Set failed: %v", err)
					return
				}
				if _, _, err := adapter.Get(key); err != nil {
					t.Errorf("Get failed: %v", err)
					return
				}
				if _, err := adapter.Keys(""); err != nil {
					t.Errorf("Keys failed: %v", err)
					return
				}
			}
		}(w)
	}

	for i := 0; i < 50; i++ {
		if err := adapter.Clear(); err != nil {
			t.Fatalf("Clear failed: %v", err)
		}
	}
	close(done)
	wg.Wait()

	if err := adapter.Clear(); err != nil {
		t.Fatalf("final Clear failed: %v", err)
	}
	keys, err := adapter.Keys("")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("keys after final clear = %v, want none", keys)
	}
}

func BenchmarkMemoryAdapter(b *testing.B) {
	storagetest.RunAdapterBenchmarks(b, "memory", func(b *testing.B) storage.Adapter {
		return New(nil)
	})
}
