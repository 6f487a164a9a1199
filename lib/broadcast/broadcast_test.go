package broadcast

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aoneahsan/strata-storage/lib/storage"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestBroadcastDelivery(t *testing.T) {
	b := NewLocal()
	defer b.Close()

	var mu sync.Mutex
	var got []storage.ChangeEvent
	cancel := b.Subscribe(func(e storage.ChangeEvent) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	})
	defer cancel()

	b.Broadcast(storage.ChangeEvent{Type: storage.EventSet, Key: "a"})
	b.Broadcast(storage.ChangeEvent{Type: storage.EventRemove, Key: "a"})

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	if got[0].Type != storage.EventSet || got[1].Type != storage.EventRemove {
		t.Errorf("events delivered out of order: %v", got)
	}
	if got[0].Source != b.Source() {
		t.Errorf("event source = %q, want broadcaster source %q", got[0].Source, b.Source())
	}
}

func TestForeignSourcePreserved(t *testing.T) {
	b := NewLocal()
	defer b.Close()

	var got atomic.Value
	cancel := b.Subscribe(func(e storage.ChangeEvent) {
		got.Store(e)
	})
	defer cancel()

	b.Broadcast(storage.ChangeEvent{Type: storage.EventSet, Key: "k", Source: "remote-1"})

	waitFor(t, time.Second, func() bool { return got.Load() != nil })
	if e := got.Load().(storage.ChangeEvent); e.Source != "remote-1" {
		t.Errorf("foreign source rewritten to %q", e.Source)
	}
}

func TestUnsubscribe(t *testing.T) {
	b := NewLocal()
	defer b.Close()

	var count atomic.Int32
	cancel := b.Subscribe(func(storage.ChangeEvent) {
		count.Add(1)
	})

	b.Broadcast(storage.ChangeEvent{Type: storage.EventSet, Key: "a"})
	waitFor(t, time.Second, func() bool { return count.Load() == 1 })

	cancel()
	cancel() // idempotent

	b.Broadcast(storage.ChangeEvent{Type: storage.EventSet, Key: "b"})

	// give the delivery goroutine a chance to misbehave
	time.Sleep(20 * time.Millisecond)
	if count.Load() != 1 {
		t.Errorf("received %d events after unsubscribe, want 1", count.Load())
	}
}

func TestCloseDeliversQueued(t *testing.T) {
	b := NewLocal()

	var count atomic.Int32
	b.Subscribe(func(storage.ChangeEvent) {
		count.Add(1)
	})

	for i := 0; i < 100; i++ {
		b.Broadcast(storage.ChangeEvent{Type: storage.EventSet, Key: "k"})
	}
	b.Close()

	if got := count.Load(); got != 100 {
		t.Errorf("delivered %d events, want all 100 before Close returned", got)
	}

	// after close, broadcasts are dropped silently
	b.Broadcast(storage.ChangeEvent{Type: storage.EventSet, Key: "late"})
	if got := count.Load(); got != 100 {
		t.Errorf("event delivered after Close, count = %d", got)
	}
}

func TestConcurrentBroadcasters(t *testing.T) {
	b := NewLocal()

	var count atomic.Int32
	b.Subscribe(func(storage.ChangeEvent) {
		count.Add(1)
	})

	const producers = 8
	const perProducer = 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				b.Broadcast(storage.ChangeEvent{Type: storage.EventSet, Key: "k"})
			}
		}()
	}
	wg.Wait()
	b.Close()

	if got := count.Load(); got != producers*perProducer {
		t.Errorf("delivered %d events, want %d", got, producers*perProducer)
	}
}

func TestDistinctSources(t *testing.T) {
	a, b := NewLocal(), NewLocal()
	defer a.Close()
	defer b.Close()

	if a.Source() == b.Source() {
		t.Error("two broadcasters share a source ID")
	}
	if a.Source() == "" {
		t.Error("empty source ID")
	}
}
