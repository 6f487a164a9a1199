package registry

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aoneahsan/strata-storage/lib/storage"
)

// fakeAdapter is a minimal adapter for registry tests
type fakeAdapter struct {
	name        storage.Type
	available   bool
	reason      string
	initDelay   time.Duration
	initErr     error
	initCalls   atomic.Int32
	closeCalls  atomic.Int32
	lastConfig  storage.Config
	configMutex sync.Mutex
}

func newFakeAdapter(name storage.Type) *fakeAdapter {
	return &fakeAdapter{name: name, available: true}
}

func (f *fakeAdapter) Name() storage.Type { return f.name }
func (f *fakeAdapter) Capabilities() storage.Capabilities {
	return storage.Capabilities{MaxSize: storage.Unbounded}
}
func (f *fakeAdapter) Available() (bool, string) { return f.available, f.reason }

func (f *fakeAdapter) Initialize(cfg storage.Config) error {
	f.initCalls.Add(1)
	if f.initDelay > 0 {
		time.Sleep(f.initDelay)
	}
	f.configMutex.Lock()
	f.lastConfig = cfg
	f.configMutex.Unlock()
	return f.initErr
}

func (f *fakeAdapter) Get(string) (*storage.Envelope, bool, error)   { return nil, false, nil }
func (f *fakeAdapter) Set(string, *storage.Envelope) error           { return nil }
func (f *fakeAdapter) Remove(string) error                           { return nil }
func (f *fakeAdapter) Keys(string) ([]string, error)                 { return nil, nil }
func (f *fakeAdapter) Has(string) (bool, error)                      { return false, nil }
func (f *fakeAdapter) Clear() error                                  { return nil }
func (f *fakeAdapter) Size() (storage.SizeInfo, error)               { return storage.SizeInfo{}, nil }
func (f *fakeAdapter) Subscribe(func(storage.ChangeEvent)) (func(), error) {
	return nil, storage.NewNotSupported(f.name, "Subscribe")
}
func (f *fakeAdapter) Query(map[string]any) ([]string, error) {
	return nil, storage.NewNotSupported(f.name, "Query")
}
func (f *fakeAdapter) Close() error {
	f.closeCalls.Add(1)
	return nil
}

func TestRegisterAndGet(t *testing.T) {
	r := New()

	if got := r.Get(storage.TypeMemory); got != nil {
		t.Error("Get of an unregistered name should return nil")
	}

	a := newFakeAdapter(storage.TypeMemory)
	r.Register(a)

	if got := r.Get(storage.TypeMemory); got != a {
		t.Error("Get should return the registered adapter")
	}

	// last write wins
	b := newFakeAdapter(storage.TypeMemory)
	r.Register(b)
	if got := r.Get(storage.TypeMemory); got != b {
		t.Error("Re-registration should replace the prior adapter")
	}
}

func TestGetInitialized(t *testing.T) {
	r := New()
	a := newFakeAdapter(storage.TypeMemory)
	r.Register(a)

	got, err := r.GetInitialized(storage.TypeMemory, storage.Config{Namespace: "test"})
	if err != nil {
		t.Fatalf("GetInitialized failed: %v", err)
	}
	if got != a {
		t.Error("GetInitialized should return the registered adapter")
	}
	if a.initCalls.Load() != 1 {
		t.Errorf("Expected 1 Initialize call, got %d", a.initCalls.Load())
	}

	// second call must not re-initialize
	if _, err := r.GetInitialized(storage.TypeMemory, storage.Config{}); err != nil {
		t.Fatalf("Second GetInitialized failed: %v", err)
	}
	if a.initCalls.Load() != 1 {
		t.Errorf("Adapter must be initialized at most once, got %d calls", a.initCalls.Load())
	}
}

func TestGetInitializedUnavailable(t *testing.T) {
	r := New()
	a := newFakeAdapter(storage.TypeSQLite)
	a.available = false
	a.reason = "sqlite driver missing"
	r.Register(a)

	_, err := r.GetInitialized(storage.TypeSQLite, storage.Config{})
	if !storage.IsNotAvailable(err) {
		t.Errorf("Expected AdapterNotAvailable, got %v", err)
	}
	if a.initCalls.Load() != 0 {
		t.Error("An unavailable adapter must not be initialized")
	}

	_, err = r.GetInitialized(storage.TypeCookies, storage.Config{})
	if !storage.IsNotAvailable(err) {
		t.Errorf("Unregistered name should yield AdapterNotAvailable, got %v", err)
	}
}

func TestGetInitializedFailureRetries(t *testing.T) {
	r := New()
	a := newFakeAdapter(storage.TypeMemory)
	a.initErr = errors.New("disk full")
	r.Register(a)

	if _, err := r.GetInitialized(storage.TypeMemory, storage.Config{}); err == nil {
		t.Fatal("Expected initialization failure")
	}

	// a failed initialization is not latched; the next caller retries
	a.initErr = nil
	if _, err := r.GetInitialized(storage.TypeMemory, storage.Config{}); err != nil {
		t.Fatalf("Retry after failure should succeed: %v", err)
	}
	if a.initCalls.Load() != 2 {
		t.Errorf("Expected 2 Initialize calls, got %d", a.initCalls.Load())
	}
}

// TestConcurrentInitialization verifies the core invariant: two concurrent
// first uses result in exactly one Initialize invocation.
func TestConcurrentInitialization(t *testing.T) {
	r := New()
	a := newFakeAdapter(storage.TypeMemory)
	a.initDelay = 20 * time.Millisecond
	r.Register(a)

	const callers = 16
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			if _, err := r.GetInitialized(storage.TypeMemory, storage.Config{}); err != nil {
				t.Errorf("GetInitialized failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := a.initCalls.Load(); got != 1 {
		t.Errorf("Concurrent first use must collapse to one Initialize, got %d", got)
	}
}

func TestAvailable(t *testing.T) {
	r := New()

	mem := newFakeAdapter(storage.TypeMemory)
	sql := newFakeAdapter(storage.TypeSQLite)
	sql.available = false
	fs := newFakeAdapter(storage.TypeFilesystem)

	r.Register(mem)
	r.Register(sql)
	r.Register(fs)

	available := r.Available()
	if len(available) != 2 {
		t.Fatalf("Expected 2 available adapters, got %d", len(available))
	}
	// sorted by name: filesystem < memory
	if available[0].Name() != storage.TypeFilesystem || available[1].Name() != storage.TypeMemory {
		t.Errorf("Unexpected order: %v, %v", available[0].Name(), available[1].Name())
	}

	// probing must not initialize anything
	if mem.initCalls.Load() != 0 {
		t.Error("Available must be side-effect free")
	}
}

func TestDescribe(t *testing.T) {
	r := New()

	mem := newFakeAdapter(storage.TypeMemory)
	sql := newFakeAdapter(storage.TypeSQLite)
	sql.available = false
	sql.reason = "sqlite driver missing"
	r.Register(mem)
	r.Register(sql)

	infos := r.Describe()
	if len(infos) != 2 {
		t.Fatalf("Expected 2 descriptors, got %d", len(infos))
	}
	// sorted by name: memory < sqlite
	if infos[0].Name != storage.TypeMemory || !infos[0].Available || infos[0].Reason != "" {
		t.Errorf("Unexpected memory descriptor: %+v", infos[0])
	}
	if infos[1].Name != storage.TypeSQLite || infos[1].Available || infos[1].Reason != "sqlite driver missing" {
		t.Errorf("Unexpected sqlite descriptor: %+v", infos[1])
	}

	if mem.initCalls.Load() != 0 {
		t.Error("Describe must be side-effect free")
	}
}

func TestCloseAll(t *testing.T) {
	r := New()

	used := newFakeAdapter(storage.TypeMemory)
	unused := newFakeAdapter(storage.TypeFilesystem)
	r.Register(used)
	r.Register(unused)

	if _, err := r.GetInitialized(storage.TypeMemory, storage.Config{}); err != nil {
		t.Fatalf("GetInitialized failed: %v", err)
	}

	if err := r.CloseAll(); err != nil {
		t.Fatalf("CloseAll failed: %v", err)
	}

	if used.closeCalls.Load() != 1 {
		t.Errorf("Initialized adapter should be closed once, got %d", used.closeCalls.Load())
	}
	if unused.closeCalls.Load() != 0 {
		t.Error("Uninitialized adapter must not be closed")
	}

	// the initialized set was cleared, a second CloseAll closes nothing
	if err := r.CloseAll(); err != nil {
		t.Fatalf("Second CloseAll failed: %v", err)
	}
	if used.closeCalls.Load() != 1 {
		t.Error("CloseAll must not close adapters twice")
	}

	// after CloseAll the adapter can be initialized again
	if _, err := r.GetInitialized(storage.TypeMemory, storage.Config{}); err != nil {
		t.Fatalf("Re-initialization after CloseAll failed: %v", err)
	}
	if used.initCalls.Load() != 2 {
		t.Errorf("Expected re-initialization, got %d init calls", used.initCalls.Load())
	}
}

func TestUnregisterAndClear(t *testing.T) {
	r := New()
	r.Register(newFakeAdapter(storage.TypeMemory))
	r.Register(newFakeAdapter(storage.TypeFilesystem))

	r.Unregister(storage.TypeMemory)
	if r.Get(storage.TypeMemory) != nil {
		t.Error("Unregistered adapter should be gone")
	}
	if len(r.Names()) != 1 {
		t.Errorf("Expected 1 remaining registration, got %d", len(r.Names()))
	}

	r.Clear()
	if len(r.Names()) != 0 {
		t.Error("Clear should remove all registrations")
	}
}
