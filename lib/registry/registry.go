package registry

import (
	"sort"
	"sync"

	"github.com/aoneahsan/strata-storage/lib/logger"
	"github.com/aoneahsan/strata-storage/lib/storage"
)

// --------------------------------------------------------------------------
// Registration Record
// --------------------------------------------------------------------------

// record tracks one registered adapter and its initialization state.
// The record mutex doubles as the initialization gate: the first caller
// holds it while Initialize runs, so a concurrent second caller blocks on
// the same in-flight initialization instead of starting another one.
type record struct {
	adapter storage.Adapter

	mu          sync.Mutex
	initialized bool
}

// --------------------------------------------------------------------------
// Registry
// --------------------------------------------------------------------------

// Registry holds all registered storage adapters and lazily initializes
// them on first real use.
type Registry struct {
	mu      sync.RWMutex
	records map[storage.Type]*record
	log     *logger.Logger
}

// New creates an empty adapter registry.
func New() *Registry {
	return &Registry{
		records: make(map[storage.Type]*record),
		log:     logger.New("registry"),
	}
}

// Register stores an adapter under its name. A prior registration of the
// same name is overwritten, last write wins; callers are responsible for
// not double-registering unintentionally.
func (r *Registry) Register(adapter storage.Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[adapter.Name()]; exists {
		r.log.Warningf("adapter %q re-registered, replacing previous registration", adapter.Name())
	}
	r.records[adapter.Name()] = &record{adapter: adapter}
}

// Get returns the registered adapter or nil. It never fails; asking for
// an unknown name is not an error.
func (r *Registry) Get(name storage.Type) storage.Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rec, ok := r.records[name]; ok {
		return rec.adapter
	}
	return nil
}

// GetInitialized is the single initialization gate: it verifies the
// adapter is available on this platform and initializes it exactly once.
// Concurrent first-use races collapse into a single initialization; later
// callers return immediately. A failed initialization is not recorded, so
// the next caller retries it.
func (r *Registry) GetInitialized(name storage.Type, cfg storage.Config) (storage.Adapter, error) {
	r.mu.RLock()
	rec, ok := r.records[name]
	r.mu.RUnlock()

	if !ok {
		return nil, storage.NewNotAvailable(name, "not registered")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if rec.initialized {
		return rec.adapter, nil
	}

	if ok, reason := rec.adapter.Available(); !ok {
		return nil, storage.NewNotAvailable(name, reason)
	}

	if err := rec.adapter.Initialize(cfg); err != nil {
		return nil, storage.WrapError(storage.ErrCodeStorage, "initializing adapter "+string(name), err)
	}

	rec.initialized = true
	r.log.Debugf("adapter %q initialized", name)
	return rec.adapter, nil
}

// Available probes every registered adapter and returns the subset that
// reports itself usable on this platform. Probing is side-effect free and
// safe to call repeatedly; the result is sorted by name for determinism.
func (r *Registry) Available() []storage.Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var available []storage.Adapter
	for _, rec := range r.records {
		if ok, _ := rec.adapter.Available(); ok {
			available = append(available, rec.adapter)
		}
	}
	sort.Slice(available, func(i, j int) bool {
		return available[i].Name() < available[j].Name()
	})
	return available
}

// Initialized returns the adapters that have been initialized so far.
func (r *Registry) Initialized() []storage.Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var initialized []storage.Adapter
	for _, rec := range r.records {
		rec.mu.Lock()
		if rec.initialized {
			initialized = append(initialized, rec.adapter)
		}
		rec.mu.Unlock()
	}
	sort.Slice(initialized, func(i, j int) bool {
		return initialized[i].Name() < initialized[j].Name()
	})
	return initialized
}

// Describe probes every registered adapter and returns its descriptor,
// sorted by name. Like Available, probing is side-effect free.
func (r *Registry) Describe() []storage.AdapterInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]storage.AdapterInfo, 0, len(r.records))
	for _, rec := range r.records {
		available, reason := rec.adapter.Available()
		if available {
			reason = ""
		}
		infos = append(infos, storage.AdapterInfo{
			Name:         rec.adapter.Name(),
			Capabilities: rec.adapter.Capabilities(),
			Available:    available,
			Reason:       reason,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Names returns all registered adapter names, sorted.
func (r *Registry) Names() []storage.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]storage.Type, 0, len(r.records))
	for name := range r.records {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Unregister removes an adapter's bookkeeping. The adapter is not closed;
// use CloseAll for teardown.
func (r *Registry) Unregister(name storage.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, name)
}

// Clear removes all registrations without closing anything.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = make(map[storage.Type]*record)
}

// CloseAll closes every initialized adapter and resets the initialization
// bookkeeping. Close failures are collected per adapter but do not stop
// the teardown of the remaining ones.
func (r *Registry) CloseAll() error {
	r.mu.RLock()
	records := make([]*record, 0, len(r.records))
	for _, rec := range r.records {
		records = append(records, rec)
	}
	r.mu.RUnlock()

	var firstErr error
	for _, rec := range records {
		rec.mu.Lock()
		if rec.initialized {
			if err := rec.adapter.Close(); err != nil && firstErr == nil {
				firstErr = storage.WrapError(storage.ErrCodeStorage,
					"closing adapter "+string(rec.adapter.Name()), err)
			}
			rec.initialized = false
		}
		rec.mu.Unlock()
	}
	return firstErr
}
